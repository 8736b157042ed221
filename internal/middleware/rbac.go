package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/qiyas-mock/internal/model"
	"github.com/stemsi/qiyas-mock/internal/response"
)

// RequireRole admits tokens carrying one of the given roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
	}
}

// RequireAdmin admits question bank administrators only.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin)
}
