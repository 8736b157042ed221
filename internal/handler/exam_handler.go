package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/qiyas-mock/internal/middleware"
	"github.com/stemsi/qiyas-mock/internal/response"
	"github.com/stemsi/qiyas-mock/internal/service"
)

// ExamHandler serves the exam catalog.
type ExamHandler struct {
	catalog *service.CatalogService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(catalog *service.CatalogService) *ExamHandler {
	return &ExamHandler{catalog: catalog}
}

// ListExams godoc
// GET /api/v1/exams
// Lists every template; premium ones are marked locked for users without the entitlement.
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	entries, err := h.catalog.List(c.Request.Context(), claims.UserID)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": entries})
}

// GetExam godoc
// GET /api/v1/exams/:template_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	tpl, err := h.catalog.Get(c.Param("template_id"))
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": tpl})
}
