package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/engine"
	"github.com/stemsi/qiyas-mock/internal/response"
	"github.com/stemsi/qiyas-mock/internal/service"
)

// sessionError maps exam session failures to an HTTP status and error code.
func sessionError(err error) (int, response.ErrCode) {
	var asmErr *engine.AssemblyError
	switch {
	case errors.As(err, &asmErr):
		return http.StatusServiceUnavailable, response.ErrAssemblyFailed
	case errors.Is(err, service.ErrNoActiveSession), errors.Is(err, engine.ErrSessionClosed):
		return http.StatusNotFound, response.ErrNoActiveSession
	case errors.Is(err, service.ErrTemplateNotFound), errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrResultsNotReady):
		return http.StatusConflict, response.ErrResultsNotReady
	case errors.Is(err, engine.ErrEntitlementRequired):
		return http.StatusPaymentRequired, response.ErrUpgradeRequired
	case errors.Is(err, engine.ErrPrayerBreakUsed):
		return http.StatusConflict, response.ErrPrayerBreakUsed
	case errors.Is(err, engine.ErrReadOnlyReview):
		return http.StatusConflict, response.ErrReadOnlyReview
	case errors.Is(err, engine.ErrUnknownQuestion):
		return http.StatusUnprocessableEntity, response.ErrUnknownQuestion
	case errors.Is(err, engine.ErrInvalidOption):
		return http.StatusUnprocessableEntity, response.ErrInvalidOption
	case errors.Is(err, engine.ErrOutOfRange):
		return http.StatusUnprocessableEntity, response.ErrQuestionOutOfRange
	case errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict, response.ErrInvalidTransition
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, response.ErrInternal
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failSession writes the error response for a session failure and logs
// unexpected ones.
func failSession(c *gin.Context, err error) {
	status, code := sessionError(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("Exam session request failed")
	}
	response.Fail(c, status, code)
}
