package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/qiyas-mock/internal/response"
	"github.com/stemsi/qiyas-mock/internal/service"
)

// HistoryHandler serves the caller's recorded attempts.
type HistoryHandler struct {
	sessions *service.ExamSessionService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(sessions *service.ExamSessionService) *HistoryHandler {
	return &HistoryHandler{sessions: sessions}
}

// ListAttempts godoc
// GET /api/v1/history
func (h *HistoryHandler) ListAttempts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	attempts, err := h.sessions.History(c.Request.Context(), uid)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttempt godoc
// GET /api/v1/history/:attempt_id
// Scores are recomputed from the stored answers. Review is omitted for templates that hide it.
func (h *HistoryHandler) GetAttempt(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	detail, err := h.sessions.Attempt(c.Request.Context(), uid, c.Param("attempt_id"))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": detail})
}
