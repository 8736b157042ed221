package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/qiyas-mock/internal/engine"
	"github.com/stemsi/qiyas-mock/internal/middleware"
	"github.com/stemsi/qiyas-mock/internal/model"
	"github.com/stemsi/qiyas-mock/internal/response"
	"github.com/stemsi/qiyas-mock/internal/service"
	"github.com/stemsi/qiyas-mock/internal/validator"
)

// SessionHandler drives the caller's live exam session.
type SessionHandler struct {
	sessions *service.ExamSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.ExamSessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func userID(c *gin.Context) (int, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, false
	}
	return claims.UserID, true
}

// dispatch applies ev and answers with the resulting snapshot.
func (h *SessionHandler) dispatch(c *gin.Context, ev engine.Event) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	snap, err := h.sessions.Dispatch(c.Request.Context(), uid, ev)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Select godoc
// POST /api/v1/session/select
// Picks a template and shows its instructions. 402 when the template is premium.
func (h *SessionHandler) Select(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req model.SelectExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessions.Select(c.Request.Context(), uid, req.TemplateID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Begin godoc
// POST /api/v1/session/begin
// Assembles the questions and starts the first section.
func (h *SessionHandler) Begin(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	snap, err := h.sessions.Begin(c.Request.Context(), uid)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Get godoc
// GET /api/v1/session
func (h *SessionHandler) Get(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	snap, err := h.sessions.Snapshot(c.Request.Context(), uid)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Answer godoc
// POST /api/v1/session/answer
func (h *SessionHandler) Answer(c *gin.Context) {
	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.dispatch(c, engine.Answer{QuestionID: req.QuestionID, Option: *req.Option})
}

// Navigate godoc
// POST /api/v1/session/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.dispatch(c, engine.Navigate{Direction: engine.Direction(req.Direction), Index: req.Index})
}

// FinishSection godoc
// POST /api/v1/session/finish-section
func (h *SessionHandler) FinishSection(c *gin.Context) {
	h.dispatch(c, engine.FinishSection{})
}

// ReviewChoice godoc
// POST /api/v1/session/review-choice
// Resolves the final review prompt: review, finish or cancel.
func (h *SessionHandler) ReviewChoice(c *gin.Context) {
	var req model.ReviewChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.dispatch(c, engine.ReviewChoice{Choice: engine.Choice(req.Choice)})
}

// PrayerBreak godoc
// POST /api/v1/session/prayer-break
func (h *SessionHandler) PrayerBreak(c *gin.Context) {
	h.dispatch(c, engine.StartPrayerBreak{})
}

// Resume godoc
// POST /api/v1/session/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	h.dispatch(c, engine.ResumeFromBreak{})
}

// Abandon godoc
// DELETE /api/v1/session
// Drops the attempt without recording it, or leaves the results screen.
func (h *SessionHandler) Abandon(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := h.sessions.Abandon(c.Request.Context(), uid); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Results godoc
// GET /api/v1/session/results
func (h *SessionHandler) Results(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	res, err := h.sessions.Results(c.Request.Context(), uid)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": res})
}
