package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stemsi/qiyas-mock/internal/engine"
	"github.com/stemsi/qiyas-mock/internal/response"
	"github.com/stemsi/qiyas-mock/internal/service"
)

func TestSessionErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"entitlement", engine.ErrEntitlementRequired, http.StatusPaymentRequired, response.ErrUpgradeRequired},
		{"no session", service.ErrNoActiveSession, http.StatusNotFound, response.ErrNoActiveSession},
		{"closed runner", engine.ErrSessionClosed, http.StatusNotFound, response.ErrNoActiveSession},
		{"template", service.ErrTemplateNotFound, http.StatusNotFound, response.ErrNotFound},
		{"wrapped transition", fmt.Errorf("%w: cannot begin", engine.ErrInvalidTransition), http.StatusConflict, response.ErrInvalidTransition},
		{"prayer break", engine.ErrPrayerBreakUsed, http.StatusConflict, response.ErrPrayerBreakUsed},
		{"read only", engine.ErrReadOnlyReview, http.StatusConflict, response.ErrReadOnlyReview},
		{"unknown question", engine.ErrUnknownQuestion, http.StatusUnprocessableEntity, response.ErrUnknownQuestion},
		{"option", engine.ErrInvalidOption, http.StatusUnprocessableEntity, response.ErrInvalidOption},
		{"range", engine.ErrOutOfRange, http.StatusUnprocessableEntity, response.ErrQuestionOutOfRange},
		{"results", service.ErrResultsNotReady, http.StatusConflict, response.ErrResultsNotReady},
		{"assembly", &engine.AssemblyError{Failed: map[int]error{1: errors.New("down")}}, http.StatusServiceUnavailable, response.ErrAssemblyFailed},
		{"other", errors.New("boom"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := sessionError(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("got %d %s, want %d %s", status, code, tt.status, tt.code)
			}
		})
	}
}
