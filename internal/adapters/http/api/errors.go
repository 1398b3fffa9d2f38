package api

import (
	"errors"
	"net/http"

	service "github.com/okian/cyberguardian/internal/app"
	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/training"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// classify returns the status, code and message the UI receives for err.
// Backend failures carry the notice shown to the trainee instead of the
// internal error text.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, service.ErrSaveInProgress):
		return http.StatusConflict, "in_progress", err.Error()
	case errors.Is(err, training.ErrBusy):
		return http.StatusConflict, "busy", err.Error()
	case errors.Is(err, training.ErrMentorPending):
		return http.StatusConflict, "mentor_pending", err.Error()
	case errors.Is(err, training.ErrConversationEnded):
		return http.StatusConflict, "conversation_ended", err.Error()
	case errors.Is(err, training.ErrInvalidTransition):
		return http.StatusBadRequest, "invalid_transition", err.Error()
	case errors.Is(err, training.ErrEmptyMessage):
		return http.StatusBadRequest, "empty_message", err.Error()
	case errors.Is(err, model.ErrInvalidDraft):
		return http.StatusBadRequest, "invalid_draft", err.Error()
	case errors.Is(err, model.ErrInvalidEnum):
		return http.StatusBadRequest, "invalid_enum", err.Error()
	case errors.Is(err, service.ErrInvalidUser):
		return http.StatusBadRequest, "invalid_user", err.Error()
	case conversation.IsTransient(err), errors.Is(err, conversation.ErrNoSession):
		return http.StatusBadGateway, "upstream_unavailable", training.FallbackNotice
	case errors.Is(err, service.ErrNoSimulator):
		return http.StatusServiceUnavailable, "no_simulator", err.Error()
	}
	return http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError)
}
