package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/artisanhubapp/artisanhub/internal/db"
	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorEnvelope{Error: APIError{Code: code, Message: message}})
}

// writeError maps the engine's error taxonomy onto HTTP statuses. Internal
// errors are logged but never echoed to the client.
func (h *Handlers) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, lifecycle.ErrValidation):
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, lifecycle.ErrForbidden):
		writeAPIError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeAPIError(w, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, lifecycle.ErrPolicyViolation):
		writeAPIError(w, http.StatusUnprocessableEntity, "policy_violation", err.Error())
	case errors.Is(err, lifecycle.ErrConflict):
		writeAPIError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.loggerFromContext(ctx).Error("request failed", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
