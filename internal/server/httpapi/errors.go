package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	msgInvalidCredentials = "invalid credentials"
	msgUnauthenticated    = "unauthenticated"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: message})
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthenticated", msgUnauthenticated)
}

// writeLoginError answers unknown email and wrong password identically.
func writeLoginError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", msgInvalidCredentials)
		return
	}
	writeServiceError(ctx, w, logger, err)
}

// writeServiceError translates a service error into a status code and a body
// that never carries internal details.
func writeServiceError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	switch {
	case common.IsTokenError(err):
		writeUnauthenticated(w)
	case errors.Is(err, common.ErrorInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", msgInvalidCredentials)
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, common.ErrEmailTaken):
		writeError(w, http.StatusConflict, "conflict", "email already exists")
	case errors.Is(err, common.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "conflict", "username already exists")
	case errors.Is(err, common.ErrorConflict):
		writeError(w, http.StatusConflict, "conflict", "already exists")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, common.ErrorTimeout):
		logger.Error(ctx, "request timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "timeout", "the request timed out")
	case errors.Is(err, common.ErrorUnavailable):
		logger.Error(ctx, "storage unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "service unavailable")
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the body
		w.WriteHeader(499)
	default:
		logger.Error(ctx, "internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
