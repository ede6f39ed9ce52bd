package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rickgao/candidate-tracker/internal/api"
	"github.com/rickgao/candidate-tracker/internal/auth"
	"github.com/rickgao/candidate-tracker/internal/dashboard"
	"github.com/rickgao/candidate-tracker/internal/model"
	"github.com/rickgao/candidate-tracker/internal/storage"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var fnErr *api.FunctionError
	var apiErr *api.APIError

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, dashboard.ErrInvalidStatus),
		model.IsValidationError(err),
		errors.As(err, &fnErr):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized
	case dashboard.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrPendingCreate):
		return http.StatusConflict
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
