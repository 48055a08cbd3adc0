package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dashkit/admin-dashboard/internal/http/response"
	"github.com/dashkit/admin-dashboard/internal/service"
)

// writeError maps a service error onto the response taxonomy. Anything that
// is not a known rejection is logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, response.CodeValidation, verr.Error(), map[string]string{"field": verr.Field})
	case service.IsNotFound(err):
		response.Error(w, r, response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, response.CodeUnauthorized, "invalid username or password", nil)
	case errors.Is(err, service.ErrOnboardingDone):
		response.Error(w, r, response.CodeForbidden, err.Error(), nil)
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		response.Internal(w, r)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	response.Error(w, r, response.CodeBadRequest, message, nil)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
