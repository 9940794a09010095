package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hpungsan/annot/internal/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes err as a JSON error body. Internal failures are logged
// with their cause and reported to the client without it.
func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	aErr, ok := errors.As(err)
	if !ok {
		aErr = errors.NewInternal(err)
	}

	detail := errorDetail{
		Code:    string(aErr.Code),
		Message: aErr.Message,
		Details: aErr.Details,
	}
	if aErr.Code == errors.ErrInternal {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		detail.Message = "internal error"
		detail.Details = nil
	}

	renderJSON(w, aErr.Status, errorBody{Error: detail})
}
