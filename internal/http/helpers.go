package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	appErrors "fintrack/internal/errors"
	"fintrack/internal/log"
)

const codeRateLimited = "RATE_LIMITED"

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps err onto the error taxonomy. Server-side failures are
// logged with their cause; the cause never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := appErrors.FromError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldErrorCode, appErr.Code,
			log.FieldStatusCode, appErr.StatusCode,
			log.FieldError, err)
	}
	writeJSON(w, appErr.StatusCode, errorBody{Error: errorDetail{
		Code:    appErr.Code,
		Message: appErr.Message,
		Field:   appErr.Field,
	}})
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, appErrors.NewAppError(codeRateLimited, "rate limit exceeded, retry later", http.StatusTooManyRequests))
}

// sanitizeInput drops control characters other than tab and newlines.
// Whitespace is kept; category names are matched verbatim.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
