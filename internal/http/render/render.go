// Package render holds the request decoding and response encoding shared by
// the API handlers.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
)

// DateLayout is the wire format of ledger dates.
const DateLayout = time.DateOnly

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error body. Unclassified errors are logged and
// reported without detail.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	resp := errorResponse{Error: err.Error()}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)

		if !errors.Is(err, apperr.ErrLinkFailure) {
			resp.Error = "internal error"
		}
	}

	JSON(w, status, resp)
}

// Decode reads a JSON body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("body", fmt.Sprintf("invalid JSON: %v", err))
	}

	return nil
}

// URLID parses the named chi URL parameter as a UUID.
func URLID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a UUID")
	}

	return id, nil
}

// ParseDate parses a wire date for field.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Invalid(field, "must be a date formatted YYYY-MM-DD")
	}

	return t, nil
}

// ParseOptionalDate returns nil for an empty string.
func ParseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}

	t, err := ParseDate(field, *s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// ParseOptionalID returns nil for an empty string.
func ParseOptionalID(field string, s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}

	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, apperr.Invalid(field, "must be a UUID")
	}

	return &id, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func FormatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}

	return new(t.Format(DateLayout))
}
