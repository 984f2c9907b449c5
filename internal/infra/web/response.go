package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"exam-access-backend/internal/domain"
)

// ErrorResponse is the structured JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Stable machine-readable error codes.
const (
	codeInvalidInput  = "INVALID_INPUT"
	codeUnauthorized  = "UNAUTHORIZED"
	codeForbidden     = "FORBIDDEN"
	codeNotFound      = "NOT_FOUND"
	codeRejected      = "CODE_REJECTED"
	codeRateLimit     = "RATE_LIMIT_EXCEEDED"
	codeUnavailable   = "TEMPORARILY_UNAVAILABLE"
	codeInternalError = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeDomainError maps the error taxonomy to HTTP. Validation errors are
// client-correctable 400s, entitlement rejections 422s, transient storage
// trouble a 503 with a retry hint. Unclassified errors never leak detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPaymentAmount),
		errors.Is(err, domain.ErrInvalidDurationDays),
		errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error(), codeInvalidInput)
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCodeNotFound),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), codeNotFound)
	case errors.Is(err, domain.ErrCodeBlocked),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrCodeAlreadyUsed):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), codeRejected)
	case errors.Is(err, domain.ErrServiceUnavailable):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable.Error(), codeUnavailable)
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal error", codeInternalError)
	}
}
