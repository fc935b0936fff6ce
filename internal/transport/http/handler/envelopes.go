package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/forkful/api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login/refresh responses.
type AuthEnvelope struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	Account      *domain.Account `json:"account,omitempty"`

	// Set when the password checked out but a one-time code must be
	// verified before a session is issued.
	SecondFactorRequired bool   `json:"second_factor_required,omitempty"`
	AccountID            string `json:"account_id,omitempty"`
}

// PageEnvelope wraps cursor-paginated list responses.
type PageEnvelope struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps a service error onto an HTTP status by its sentinel.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrCodeMismatch):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadyPending),
		errors.Is(err, domain.ErrNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrWindowExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// codeError is the mapping for code-verification endpoints. Whether the code
// was wrong, expired, consumed or never issued, the caller sees one generic
// answer so failures cannot be used to probe which codes exist.
func codeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrCodeMismatch):
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
	default:
		httpError(w, err)
	}
}
