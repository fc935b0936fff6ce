package handler

import (
	"encoding/json"
	"net/http"

	"github.com/forkful/api/internal/application/session"
	"github.com/forkful/api/internal/pkg/validate"
	"github.com/forkful/api/internal/transport/http/middleware"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	if result.SecondFactorRequired {
		writeJSON(w, http.StatusAccepted, AuthEnvelope{
			SecondFactorRequired: true,
			AccountID:            result.AccountID,
		})
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  result.Bearer,
		RefreshToken: result.RefreshToken,
		Session:      result.Session,
		Account:      result.Session.Account,
	})
}

func (h *SessionHandler) SecondFactor(w http.ResponseWriter, r *http.Request) {
	var req session.SecondFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.CompleteSecondFactor(r.Context(), req)
	if err != nil {
		codeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  result.Bearer,
		RefreshToken: result.RefreshToken,
		Session:      result.Session,
		Account:      result.Session.Account,
	})
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}
	bearer, newToken, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: bearer, RefreshToken: newToken})
}

func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.svc.GetCurrent(r.Context(), claims.SessionID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Session: sess, Account: sess.Account})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.SessionID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
