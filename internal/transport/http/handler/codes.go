package handler

import (
	"encoding/json"
	"net/http"

	"github.com/forkful/api/internal/application/verification"
)

// CodeHandler handles verification-code endpoints.
type CodeHandler struct {
	svc verification.Service
}

func NewCodeHandler(svc verification.Service) *CodeHandler { return &CodeHandler{svc: svc} }

type codeRequest struct {
	IdentityKey string `json:"identity_key"`
	Purpose     string `json:"purpose"`
	Code        string `json:"code,omitempty"`
}

// Issue sends a fresh code. The response never says whether the identity key
// maps to a real account.
func (h *CodeHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.svc.Issue(r.Context(), req.IdentityKey, req.Purpose); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "code sent"})
}

func (h *CodeHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.svc.Verify(r.Context(), req.IdentityKey, req.Purpose, req.Code); err != nil {
		codeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code verified"})
}
