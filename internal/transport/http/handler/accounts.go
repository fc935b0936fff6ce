package handler

import (
	"encoding/json"
	"net/http"

	"github.com/forkful/api/internal/application/account"
	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/pkg/validate"
	"github.com/forkful/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles account CRUD and lifecycle endpoints.
type AccountHandler struct {
	svc account.Service
}

func NewAccountHandler(svc account.Service) *AccountHandler { return &AccountHandler{svc: svc} }

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot view another account")
		return
	}
	a, err := h.svc.Get(r.Context(), targetID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.svc.Update(r.Context(), claims.AccountID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if err := h.svc.UploadAvatar(r.Context(), claims.AccountID, header.Filename, f, contentType); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "avatar updated"})
}

func (h *AccountHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "email and code required")
		return
	}
	if err := h.svc.ConfirmEmail(r.Context(), req.Email, req.Code); err != nil {
		codeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email confirmed"})
}

func (h *AccountHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Reason *string `json:"reason"`
	}
	// Body is optional; a bare POST means "no reason given".
	_ = json.NewDecoder(r.Body).Decode(&req)

	view, err := h.svc.RequestDeletion(r.Context(), claims.AccountID, req.Reason)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

func (h *AccountHandler) DeletionStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	view, err := h.svc.DeletionStatus(r.Context(), claims.AccountID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Recover is public: a pending-deletion account cannot log in, so the owner
// proves identity with username/email plus password.
func (h *AccountHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login and password required")
		return
	}
	view, err := h.svc.RecoverByCredentials(r.Context(), req.Login, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
