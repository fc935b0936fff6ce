package handler

import (
	"encoding/json"
	"net/http"

	"github.com/forkful/api/internal/application/review"
	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// ReviewHandler handles review endpoints.
type ReviewHandler struct {
	svc review.Service
}

func NewReviewHandler(svc review.Service) *ReviewHandler { return &ReviewHandler{svc: svc} }

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rev, err := h.svc.Create(r.Context(), claims.AccountID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

func (h *ReviewHandler) ListByRestaurant(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListByRestaurant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: reviews})
}

func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	reviews, err := h.svc.ListByAccount(r.Context(), claims.AccountID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: reviews})
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	isAdmin := claims.Role == domain.RoleAdmin
	if err := h.svc.Delete(r.Context(), claims.AccountID, chi.URLParam(r, "id"), isAdmin); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "review deleted"})
}
