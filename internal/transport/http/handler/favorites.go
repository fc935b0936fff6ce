package handler

import (
	"net/http"

	"github.com/forkful/api/internal/application/favorite"
	"github.com/forkful/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// FavoriteHandler handles saved-restaurant endpoints.
type FavoriteHandler struct {
	svc favorite.Service
}

func NewFavoriteHandler(svc favorite.Service) *FavoriteHandler {
	return &FavoriteHandler{svc: svc}
}

func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	f, err := h.svc.Add(r.Context(), claims.AccountID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Remove(r.Context(), claims.AccountID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "favorite removed"})
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	favorites, err := h.svc.List(r.Context(), claims.AccountID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: favorites})
}
