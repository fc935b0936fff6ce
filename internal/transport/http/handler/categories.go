package handler

import (
	"encoding/json"
	"net/http"

	"github.com/forkful/api/internal/application/category"
	"github.com/forkful/api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	svc category.Service
}

func NewCategoryHandler(svc category.Service) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.List(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: categories})
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "category deleted"})
}
