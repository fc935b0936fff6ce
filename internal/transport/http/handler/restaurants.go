package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/forkful/api/internal/application/restaurant"
	"github.com/forkful/api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// RestaurantHandler handles restaurant catalog endpoints.
type RestaurantHandler struct {
	svc restaurant.Service
}

func NewRestaurantHandler(svc restaurant.Service) *RestaurantHandler {
	return &RestaurantHandler{svc: svc}
}

func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rest, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rest)
}

func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	rest, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")
	if categoryID := r.URL.Query().Get("category_id"); categoryID != "" {
		restaurants, err := h.svc.ListByCategory(r.Context(), categoryID)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, PageEnvelope{Data: restaurants})
		return
	}
	restaurants, next, err := h.svc.List(r.Context(), int32(limit), cursor)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: restaurants, NextCursor: next})
}

func (h *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rest, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

func (h *RestaurantHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
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

	rest, err := h.svc.UploadCover(r.Context(), chi.URLParam(r, "id"), header.Filename, f)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

func (h *RestaurantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "restaurant deleted"})
}
