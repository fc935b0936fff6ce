package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/forkful/api/internal/application/account"
	"github.com/forkful/api/internal/application/purge"
	"github.com/forkful/api/internal/domain"
	"github.com/go-chi/chi/v5"
)

type pendingLister interface {
	QueryPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Account, error)
}

// AdminHandler exposes operator-only maintenance endpoints.
type AdminHandler struct {
	sweeper  *purge.Sweeper
	accounts account.Service
	pending  pendingLister
}

func NewAdminHandler(sweeper *purge.Sweeper, accounts account.Service, pending pendingLister) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, accounts: accounts, pending: pending}
}

// TriggerPurgeSweep runs a purge pass on demand, outside the daily schedule.
func (h *AdminHandler) TriggerPurgeSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListPendingDeletion returns every account currently in its grace window.
func (h *AdminHandler) ListPendingDeletion(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.pending.QueryPendingBefore(r.Context(), time.Now().UTC())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: accounts})
}

// DisableAccount puts an account into the deletion flow on the operator's
// initiative. It goes through the same lifecycle transition a self-service
// request does, grace window included.
func (h *AdminHandler) DisableAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason *string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	view, err := h.accounts.RequestDeletion(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}
