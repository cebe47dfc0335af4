package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

func (h *Handler) CreateAllowance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildID     uuid.UUID       `json:"child_id"`
		Amount      decimal.Decimal `json:"amount"`
		Frequency   model.Frequency `json:"frequency"`
		StartDate   time.Time       `json:"start_date"`
		EndDate     *time.Time      `json:"end_date"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a, err := h.allowances.Create(r.Context(), accessFrom(r), service.CreateAllowanceInput{
		ChildID:     req.ChildID,
		Amount:      req.Amount,
		Frequency:   req.Frequency,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Description: req.Description,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, a)
}

func (h *Handler) ListAllowances(w http.ResponseWriter, r *http.Request) {
	list, err := h.allowances.List(r.Context(), accessFrom(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateAllowance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid allowance id")
		return
	}
	var req struct {
		Amount      *decimal.Decimal `json:"amount"`
		Frequency   *model.Frequency `json:"frequency"`
		EndDate     *time.Time       `json:"end_date"`
		ClearEnd    bool             `json:"clear_end_date"`
		IsActive    *bool            `json:"is_active"`
		Description *string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a, err := h.allowances.Update(r.Context(), accessFrom(r), id, service.UpdateAllowanceInput{
		Amount:      req.Amount,
		Frequency:   req.Frequency,
		EndDate:     req.EndDate,
		ClearEnd:    req.ClearEnd,
		IsActive:    req.IsActive,
		Description: req.Description,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAllowance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid allowance id")
		return
	}
	if err := h.allowances.Delete(r.Context(), accessFrom(r), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

// ProcessAllowances is the cron trigger. The platform scheduler calls it
// from inside the network, the same way the NATS allowances.process topic
// does, so it skips bearer auth.
func (h *Handler) ProcessAllowances(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	if err := h.allowances.ProcessDue(r.Context(), now); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"processed_as_of": now})
}
