package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID *uuid.UUID            `json:"from_account_id"`
		ToAccountID   *uuid.UUID            `json:"to_account_id"`
		Type          model.TransactionType `json:"type"`
		Amount        decimal.Decimal       `json:"amount"`
		Description   string                `json:"description"`
		Metadata      map[string]any        `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	t, err := h.transactions.Create(r.Context(), accessFrom(r), service.CreateTransactionInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		Metadata:      req.Metadata,
	})
	if err != nil {
		// A settlement failure still created the transaction; surface both.
		if t != nil && t.Status == model.StatusFailed {
			h.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"transaction": t,
				"error":       err.Error(),
			})
			return
		}
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	t, err := h.transactions.Get(r.Context(), accessFrom(r), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, t)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.transactions.List(r.Context(), accessFrom(r), f)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, list)
}

func (h *Handler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	t, err := h.transactions.Approve(r.Context(), accessFrom(r), id)
	if err != nil {
		if t != nil && t.Status == model.StatusFailed {
			h.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"transaction": t,
				"error":       err.Error(),
			})
			return
		}
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, t)
}

func (h *Handler) DeclineTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	t, err := h.transactions.Decline(r.Context(), accessFrom(r), id, req.Reason)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, t)
}

func parseTransactionFilter(r *http.Request) (service.TransactionFilter, error) {
	var f service.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, err
		}
		f.AccountID = &id
	}
	f.Type = model.TransactionType(q.Get("type"))
	f.Status = model.TransactionStatus(q.Get("status"))
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Offset = n
	}
	return f, nil
}
