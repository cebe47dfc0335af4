package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"pocketbank/internal/model"
)

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildID uuid.UUID `json:"child_id"`
		Name    string    `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	account, err := h.accounts.Create(r.Context(), accessFrom(r), req.ChildID, req.Name)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), accessFrom(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, accounts)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	account, err := h.accounts.Get(r.Context(), accessFrom(r), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, account)
}

func (h *Handler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	balance, err := h.accounts.Balance(r.Context(), accessFrom(r), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (h *Handler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req struct {
		Status model.AccountStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.accounts.SetStatus(r.Context(), accessFrom(r), id, req.Status); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}
