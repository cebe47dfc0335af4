package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

type Handler struct {
	accounts      *service.AccountService
	transactions  *service.TransactionService
	allowances    *service.AllowanceService
	goals         *service.GoalService
	notifications *service.NotificationService
	identity      service.IdentityStore
	jwtSecret     []byte
	log           *zap.Logger
}

func NewHandler(
	accounts *service.AccountService,
	transactions *service.TransactionService,
	allowances *service.AllowanceService,
	goals *service.GoalService,
	notifications *service.NotificationService,
	identity service.IdentityStore,
	jwtSecret string,
	log *zap.Logger,
) *Handler {
	return &Handler{
		accounts:      accounts,
		transactions:  transactions,
		allowances:    allowances,
		goals:         goals,
		notifications: notifications,
		identity:      identity,
		jwtSecret:     []byte(jwtSecret),
		log:           log,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /auth/login", h.Login)

	auth := h.authenticated

	mux.Handle("POST /accounts", auth(h.CreateAccount))
	mux.Handle("GET /accounts", auth(h.ListAccounts))
	mux.Handle("GET /accounts/{id}", auth(h.GetAccount))
	mux.Handle("GET /accounts/{id}/balance", auth(h.AccountBalance))
	mux.Handle("PATCH /accounts/{id}/status", auth(h.SetAccountStatus))

	mux.Handle("POST /transactions", auth(h.CreateTransaction))
	mux.Handle("GET /transactions", auth(h.ListTransactions))
	mux.Handle("GET /transactions/{id}", auth(h.GetTransaction))
	mux.Handle("POST /transactions/{id}/approve", auth(h.ApproveTransaction))
	mux.Handle("POST /transactions/{id}/decline", auth(h.DeclineTransaction))

	mux.Handle("POST /allowances", auth(h.CreateAllowance))
	mux.Handle("GET /allowances", auth(h.ListAllowances))
	mux.Handle("PATCH /allowances/{id}", auth(h.UpdateAllowance))
	mux.Handle("DELETE /allowances/{id}", auth(h.DeleteAllowance))
	mux.HandleFunc("POST /allowances/process", h.ProcessAllowances)

	mux.Handle("POST /goals", auth(h.CreateGoal))
	mux.Handle("GET /goals", auth(h.ListGoals))
	mux.Handle("PATCH /goals/{id}/progress", auth(h.UpdateGoalProgress))
	mux.Handle("DELETE /goals/{id}", auth(h.DeleteGoal))

	mux.Handle("GET /notifications", auth(h.ListNotifications))
	mux.Handle("GET /notifications/unread-count", auth(h.UnreadCount))
	mux.Handle("POST /notifications/{id}/read", auth(h.MarkNotificationRead))
	mux.Handle("POST /notifications/read-all", auth(h.MarkAllNotificationsRead))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the domain error taxonomy onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrForbidden):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidState):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInsufficientFunds):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error("internal error", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}
