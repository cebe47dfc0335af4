package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bus topics. Core services publish domain events; the notifier worker
// consumes them and persists notifications. allowances.process is a command
// topic for cron-like external triggers.
const (
	TopicTransactionCreated  = "transactions.created"
	TopicTransactionApproved = "transactions.approved"
	TopicTransactionDeclined = "transactions.declined"
	TopicGoalReached         = "goals.reached"
	TopicProcessAllowances   = "allowances.process"
)

// TransactionEvent is published on the transactions.* topics. UserID is the
// user the event concerns (destination owner on create, source owner on
// approve/decline).
type TransactionEvent struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// GoalEvent is published on goals.reached when a savings goal first hits its
// target.
type GoalEvent struct {
	GoalID    uuid.UUID `json:"goal_id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
