package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleParent Role = "PARENT"
	RoleChild  Role = "CHILD"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

type TransactionType string

const (
	TypeAllowance  TransactionType = "ALLOWANCE"
	TypePurchase   TransactionType = "PURCHASE"
	TypeTransfer   TransactionType = "TRANSFER"
	TypeSavings    TransactionType = "SAVINGS"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeRefund     TransactionType = "REFUND"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeAllowance, TypePurchase, TypeTransfer, TypeSavings, TypeWithdrawal, TypeRefund:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusApproved  TransactionStatus = "APPROVED"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusDeclined  TransactionStatus = "DECLINED"
	StatusFailed    TransactionStatus = "FAILED"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyMonthly
}

// User is a parent or child profile. Children carry a back-reference to
// their parent; parents reach accounts transitively through their children.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Account holds a single balance for one child. The balance is mutated only
// through the ledger and is never negative. Accounts are never deleted, only
// status-transitioned.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	ChildID   uuid.UUID       `json:"child_id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Status    AccountStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is a money movement between up to two accounts. Amount is
// immutable after creation; status only moves forward along
// PENDING -> {APPROVED, DECLINED} and APPROVED -> {COMPLETED, FAILED}.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	FromAccountID *uuid.UUID        `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID        `json:"to_account_id,omitempty"`
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	ApprovedBy    *uuid.UUID        `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time        `json:"approved_at,omitempty"`
	DeclineReason string            `json:"decline_reason,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Allowance is a recurring payment definition. NextDueDate only ever moves
// forward and never precedes StartDate.
type Allowance struct {
	ID          uuid.UUID       `json:"id"`
	ChildID     uuid.UUID       `json:"child_id"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   Frequency       `json:"frequency"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	NextDueDate time.Time       `json:"next_due_date"`
	IsActive    bool            `json:"is_active"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SavingsGoal tracks progress toward a target amount. Completion flips
// false -> true exactly once and is never reverted by progress updates.
// Progress is independent of any account balance.
type SavingsGoal struct {
	ID            uuid.UUID       `json:"id"`
	ChildID       uuid.UUID       `json:"child_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Description   string          `json:"description,omitempty"`
	IsCompleted   bool            `json:"is_completed"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type NotificationKind string

const (
	KindTransactionCreated  NotificationKind = "TRANSACTION_CREATED"
	KindTransactionApproved NotificationKind = "TRANSACTION_APPROVED"
	KindTransactionDeclined NotificationKind = "TRANSACTION_DECLINED"
	KindGoalReached         NotificationKind = "SAVINGS_GOAL_REACHED"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
