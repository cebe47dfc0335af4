package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pocketbank/internal/model"
)

// TransactionFilter narrows List results. AccountIDs is filled by the
// service with the accounts the caller may see.
type TransactionFilter struct {
	AccountIDs []uuid.UUID
	AccountID  *uuid.UUID
	Type       model.TransactionType
	Status     model.TransactionStatus
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// TransactionStore persists transactions. The Mark* transitions are guarded
// by the current status at the store level: they report false when the row
// was not in the expected state, which is how a racing approver loses.
type TransactionStore interface {
	Create(ctx context.Context, t *model.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	MarkApproved(ctx context.Context, id uuid.UUID, approver *uuid.UUID, at time.Time) (bool, error)
	MarkDeclined(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f TransactionFilter) ([]model.Transaction, error)
}

type CreateTransactionInput struct {
	FromAccountID *uuid.UUID
	ToAccountID   *uuid.UUID
	Type          model.TransactionType
	Amount        decimal.Decimal
	Description   string
	Metadata      map[string]any
}

type TransactionService struct {
	txns     TransactionStore
	accounts AccountStore
	ledger   LedgerStore
	bus      EventBus
	clock    Clock
	log      *zap.Logger
}

func NewTransactionService(txns TransactionStore, accounts AccountStore, ledger LedgerStore, bus EventBus, clock Clock, log *zap.Logger) *TransactionService {
	return &TransactionService{txns: txns, accounts: accounts, ledger: ledger, bus: bus, clock: clock, log: log}
}

// Create records a new money movement. Guardian requesters and the
// ALLOWANCE/REFUND types start APPROVED and settle synchronously before
// returning; everything else starts PENDING. On settlement failure the
// transaction is returned in FAILED state together with the error.
func (s *TransactionService) Create(ctx context.Context, access Access, in CreateTransactionInput) (*model.Transaction, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", model.ErrValidation, in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", model.ErrValidation)
	}
	if in.FromAccountID == nil && in.ToAccountID == nil {
		return nil, fmt.Errorf("%w: at least one of from_account_id and to_account_id is required", model.ErrValidation)
	}

	if in.FromAccountID != nil {
		from, err := s.accounts.Get(ctx, *in.FromAccountID)
		if err != nil {
			return nil, fmt.Errorf("source account: %w", err)
		}
		if err := Authorize(access, CapUseAccount, from.ChildID); err != nil {
			return nil, err
		}
	}
	var toOwner *uuid.UUID
	if in.ToAccountID != nil {
		to, err := s.accounts.Get(ctx, *in.ToAccountID)
		if err != nil {
			return nil, fmt.Errorf("destination account: %w", err)
		}
		toOwner = &to.ChildID
	}

	now := s.clock.Now()
	t := &model.Transaction{
		ID:            uuid.New(),
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Type:          in.Type,
		Amount:        in.Amount,
		Status:        model.StatusPending,
		Description:   in.Description,
		Metadata:      in.Metadata,
		CreatedAt:     now,
	}

	// Guardians bypass approval; so do allowances and refunds regardless of
	// who requested them.
	if access.System || access.Role == model.RoleParent || in.Type == model.TypeAllowance || in.Type == model.TypeRefund {
		t.Status = model.StatusApproved
		t.ApprovedAt = &now
		if !access.System {
			approver := access.UserID
			t.ApprovedBy = &approver
		}
	}

	if err := s.txns.Create(ctx, t); err != nil {
		return nil, err
	}

	if t.Status == model.StatusApproved {
		if err := s.settle(ctx, t); err != nil {
			return t, err
		}
	}

	if toOwner != nil {
		publishEvent(s.bus, s.log, model.TopicTransactionCreated, model.TransactionEvent{
			TransactionID: t.ID,
			UserID:        *toOwner,
			Type:          t.Type,
			Amount:        t.Amount,
			CreatedAt:     now,
		})
	}
	return t, nil
}

// Approve transitions a PENDING transaction to APPROVED and settles it.
// Only a guardian of the source account's child may approve. The status
// transition is exclusive: a second approver observes ErrInvalidState.
func (s *TransactionService) Approve(ctx context.Context, access Access, id uuid.UUID) (*model.Transaction, error) {
	t, srcOwner, err := s.pendingForReview(ctx, access, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	approver := access.UserID
	ok, err := s.txns.MarkApproved(ctx, id, &approver, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: transaction is not pending", model.ErrInvalidState)
	}
	t.Status = model.StatusApproved
	t.ApprovedBy = &approver
	t.ApprovedAt = &now

	if err := s.settle(ctx, t); err != nil {
		return t, err
	}

	if srcOwner != nil {
		publishEvent(s.bus, s.log, model.TopicTransactionApproved, model.TransactionEvent{
			TransactionID: t.ID,
			UserID:        *srcOwner,
			Type:          t.Type,
			Amount:        t.Amount,
			CreatedAt:     now,
		})
	}
	return t, nil
}

// Decline transitions a PENDING transaction to DECLINED. No ledger effect.
func (s *TransactionService) Decline(ctx context.Context, access Access, id uuid.UUID, reason string) (*model.Transaction, error) {
	t, srcOwner, err := s.pendingForReview(ctx, access, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.txns.MarkDeclined(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: transaction is not pending", model.ErrInvalidState)
	}
	t.Status = model.StatusDeclined
	t.DeclineReason = reason

	if srcOwner != nil {
		publishEvent(s.bus, s.log, model.TopicTransactionDeclined, model.TransactionEvent{
			TransactionID: t.ID,
			UserID:        *srcOwner,
			Type:          t.Type,
			Amount:        t.Amount,
			Reason:        reason,
			CreatedAt:     s.clock.Now(),
		})
	}
	return t, nil
}

// Get returns a transaction the caller is allowed to see.
func (s *TransactionService) Get(ctx context.Context, access Access, id uuid.UUID) (*model.Transaction, error) {
	t, err := s.txns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if access.System {
		return t, nil
	}
	for _, ref := range []*uuid.UUID{t.FromAccountID, t.ToAccountID} {
		if ref == nil {
			continue
		}
		if a, err := s.accounts.Get(ctx, *ref); err == nil && Authorize(access, CapUseAccount, a.ChildID) == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: no access to transaction %s", model.ErrForbidden, id)
}

// List returns transactions touching the caller's accessible accounts,
// newest first.
func (s *TransactionService) List(ctx context.Context, access Access, f TransactionFilter) ([]model.Transaction, error) {
	accounts, err := s.accounts.ListByChildren(ctx, access.ChildIDs)
	if err != nil {
		return nil, err
	}
	f.AccountIDs = make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		f.AccountIDs = append(f.AccountIDs, a.ID)
	}
	if f.AccountID != nil {
		found := false
		for _, id := range f.AccountIDs {
			if id == *f.AccountID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: no access to account %s", model.ErrForbidden, f.AccountID)
		}
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.txns.List(ctx, f)
}

// pendingForReview loads a transaction for approve/decline and checks the
// reviewer is a guardian of the source account's child. Returns the owning
// child of the source account for notification, if there is one.
func (s *TransactionService) pendingForReview(ctx context.Context, access Access, id uuid.UUID) (*model.Transaction, *uuid.UUID, error) {
	if !access.System && access.Role != model.RoleParent {
		return nil, nil, fmt.Errorf("%w: only parents can review transactions", model.ErrForbidden)
	}
	t, err := s.txns.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if t.Status != model.StatusPending {
		return nil, nil, fmt.Errorf("%w: transaction is not pending", model.ErrInvalidState)
	}
	var srcOwner *uuid.UUID
	if t.FromAccountID != nil {
		from, err := s.accounts.Get(ctx, *t.FromAccountID)
		if err != nil {
			return nil, nil, fmt.Errorf("source account: %w", err)
		}
		if err := Authorize(access, CapManageChild, from.ChildID); err != nil {
			return nil, nil, err
		}
		srcOwner = &from.ChildID
	}
	return t, srcOwner, nil
}

// settle applies the ledger movement for an APPROVED transaction. Debit and
// credit run as one atomic unit; on failure the transaction is left FAILED
// permanently and the error propagates to the synchronous caller.
func (s *TransactionService) settle(ctx context.Context, t *model.Transaction) error {
	if err := s.ledger.Settle(ctx, t.FromAccountID, t.ToAccountID, t.Amount); err != nil {
		if mErr := s.txns.MarkFailed(ctx, t.ID); mErr != nil {
			s.log.Error("mark transaction failed", zap.String("transaction_id", t.ID.String()), zap.Error(mErr))
		}
		t.Status = model.StatusFailed
		return fmt.Errorf("settle transaction %s: %w", t.ID, err)
	}
	now := s.clock.Now()
	if err := s.txns.MarkCompleted(ctx, t.ID, now); err != nil {
		return err
	}
	t.Status = model.StatusCompleted
	t.CompletedAt = &now
	return nil
}
