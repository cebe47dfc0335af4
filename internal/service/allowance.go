package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pocketbank/internal/model"
)

// AllowanceStore persists recurring payment definitions. Due returns every
// active allowance with next_due_date <= now and no expired end date.
type AllowanceStore interface {
	Create(ctx context.Context, a *model.Allowance) error
	Get(ctx context.Context, id uuid.UUID) (*model.Allowance, error)
	Update(ctx context.Context, a *model.Allowance) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByChildren(ctx context.Context, childIDs []uuid.UUID) ([]model.Allowance, error)
	Due(ctx context.Context, now time.Time) ([]model.Allowance, error)
	SetNextDue(ctx context.Context, id uuid.UUID, next time.Time) error
}

type CreateAllowanceInput struct {
	ChildID     uuid.UUID
	Amount      decimal.Decimal
	Frequency   model.Frequency
	StartDate   time.Time
	EndDate     *time.Time
	Description string
}

type UpdateAllowanceInput struct {
	Amount      *decimal.Decimal
	Frequency   *model.Frequency
	EndDate     *time.Time
	ClearEnd    bool
	IsActive    *bool
	Description *string
}

type AllowanceService struct {
	allowances AllowanceStore
	accounts   AccountStore
	txns       *TransactionService
	clock      Clock
	log        *zap.Logger
}

func NewAllowanceService(allowances AllowanceStore, accounts AccountStore, txns *TransactionService, clock Clock, log *zap.Logger) *AllowanceService {
	return &AllowanceService{allowances: allowances, accounts: accounts, txns: txns, clock: clock, log: log}
}

// NextDueDate advances a due date by one period. MONTHLY clamps to the last
// day of the shorter month (Jan 31 -> Feb 28/29), so the result is always
// strictly after the input.
func NextDueDate(from time.Time, f model.Frequency) time.Time {
	switch f {
	case model.FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case model.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return addMonth(from)
	}
	return from
}

func addMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	// Day 0 of the month after next is the last day of next month.
	last := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return time.Date(y, m+1, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Create defines a recurring allowance for a child. Parent-only. The first
// due date is one period after the start date.
func (s *AllowanceService) Create(ctx context.Context, access Access, in CreateAllowanceInput) (*model.Allowance, error) {
	if !in.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency %q", model.ErrValidation, in.Frequency)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", model.ErrValidation)
	}
	if err := Authorize(access, CapManageChild, in.ChildID); err != nil {
		return nil, err
	}
	a := &model.Allowance{
		ID:          uuid.New(),
		ChildID:     in.ChildID,
		Amount:      in.Amount,
		Frequency:   in.Frequency,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		NextDueDate: NextDueDate(in.StartDate, in.Frequency),
		IsActive:    true,
		Description: in.Description,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.allowances.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AllowanceService) List(ctx context.Context, access Access) ([]model.Allowance, error) {
	return s.allowances.ListByChildren(ctx, access.ChildIDs)
}

// Update edits an allowance definition. Changing the frequency recomputes
// the next due date from the current one, keeping it strictly forward.
func (s *AllowanceService) Update(ctx context.Context, access Access, id uuid.UUID, in UpdateAllowanceInput) (*model.Allowance, error) {
	a, err := s.getManaged(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: amount must be positive", model.ErrValidation)
		}
		a.Amount = *in.Amount
	}
	if in.Frequency != nil {
		if !in.Frequency.Valid() {
			return nil, fmt.Errorf("%w: unknown frequency %q", model.ErrValidation, *in.Frequency)
		}
		a.Frequency = *in.Frequency
		a.NextDueDate = NextDueDate(a.NextDueDate, a.Frequency)
	}
	if in.ClearEnd {
		a.EndDate = nil
	} else if in.EndDate != nil {
		a.EndDate = in.EndDate
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if err := s.allowances.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AllowanceService) Delete(ctx context.Context, access Access, id uuid.UUID) error {
	if _, err := s.getManaged(ctx, access, id); err != nil {
		return err
	}
	return s.allowances.Delete(ctx, id)
}

// ProcessDue pays out every due allowance. For each one it credits the
// child's primary ACTIVE account with an auto-approved ALLOWANCE transaction
// and advances the due date regardless of the transaction outcome. A child
// with no active account is skipped without advancing. Per-allowance
// failures are logged and never abort the batch.
func (s *AllowanceService) ProcessDue(ctx context.Context, now time.Time) error {
	due, err := s.allowances.Due(ctx, now)
	if err != nil {
		return err
	}
	for _, a := range due {
		account, err := s.accounts.FirstActive(ctx, a.ChildID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				s.log.Info("allowance skipped, child has no active account",
					zap.String("allowance_id", a.ID.String()),
					zap.String("child_id", a.ChildID.String()))
				continue
			}
			s.log.Error("resolve primary account", zap.String("allowance_id", a.ID.String()), zap.Error(err))
			continue
		}

		desc := a.Description
		if desc == "" {
			desc = "Automated allowance payment"
		}
		accountID := account.ID
		if _, err := s.txns.Create(ctx, SystemAccess, CreateTransactionInput{
			ToAccountID: &accountID,
			Type:        model.TypeAllowance,
			Amount:      a.Amount,
			Description: desc,
			Metadata:    map[string]any{"allowance_id": a.ID.String()},
		}); err != nil {
			s.log.Error("allowance payout failed", zap.String("allowance_id", a.ID.String()), zap.Error(err))
		}

		next := NextDueDate(a.NextDueDate, a.Frequency)
		if err := s.allowances.SetNextDue(ctx, a.ID, next); err != nil {
			s.log.Error("advance allowance due date", zap.String("allowance_id", a.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *AllowanceService) getManaged(ctx context.Context, access Access, id uuid.UUID) (*model.Allowance, error) {
	a, err := s.allowances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(access, CapManageChild, a.ChildID); err != nil {
		return nil, err
	}
	return a, nil
}
