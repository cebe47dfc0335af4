package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pocketbank/internal/model"
)

// AccountStore persists accounts. Balance reads may be served from cache;
// FirstActive picks the child's primary account, defined as the
// earliest-created ACTIVE one.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
	ListByChildren(ctx context.Context, childIDs []uuid.UUID) ([]model.Account, error)
	FirstActive(ctx context.Context, childID uuid.UUID) (*model.Account, error)
	Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error
}

type AccountService struct {
	accounts AccountStore
	clock    Clock
	log      *zap.Logger
}

func NewAccountService(accounts AccountStore, clock Clock, log *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, clock: clock, log: log}
}

// Create opens an account for a child with a zero balance. Parents may open
// accounts for their own children, children only for themselves.
func (s *AccountService) Create(ctx context.Context, access Access, childID uuid.UUID, name string) (*model.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", model.ErrValidation)
	}
	if err := Authorize(access, CapUseAccount, childID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	a := &model.Account{
		ID:        uuid.New(),
		ChildID:   childID,
		Name:      name,
		Balance:   decimal.Zero,
		Status:    model.AccountActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("account created", zap.String("account_id", a.ID.String()), zap.String("child_id", childID.String()))
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, access Access, id uuid.UUID) (*model.Account, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(access, CapUseAccount, a.ChildID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, access Access) ([]model.Account, error) {
	return s.accounts.ListByChildren(ctx, access.ChildIDs)
}

// Balance reads the account balance, possibly from cache.
func (s *AccountService) Balance(ctx context.Context, access Access, id uuid.UUID) (decimal.Decimal, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if err := Authorize(access, CapUseAccount, a.ChildID); err != nil {
		return decimal.Zero, err
	}
	return s.accounts.Balance(ctx, id)
}

// SetStatus transitions an account between ACTIVE, SUSPENDED and CLOSED.
// Accounts are never deleted.
func (s *AccountService) SetStatus(ctx context.Context, access Access, id uuid.UUID, status model.AccountStatus) error {
	switch status {
	case model.AccountActive, model.AccountSuspended, model.AccountClosed:
	default:
		return fmt.Errorf("%w: unknown account status %q", model.ErrValidation, status)
	}
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(access, CapManageChild, a.ChildID); err != nil {
		return err
	}
	return s.accounts.UpdateStatus(ctx, id, status)
}
