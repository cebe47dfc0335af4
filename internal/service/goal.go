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

type GoalStore interface {
	Create(ctx context.Context, g *model.SavingsGoal) error
	Get(ctx context.Context, id uuid.UUID) (*model.SavingsGoal, error)
	Update(ctx context.Context, g *model.SavingsGoal) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByChildren(ctx context.Context, childIDs []uuid.UUID) ([]model.SavingsGoal, error)
}

type CreateGoalInput struct {
	AccountID    uuid.UUID
	Name         string
	TargetAmount decimal.Decimal
	Deadline     *time.Time
	Description  string
}

type GoalService struct {
	goals    GoalStore
	accounts AccountStore
	bus      EventBus
	clock    Clock
	log      *zap.Logger
}

func NewGoalService(goals GoalStore, accounts AccountStore, bus EventBus, clock Clock, log *zap.Logger) *GoalService {
	return &GoalService{goals: goals, accounts: accounts, bus: bus, clock: clock, log: log}
}

// Create opens a savings goal against one of the child's accounts.
func (s *GoalService) Create(ctx context.Context, access Access, in CreateGoalInput) (*model.SavingsGoal, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: goal name is required", model.ErrValidation)
	}
	if !in.TargetAmount.IsPositive() {
		return nil, fmt.Errorf("%w: target amount must be positive", model.ErrValidation)
	}
	account, err := s.accounts.Get(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(access, CapUseAccount, account.ChildID); err != nil {
		return nil, err
	}
	g := &model.SavingsGoal{
		ID:            uuid.New(),
		ChildID:       account.ChildID,
		AccountID:     in.AccountID,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		Deadline:      in.Deadline,
		Description:   in.Description,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.goals.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalService) List(ctx context.Context, access Access) ([]model.SavingsGoal, error) {
	return s.goals.ListByChildren(ctx, access.ChildIDs)
}

// UpdateProgress records the amount saved toward the goal. The first time
// the amount reaches the target the goal is completed and a goal-reached
// event fires, exactly once; completion is never reverted. Progress does not
// touch any account balance.
func (s *GoalService) UpdateProgress(ctx context.Context, access Access, id uuid.UUID, current decimal.Decimal) (*model.SavingsGoal, error) {
	if current.IsNegative() {
		return nil, fmt.Errorf("%w: current amount cannot be negative", model.ErrValidation)
	}
	g, err := s.goals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(access, CapUseAccount, g.ChildID); err != nil {
		return nil, err
	}

	g.CurrentAmount = current
	if !g.IsCompleted && current.GreaterThanOrEqual(g.TargetAmount) {
		now := s.clock.Now()
		g.IsCompleted = true
		g.CompletedAt = &now
		publishEvent(s.bus, s.log, model.TopicGoalReached, model.GoalEvent{
			GoalID:    g.ID,
			UserID:    g.ChildID,
			Name:      g.Name,
			CreatedAt: now,
		})
	}
	if err := s.goals.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, access Access, id uuid.UUID) error {
	g, err := s.goals.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(access, CapUseAccount, g.ChildID); err != nil {
		return err
	}
	return s.goals.Delete(ctx, id)
}
