package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pocketbank/internal/model"
)

// memAccounts is an in-memory AccountStore and LedgerStore. A single mutex
// serializes balance mutations the way the database row locks do.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: make(map[uuid.UUID]*model.Account)}
}

func (m *memAccounts) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memAccounts) Get(_ context.Context, id uuid.UUID) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, model.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) ListByChildren(_ context.Context, childIDs []uuid.UUID) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Account
	for _, a := range m.accounts {
		for _, id := range childIDs {
			if a.ChildID == id {
				out = append(out, *a)
				break
			}
		}
	}
	return out, nil
}

func (m *memAccounts) FirstActive(_ context.Context, childID uuid.UUID) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.Account
	for _, a := range m.accounts {
		if a.ChildID != childID || a.Status != model.AccountActive {
			continue
		}
		if found == nil || a.CreatedAt.Before(found.CreatedAt) {
			found = a
		}
	}
	if found == nil {
		return nil, fmt.Errorf("active account for child %s: %w", childID, model.ErrNotFound)
	}
	cp := *found
	return &cp, nil
}

func (m *memAccounts) Balance(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s: %w", id, model.ErrNotFound)
	}
	return a.Balance, nil
}

func (m *memAccounts) UpdateStatus(_ context.Context, id uuid.UUID, status model.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, model.ErrNotFound)
	}
	a.Status = status
	return nil
}

func (m *memAccounts) ApplyDelta(_ context.Context, accountID uuid.UUID, amount decimal.Decimal, dir Direction) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(accountID, amount, dir)
}

func (m *memAccounts) Settle(_ context.Context, from, to *uuid.UUID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var debited bool
	if from != nil {
		if _, err := m.applyLocked(*from, amount, Debit); err != nil {
			return err
		}
		debited = true
	}
	if to != nil {
		if _, err := m.applyLocked(*to, amount, Credit); err != nil {
			if debited {
				_, _ = m.applyLocked(*from, amount, Credit)
			}
			return err
		}
	}
	return nil
}

func (m *memAccounts) applyLocked(accountID uuid.UUID, amount decimal.Decimal, dir Direction) (decimal.Decimal, error) {
	a, ok := m.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s: %w", accountID, model.ErrNotFound)
	}
	next := a.Balance.Add(amount)
	if dir == Debit {
		next = a.Balance.Sub(amount)
		if next.IsNegative() {
			return decimal.Zero, fmt.Errorf("account %s: %w", accountID, model.ErrInsufficientFunds)
		}
	}
	a.Balance = next
	return next, nil
}

type memTxns struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*model.Transaction
}

func newMemTxns() *memTxns {
	return &memTxns{txns: make(map[uuid.UUID]*model.Transaction)}
}

func (m *memTxns) Create(_ context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.txns[t.ID] = &cp
	return nil
}

func (m *memTxns) Get(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memTxns) MarkApproved(_ context.Context, id uuid.UUID, approver *uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return false, fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}
	if t.Status != model.StatusPending {
		return false, nil
	}
	t.Status = model.StatusApproved
	t.ApprovedBy = approver
	t.ApprovedAt = &at
	return true, nil
}

func (m *memTxns) MarkDeclined(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return false, fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}
	if t.Status != model.StatusPending {
		return false, nil
	}
	t.Status = model.StatusDeclined
	t.DeclineReason = reason
	return true, nil
}

func (m *memTxns) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}
	if t.Status != model.StatusApproved {
		return fmt.Errorf("transaction %s is %s: %w", id, t.Status, model.ErrInvalidState)
	}
	t.Status = model.StatusCompleted
	t.CompletedAt = &at
	return nil
}

func (m *memTxns) MarkFailed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}
	if t.Status != model.StatusApproved {
		return fmt.Errorf("transaction %s is %s: %w", id, t.Status, model.ErrInvalidState)
	}
	t.Status = model.StatusFailed
	return nil
}

func (m *memTxns) List(_ context.Context, f TransactionFilter) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[uuid.UUID]bool, len(f.AccountIDs))
	for _, id := range f.AccountIDs {
		allowed[id] = true
	}
	var out []model.Transaction
	for _, t := range m.txns {
		touches := (t.FromAccountID != nil && allowed[*t.FromAccountID]) ||
			(t.ToAccountID != nil && allowed[*t.ToAccountID])
		if !touches {
			continue
		}
		if f.AccountID != nil {
			hit := (t.FromAccountID != nil && *t.FromAccountID == *f.AccountID) ||
				(t.ToAccountID != nil && *t.ToAccountID == *f.AccountID)
			if !hit {
				continue
			}
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

type memAllowances struct {
	mu         sync.Mutex
	allowances map[uuid.UUID]*model.Allowance
}

func newMemAllowances() *memAllowances {
	return &memAllowances{allowances: make(map[uuid.UUID]*model.Allowance)}
}

func (m *memAllowances) Create(_ context.Context, a *model.Allowance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.allowances[a.ID] = &cp
	return nil
}

func (m *memAllowances) Get(_ context.Context, id uuid.UUID) (*model.Allowance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allowances[id]
	if !ok {
		return nil, fmt.Errorf("allowance %s: %w", id, model.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *memAllowances) Update(_ context.Context, a *model.Allowance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.allowances[a.ID]; !ok {
		return fmt.Errorf("allowance %s: %w", a.ID, model.ErrNotFound)
	}
	cp := *a
	m.allowances[a.ID] = &cp
	return nil
}

func (m *memAllowances) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.allowances[id]; !ok {
		return fmt.Errorf("allowance %s: %w", id, model.ErrNotFound)
	}
	delete(m.allowances, id)
	return nil
}

func (m *memAllowances) ListByChildren(_ context.Context, childIDs []uuid.UUID) ([]model.Allowance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Allowance
	for _, a := range m.allowances {
		for _, id := range childIDs {
			if a.ChildID == id {
				out = append(out, *a)
				break
			}
		}
	}
	return out, nil
}

func (m *memAllowances) Due(_ context.Context, now time.Time) ([]model.Allowance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Allowance
	for _, a := range m.allowances {
		if !a.IsActive || a.NextDueDate.After(now) {
			continue
		}
		if a.EndDate != nil && a.EndDate.Before(now) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAllowances) SetNextDue(_ context.Context, id uuid.UUID, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allowances[id]
	if !ok {
		return fmt.Errorf("allowance %s: %w", id, model.ErrNotFound)
	}
	if !a.NextDueDate.Before(next) {
		return fmt.Errorf("allowance %s due date not advanced: %w", id, model.ErrInvalidState)
	}
	a.NextDueDate = next
	return nil
}

type memGoals struct {
	mu    sync.Mutex
	goals map[uuid.UUID]*model.SavingsGoal
}

func newMemGoals() *memGoals {
	return &memGoals{goals: make(map[uuid.UUID]*model.SavingsGoal)}
}

func (m *memGoals) Create(_ context.Context, g *model.SavingsGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.goals[g.ID] = &cp
	return nil
}

func (m *memGoals) Get(_ context.Context, id uuid.UUID) (*model.SavingsGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (m *memGoals) Update(_ context.Context, g *model.SavingsGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[g.ID]; !ok {
		return fmt.Errorf("goal %s: %w", g.ID, model.ErrNotFound)
	}
	cp := *g
	m.goals[g.ID] = &cp
	return nil
}

func (m *memGoals) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[id]; !ok {
		return fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	delete(m.goals, id)
	return nil
}

func (m *memGoals) ListByChildren(_ context.Context, childIDs []uuid.UUID) ([]model.SavingsGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SavingsGoal
	for _, g := range m.goals {
		for _, id := range childIDs {
			if g.ChildID == id {
				out = append(out, *g)
				break
			}
		}
	}
	return out, nil
}

// memBus records published events for assertions.
type memBus struct {
	mu     sync.Mutex
	events []busEvent
}

type busEvent struct {
	Topic string
	Data  []byte
}

func (b *memBus) Publish(topic string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, busEvent{Topic: topic, Data: data})
	return nil
}

func (b *memBus) byTopic(topic string) []busEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []busEvent
	for _, e := range b.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

func decodeEvent[T any](e busEvent) (T, error) {
	var ev T
	err := json.Unmarshal(e.Data, &ev)
	return ev, err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fixture wires every service over the in-memory stores with one parent and
// one child already linked.
type fixture struct {
	accounts     *memAccounts
	txns         *memTxns
	allowances   *memAllowances
	goals        *memGoals
	bus          *memBus
	now          time.Time
	accountSvc   *AccountService
	txnSvc       *TransactionService
	allowanceSvc *AllowanceService
	goalSvc      *GoalService

	parentID uuid.UUID
	childID  uuid.UUID
	parent   Access
	child    Access
}

func newFixture() *fixture {
	f := &fixture{
		accounts:   newMemAccounts(),
		txns:       newMemTxns(),
		allowances: newMemAllowances(),
		goals:      newMemGoals(),
		bus:        &memBus{},
		now:        time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC),
		parentID:   uuid.New(),
		childID:    uuid.New(),
	}
	log := zap.NewNop()
	clock := fixedClock{t: f.now}
	f.accountSvc = NewAccountService(f.accounts, clock, log)
	f.txnSvc = NewTransactionService(f.txns, f.accounts, f.accounts, f.bus, clock, log)
	f.allowanceSvc = NewAllowanceService(f.allowances, f.accounts, f.txnSvc, clock, log)
	f.goalSvc = NewGoalService(f.goals, f.accounts, f.bus, clock, log)

	f.parent = Access{UserID: f.parentID, Role: model.RoleParent, ChildIDs: []uuid.UUID{f.childID}}
	f.child = Access{UserID: f.childID, Role: model.RoleChild, ChildIDs: []uuid.UUID{f.childID}}
	return f
}

// openAccount creates an ACTIVE account for the fixture child with the given
// balance, bypassing the ledger.
func (f *fixture) openAccount(balance string) *model.Account {
	a := &model.Account{
		ID:        uuid.New(),
		ChildID:   f.childID,
		Name:      "Pocket Money",
		Balance:   decimal.RequireFromString(balance),
		Status:    model.AccountActive,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	_ = f.accounts.Create(context.Background(), a)
	return a
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }
