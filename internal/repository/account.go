package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

// AccountRepo implements service.AccountStore and service.LedgerStore on
// Postgres, with a Redis read-through cache for balance reads. Debits lock
// the account row so the non-negative check and the write are one atomic
// step; Settle runs debit and credit in a single database transaction.
type AccountRepo struct {
	db    *pgxpool.Pool
	cache *BalanceCache
}

func NewAccountRepo(db *pgxpool.Pool, cache *BalanceCache) *AccountRepo {
	return &AccountRepo{db: db, cache: cache}
}

const accountColumns = `id, child_id, name, balance, status, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.ChildID, &a.Name, &a.Balance, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, child_id, name, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ChildID, a.Name, a.Balance, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %v", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("account %s", id))
	}
	return a, nil
}

func (r *AccountRepo) ListByChildren(ctx context.Context, childIDs []uuid.UUID) ([]model.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE child_id = ANY($1) ORDER BY created_at ASC`, childIDs)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %v", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// FirstActive returns the child's primary account: the earliest-created
// ACTIVE one. The tie-break makes allowance payouts deterministic.
func (r *AccountRepo) FirstActive(ctx context.Context, childID uuid.UUID) (*model.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE child_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, childID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("active account for child %s", childID))
	}
	return a, nil
}

// Balance serves reads from the cache and warms it from Postgres on a miss.
func (r *AccountRepo) Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	if bal, err := r.cache.Get(ctx, id); err == nil {
		return bal, nil
	}
	var bal decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&bal)
	if err != nil {
		return decimal.Zero, notFound(err, fmt.Sprintf("account %s", id))
	}
	_ = r.cache.Set(ctx, id, bal)
	return bal, nil
}

func (r *AccountRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update account status: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// ApplyDelta atomically adjusts one account's balance. Debits take a row
// lock so concurrent debits serialize and can never drive the balance
// negative together.
func (r *AccountRepo) ApplyDelta(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, dir service.Direction) (decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	newBalance, err := applyDeltaTx(ctx, tx, accountID, amount, dir)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit: %v", err)
	}
	r.cache.Invalidate(ctx, accountID)
	return newBalance, nil
}

// Settle applies an optional debit and an optional credit as one database
// transaction. A credit failure rolls the debit back, so money never
// disappears between accounts.
func (r *AccountRepo) Settle(ctx context.Context, from, to *uuid.UUID, amount decimal.Decimal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	if from != nil {
		if _, err := applyDeltaTx(ctx, tx, *from, amount, service.Debit); err != nil {
			return err
		}
	}
	if to != nil {
		if _, err := applyDeltaTx(ctx, tx, *to, amount, service.Credit); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %v", err)
	}

	touched := make([]uuid.UUID, 0, 2)
	if from != nil {
		touched = append(touched, *from)
	}
	if to != nil {
		touched = append(touched, *to)
	}
	r.cache.Invalidate(ctx, touched...)
	return nil
}

func applyDeltaTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal, dir service.Direction) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("account %s: %w", accountID, model.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("lock account %s: %v", accountID, err)
	}

	switch dir {
	case service.Credit:
		balance = balance.Add(amount)
	case service.Debit:
		balance = balance.Sub(amount)
		if balance.IsNegative() {
			return decimal.Zero, fmt.Errorf("account %s: %w", accountID, model.ErrInsufficientFunds)
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown direction %q", dir)
	}

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET balance = $2, updated_at = now() WHERE id = $1`, accountID, balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %v", err)
	}
	return balance, nil
}
