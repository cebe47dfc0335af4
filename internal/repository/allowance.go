package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pocketbank/internal/model"
)

type AllowanceRepo struct {
	db *pgxpool.Pool
}

func NewAllowanceRepo(db *pgxpool.Pool) *AllowanceRepo {
	return &AllowanceRepo{db: db}
}

const allowanceColumns = `id, child_id, amount, frequency, start_date, end_date,
	next_due_date, is_active, description, created_at`

func scanAllowance(row pgx.Row) (*model.Allowance, error) {
	var a model.Allowance
	err := row.Scan(&a.ID, &a.ChildID, &a.Amount, &a.Frequency, &a.StartDate, &a.EndDate,
		&a.NextDueDate, &a.IsActive, &a.Description, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AllowanceRepo) Create(ctx context.Context, a *model.Allowance) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO allowances
			(id, child_id, amount, frequency, start_date, end_date, next_due_date,
			 is_active, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ChildID, a.Amount, a.Frequency, a.StartDate, a.EndDate, a.NextDueDate,
		a.IsActive, a.Description, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert allowance: %v", err)
	}
	return nil
}

func (r *AllowanceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Allowance, error) {
	a, err := scanAllowance(r.db.QueryRow(ctx,
		`SELECT `+allowanceColumns+` FROM allowances WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("allowance %s", id))
	}
	return a, nil
}

func (r *AllowanceRepo) Update(ctx context.Context, a *model.Allowance) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE allowances
		SET amount = $2, frequency = $3, end_date = $4, next_due_date = $5,
		    is_active = $6, description = $7
		WHERE id = $1`,
		a.ID, a.Amount, a.Frequency, a.EndDate, a.NextDueDate, a.IsActive, a.Description)
	if err != nil {
		return fmt.Errorf("update allowance: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allowance %s: %w", a.ID, model.ErrNotFound)
	}
	return nil
}

func (r *AllowanceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM allowances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete allowance: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allowance %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (r *AllowanceRepo) ListByChildren(ctx context.Context, childIDs []uuid.UUID) ([]model.Allowance, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+allowanceColumns+` FROM allowances WHERE child_id = ANY($1) ORDER BY created_at DESC`,
		childIDs)
	if err != nil {
		return nil, fmt.Errorf("list allowances: %v", err)
	}
	defer rows.Close()
	return collectAllowances(rows)
}

// Due selects every active allowance that has come due and has not ended.
func (r *AllowanceRepo) Due(ctx context.Context, now time.Time) ([]model.Allowance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+allowanceColumns+` FROM allowances
		WHERE is_active AND next_due_date <= $1
		  AND (end_date IS NULL OR end_date >= $1)
		ORDER BY next_due_date ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("due allowances: %v", err)
	}
	defer rows.Close()
	return collectAllowances(rows)
}

// SetNextDue only ever moves the due date forward.
func (r *AllowanceRepo) SetNextDue(ctx context.Context, id uuid.UUID, next time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE allowances SET next_due_date = $2
		WHERE id = $1 AND next_due_date < $2`, id, next)
	if err != nil {
		return fmt.Errorf("advance allowance: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allowance %s not advanced: %w", id, model.ErrInvalidState)
	}
	return nil
}

func collectAllowances(rows pgx.Rows) ([]model.Allowance, error) {
	var out []model.Allowance
	for rows.Next() {
		a, err := scanAllowance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
