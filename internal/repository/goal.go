package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pocketbank/internal/model"
)

type GoalRepo struct {
	db *pgxpool.Pool
}

func NewGoalRepo(db *pgxpool.Pool) *GoalRepo {
	return &GoalRepo{db: db}
}

const goalColumns = `id, child_id, account_id, name, target_amount, current_amount,
	deadline, description, is_completed, completed_at, created_at`

func scanGoal(row pgx.Row) (*model.SavingsGoal, error) {
	var g model.SavingsGoal
	err := row.Scan(&g.ID, &g.ChildID, &g.AccountID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
		&g.Deadline, &g.Description, &g.IsCompleted, &g.CompletedAt, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GoalRepo) Create(ctx context.Context, g *model.SavingsGoal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO savings_goals
			(id, child_id, account_id, name, target_amount, current_amount, deadline,
			 description, is_completed, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		g.ID, g.ChildID, g.AccountID, g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline,
		g.Description, g.IsCompleted, g.CompletedAt, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert savings goal: %v", err)
	}
	return nil
}

func (r *GoalRepo) Get(ctx context.Context, id uuid.UUID) (*model.SavingsGoal, error) {
	g, err := scanGoal(r.db.QueryRow(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("savings goal %s", id))
	}
	return g, nil
}

// Update writes progress and completion. Completion is monotonic at the
// store level too: a completed row never loses its flag or timestamp.
func (r *GoalRepo) Update(ctx context.Context, g *model.SavingsGoal) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE savings_goals
		SET name = $2, target_amount = $3, current_amount = $4, deadline = $5,
		    description = $6,
		    is_completed = is_completed OR $7,
		    completed_at = COALESCE(completed_at, $8)
		WHERE id = $1`,
		g.ID, g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline, g.Description,
		g.IsCompleted, g.CompletedAt)
	if err != nil {
		return fmt.Errorf("update savings goal: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("savings goal %s: %w", g.ID, model.ErrNotFound)
	}
	return nil
}

func (r *GoalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM savings_goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete savings goal: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("savings goal %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (r *GoalRepo) ListByChildren(ctx context.Context, childIDs []uuid.UUID) ([]model.SavingsGoal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE child_id = ANY($1) ORDER BY created_at DESC`,
		childIDs)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %v", err)
	}
	defer rows.Close()

	var out []model.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}
