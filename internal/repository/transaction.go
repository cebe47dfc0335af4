package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

// TransactionRepo implements service.TransactionStore. State transitions
// are guarded UPDATEs on the expected current status: the losing side of a
// race sees zero rows affected, never a double transition.
type TransactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const txnColumns = `id, from_account_id, to_account_id, type, amount, status, description,
	metadata, approved_by, approved_at, decline_reason, completed_at, created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Type, &t.Amount, &t.Status,
		&t.Description, &t.Metadata, &t.ApprovedBy, &t.ApprovedAt, &t.DeclineReason,
		&t.CompletedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO transactions
			(id, from_account_id, to_account_id, type, amount, status, description,
			 metadata, approved_by, approved_at, decline_reason, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.FromAccountID, t.ToAccountID, t.Type, t.Amount, t.Status, t.Description,
		t.Metadata, t.ApprovedBy, t.ApprovedAt, t.DeclineReason, t.CompletedAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %v", err)
	}
	return nil
}

func (r *TransactionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("transaction %s", id))
	}
	return t, nil
}

func (r *TransactionRepo) MarkApproved(ctx context.Context, id uuid.UUID, approver *uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'APPROVED', approved_by = $2, approved_at = $3
		WHERE id = $1 AND status = 'PENDING'`, id, approver, at)
	if err != nil {
		return false, fmt.Errorf("approve transaction: %v", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TransactionRepo) MarkDeclined(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'DECLINED', decline_reason = $2
		WHERE id = $1 AND status = 'PENDING'`, id, reason)
	if err != nil {
		return false, fmt.Errorf("decline transaction: %v", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TransactionRepo) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'COMPLETED', completed_at = $2
		WHERE id = $1 AND status = 'APPROVED'`, id, at)
	if err != nil {
		return fmt.Errorf("complete transaction: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s is not approved: %w", id, model.ErrInvalidState)
	}
	return nil
}

func (r *TransactionRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE transactions SET status = 'FAILED'
		WHERE id = $1 AND status = 'APPROVED'`, id)
	if err != nil {
		return fmt.Errorf("fail transaction: %v", err)
	}
	return nil
}

func (r *TransactionRepo) List(ctx context.Context, f service.TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AccountID != nil {
		p := arg(*f.AccountID)
		where = append(where, fmt.Sprintf("(from_account_id = %s OR to_account_id = %s)", p, p))
	} else {
		p := arg(f.AccountIDs)
		where = append(where, fmt.Sprintf("(from_account_id = ANY(%s) OR to_account_id = ANY(%s))", p, p))
	}
	if f.Type != "" {
		where = append(where, "type = "+arg(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.From != nil {
		where = append(where, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at <= "+arg(*f.To))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %v", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
