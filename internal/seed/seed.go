package seed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pocketbank/internal/model"
)

const (
	seedPassword = "password123"
	parentEmail  = "parent@example.com"
)

var children = []struct {
	Email     string
	FirstName string
	Account   string
}{
	{"emma@example.com", "Emma", "Pocket Money"},
	{"liam@example.com", "Liam", "Pocket Money"},
}

// Run inserts a demo family: one parent, two children, one active account
// each, plus a weekly allowance for the first child. Idempotent.
func Run(ctx context.Context, db *pgxpool.Pool, log *zap.Logger) error {
	var count int
	err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, parentEmail).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Info("seed already applied, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashed := string(hash)

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	parentID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		parentID, parentEmail, hashed, model.RoleParent, "Pat", "Example", now)
	if err != nil {
		return err
	}

	var firstChildID uuid.UUID
	for i, c := range children {
		childID := uuid.New()
		if i == 0 {
			firstChildID = childID
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, role, first_name, last_name, parent_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			childID, c.Email, hashed, model.RoleChild, c.FirstName, "Example", parentID, now)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO accounts (id, child_id, name, balance, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			uuid.New(), childID, c.Account, decimal.Zero, model.AccountActive, now)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO allowances (id, child_id, amount, frequency, start_date, next_due_date, is_active, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, $7, $8)`,
		uuid.New(), firstChildID, decimal.RequireFromString("10.00"), model.FrequencyWeekly,
		now, now.AddDate(0, 0, 7), "Weekly pocket money", now)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info("seeded demo family", zap.String("parent_email", parentEmail), zap.String("password", seedPassword))
	return nil
}
