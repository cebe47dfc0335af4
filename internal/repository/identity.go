package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

// IdentityRepo implements service.IdentityStore. Parents act for the
// children that back-reference them; children act only for themselves.
type IdentityRepo struct {
	db *pgxpool.Pool
}

func NewIdentityRepo(db *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) ResolveAccess(ctx context.Context, userID uuid.UUID) (service.Access, error) {
	var role model.Role
	err := r.db.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		return service.Access{}, notFound(err, fmt.Sprintf("user %s", userID))
	}

	access := service.Access{UserID: userID, Role: role}
	switch role {
	case model.RoleChild:
		access.ChildIDs = []uuid.UUID{userID}
	case model.RoleParent:
		rows, err := r.db.Query(ctx, `SELECT id FROM users WHERE parent_id = $1`, userID)
		if err != nil {
			return service.Access{}, fmt.Errorf("list children: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return service.Access{}, err
			}
			access.ChildIDs = append(access.ChildIDs, id)
		}
		if err := rows.Err(); err != nil {
			return service.Access{}, err
		}
	}
	return access, nil
}

func (r *IdentityRepo) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, role, first_name, last_name, parent_id, created_at
		FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.ParentID, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %s", email))
	}
	return &u, nil
}
