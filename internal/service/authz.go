package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pocketbank/internal/model"
)

// Access is the resolved identity of a caller: who they are and which
// children they can act for. Parents list their linked children, children
// list only themselves.
type Access struct {
	UserID   uuid.UUID
	Role     model.Role
	ChildIDs []uuid.UUID
	System   bool
}

// SystemAccess is used by internal callers such as the allowance scheduler.
// It passes every capability check.
var SystemAccess = Access{System: true}

// IdentityStore resolves a user into an Access.
type IdentityStore interface {
	ResolveAccess(ctx context.Context, userID uuid.UUID) (Access, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

type Capability string

const (
	// CapUseAccount covers spending from and viewing a child's accounts,
	// goals, and allowances: the child themselves or their parent.
	CapUseAccount Capability = "account.use"
	// CapManageChild covers guardian-only operations: approving and
	// declining transactions, managing allowances, changing account status.
	CapManageChild Capability = "child.manage"
)

func (a Access) ownsChild(childID uuid.UUID) bool {
	for _, id := range a.ChildIDs {
		if id == childID {
			return true
		}
	}
	return false
}

// Authorize is the single policy check consulted by every core operation.
// childID identifies the child whose resource is being touched.
func Authorize(a Access, cap Capability, childID uuid.UUID) error {
	if a.System {
		return nil
	}
	switch cap {
	case CapUseAccount:
		if a.ownsChild(childID) {
			return nil
		}
	case CapManageChild:
		if a.Role == model.RoleParent && a.ownsChild(childID) {
			return nil
		}
	}
	return fmt.Errorf("%w: user %s lacks %s for child %s", model.ErrForbidden, a.UserID, cap, childID)
}
