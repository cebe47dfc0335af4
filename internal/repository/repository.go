package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pocketbank/internal/model"
)

// notFound maps pgx.ErrNoRows onto the domain taxonomy.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return fmt.Errorf("%s: %v", what, err)
}
