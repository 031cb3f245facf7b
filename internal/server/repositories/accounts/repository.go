// Package accounts declares the account repository contract and its
// PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Repository persists accounts. Lookups return common.ErrorNotFound when the
// row is absent; Create returns common.ErrorAlreadyExists on a username clash.
type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
	// LockActiveAdmins returns the IDs of active admins and, inside a
	// transaction, locks their rows until it ends.
	LockActiveAdmins(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}
