// Package services contains the server-side business logic: the account
// workflows (registration, login, password and role changes, activation and
// deletion) and the access/refresh token pair lifecycle.
package services

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// CredentialStore persists accounts keyed by username.
//
// Get returns common.ErrorNotFound when the account is absent and Insert
// returns common.ErrorAlreadyExists on a username conflict. Delete removes
// the account together with everything it owns.
//
// Update and Delete fail with common.ErrLastAdmin when the write would leave
// no active admin. The check and the write are atomic, so concurrent
// demotions cannot empty the admin set between them.
type CredentialStore interface {
	Get(ctx context.Context, username string) (*models.Account, error)
	Insert(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
	Delete(ctx context.Context, account *models.Account) error
}

// TokenIssuer signs short-lived bearer tokens carrying username and role.
type TokenIssuer interface {
	Issue(username string, role models.Role) (string, error)
}

// Recorder counts operation outcomes.
type Recorder interface {
	Observe(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, string) {}
