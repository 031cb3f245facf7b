// Package store implements the PostgreSQL-backed credential store consumed by
// the account service.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/blobs"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
)

// BlobRemover deletes object-storage data under a key prefix.
type BlobRemover interface {
	RemovePrefix(ctx context.Context, prefix string) error
}

// PostgresStore keeps accounts in PostgreSQL. Owned rows go away through
// ON DELETE CASCADE, owned objects through the optional BlobRemover.
type PostgresStore struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	blobs BlobRemover
}

// NewPostgresStore returns a store over db. blobs may be nil.
func NewPostgresStore(db *sql.DB, repos repomanager.RepositoryManager, blobs BlobRemover) *PostgresStore {
	return &PostgresStore{db: db, repos: repos, blobs: blobs}
}

func (s *PostgresStore) Get(ctx context.Context, username string) (*models.Account, error) {
	return s.repos.Accounts(s.db).GetByUsername(ctx, username)
}

// Insert assigns a fresh UUID when the account has none.
func (s *PostgresStore) Insert(ctx context.Context, a *models.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return s.repos.Accounts(s.db).Create(ctx, a)
}

// Update writes a. When a stops being an active admin it fails with
// common.ErrLastAdmin if no other active admin would remain.
func (s *PostgresStore) Update(ctx context.Context, a *models.Account) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)
		if a.Role != models.RoleAdmin || !a.IsActive {
			if err := keepActiveAdmin(ctx, repo, a.ID); err != nil {
				return err
			}
		}
		return repo.Update(ctx, a)
	})
}

// keepActiveAdmin locks the active admin rows for the rest of the
// transaction, so concurrent demotions are serialised, and refuses to let
// id take the last one away.
func keepActiveAdmin(ctx context.Context, repo accounts.Repository, id string) error {
	ids, err := repo.LockActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 1 && ids[0] == id {
		return common.ErrLastAdmin
	}
	return nil
}

func (s *PostgresStore) CountByRole(ctx context.Context, role models.Role) (int, error) {
	return s.repos.Accounts(s.db).CountByRole(ctx, role)
}

// Delete removes the row, then the account's objects, in one transaction.
// It fails with common.ErrLastAdmin for the last active admin. A failed
// object cleanup rolls the row deletion back. Objects are removed before the
// commit, so if the commit itself fails the row survives without them;
// calling Delete again finishes the job because removing an empty prefix is
// a no-op.
func (s *PostgresStore) Delete(ctx context.Context, a *models.Account) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)
		if err := keepActiveAdmin(ctx, repo, a.ID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, a.ID); err != nil {
			return err
		}
		if s.blobs == nil {
			return nil
		}
		if err := s.blobs.RemovePrefix(ctx, blobs.AccountPrefix(a.ID)); err != nil {
			return fmt.Errorf("remove owned objects: %w", err)
		}
		return nil
	})
}
