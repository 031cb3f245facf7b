package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// memoryStore is a CredentialStore kept in a map. Accounts are copied on the
// way in and out. Like the Postgres store it refuses writes that would leave
// no active admin, checked under the same lock as the write.
type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[string]*models.Account)}
}

func (s *memoryStore) Get(_ context.Context, username string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a.Clone(), nil
}

func (s *memoryStore) Insert(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.Username]; ok {
		return common.ErrorAlreadyExists
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts[a.Username] = a.Clone()
	return nil
}

func (s *memoryStore) Update(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.Username]
	if !ok || cur.ID != a.ID {
		return common.ErrorNotFound
	}
	if (a.Role != models.RoleAdmin || !a.IsActive) && s.lastActiveAdmin(cur) {
		return common.ErrLastAdmin
	}
	s.accounts[a.Username] = a.Clone()
	return nil
}

func (s *memoryStore) CountByRole(_ context.Context, role models.Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, a := range s.accounts {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Delete(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.Username]
	if !ok || cur.ID != a.ID {
		return common.ErrorNotFound
	}
	if s.lastActiveAdmin(cur) {
		return common.ErrLastAdmin
	}
	delete(s.accounts, a.Username)
	return nil
}

// lastActiveAdmin reports whether a is the only active admin. Callers hold mu.
func (s *memoryStore) lastActiveAdmin(a *models.Account) bool {
	if a.Role != models.RoleAdmin || !a.IsActive {
		return false
	}
	for _, o := range s.accounts {
		if o.ID != a.ID && o.Role == models.RoleAdmin && o.IsActive {
			return false
		}
	}
	return true
}

func (s *memoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}
