package repository

import (
	"account-api/internal/core"
	"account-api/internal/models"
	"context"
	"sync"
	"time"
)

// MemoryAccountStore keeps accounts in process memory. Uniqueness is checked and the
// write applied under one lock, so concurrent creates behave like the unique constraints.
type MemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
	byUser  map[string]string
	now     func() time.Time
}

func NewMemoryAccountStore() core.CredentialStore {
	return &MemoryAccountStore{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
		byUser:  make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryAccountStore) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[a.Email]; taken {
		return ErrDuplicateEmail
	}
	if _, taken := s.byUser[a.UserName]; taken {
		return ErrDuplicateUserName
	}

	stored := a.Clone()
	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	s.byUser[stored.UserName] = stored.ID
	return nil
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryAccountStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (s *MemoryAccountStore) UpdateByID(_ context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Email != nil {
		if owner, taken := s.byEmail[*patch.Email]; taken && owner != id {
			return nil, ErrDuplicateEmail
		}
	}
	if patch.UserName != nil {
		if owner, taken := s.byUser[*patch.UserName]; taken && owner != id {
			return nil, ErrDuplicateUserName
		}
	}

	updated := patch.Apply(current)
	updated.UpdatedAt = s.now()

	delete(s.byEmail, current.Email)
	delete(s.byUser, current.UserName)
	s.byID[id] = updated
	s.byEmail[updated.Email] = id
	s.byUser[updated.UserName] = id
	return updated.Clone(), nil
}

func (s *MemoryAccountStore) ExistsByEmailExcluding(_ context.Context, email, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.byEmail[email]
	return ok && owner != excludeID, nil
}

func (s *MemoryAccountStore) ExistsByUserNameExcluding(_ context.Context, userName, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.byUser[userName]
	return ok && owner != excludeID, nil
}

// Count returns the number of stored accounts.
func (s *MemoryAccountStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
