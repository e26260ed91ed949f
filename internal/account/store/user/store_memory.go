// Package user provides user store implementations. The in-memory variant
// backs unit tests and local development; production uses PostgresStore.
package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"quizforge/internal/account/models"
	id "quizforge/pkg/domain"
	"quizforge/pkg/platform/sentinel"
)

// InMemoryStore keeps users in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create inserts a new user. Returns sentinel.ErrConflict when the email is
// already registered.
func (s *InMemoryStore) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[key] = u.ID
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[userID]
	return &cp, nil
}

// Update replaces the stored record, re-indexing the email. Uniqueness of the
// new email is enforced the same way as Create.
func (s *InMemoryStore) Update(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey := strings.ToLower(current.Email)
	newKey := strings.ToLower(u.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return sentinel.ErrConflict
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = u.ID
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

// Delete removes the record and its email index entry.
func (s *InMemoryStore) Delete(ctx context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(u.Email))
	delete(s.byID, userID)
	return nil
}

func (s *InMemoryStore) ListByRole(ctx context.Context, role id.Role) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, u := range s.byID {
		if u.Role == role {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}
