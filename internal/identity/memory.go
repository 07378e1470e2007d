package identity

import (
	"context"
	"sync"
	"time"

	"docvault.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string // email -> user id
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty identity store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *InMemory) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	stored := *u
	s.byID[u.ID] = &stored
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.byID[id]
	return &out, nil
}

func (s *InMemory) UpdateRole(ctx context.Context, userID string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return nil
}
