package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service provides registration, credential checks and role management on
// top of a Store.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity store is required")
	}
	return &Service{store: store}, nil
}

// Register creates a new user with role unassigned. The email is stored
// exactly as given (after trimming surrounding whitespace).
func (s *Service) Register(ctx context.Context, email, credential string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if credential == "" {
		return User{}, fmt.Errorf("%w: credential is required", ErrInvalidInput)
	}
	hash, err := HashPassword(credential)
	if err != nil {
		return User{}, err
	}
	u := User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUnassigned,
	}
	if err := s.store.Create(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate verifies the credential against the stored hash. An unknown
// email and a mismatched credential are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, credential string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || credential == "" {
		return User{}, ErrInvalidCredential
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredential
		}
		return User{}, err
	}
	if err := VerifyPassword(u.PasswordHash, credential); err != nil {
		return User{}, ErrInvalidCredential
	}
	return *u, nil
}

// SetRole overwrites the user's role unconditionally. Role selection is
// self-service; the only check is that the caller is this user, which the
// transport layer enforces.
func (s *Service) SetRole(ctx context.Context, userID string, role Role) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if !role.Valid() || role == RoleUnassigned {
		return fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, role)
	}
	return s.store.UpdateRole(ctx, userID, role)
}

// RoleOf returns the user's current role.
func (s *Service) RoleOf(ctx context.Context, userID string) (Role, error) {
	u, err := s.store.Find(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// Find returns the user with the given id.
func (s *Service) Find(ctx context.Context, userID string) (User, error) {
	u, err := s.store.Find(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return *u, nil
}

// FindByEmail returns the user registered under the exact email.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	u, err := s.store.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return User{}, err
	}
	return *u, nil
}
