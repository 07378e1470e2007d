package identity

import "context"

// Store describes persistence operations required by the identity
// subsystem.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateRole(ctx context.Context, userID string, role Role) error
}
