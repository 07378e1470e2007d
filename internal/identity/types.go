package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("identity: not found")
	ErrDuplicateEmail    = errors.New("identity: email already registered")
	ErrInvalidCredential = errors.New("identity: invalid credentials")
	ErrInvalidInput      = errors.New("identity: invalid input")
)

// Role is the user's single global role. It gates classes of actions
// independent of any specific document.
type Role string

const (
	// RoleUnassigned is the state between registration and role selection.
	// An unassigned user is authenticated but cannot act on documents.
	RoleUnassigned Role = "unassigned"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

// Valid reports whether r is one of the four enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUnassigned, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// ParseSelectableRole parses a role chosen by the user during role
// selection. Unassigned cannot be selected; it only exists as the initial
// state.
func ParseSelectableRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	switch role {
	case RoleAdmin, RoleEditor, RoleViewer:
		return role, nil
	}
	return "", fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, raw)
}

// User represents a registered account. Email is stored and compared
// exactly as given at registration.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
