// Package docstore persists documents and the append-only ledger of access
// grants. Both live in one store so that deleting a document and sweeping
// its grants is a single atomic step.
package docstore

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("docstore: not found")
	ErrInvalidInput = errors.New("docstore: invalid input")
)

// AccessType is the kind of access a grant conveys.
type AccessType string

const (
	AccessView AccessType = "view"
	AccessEdit AccessType = "edit"
)

// ParseAccessType parses a user-supplied access type.
func ParseAccessType(raw string) (AccessType, error) {
	at := AccessType(strings.TrimSpace(strings.ToLower(raw)))
	switch at {
	case AccessView, AccessEdit:
		return at, nil
	}
	return "", fmt.Errorf("%w: unsupported access type %q", ErrInvalidInput, raw)
}

// Document is an uploaded file plus its registry metadata. OwnerID is set at
// creation and never changes; there is no ownership transfer.
type Document struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	StorageRef    string    `json:"storage_ref"`
	InlineContent string    `json:"-"`
	OwnerID       string    `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Grant authorizes one user to view or edit one document. Grants are
// additive and never deduplicated: re-granting the same pair produces a
// second row which authorizes identically. Grants are only removed by the
// cascade when their document is deleted.
type Grant struct {
	ID         string     `json:"id"`
	DocID      string     `json:"doc_id"`
	GranteeID  string     `json:"grantee_id"`
	AccessType AccessType `json:"access_type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReceivedGrant is a grant joined with its document, used to enumerate
// documents shared to a user.
type ReceivedGrant struct {
	Grant    Grant    `json:"grant"`
	Document Document `json:"document"`
}
