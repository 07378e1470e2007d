// Package access decides whether a user may perform an operation on a
// document. Decisions combine the user's global role with the grants
// recorded for the document; the decision logic itself is a pure function
// over those inputs.
package access

import (
	"context"

	"docvault.org/internal/docstore"
	"docvault.org/internal/identity"
	"docvault.org/internal/obs"
)

// Action is an operation subject to an access decision.
type Action string

const (
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
	ActionShare  Action = "share"
	ActionEdit   Action = "edit"
	ActionView   Action = "view"
)

// Decide applies the decision table. It is deliberately side-effect free:
// callers load the role, document and grants, and Decide only combines
// them. A nil document denies everything except upload, which is not
// document-scoped.
func Decide(role identity.Role, userID string, doc *docstore.Document, grants []docstore.Grant, action Action) bool {
	if action == ActionUpload {
		return role == identity.RoleAdmin
	}
	if doc == nil {
		return false
	}
	switch action {
	case ActionDelete, ActionShare:
		// Admin role alone is not enough; other admins do not control
		// this document.
		return role == identity.RoleAdmin && doc.OwnerID == userID
	case ActionEdit:
		// Editing needs both the global editor role and a per-document
		// edit grant. A view grant never authorizes an edit, and an edit
		// grant is dormant while the role is anything else.
		if role != identity.RoleEditor {
			return false
		}
		return hasGrant(grants, userID, docstore.AccessEdit)
	case ActionView:
		if doc.OwnerID == userID {
			return true
		}
		return hasGrant(grants, userID, docstore.AccessView) ||
			hasGrant(grants, userID, docstore.AccessEdit)
	}
	return false
}

func hasGrant(grants []docstore.Grant, userID string, at docstore.AccessType) bool {
	for _, g := range grants {
		if g.GranteeID == userID && g.AccessType == at {
			return true
		}
	}
	return false
}

// Evaluator loads the state a decision needs and applies Decide. Any
// lookup failure denies; the evaluator never errors open.
type Evaluator struct {
	users *identity.Service
	docs  docstore.Store
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(users *identity.Service, docs docstore.Store) *Evaluator {
	return &Evaluator{users: users, docs: docs}
}

// CanPerform reports whether userID may perform action on docID. For
// ActionUpload docID is ignored. Missing users, missing documents and
// store failures all yield false.
func (e *Evaluator) CanPerform(ctx context.Context, userID, docID string, action Action) bool {
	allowed := e.evaluate(ctx, userID, docID, action)
	obs.ObserveAccessDecision(string(action), allowed)
	return allowed
}

func (e *Evaluator) evaluate(ctx context.Context, userID, docID string, action Action) bool {
	role, err := e.users.RoleOf(ctx, userID)
	if err != nil {
		return false
	}
	if action == ActionUpload {
		return Decide(role, userID, nil, nil, action)
	}
	doc, err := e.docs.FindDocument(ctx, docID)
	if err != nil {
		return false
	}
	grants, err := e.docs.GrantsFor(ctx, docID)
	if err != nil {
		return false
	}
	return Decide(role, userID, doc, grants, action)
}
