// Package registry is the document lifecycle service. It combines the
// identity store, the document store, the blob store and the access
// evaluator, so that every mutation passes one authorization gate before
// touching persistent state.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"docvault.org/internal/access"
	"docvault.org/internal/activity"
	"docvault.org/internal/audit"
	"docvault.org/internal/blob"
	"docvault.org/internal/docstore"
	"docvault.org/internal/identity"
)

var (
	// ErrAccessDenied is returned when the evaluator denies the requested
	// operation. It carries no detail about which rule failed.
	ErrAccessDenied = errors.New("registry: access denied")

	// ErrUnsupportedOperation is returned when the operation cannot apply
	// to the document, such as in-place editing of a non-text file.
	ErrUnsupportedOperation = errors.New("registry: unsupported operation")

	ErrInvalidInput = errors.New("registry: invalid input")
)

// SharedDocument is a document visible to a user through a grant, joined
// with the owner's email for display.
type SharedDocument struct {
	Document   docstore.Document   `json:"document"`
	AccessType docstore.AccessType `json:"access_type"`
	OwnerEmail string              `json:"owner_email"`
}

// GrantDetail is a grant joined with the grantee's email.
type GrantDetail struct {
	Grant        docstore.Grant `json:"grant"`
	GranteeEmail string         `json:"grantee_email"`
}

// Service implements the document operations.
type Service struct {
	users *identity.Service
	docs  docstore.Store
	blobs *blob.FS
	eval  *access.Evaluator
	feed  *activity.Stream
}

// NewService constructs a Service. The activity feed is optional.
func NewService(users *identity.Service, docs docstore.Store, blobs *blob.FS, eval *access.Evaluator, feed *activity.Stream) (*Service, error) {
	if users == nil || docs == nil || blobs == nil || eval == nil {
		return nil, errors.New("users, docs, blobs and eval are required")
	}
	return &Service{users: users, docs: docs, blobs: blobs, eval: eval, feed: feed}, nil
}

// Upload stores the file content and registers a document owned by the
// actor. Only admins may upload.
func (s *Service) Upload(ctx context.Context, actorID, title, filename string, r io.Reader) (docstore.Document, error) {
	if !s.eval.CanPerform(ctx, actorID, "", access.ActionUpload) {
		return docstore.Document{}, ErrAccessDenied
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = filepath.Base(strings.TrimSpace(filename))
	}
	if title == "" || title == "." {
		return docstore.Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	ref := blob.NewRef(filename)
	if _, err := s.blobs.Save(ref, r); err != nil {
		return docstore.Document{}, err
	}
	doc := docstore.Document{
		Title:      title,
		StorageRef: ref,
		OwnerID:    actorID,
	}
	if err := s.docs.CreateDocument(ctx, &doc); err != nil {
		// Keep the blob store consistent with the registry.
		_ = s.blobs.Remove(ref)
		return docstore.Document{}, err
	}

	_ = audit.LogEvent(ctx, "document.upload", map[string]any{"doc_id": doc.ID, "title": doc.Title})
	s.publish(activity.EventUploaded, doc, actorID)
	return doc, nil
}

// Delete removes the document, every grant referencing it and its stored
// content. Only the owning admin may delete.
func (s *Service) Delete(ctx context.Context, actorID, docID string) error {
	doc, err := s.docs.FindDocument(ctx, docID)
	if err != nil {
		return err
	}
	if !s.eval.CanPerform(ctx, actorID, docID, access.ActionDelete) {
		return ErrAccessDenied
	}
	if err := s.docs.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := s.blobs.Remove(doc.StorageRef); err != nil {
		return err
	}

	_ = audit.LogEvent(ctx, "document.delete", map[string]any{"doc_id": docID})
	s.publish(activity.EventDeleted, *doc, actorID)
	return nil
}

// Share records a grant for the user registered under granteeEmail. Only
// the owning admin may share; sharing the same access twice records a
// second grant.
func (s *Service) Share(ctx context.Context, actorID, docID, granteeEmail, accessType string) (GrantDetail, error) {
	at, err := docstore.ParseAccessType(accessType)
	if err != nil {
		return GrantDetail{}, err
	}
	doc, err := s.docs.FindDocument(ctx, docID)
	if err != nil {
		return GrantDetail{}, err
	}
	if !s.eval.CanPerform(ctx, actorID, docID, access.ActionShare) {
		return GrantDetail{}, ErrAccessDenied
	}
	grantee, err := s.users.FindByEmail(ctx, granteeEmail)
	if err != nil {
		return GrantDetail{}, err
	}

	g := docstore.Grant{
		DocID:      doc.ID,
		GranteeID:  grantee.ID,
		AccessType: at,
	}
	if err := s.docs.AppendGrant(ctx, &g); err != nil {
		return GrantDetail{}, err
	}

	_ = audit.LogEvent(ctx, "document.share", map[string]any{
		"doc_id": doc.ID, "grantee_id": grantee.ID, "access_type": string(at),
	})
	s.publish(activity.EventShared, *doc, actorID)
	return GrantDetail{Grant: g, GranteeEmail: grantee.Email}, nil
}

// EditContent replaces the stored text of the document. The actor needs
// the editor role plus an edit grant, and only plain text files may be
// edited in place.
func (s *Service) EditContent(ctx context.Context, actorID, docID, content string) error {
	doc, err := s.docs.FindDocument(ctx, docID)
	if err != nil {
		return err
	}
	if !s.eval.CanPerform(ctx, actorID, docID, access.ActionEdit) {
		return ErrAccessDenied
	}
	if !blob.TextEditable(doc.StorageRef) {
		return fmt.Errorf("%w: only text documents can be edited in place", ErrUnsupportedOperation)
	}
	if err := s.blobs.WriteText(doc.StorageRef, content); err != nil {
		return err
	}
	if err := s.docs.UpdateContent(ctx, docID, content); err != nil {
		return err
	}

	_ = audit.LogEvent(ctx, "document.edit", map[string]any{"doc_id": docID})
	s.publish(activity.EventEdited, *doc, actorID)
	return nil
}

// Content returns the stored text of the document for editing, gated the
// same way as EditContent.
func (s *Service) Content(ctx context.Context, actorID, docID string) (string, error) {
	doc, err := s.docs.FindDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	if !s.eval.CanPerform(ctx, actorID, docID, access.ActionEdit) {
		return "", ErrAccessDenied
	}
	if !blob.TextEditable(doc.StorageRef) {
		return "", fmt.Errorf("%w: only text documents can be edited in place", ErrUnsupportedOperation)
	}
	return s.blobs.ReadText(doc.StorageRef)
}

// Download returns the document and a reader over its stored content.
// Owners and grant holders of either access type may download.
func (s *Service) Download(ctx context.Context, actorID, docID string) (docstore.Document, io.ReadCloser, error) {
	doc, err := s.docs.FindDocument(ctx, docID)
	if err != nil {
		return docstore.Document{}, nil, err
	}
	if !s.eval.CanPerform(ctx, actorID, docID, access.ActionView) {
		return docstore.Document{}, nil, ErrAccessDenied
	}
	rc, err := s.blobs.Open(doc.StorageRef)
	if err != nil {
		return docstore.Document{}, nil, err
	}
	return *doc, rc, nil
}

// Get returns the document metadata, gated by view access.
func (s *Service) Get(ctx context.Context, actorID, docID string) (docstore.Document, error) {
	doc, err := s.docs.FindDocument(ctx, docID)
	if err != nil {
		return docstore.Document{}, err
	}
	if !s.eval.CanPerform(ctx, actorID, docID, access.ActionView) {
		return docstore.Document{}, ErrAccessDenied
	}
	return *doc, nil
}

// ListOwned returns the documents the actor owns.
func (s *Service) ListOwned(ctx context.Context, actorID string) ([]docstore.Document, error) {
	return s.docs.ListOwnedBy(ctx, actorID)
}

// SharedWith returns the documents shared to the actor, joined with the
// owner emails for display.
func (s *Service) SharedWith(ctx context.Context, actorID string) ([]SharedDocument, error) {
	received, err := s.docs.GrantsReceivedBy(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]SharedDocument, 0, len(received))
	for _, rg := range received {
		sd := SharedDocument{Document: rg.Document, AccessType: rg.Grant.AccessType}
		if owner, err := s.users.Find(ctx, rg.Document.OwnerID); err == nil {
			sd.OwnerEmail = owner.Email
		}
		out = append(out, sd)
	}
	return out, nil
}

// GrantsFor lists the grants recorded for the document with grantee
// emails resolved. Only the owning admin may inspect the grant list.
func (s *Service) GrantsFor(ctx context.Context, actorID, docID string) ([]GrantDetail, error) {
	if _, err := s.docs.FindDocument(ctx, docID); err != nil {
		return nil, err
	}
	if !s.eval.CanPerform(ctx, actorID, docID, access.ActionShare) {
		return nil, ErrAccessDenied
	}
	grants, err := s.docs.GrantsFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	out := make([]GrantDetail, 0, len(grants))
	for _, g := range grants {
		gd := GrantDetail{Grant: g}
		if u, err := s.users.Find(ctx, g.GranteeID); err == nil {
			gd.GranteeEmail = u.Email
		}
		out = append(out, gd)
	}
	return out, nil
}

func (s *Service) publish(typ activity.EventType, doc docstore.Document, actorID string) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(activity.Event{
		Type:     typ,
		DocID:    doc.ID,
		DocTitle: doc.Title,
		ActorID:  actorID,
	})
}
