package registry

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"docvault.org/internal/access"
	"docvault.org/internal/activity"
	"docvault.org/internal/blob"
	"docvault.org/internal/docstore"
	"docvault.org/internal/identity"
)

type fixture struct {
	svc   *Service
	users *identity.Service
	docs  docstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users, err := identity.NewService(identity.NewInMemory())
	if err != nil {
		t.Fatalf("identity.NewService: %v", err)
	}
	docs := docstore.NewInMemory()
	blobs, err := blob.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("blob.NewFS: %v", err)
	}
	svc, err := NewService(users, docs, blobs, access.NewEvaluator(users, docs), activity.New())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, users: users, docs: docs}
}

func (f *fixture) register(t *testing.T, email string, role identity.Role) identity.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), email, "s3cret-pass")
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	if role != identity.RoleUnassigned {
		if err := f.users.SetRole(context.Background(), u.ID, role); err != nil {
			t.Fatalf("SetRole(%s): %v", email, err)
		}
	}
	return u
}

func TestUploadShareEditDeleteLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.register(t, "admin@example.com", identity.RoleAdmin)
	editor := f.register(t, "editor@example.com", identity.RoleEditor)

	doc, err := f.svc.Upload(ctx, admin.ID, "Meeting Notes", "notes.txt", strings.NewReader("first draft"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.OwnerID != admin.ID {
		t.Fatalf("owner = %q, want uploader", doc.OwnerID)
	}

	if _, err := f.svc.Share(ctx, admin.ID, doc.ID, "editor@example.com", "edit"); err != nil {
		t.Fatalf("Share: %v", err)
	}
	if err := f.svc.EditContent(ctx, editor.ID, doc.ID, "second draft"); err != nil {
		t.Fatalf("EditContent: %v", err)
	}
	got, err := f.svc.Content(ctx, editor.ID, doc.ID)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if got != "second draft" {
		t.Fatalf("Content = %q", got)
	}

	if err := f.svc.Delete(ctx, admin.ID, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Every later operation on the document reports it missing, not
	// forbidden, and no grant rows remain behind.
	if err := f.svc.EditContent(ctx, editor.ID, doc.ID, "too late"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("EditContent after delete = %v, want ErrNotFound", err)
	}
	if _, _, err := f.svc.Download(ctx, admin.ID, doc.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Download after delete = %v, want ErrNotFound", err)
	}
	if grants, _ := f.docs.GrantsFor(ctx, doc.ID); len(grants) != 0 {
		t.Fatalf("grants survived the delete: %d", len(grants))
	}
}

func TestViewerWithEditGrantCannotEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.register(t, "admin@example.com", identity.RoleAdmin)
	viewer := f.register(t, "viewer@example.com", identity.RoleViewer)

	doc, err := f.svc.Upload(ctx, admin.ID, "Policy", "policy.txt", strings.NewReader("v1"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := f.svc.Share(ctx, admin.ID, doc.ID, "viewer@example.com", "edit"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	if err := f.svc.EditContent(ctx, viewer.ID, doc.ID, "v2"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("EditContent = %v, want ErrAccessDenied", err)
	}

	// The edit grant still conveys view access.
	got, rc, err := f.svc.Download(ctx, viewer.ID, doc.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	if got.ID != doc.ID {
		t.Fatalf("downloaded wrong document: %q", got.ID)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "v1" {
		t.Fatalf("content = %q, want unchanged", data)
	}
}

func TestUploadRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	editor := f.register(t, "editor@example.com", identity.RoleEditor)
	if _, err := f.svc.Upload(ctx, editor.ID, "Nope", "n.txt", strings.NewReader("x")); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("Upload = %v, want ErrAccessDenied", err)
	}
}

func TestDeleteAndShareRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.register(t, "owner@example.com", identity.RoleAdmin)
	other := f.register(t, "other@example.com", identity.RoleAdmin)

	doc, err := f.svc.Upload(ctx, owner.ID, "Mine", "m.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := f.svc.Delete(ctx, other.ID, doc.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("Delete by non-owner admin = %v, want ErrAccessDenied", err)
	}
	if _, err := f.svc.Share(ctx, other.ID, doc.ID, "owner@example.com", "view"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("Share by non-owner admin = %v, want ErrAccessDenied", err)
	}
}

func TestShareUnknownRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.register(t, "admin@example.com", identity.RoleAdmin)
	doc, err := f.svc.Upload(ctx, admin.ID, "Doc", "d.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := f.svc.Share(ctx, admin.ID, doc.ID, "ghost@example.com", "view"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("Share = %v, want identity.ErrNotFound", err)
	}
}

func TestRepeatedShareRecordsBothGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.register(t, "admin@example.com", identity.RoleAdmin)
	f.register(t, "viewer@example.com", identity.RoleViewer)

	doc, err := f.svc.Upload(ctx, admin.ID, "Doc", "d.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Share(ctx, admin.ID, doc.ID, "viewer@example.com", "view"); err != nil {
			t.Fatalf("Share #%d: %v", i+1, err)
		}
	}

	details, err := f.svc.GrantsFor(ctx, admin.ID, doc.ID)
	if err != nil {
		t.Fatalf("GrantsFor: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 grant rows, got %d", len(details))
	}
	for _, d := range details {
		if d.GranteeEmail != "viewer@example.com" {
			t.Fatalf("grantee email = %q", d.GranteeEmail)
		}
	}
}

func TestEditNonTextDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.register(t, "admin@example.com", identity.RoleAdmin)
	editor := f.register(t, "editor@example.com", identity.RoleEditor)

	doc, err := f.svc.Upload(ctx, admin.ID, "Slides", "slides.pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := f.svc.Share(ctx, admin.ID, doc.ID, "editor@example.com", "edit"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	if err := f.svc.EditContent(ctx, editor.ID, doc.ID, "nope"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("EditContent = %v, want ErrUnsupportedOperation", err)
	}
}

func TestSharedWithListsOwnerEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.register(t, "admin@example.com", identity.RoleAdmin)
	viewer := f.register(t, "viewer@example.com", identity.RoleViewer)

	doc, err := f.svc.Upload(ctx, admin.ID, "Handbook", "h.pdf", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := f.svc.Share(ctx, admin.ID, doc.ID, "viewer@example.com", "view"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	shared, err := f.svc.SharedWith(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("SharedWith: %v", err)
	}
	if len(shared) != 1 {
		t.Fatalf("expected 1 shared document, got %d", len(shared))
	}
	if shared[0].OwnerEmail != "admin@example.com" || shared[0].AccessType != docstore.AccessView {
		t.Fatalf("unexpected shared entry: %#v", shared[0])
	}

	owned, err := f.svc.ListOwned(ctx, admin.ID)
	if err != nil {
		t.Fatalf("ListOwned: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != doc.ID {
		t.Fatalf("unexpected owned list: %#v", owned)
	}
}
