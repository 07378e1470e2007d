package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCascadeDeleteRemovesGrants(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	doc := &Document{Title: "Report", StorageRef: "r1.txt", OwnerID: "owner-1"}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	for i := 0; i < 3; i++ {
		g := &Grant{DocID: doc.ID, GranteeID: "user-2", AccessType: AccessEdit}
		if err := s.AppendGrant(ctx, g); err != nil {
			t.Fatalf("AppendGrant: %v", err)
		}
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := s.FindDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	grants, err := s.GrantsFor(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GrantsFor: %v", err)
	}
	if len(grants) != 0 {
		t.Fatalf("expected no grants after cascade, got %d", len(grants))
	}
}

func TestDuplicateGrantsArePreserved(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	doc := &Document{Title: "Notes", StorageRef: "n.txt", OwnerID: "owner-1"}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	// Re-granting the same (doc, grantee, type) is legal and yields two rows.
	for i := 0; i < 2; i++ {
		g := &Grant{DocID: doc.ID, GranteeID: "user-2", AccessType: AccessView}
		if err := s.AppendGrant(ctx, g); err != nil {
			t.Fatalf("AppendGrant: %v", err)
		}
	}
	grants, _ := s.GrantsFor(ctx, doc.ID)
	if len(grants) != 2 {
		t.Fatalf("expected 2 grant rows, got %d", len(grants))
	}
	if grants[0].ID == grants[1].ID {
		t.Fatalf("duplicate grants must have distinct ids")
	}
}

func TestGrantOnMissingDocument(t *testing.T) {
	s := NewInMemory()
	g := &Grant{DocID: "missing", GranteeID: "user-2", AccessType: AccessView}
	if err := s.AppendGrant(context.Background(), g); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGrantsReceivedByJoinsDocuments(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	doc := &Document{Title: "Shared", StorageRef: "s.pdf", OwnerID: "owner-1"}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	g := &Grant{DocID: doc.ID, GranteeID: "user-2", AccessType: AccessView}
	if err := s.AppendGrant(ctx, g); err != nil {
		t.Fatalf("AppendGrant: %v", err)
	}

	received, err := s.GrantsReceivedBy(ctx, "user-2")
	if err != nil {
		t.Fatalf("GrantsReceivedBy: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 received grant, got %d", len(received))
	}
	if received[0].Document.ID != doc.ID || received[0].Grant.AccessType != AccessView {
		t.Fatalf("unexpected join result: %#v", received[0])
	}
	if got, _ := s.GrantsReceivedBy(ctx, "owner-1"); len(got) != 0 {
		t.Fatalf("owner should not appear as grantee")
	}
}

func TestDeleteRacingGrants(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	doc := &Document{Title: "Contested", StorageRef: "c.txt", OwnerID: "owner-1"}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := &Grant{DocID: doc.ID, GranteeID: "user-2", AccessType: AccessEdit}
			// Either the grant lands before the delete (and is swept) or
			// it observes the missing document.
			if err := s.AppendGrant(ctx, g); err != nil && !errors.Is(err, ErrNotFound) {
				t.Errorf("AppendGrant: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteDocument: %v", err)
		}
	}()
	wg.Wait()

	// Regardless of interleaving, the cascade leaves no orphan grants.
	grants, _ := s.GrantsFor(ctx, doc.ID)
	if len(grants) != 0 {
		t.Fatalf("orphan grants survived the cascade: %d", len(grants))
	}
}
