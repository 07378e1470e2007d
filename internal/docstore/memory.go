package docstore

import (
	"context"
	"sync"
	"time"

	"docvault.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. One mutex
// covers documents and grants, so the cascade delete is indivisible with
// respect to concurrent grants.
type InMemory struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	grants []Grant // append-only; duplicates preserved in insertion order
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty document store.
func NewInMemory() *InMemory {
	return &InMemory{
		docs: make(map[string]*Document),
	}
}

func (s *InMemory) CreateDocument(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = ids.New()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	stored := *doc
	s.docs[doc.ID] = &stored
	return nil
}

func (s *InMemory) FindDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *doc
	return &out, nil
}

func (s *InMemory) ListOwnedBy(ctx context.Context, userID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, doc := range s.docs {
		if doc.OwnerID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *InMemory) UpdateContent(ctx context.Context, docID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return ErrNotFound
	}
	doc.InlineContent = content
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) DeleteDocument(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[docID]; !ok {
		return ErrNotFound
	}
	delete(s.docs, docID)

	kept := s.grants[:0]
	for _, g := range s.grants {
		if g.DocID != docID {
			kept = append(kept, g)
		}
	}
	s.grants = kept
	return nil
}

func (s *InMemory) AppendGrant(ctx context.Context, grant *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[grant.DocID]; !ok {
		return ErrNotFound
	}
	if grant.ID == "" {
		grant.ID = ids.New()
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}
	s.grants = append(s.grants, *grant)
	return nil
}

func (s *InMemory) GrantsFor(ctx context.Context, docID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Grant
	for _, g := range s.grants {
		if g.DocID == docID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *InMemory) GrantsReceivedBy(ctx context.Context, userID string) ([]ReceivedGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ReceivedGrant
	for _, g := range s.grants {
		if g.GranteeID != userID {
			continue
		}
		doc, ok := s.docs[g.DocID]
		if !ok {
			continue
		}
		out = append(out, ReceivedGrant{Grant: g, Document: *doc})
	}
	return out, nil
}
