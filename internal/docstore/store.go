package docstore

import "context"

// Store describes persistence for documents and grants. Implementations
// must serialize conflicting writes: a grant racing a delete either lands
// before the delete (and is swept by the cascade) or fails with
// ErrNotFound.
type Store interface {
	CreateDocument(ctx context.Context, doc *Document) error
	FindDocument(ctx context.Context, id string) (*Document, error)
	ListOwnedBy(ctx context.Context, userID string) ([]Document, error)
	UpdateContent(ctx context.Context, docID, content string) error

	// DeleteDocument removes the document and every grant referencing it
	// as one atomic unit.
	DeleteDocument(ctx context.Context, docID string) error

	// AppendGrant inserts a grant row. The referenced document must exist;
	// duplicates are legal and preserved.
	AppendGrant(ctx context.Context, grant *Grant) error
	GrantsFor(ctx context.Context, docID string) ([]Grant, error)
	GrantsReceivedBy(ctx context.Context, userID string) ([]ReceivedGrant, error)
}
