package docstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"docvault.org/internal/ids"
)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const pgForeignKeyViolation = "23503"

func (s *PGStore) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into documents(id, title, storage_ref, inline_content, owner_id)
		 values($1,$2,$3,$4,$5)
		 returning created_at, updated_at`,
		doc.ID, doc.Title, doc.StorageRef, doc.InlineContent, doc.OwnerID,
	)
	return row.Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

func (s *PGStore) FindDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, title, storage_ref, inline_content, owner_id, created_at, updated_at
		 from documents where id=$1`, id)
	var doc Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.StorageRef, &doc.InlineContent,
		&doc.OwnerID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *PGStore) ListOwnedBy(ctx context.Context, userID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, storage_ref, inline_content, owner_id, created_at, updated_at
		 from documents where owner_id=$1 order by created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.StorageRef, &doc.InlineContent,
			&doc.OwnerID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PGStore) UpdateContent(ctx context.Context, docID, content string) error {
	res, err := s.db.ExecContext(ctx,
		`update documents set inline_content=$2, updated_at=now() where id=$1`,
		docID, content)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes the document row and sweeps its grants inside a
// single transaction, so no orphan grant survives.
func (s *PGStore) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from grants where doc_id=$1`, docID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from documents where id=$1`, docID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *PGStore) AppendGrant(ctx context.Context, grant *Grant) error {
	if grant.ID == "" {
		grant.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into grants(id, doc_id, grantee_id, access_type)
		 values($1,$2,$3,$4)
		 returning created_at`,
		grant.ID, grant.DocID, grant.GranteeID, string(grant.AccessType),
	)
	if err := row.Scan(&grant.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *PGStore) GrantsFor(ctx context.Context, docID string) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, doc_id, grantee_id, access_type, created_at
		 from grants where doc_id=$1 order by created_at`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func (s *PGStore) GrantsReceivedBy(ctx context.Context, userID string) ([]ReceivedGrant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select g.id, g.doc_id, g.grantee_id, g.access_type, g.created_at,
		        d.id, d.title, d.storage_ref, d.inline_content, d.owner_id, d.created_at, d.updated_at
		 from grants g
		 join documents d on d.id = g.doc_id
		 where g.grantee_id=$1 order by g.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReceivedGrant
	for rows.Next() {
		var (
			rg ReceivedGrant
			at string
		)
		if err := rows.Scan(&rg.Grant.ID, &rg.Grant.DocID, &rg.Grant.GranteeID, &at, &rg.Grant.CreatedAt,
			&rg.Document.ID, &rg.Document.Title, &rg.Document.StorageRef, &rg.Document.InlineContent,
			&rg.Document.OwnerID, &rg.Document.CreatedAt, &rg.Document.UpdatedAt); err != nil {
			return nil, err
		}
		rg.Grant.AccessType = AccessType(at)
		out = append(out, rg)
	}
	return out, rows.Err()
}

func scanGrants(rows *sql.Rows) ([]Grant, error) {
	var out []Grant
	for rows.Next() {
		var (
			g  Grant
			at string
		)
		if err := rows.Scan(&g.ID, &g.DocID, &g.GranteeID, &at, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.AccessType = AccessType(at)
		out = append(out, g)
	}
	return out, rows.Err()
}
