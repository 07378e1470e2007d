package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGStoreDeleteCascade(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("delete from grants where doc_id").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("delete from documents where id").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPGStore(db)
	if err := store.DeleteDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreDeleteMissingRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("delete from grants where doc_id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from documents where id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	store := NewPGStore(db)
	if err := store.DeleteDocument(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreAppendGrant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("insert into grants").
		WithArgs(sqlmock.AnyArg(), "doc-1", "user-2", "edit").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	store := NewPGStore(db)
	g := Grant{DocID: "doc-1", GranteeID: "user-2", AccessType: AccessEdit}
	if err := store.AppendGrant(context.Background(), &g); err != nil {
		t.Fatalf("AppendGrant: %v", err)
	}
	if g.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestPGStoreAppendGrantMissingDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("insert into grants").
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	store := NewPGStore(db)
	g := Grant{DocID: "gone", GranteeID: "user-2", AccessType: AccessView}
	if err := store.AppendGrant(context.Background(), &g); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreGrantsReceivedBy(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "doc_id", "grantee_id", "access_type", "created_at",
		"id", "title", "storage_ref", "inline_content", "owner_id", "created_at", "updated_at",
	}).AddRow(
		"grant-1", "doc-1", "user-2", "view", now,
		"doc-1", "Quarterly", "q.pdf", "", "owner-1", now, now,
	)
	mock.ExpectQuery("from grants g").
		WithArgs("user-2").
		WillReturnRows(rows)

	store := NewPGStore(db)
	received, err := store.GrantsReceivedBy(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("GrantsReceivedBy: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 row, got %d", len(received))
	}
	if received[0].Document.Title != "Quarterly" || received[0].Grant.AccessType != AccessView {
		t.Fatalf("unexpected join result: %#v", received[0])
	}
}
