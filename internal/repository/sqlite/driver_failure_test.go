package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/model"
)

// These tests swap the real SQLite pool for go-sqlmock so we can make the
// driver fail on demand and check how each method reports it.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &DB{conn: conn}, mock
}

func TestListUnlockedByOwner_QueryError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM capsules`)).
		WillReturnError(errors.New("disk I/O error"))

	_, err := db.ListUnlockedByOwner(context.Background(), "user-1", time.Now())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("driver failure must not look like NotFound: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMarkNotified_ExecError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE capsules SET notified = 1, updated_at = ? WHERE id = ?`)).
		WithArgs(sqlmock.AnyArg(), "capsule-1").
		WillReturnError(errors.New("database is locked"))

	_, err := db.MarkNotified(context.Background(), "capsule-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDelete_ZeroRowsIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM capsules WHERE id = ?`)).
		WithArgs("capsule-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.Delete(context.Background(), "capsule-1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserCreate_ExecErrorIsNotConflict(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("connection reset"))

	err := db.Users().Create(context.Background(), &model.User{
		Username:     "carol",
		Email:        "carol@example.com",
		PasswordHash: "hash",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, apperror.ErrConflict) {
		t.Errorf("generic driver error must not map to ErrConflict: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
