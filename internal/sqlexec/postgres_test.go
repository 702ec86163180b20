package sqlexec

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockedPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestQueryScansRowsIntoMaps(t *testing.T) {
	executor, mock := newMockedPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT store, total FROM sales LIMIT 1000")).
		WillReturnRows(sqlmock.NewRows([]string{"store", "total"}).
			AddRow([]byte("north"), 42.5).
			AddRow([]byte("south"), 17.0))

	rows, err := executor.Query(context.Background(), "SELECT store, total FROM sales LIMIT 1000")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	if rows[0]["store"] != "north" {
		t.Fatalf("rows[0][store] = %v (%T)", rows[0]["store"], rows[0]["store"])
	}
	if rows[1]["total"] != 17.0 {
		t.Fatalf("rows[1][total] = %v", rows[1]["total"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestQueryReturnsEmptySliceForNoRows(t *testing.T) {
	executor, mock := newMockedPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 LIMIT 1000")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}))

	rows, err := executor.Query(context.Background(), "SELECT 1 LIMIT 1000")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("rows = %#v", rows)
	}
}

func TestQueryRejectsEmptySQL(t *testing.T) {
	executor, _ := newMockedPostgres(t)
	if _, err := executor.Query(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty sql")
	}
}

func TestQueryWrapsDriverErrorWithSQLState(t *testing.T) {
	executor, mock := newMockedPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missing LIMIT 1000")).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"})

	_, err := executor.Query(context.Background(), "SELECT * FROM missing LIMIT 1000")
	if err == nil {
		t.Fatal("expected error")
	}
	var execErr *Error
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T", err)
	}
	if execErr.Code != "42P01" {
		t.Fatalf("Code = %q", execErr.Code)
	}
	if CodeOf(err) != "42P01" {
		t.Fatalf("CodeOf() = %q", CodeOf(err))
	}
}

func TestPingReportsFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	executor := NewPostgres(db)
	if err := executor.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
