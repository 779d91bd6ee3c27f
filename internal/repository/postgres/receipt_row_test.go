package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/repository/postgres"
)

var receiptColumns = []string{
	"id", "original_name", "content_type", "file_size", "content_hash",
	"s3_bucket", "s3_key", "status", "attempts", "error", "retry_after",
	"ocr_text", "entities", "fields", "field_provenance",
	"classifier_model", "reasoner_model", "secondary_model",
	"completed_at", "created_at", "updated_at",
}

// cannedDriver answers every query with the rows it was built with, and
// COUNT(*) queries with the number of rows.
type cannedDriver struct{ rows [][]driver.Value }

func (d *cannedDriver) Open(string) (driver.Conn, error) { return &cannedConn{d: d}, nil }

type cannedConn struct{ d *cannedDriver }

func (c *cannedConn) Prepare(query string) (driver.Stmt, error) {
	return &cannedStmt{d: c.d, query: query}, nil
}
func (c *cannedConn) Close() error              { return nil }
func (c *cannedConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

type cannedStmt struct {
	d     *cannedDriver
	query string
}

func (s *cannedStmt) Close() error  { return nil }
func (s *cannedStmt) NumInput() int { return -1 }
func (s *cannedStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(1), nil
}
func (s *cannedStmt) Query([]driver.Value) (driver.Rows, error) {
	if strings.Contains(s.query, "COUNT(*)") {
		return &cannedRows{cols: []string{"count"}, rows: [][]driver.Value{{int64(len(s.d.rows))}}}, nil
	}
	return &cannedRows{cols: receiptColumns, rows: s.d.rows}, nil
}

type cannedRows struct {
	cols []string
	rows [][]driver.Value
	next int
}

func (r *cannedRows) Columns() []string { return r.cols }
func (r *cannedRows) Close() error      { return nil }
func (r *cannedRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

func cannedDB(t *testing.T, rows ...[]driver.Value) *sqlx.DB {
	t.Helper()
	name := "canned-" + uuid.NewString()
	sql.Register(name, &cannedDriver{rows: rows})
	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "pgx")
}

// receiptValues builds a row as Postgres returns it; nil JSON means SQL NULL.
func receiptValues(id uuid.UUID, status domain.ReceiptStatus, fields []byte) []driver.Value {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var entities, provenance, completedAt driver.Value
	var fieldsVal driver.Value
	if fields != nil {
		fieldsVal = fields
		entities = []byte(`[{"text":"ACME","label":"B-COMPANY"}]`)
		provenance = []byte(`{"company":"primary"}`)
		completedAt = now
	}
	return []driver.Value{
		id.String(), "r.png", "image/png", int64(42), "hash",
		"bucket", "key", string(status), int64(1), "", nil,
		"", entities, fieldsVal, provenance,
		"", "", "",
		completedAt, now, now,
	}
}

func TestReceiptRepo_ScansNullJSONColumns(t *testing.T) {
	id := uuid.New()
	repo := postgres.NewReceiptRepo(cannedDB(t, receiptValues(id, domain.ReceiptStatusQueued, nil)))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.ReceiptStatusQueued, got.Status)
	assert.Nil(t, got.Entities)
	assert.Nil(t, got.Fields)
	assert.Nil(t, got.FieldProvenance)
	assert.Nil(t, got.CompletedAt)
}

func TestReceiptRepo_ListMixesNullAndPopulatedJSON(t *testing.T) {
	pending := uuid.New()
	done := uuid.New()
	repo := postgres.NewReceiptRepo(cannedDB(t,
		receiptValues(pending, domain.ReceiptStatusProcessing, nil),
		receiptValues(done, domain.ReceiptStatusCompleted, []byte(`{"company":"A&W"}`)),
	))

	receipts, total, err := repo.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, receipts, 2)

	assert.Equal(t, pending, receipts[0].ID)
	assert.Nil(t, receipts[0].Fields)

	assert.Equal(t, done, receipts[1].ID)
	assert.JSONEq(t, `{"company":"A&W"}`, string(receipts[1].Fields))
	assert.JSONEq(t, `{"company":"primary"}`, string(receipts[1].FieldProvenance))
	require.NotNil(t, receipts[1].CompletedAt)
}

func TestReceiptRepo_ClaimQueuedScansNullJSON(t *testing.T) {
	id := uuid.New()
	repo := postgres.NewReceiptRepo(cannedDB(t, receiptValues(id, domain.ReceiptStatusProcessing, nil)))

	claimed, err := repo.ClaimQueued(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)
	assert.Nil(t, claimed[0].Fields)
}

func TestReceiptRepo_ListByStatusScansNullJSON(t *testing.T) {
	id := uuid.New()
	repo := postgres.NewReceiptRepo(cannedDB(t, receiptValues(id, domain.ReceiptStatusFailed, nil)))

	got, err := repo.ListByStatus(context.Background(), domain.ReceiptStatusFailed, domain.ReceiptCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Entities)
}
