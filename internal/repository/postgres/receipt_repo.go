package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"unikrew/internal/domain"
	"unikrew/internal/port"
)

// receiptRow shadows the JSONB columns of domain.Receipt with nullable
// types; a receipt that has not completed has NULL fields and entities.
type receiptRow struct {
	domain.Receipt
	Entities        types.NullJSONText `db:"entities"`
	Fields          types.NullJSONText `db:"fields"`
	FieldProvenance types.NullJSONText `db:"field_provenance"`
}

func (row *receiptRow) toDomain() domain.Receipt {
	r := row.Receipt
	r.Entities = nullableJSON(row.Entities)
	r.Fields = nullableJSON(row.Fields)
	r.FieldProvenance = nullableJSON(row.FieldProvenance)
	return r
}

func nullableJSON(v types.NullJSONText) json.RawMessage {
	if !v.Valid || len(v.JSONText) == 0 {
		return nil
	}
	return json.RawMessage(v.JSONText)
}

func toReceipts(rows []receiptRow) []domain.Receipt {
	out := make([]domain.Receipt, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out
}

type receiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo creates a new PostgreSQL-backed ReceiptRepository.
func NewReceiptRepo(db *sqlx.DB) port.ReceiptRepository {
	return &receiptRepo{db: db}
}

func (r *receiptRepo) Create(ctx context.Context, receipt *domain.Receipt) error {
	now := time.Now().UTC()
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `INSERT INTO receipts (
		id, original_name, content_type, file_size, content_hash,
		s3_bucket, s3_key, status, attempts, error, retry_after,
		ocr_text, entities, fields, field_provenance,
		classifier_model, reasoner_model, secondary_model,
		completed_at, created_at, updated_at
	) VALUES (
		:id, :original_name, :content_type, :file_size, :content_hash,
		:s3_bucket, :s3_key, :status, :attempts, :error, :retry_after,
		:ocr_text, :entities, :fields, :field_provenance,
		:classifier_model, :reasoner_model, :secondary_model,
		:completed_at, :created_at, :updated_at
	)`, receipt)
	if err != nil {
		return fmt.Errorf("receiptRepo.Create: %w", err)
	}
	return nil
}

func (r *receiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Receipt, error) {
	var row receiptRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM receipts WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("receiptRepo.GetByID: %w", err)
	}
	receipt := row.toDomain()
	return &receipt, nil
}

// GetByContentHash returns the most recent completed receipt with the given hash.
func (r *receiptRepo) GetByContentHash(ctx context.Context, hash string) (*domain.Receipt, error) {
	var row receiptRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM receipts WHERE content_hash = $1 AND status = $2
		 ORDER BY completed_at DESC LIMIT 1`,
		hash, domain.ReceiptStatusCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("receiptRepo.GetByContentHash: %w", err)
	}
	receipt := row.toDomain()
	return &receipt, nil
}

func (r *receiptRepo) List(ctx context.Context, offset, limit int) ([]domain.Receipt, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM receipts"); err != nil {
		return nil, 0, fmt.Errorf("receiptRepo.List count: %w", err)
	}

	var rows []receiptRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM receipts ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("receiptRepo.List: %w", err)
	}
	return toReceipts(rows), total, nil
}

func (r *receiptRepo) ListAll(ctx context.Context) ([]domain.Receipt, error) {
	var rows []receiptRow
	err := r.db.SelectContext(ctx, &rows, "SELECT * FROM receipts ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("receiptRepo.ListAll: %w", err)
	}
	return toReceipts(rows), nil
}

// ListByStatus returns up to limit receipts with the given status ordered
// by (created_at, id), starting strictly after the after cursor. A zero
// cursor starts from the beginning.
func (r *receiptRepo) ListByStatus(ctx context.Context, status domain.ReceiptStatus, after domain.ReceiptCursor, limit int) ([]domain.Receipt, error) {
	var rows []receiptRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM receipts
		 WHERE status = $1 AND (created_at, id) > ($2, $3)
		 ORDER BY created_at, id
		 LIMIT $4`,
		status, after.CreatedAt, after.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("receiptRepo.ListByStatus: %w", err)
	}
	return toReceipts(rows), nil
}

func (r *receiptRepo) Update(ctx context.Context, receipt *domain.Receipt) error {
	receipt.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx, `UPDATE receipts SET
			status = :status, attempts = :attempts, error = :error, retry_after = :retry_after,
			ocr_text = :ocr_text, entities = :entities, fields = :fields,
			field_provenance = :field_provenance, classifier_model = :classifier_model,
			reasoner_model = :reasoner_model, secondary_model = :secondary_model,
			s3_bucket = :s3_bucket, s3_key = :s3_key,
			completed_at = :completed_at, updated_at = :updated_at
		 WHERE id = :id`, receipt)
	if err != nil {
		return fmt.Errorf("receiptRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrReceiptNotFound
	}
	return nil
}

func (r *receiptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM receipts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("receiptRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrReceiptNotFound
	}
	return nil
}

// ClaimQueued atomically moves up to limit due receipts from queued to
// processing. Concurrent workers never claim the same row.
func (r *receiptRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Receipt, error) {
	var rows []receiptRow
	err := r.db.SelectContext(ctx, &rows,
		`UPDATE receipts SET status = $1, attempts = attempts + 1, updated_at = NOW()
		 WHERE id IN (
			SELECT id FROM receipts
			WHERE status = $2 AND (retry_after IS NULL OR retry_after <= NOW())
			ORDER BY retry_after NULLS FIRST, created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.ReceiptStatusProcessing, domain.ReceiptStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("receiptRepo.ClaimQueued: %w", err)
	}
	return toReceipts(rows), nil
}
