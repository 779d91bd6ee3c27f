package port

import (
	"context"

	"github.com/google/uuid"

	"unikrew/internal/domain"
)

// ReceiptRepository persists receipts and their extraction results.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *domain.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Receipt, error)
	GetByContentHash(ctx context.Context, hash string) (*domain.Receipt, error)
	List(ctx context.Context, offset, limit int) ([]domain.Receipt, int, error)
	ListAll(ctx context.Context) ([]domain.Receipt, error)
	ListByStatus(ctx context.Context, status domain.ReceiptStatus, after domain.ReceiptCursor, limit int) ([]domain.Receipt, error)
	Update(ctx context.Context, receipt *domain.Receipt) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClaimQueued(ctx context.Context, limit int) ([]domain.Receipt, error)
}
