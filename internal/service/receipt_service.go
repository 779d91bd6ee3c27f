package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/export"
	"unikrew/internal/ocr"
	"unikrew/internal/pipeline"
	"unikrew/internal/port"
)

// Extractor runs the receipt pipeline over one image.
type Extractor interface {
	Run(ctx context.Context, img pipeline.Image) (*pipeline.Extraction, error)
}

// UploadInput is the DTO for receipt uploads.
type UploadInput struct {
	Filename string
	Size     int64
	File     io.Reader
}

// UploadResult is the stored receipt plus whether an earlier upload of the
// same bytes was returned instead of running the pipeline again.
type UploadResult struct {
	Receipt      *domain.Receipt
	Deduplicated bool
}

// ReceiptService defines the receipt extraction contract.
type ReceiptService interface {
	Infer(ctx context.Context, imagePath string) (*pipeline.Extraction, error)
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Receipt, error)
	List(ctx context.Context, offset, limit int) ([]domain.Receipt, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Retry(ctx context.Context, id uuid.UUID) (*domain.Receipt, error)
	ImageURL(ctx context.Context, id uuid.UUID) (string, error)
	ProcessReceipt(ctx context.Context, receipt *domain.Receipt, maxAttempts int)
	Export(ctx context.Context, format domain.ExportFormat, w io.Writer) error
}

type receiptService struct {
	repo        port.ReceiptRepository
	storage     port.ObjectStorage
	extractor   Extractor
	source      *ImageSource
	s3Cfg       *config.S3Config
	uploadCfg   *config.UploadConfig
	maxAttempts int
	now         func() time.Time
}

// NewReceiptService creates a new ReceiptService implementation.
func NewReceiptService(
	repo port.ReceiptRepository,
	storage port.ObjectStorage,
	extractor Extractor,
	source *ImageSource,
	s3Cfg *config.S3Config,
	uploadCfg *config.UploadConfig,
	maxAttempts int,
) ReceiptService {
	return &receiptService{
		repo:        repo,
		storage:     storage,
		extractor:   extractor,
		source:      source,
		s3Cfg:       s3Cfg,
		uploadCfg:   uploadCfg,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *receiptService) Infer(ctx context.Context, imagePath string) (*pipeline.Extraction, error) {
	img, err := s.source.Load(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("receiptService.Infer: running pipeline",
		zap.String("image_path", imagePath), zap.String("content_type", img.ContentType))
	return s.extractor.Run(ctx, *img)
}

func (s *receiptService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	// Validate file extension
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Filename), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	// Validate file size, both declared and actual
	maxBytes := s.uploadCfg.MaxFileSizeMB * 1024 * 1024
	if input.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(input.File, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Validate magic bytes
	contentType := ocr.DetectContentType(data)
	if _, ok := domain.AllowedContentTypes[contentType]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	sum := blake2b.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.repo.GetByContentHash(ctx, hash)
	switch {
	case err == nil:
		zap.L().Info("receiptService.Upload: returning existing receipt",
			zap.String("receipt_id", existing.ID.String()), zap.String("content_hash", hash))
		return &UploadResult{Receipt: existing, Deduplicated: true}, nil
	case !errors.Is(err, domain.ErrReceiptNotFound):
		return nil, fmt.Errorf("looking up content hash: %w", err)
	}

	id := uuid.New()
	receipt := &domain.Receipt{
		ID:           id,
		OriginalName: input.Filename,
		ContentType:  contentType,
		FileSize:     int64(len(data)),
		ContentHash:  hash,
		S3Bucket:     s.s3Cfg.Bucket,
		S3Key:        fmt.Sprintf("receipts/%s/%s", id, filepath.Base(input.Filename)),
		Status:       domain.ReceiptStatusProcessing,
		Attempts:     1,
	}

	zap.L().Info("receiptService.Upload: storing receipt",
		zap.String("receipt_id", id.String()), zap.String("name", input.Filename),
		zap.String("content_type", contentType), zap.Int("bytes", len(data)))

	if err := s.repo.Create(ctx, receipt); err != nil {
		zap.L().Error("receiptService.Upload: failed to create receipt", zap.Error(err))
		return nil, fmt.Errorf("creating receipt: %w", err)
	}

	// The upload and the extraction run side by side; an upload failure
	// cancels the extraction, while extraction errors are recorded on the
	// receipt rather than failing the group.
	var extraction *pipeline.Extraction
	var runErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.storage.Upload(gctx, port.ObjectInput{
			Bucket:      receipt.S3Bucket,
			Key:         receipt.S3Key,
			Body:        bytes.NewReader(data),
			ContentType: contentType,
			Size:        int64(len(data)),
			Metadata: map[string]string{
				"receipt-id":   id.String(),
				"content-hash": hash,
			},
		})
		return err
	})
	g.Go(func() error {
		extraction, runErr = s.extractor.Run(gctx, pipeline.Image{Bytes: data, ContentType: contentType})
		return nil
	})
	if err := g.Wait(); err != nil {
		zap.L().Error("receiptService.Upload: storage upload failed",
			zap.String("receipt_id", id.String()), zap.Error(err))
		s.fail(ctx, receipt, fmt.Sprintf("uploading image: %v", err))
		return nil, domain.ErrUploadFailed
	}

	s.record(ctx, receipt, extraction, runErr, s.maxAttempts)
	return &UploadResult{Receipt: receipt}, nil
}

func (s *receiptService) Get(ctx context.Context, id uuid.UUID) (*domain.Receipt, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *receiptService) List(ctx context.Context, offset, limit int) ([]domain.Receipt, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *receiptService) Delete(ctx context.Context, id uuid.UUID) error {
	zap.L().Info("receiptService.Delete: deleting receipt", zap.String("receipt_id", id.String()))

	receipt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if receipt.S3Key != "" {
		if err := s.storage.Delete(ctx, receipt.S3Bucket, receipt.S3Key); err != nil {
			zap.L().Error("receiptService.Delete: failed to delete from S3", zap.Error(err))
			return fmt.Errorf("deleting from storage: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *receiptService) Retry(ctx context.Context, id uuid.UUID) (*domain.Receipt, error) {
	receipt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt.Status != domain.ReceiptStatusFailed {
		return nil, domain.ErrReceiptNotRetried
	}

	receipt.Status = domain.ReceiptStatusQueued
	receipt.Error = ""
	receipt.RetryAfter = nil
	receipt.Attempts = 0
	if err := s.repo.Update(ctx, receipt); err != nil {
		return nil, fmt.Errorf("queueing receipt for retry: %w", err)
	}

	zap.L().Info("receiptService.Retry: receipt queued", zap.String("receipt_id", id.String()))
	return receipt, nil
}

func (s *receiptService) ImageURL(ctx context.Context, id uuid.UUID) (string, error) {
	receipt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, receipt.S3Bucket, receipt.S3Key, s.s3Cfg.PresignExpiry)
}

// ProcessReceipt downloads a stored receipt image, runs the pipeline and
// saves the outcome. Errors are recorded on the receipt, not returned.
func (s *receiptService) ProcessReceipt(ctx context.Context, receipt *domain.Receipt, maxAttempts int) {
	data, err := s.storage.Download(ctx, receipt.S3Bucket, receipt.S3Key)
	if err != nil {
		s.fail(ctx, receipt, fmt.Sprintf("downloading image: %v", err))
		return
	}

	contentType := receipt.ContentType
	if contentType == "" {
		contentType = ocr.DetectContentType(data)
	}
	extraction, runErr := s.extractor.Run(ctx, pipeline.Image{Bytes: data, ContentType: contentType})
	s.record(ctx, receipt, extraction, runErr, maxAttempts)
}

func (s *receiptService) Export(ctx context.Context, format domain.ExportFormat, w io.Writer) error {
	if format != domain.ExportFormatCSV && format != domain.ExportFormatXLSX {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedExport, format)
	}
	receipts, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing receipts for export: %w", err)
	}
	zap.L().Info("receiptService.Export: exporting receipts",
		zap.String("format", string(format)), zap.Int("count", len(receipts)))
	return export.Write(format, w, receipts)
}

// record stores a pipeline outcome on the receipt: completed on success,
// queued when rate limited with attempts to spare, failed otherwise.
func (s *receiptService) record(ctx context.Context, receipt *domain.Receipt, ext *pipeline.Extraction, runErr error, maxAttempts int) {
	if runErr != nil {
		s.handleRunError(ctx, receipt, runErr, maxAttempts)
		return
	}

	now := s.now().UTC()
	receipt.OCRText = ext.OCRText
	receipt.Fields = ext.FieldsJSON
	if entities, err := json.Marshal(ext.Entities); err == nil {
		receipt.Entities = entities
	}
	receipt.FieldProvenance = nil
	if len(ext.FieldProvenance) > 0 {
		if provenance, err := json.Marshal(ext.FieldProvenance); err == nil {
			receipt.FieldProvenance = provenance
		}
	}
	receipt.ClassifierModel = ext.ClassifierModel
	receipt.ReasonerModel = ext.ReasonerModel
	receipt.SecondaryModel = ext.SecondaryModel
	receipt.Status = domain.ReceiptStatusCompleted
	receipt.Error = ""
	receipt.RetryAfter = nil
	receipt.CompletedAt = &now

	if err := s.repo.Update(ctx, receipt); err != nil {
		zap.L().Error("receiptService.record: failed to save results",
			zap.String("receipt_id", receipt.ID.String()), zap.Error(err))
		return
	}
	zap.L().Info("receiptService.record: receipt extracted",
		zap.String("receipt_id", receipt.ID.String()), zap.Int("attempt", receipt.Attempts))
}

func (s *receiptService) handleRunError(ctx context.Context, receipt *domain.Receipt, runErr error, maxAttempts int) {
	var rlErr *domain.RateLimitError
	if errors.As(runErr, &rlErr) && receipt.Attempts < maxAttempts {
		retryAt := s.now().Add(rlErr.RetryAfter).UTC()
		receipt.Status = domain.ReceiptStatusQueued
		receipt.Error = fmt.Sprintf("rate limited by %s, queued for retry", rlErr.Provider)
		receipt.RetryAfter = &retryAt
		if err := s.repo.Update(ctx, receipt); err != nil {
			zap.L().Error("receiptService.handleRunError: failed to queue receipt",
				zap.String("receipt_id", receipt.ID.String()), zap.Error(err))
			return
		}
		zap.L().Info("receiptService.handleRunError: receipt queued for retry",
			zap.String("receipt_id", receipt.ID.String()), zap.Time("retry_after", retryAt))
		return
	}
	s.fail(ctx, receipt, fmt.Sprintf("extracting receipt: %v", runErr))
}

func (s *receiptService) fail(ctx context.Context, receipt *domain.Receipt, errMsg string) {
	zap.L().Warn("receiptService.fail: receipt failed",
		zap.String("receipt_id", receipt.ID.String()), zap.String("error", errMsg))
	receipt.Status = domain.ReceiptStatusFailed
	receipt.Error = errMsg
	receipt.RetryAfter = nil
	if err := s.repo.Update(ctx, receipt); err != nil {
		zap.L().Error("receiptService.fail: failed to update status",
			zap.String("receipt_id", receipt.ID.String()), zap.Error(err))
	}
}
