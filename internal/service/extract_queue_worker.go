package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"unikrew/internal/port"
)

// ExtractQueueConfig holds settings for the extract queue worker.
type ExtractQueueConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	Concurrency  int
	JobTimeout   time.Duration
}

// ExtractQueueWorker polls for queued receipts and dispatches them for extraction.
type ExtractQueueWorker struct {
	repo    port.ReceiptRepository
	service ReceiptService
	cfg     ExtractQueueConfig
	wg      sync.WaitGroup
}

// NewExtractQueueWorker creates a new ExtractQueueWorker.
func NewExtractQueueWorker(repo port.ReceiptRepository, service ReceiptService, cfg ExtractQueueConfig) *ExtractQueueWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &ExtractQueueWorker{
		repo:    repo,
		service: service,
		cfg:     cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight extractions have finished.
func (w *ExtractQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	zap.L().Info("extractQueueWorker: started",
		zap.Duration("poll", w.cfg.PollInterval),
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Int("max_retries", w.cfg.MaxRetries))

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("extractQueueWorker: shutting down, waiting for in-flight extractions")
			w.wg.Wait()
			zap.L().Info("extractQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			receipts, err := w.repo.ClaimQueued(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				zap.L().Error("extractQueueWorker: ClaimQueued error", zap.Error(err))
				continue
			}

			for i := range receipts {
				receipt := receipts[i]

				sem <- struct{}{}
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }()

					// Detached from the poll context so in-flight work
					// completes during shutdown.
					jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
					defer cancel()

					zap.L().Info("extractQueueWorker: dispatching receipt",
						zap.String("receipt_id", receipt.ID.String()),
						zap.Int("attempt", receipt.Attempts))
					w.service.ProcessReceipt(jobCtx, &receipt, w.cfg.MaxRetries)
				}()
			}
		}
	}
}
