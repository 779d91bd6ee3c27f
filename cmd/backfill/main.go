// Command backfill requeues failed receipts so the extract queue worker
// picks them up again, for example after a provider outage.
// Usage: go run ./cmd/backfill [--error-contains TEXT] [--dry-run]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/logging"
	"unikrew/internal/port"
	"unikrew/internal/repository/postgres"
	"unikrew/internal/service"
)

const batchSize = 100

type options struct {
	errorContains string
	dryRun        bool
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:           "backfill",
		Short:         "Requeue failed receipts for extraction",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.errorContains, "error-contains", "", "Only requeue receipts whose error contains this text")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report matching receipts without requeueing them")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	flush, err := logging.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer flush()

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	repo := postgres.NewReceiptRepo(db)
	svc := service.NewReceiptService(repo, nil, nil, nil, &cfg.S3, &cfg.Upload, cfg.Queue.MaxRetries)

	matched, requeued, err := requeueFailed(ctx, repo, svc, opts)
	if err != nil {
		return err
	}
	zap.L().Info("backfill: complete",
		zap.Int("matched", matched),
		zap.Int("requeued", requeued),
		zap.Bool("dry_run", opts.dryRun))
	return nil
}

// requeueFailed walks failed receipts in (created_at, id) order and
// retries the ones that match opts. The walk resumes after the last row
// seen, so uploads landing mid-run neither shift nor repeat pages.
func requeueFailed(ctx context.Context, repo port.ReceiptRepository, svc service.ReceiptService, opts options) (matched, requeued int, err error) {
	var cursor domain.ReceiptCursor
	for {
		if err := ctx.Err(); err != nil {
			return matched, requeued, err
		}

		receipts, err := repo.ListByStatus(ctx, domain.ReceiptStatusFailed, cursor, batchSize)
		if err != nil {
			return matched, requeued, fmt.Errorf("listing failed receipts after %s: %w", cursor.ID, err)
		}
		if len(receipts) == 0 {
			break
		}

		for i := range receipts {
			r := &receipts[i]
			if opts.errorContains != "" && !strings.Contains(r.Error, opts.errorContains) {
				continue
			}
			matched++
			if opts.dryRun {
				zap.L().Info("backfill: would requeue",
					zap.String("receipt_id", r.ID.String()),
					zap.String("error", r.Error))
				continue
			}
			if _, err := svc.Retry(ctx, r.ID); err != nil {
				zap.L().Warn("backfill: requeue failed",
					zap.String("receipt_id", r.ID.String()), zap.Error(err))
				continue
			}
			requeued++
		}

		if len(receipts) < batchSize {
			break
		}
		cursor = receipts[len(receipts)-1].Cursor()
	}
	return matched, requeued, nil
}
