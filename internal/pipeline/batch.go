package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/a11yscan/internal/model"
)

// BatchResult is the outcome of scanning one URL in a batch.
// Exactly one of Report and Err is set.
type BatchResult struct {
	URL    string
	Report *model.ScanReport
	Err    error
}

// BatchProcessor scans multiple URLs concurrently with a concurrency limit.
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Default is 5 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(scanner Scanner, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		scanner:     scanner,
		concurrency: 5,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scans every URL and returns results in input order.
// A failed scan does not stop the others. The error is non-nil only when
// ctx is canceled; results for URLs that never started carry ctx's error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string, standard model.Standard, locale model.Locale) ([]BatchResult, error) {
	results := make([]BatchResult, len(urls))
	err := bp.ProcessBatchWithCallback(ctx, urls, standard, locale, func(r BatchResult, index int) {
		results[index] = r
	})
	for i := range results {
		if results[i].Report == nil && results[i].Err == nil {
			results[i] = BatchResult{URL: urls[i], Err: err}
		}
	}
	return results, err
}

// ProcessBatchWithCallback scans every URL and calls callback as each scan
// finishes. The callback runs on the scanning goroutine and must be safe
// for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	standard model.Standard,
	locale model.Locale,
	callback func(result BatchResult, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("scanning URL",
				"url", target,
				"index", i+1,
				"total", len(urls),
			)

			report, err := bp.scanner.Assemble(ctx, target, standard, locale)
			if err != nil {
				bp.logger.Warn("scan failed", "url", target, "error", err)
			}
			callback(BatchResult{URL: target, Report: report, Err: err}, i)

			// A failed scan must not cancel the rest of the batch.
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)

	return err
}
