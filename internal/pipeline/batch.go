package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/htmlcs/internal/model"
)

// DefaultConcurrency is the number of files processed at once when no
// WithConcurrency option is given.
const DefaultConcurrency = 1

// BatchProcessor handles concurrent processing of multiple files.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each file.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of files processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of files processed at once.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per file so no pipeline state is shared
// between files.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs every path through its own pipeline.
// The returned files are in the order of paths, including files whose
// pipeline failed. Files not started because ctx was cancelled are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]*model.File, error) {
	results := make([]*model.File, len(paths))
	err := bp.ProcessBatchWithCallback(ctx, paths, func(file *model.File, index int) {
		results[index] = file
	})
	return results, err
}

// ProcessBatchWithCallback runs every path through its own pipeline and
// calls callback with each finished file and its index in paths.
// The callback runs on the worker goroutine and must be safe for
// concurrent use when concurrency is greater than one.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	paths []string,
	callback func(file *model.File, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"total_files", len(paths),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("processing file",
				"file", path,
				"index", i+1,
				"total", len(paths),
			)

			file := model.NewFile(path)
			if err := bp.pipelineFactory().Execute(ctx, file); err != nil {
				// The error is recorded on the file; other files go on.
				bp.logger.Warn("file failed",
					"file", path,
					"error", err,
				)
			}

			callback(file, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch processing complete",
		"total_files", len(paths),
		"elapsed", time.Since(startTime),
	)

	return err
}
