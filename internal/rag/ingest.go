package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const DefaultBatchSize = 64

type IngestOptions struct {
	BatchSize int
	Workers   int
	// Rebuild clears the store's collection before adding anything.
	Rebuild bool
	// OnBatch is called after each batch is stored with the number of
	// documents it held.
	OnBatch func(n int)
}

// Ingest adds docs to the store in fixed size batches. Documents with empty
// text are skipped. It returns the number of documents stored.
func Ingest(ctx context.Context, store Store, docs []Document, opts IngestOptions) (int, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	if opts.Rebuild {
		if err := store.Reset(ctx); err != nil {
			return 0, fmt.Errorf("error resetting store: %w", err)
		}
	}

	var nonEmpty []Document
	for _, doc := range docs {
		doc.Text = strings.TrimSpace(doc.Text)
		if doc.Text != "" {
			nonEmpty = append(nonEmpty, doc)
		}
	}

	nBatches := (len(nonEmpty) + opts.BatchSize - 1) / opts.BatchSize
	queue := make(chan []Document, nBatches)
	for i := 0; i < len(nonEmpty); i += opts.BatchSize {
		queue <- nonEmpty[i:min(i+opts.BatchSize, len(nonEmpty))]
	}
	close(queue)

	worker := func(batch []Document) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := store.AddDocuments(ctx, batch); err != nil {
			return 0, err
		}
		return len(batch), nil
	}

	completed := make(chan CompletedTask[int], nBatches)
	RunInPool(worker, queue, completed, opts.Workers)

	stored := 0
	var firstErr error
	for task := range completed {
		if task.Error != nil {
			slog.Error("error storing document batch", "error", task.Error)
			if firstErr == nil {
				firstErr = task.Error
			}
			continue
		}
		stored += task.Result
		if opts.OnBatch != nil {
			opts.OnBatch(task.Result)
		}
	}

	if firstErr != nil {
		return stored, fmt.Errorf("error ingesting documents: %w", firstErr)
	}
	return stored, nil
}
