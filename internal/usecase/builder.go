package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/ports"
	"ClaimsPlatform/pkg/bloom"
)

const defaultPageSize = 1000

// Builder constructs one BatchFilter per loaded batch by streaming the
// batch's subject identifiers from the store in bounded pages.
type Builder struct {
	store             ports.BatchStore
	falsePositiveRate float64
	pageSize          int
	logger            *slog.Logger
}

// NewBuilder wires a builder against the batch store.
func NewBuilder(store ports.BatchStore, falsePositiveRate float64, pageSize int, logger *slog.Logger) *Builder {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:             store,
		falsePositiveRate: falsePositiveRate,
		pageSize:          pageSize,
		logger:            logger,
	}
}

// Build streams the batch's identifiers into a new filter. The exact count
// query fixes the filter's capacity before streaming begins; a count that
// turns out wrong raises the false-positive rate but never drops a subject.
// Any store error aborts this batch only and leaves nothing published.
func (b *Builder) Build(ctx context.Context, batch domain.LoadedBatch) (*BatchFilter, error) {
	count, err := b.store.CountIdentifiers(ctx, batch.BatchID)
	if err != nil {
		return nil, fmt.Errorf("count identifiers for batch %d: %w", batch.BatchID, err)
	}

	b.logger.Info("building batch filter",
		"batchId", batch.BatchID,
		"subjects", count)

	filter := bloom.NewOptimal(count, b.falsePositiveRate)
	err = b.store.StreamIdentifiers(ctx, batch.BatchID, b.pageSize, func(ids []string) error {
		// one page is the peak working set; the slice is dropped on return
		for _, id := range ids {
			filter.Add(id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stream identifiers for batch %d: %w", batch.BatchID, err)
	}

	if int(filter.InsertedCount()) != count {
		b.logger.Warn("identifier count drifted during build",
			"batchId", batch.BatchID,
			"counted", count,
			"inserted", filter.InsertedCount())
	}

	b.logger.Info("finished batch filter", "batchId", batch.BatchID)
	return NewBatchFilter(batch, filter), nil
}

// BuildDirect fills a filter from an in-memory identifier set. Used for
// deterministic tests and fixture loads where streaming is unnecessary.
func (b *Builder) BuildDirect(batch domain.LoadedBatch, subjectIDs []string) *BatchFilter {
	filter := bloom.NewOptimal(len(subjectIDs), b.falsePositiveRate)
	for _, id := range subjectIDs {
		filter.Add(id)
	}
	return NewBatchFilter(batch, filter)
}
