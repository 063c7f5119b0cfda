package usecase

import (
	"time"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/pkg/bloom"
)

// BatchFilter pairs one loaded batch's interval with a bloom filter over the
// subject identifiers that batch touched. Immutable once built.
type BatchFilter struct {
	batch  domain.LoadedBatch
	filter *bloom.Filter
}

// NewBatchFilter wraps a fully-populated bloom filter with its batch metadata.
func NewBatchFilter(batch domain.LoadedBatch, filter *bloom.Filter) *BatchFilter {
	return &BatchFilter{batch: batch, filter: filter}
}

// Batch returns the metadata of the batch this filter represents.
func (f *BatchFilter) Batch() domain.LoadedBatch {
	return f.batch
}

// BatchID returns the owning batch's identifier.
func (f *BatchFilter) BatchID() int64 {
	return f.batch.BatchID
}

// FirstUpdated returns the earliest modification instant the batch covers.
func (f *BatchFilter) FirstUpdated() time.Time {
	return f.batch.FirstUpdated
}

// LastUpdated returns the latest modification instant the batch covers.
func (f *BatchFilter) LastUpdated() time.Time {
	return f.batch.LastUpdated
}

// MightContain reports whether the subject may have data in this batch.
// A false result is definitive.
func (f *BatchFilter) MightContain(subjectID string) bool {
	return f.filter.MightContain(subjectID)
}

// MatchesRange reports whether the batch interval intersects the query range.
func (f *BatchFilter) MatchesRange(r domain.TimeRange) bool {
	return r.Overlaps(f.batch.FirstUpdated, f.batch.LastUpdated)
}
