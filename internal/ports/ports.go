package ports

import (
	"context"
	"time"

	"ClaimsPlatform/internal/domain"
)

// BatchStore reads loaded-batch metadata and subject identifiers from the
// relational store. The connection behind it belongs to the refresh path
// only; request-serving callers never touch it.
type BatchStore interface {
	// ListBatches returns all batch metadata ordered by LastUpdated descending.
	ListBatches(ctx context.Context) ([]domain.LoadedBatch, error)

	// CountIdentifiers returns the exact number of subject identifiers
	// associated with the batch.
	CountIdentifiers(ctx context.Context, batchID int64) (int, error)

	// StreamIdentifiers delivers the batch's subject identifiers to fn in
	// pages of at most pageSize. It is restartable per call; fn returning an
	// error aborts the stream.
	StreamIdentifiers(ctx context.Context, batchID int64, pageSize int, fn func(ids []string) error) error
}

// ClaimWriter persists sample claim data as a new loaded batch.
type ClaimWriter interface {
	// CreateBatch inserts a batch row covering [firstUpdated, lastUpdated]
	// and returns its identifier.
	CreateBatch(ctx context.Context, firstUpdated, lastUpdated time.Time) (int64, error)

	// SaveIdentifiers associates subject identifiers with the batch.
	SaveIdentifiers(ctx context.Context, batchID int64, subjectIDs []string) error

	// SaveClaim persists one claim row.
	SaveClaim(ctx context.Context, batchID int64, claim domain.SampleClaim) error

	// CloseBatch extends the batch's interval to the instant its last record
	// was written.
	CloseBatch(ctx context.Context, batchID int64, lastUpdated time.Time) error
}

// SampleSource yields parsed sample claims from an external fixture set.
type SampleSource interface {
	FetchClaims(ctx context.Context) ([]domain.SampleClaim, error)
}

// Scheduler controls when the background refresh executes. Start may be
// called at most once per scheduler; implementations report a second Start
// as an error. Stop is idempotent.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
