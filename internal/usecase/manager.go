package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/ports"
)

// MetadataInvalidator is implemented by stores that cache batch metadata.
// The refresh cycle invalidates it before reading so metadata is fresh.
type MetadataInvalidator interface {
	Invalidate()
}

// FilterManager keeps the filter registry eventually consistent with the
// store's loaded batches and answers admissibility checks on the read path.
// Refreshes run on a dedicated background task; IsResultSetEmpty is safe to
// call concurrently from any number of request goroutines and never blocks.
type FilterManager struct {
	store        ports.BatchStore
	builder      *Builder
	registry     *Registry
	safetyMargin time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewFilterManager wires the manager. safetyMargin guards the refresh horizon
// against clock skew and replication lag between the ingestion writer and the
// query reader.
func NewFilterManager(store ports.BatchStore, builder *Builder, registry *Registry, safetyMargin time.Duration, logger *slog.Logger) *FilterManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterManager{
		store:        store,
		builder:      builder,
		registry:     registry,
		safetyMargin: safetyMargin,
		logger:       logger,
		now:          time.Now,
	}
}

// Refresh runs one refresh cycle with the configured safety margin.
func (m *FilterManager) Refresh(ctx context.Context) error {
	return m.RefreshWithMargin(ctx, m.safetyMargin)
}

// RefreshWithMargin runs one refresh cycle, discounting the refresh horizon
// by the given margin. It builds filters only for batches that have none, so
// a cycle with no batch changes is quick. A store failure aborts the cycle;
// everything already published stays published and the batch is retried on
// the next tick.
func (m *FilterManager) RefreshWithMargin(ctx context.Context, margin time.Duration) error {
	if cache, ok := m.store.(MetadataInvalidator); ok {
		cache.Invalidate()
	}

	batches, err := m.store.ListBatches(ctx)
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}

	// The horizon is computed on the local clock minus the margin, but a
	// batch committed with a later LastUpdated (replication delay, writer
	// clock ahead) must not fall beyond it.
	horizon := m.now().Add(-margin)
	if len(batches) > 0 && batches[0].LastUpdated.After(horizon) {
		horizon = batches[0].LastUpdated
	}
	m.registry.SetRefreshTime(horizon)

	for _, batch := range dedupeByBatchID(batches) {
		if m.registry.HasFilterFor(batch) {
			continue
		}
		filter, err := m.builder.Build(ctx, batch)
		if err != nil {
			return fmt.Errorf("build filter: %w", err)
		}
		m.registry.Publish(filter)
	}

	return nil
}

// RefreshDirect publishes filters from in-memory data, one per batch that has
// none yet, each containing every given subject. Used for deterministic tests
// and fixture environments.
func (m *FilterManager) RefreshDirect(batches []domain.LoadedBatch, subjectIDs []string) {
	m.registry.SetRefreshTime(m.now())

	for _, batch := range dedupeByBatchID(batches) {
		if m.registry.HasFilterFor(batch) {
			continue
		}
		m.registry.Publish(m.builder.BuildDirect(batch, subjectIDs))
	}
}

// IsResultSetEmpty reports whether the subject provably has no data in the
// requested last-modified range. True is only returned when every batch
// overlapping the range certainly excludes the subject; anything the registry
// cannot rule out, including malformed or unbounded ranges, yields false so
// the caller falls through to the primary store.
func (m *FilterManager) IsResultSetEmpty(subjectID string, requested *domain.TimeRange) bool {
	if requested == nil || requested.Malformed() {
		return false
	}

	refreshTime := m.registry.RefreshTime()
	filters := m.registry.Snapshot()
	if refreshTime == nil || len(filters) == 0 {
		return false
	}

	// The registry knows nothing past the refresh horizon, and nothing
	// before the oldest filter's interval.
	if requested.Upper == nil || requested.Upper.After(*refreshTime) {
		return false
	}
	oldest := filters[len(filters)-1]
	if requested.Lower == nil || requested.Lower.Before(oldest.FirstUpdated()) {
		return false
	}

	for _, filter := range filters {
		if filter.MatchesRange(*requested) && filter.MightContain(subjectID) {
			return false
		}
	}
	return true
}

// CurrentRefreshTime returns the refresh horizon, or nil before the first
// completed refresh.
func (m *FilterManager) CurrentRefreshTime() *time.Time {
	return m.registry.RefreshTime()
}

// Filters returns the published filter list, newest batch first.
func (m *FilterManager) Filters() []*BatchFilter {
	return m.registry.Snapshot()
}

// Job adapts a refresh cycle to a scheduler callback. Errors are logged and
// contained; a failed cycle is simply retried on the next tick.
func (m *FilterManager) Job(ctx context.Context) func(time.Time) {
	return func(time.Time) {
		if err := m.Refresh(ctx); err != nil {
			m.logger.Error("filter refresh failed", "error", err)
		}
	}
}

// dedupeByBatchID keeps the last record seen for each batch ID, so a batch
// reported twice with differing intervals mid-cycle resolves to one build.
func dedupeByBatchID(batches []domain.LoadedBatch) []domain.LoadedBatch {
	seen := make(map[int64]int, len(batches))
	result := make([]domain.LoadedBatch, 0, len(batches))
	for _, batch := range batches {
		if idx, ok := seen[batch.BatchID]; ok {
			result[idx] = batch
			continue
		}
		seen[batch.BatchID] = len(result)
		result = append(result, batch)
	}
	return result
}
