package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ClaimsPlatform/internal/domain"
)

// fakeBatchStore is an in-memory BatchStore with fault injection, standing in
// for the Postgres repository.
type fakeBatchStore struct {
	batches     []domain.LoadedBatch
	identifiers map[int64][]string

	listErr     error
	streamErr   map[int64]error
	countOffset int

	invalidations int
	pageSizes     []int
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{
		identifiers: map[int64][]string{},
		streamErr:   map[int64]error{},
	}
}

func (s *fakeBatchStore) addBatch(batch domain.LoadedBatch, subjectIDs ...string) {
	s.batches = append(s.batches, batch)
	s.identifiers[batch.BatchID] = subjectIDs
}

func (s *fakeBatchStore) ListBatches(ctx context.Context) ([]domain.LoadedBatch, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	// newest last-updated first, like the real query
	sorted := make([]domain.LoadedBatch, len(s.batches))
	copy(sorted, s.batches)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].LastUpdated.After(sorted[i].LastUpdated) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return sorted, nil
}

func (s *fakeBatchStore) CountIdentifiers(ctx context.Context, batchID int64) (int, error) {
	return len(s.identifiers[batchID]) + s.countOffset, nil
}

func (s *fakeBatchStore) StreamIdentifiers(ctx context.Context, batchID int64, pageSize int, fn func(ids []string) error) error {
	if err := s.streamErr[batchID]; err != nil {
		return err
	}

	ids := s.identifiers[batchID]
	for start := 0; start < len(ids); start += pageSize {
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		s.pageSizes = append(s.pageSizes, end-start)
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeBatchStore) Invalidate() {
	s.invalidations++
}

func ts(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func rangeOf(lower, upper int64) *domain.TimeRange {
	r := domain.NewTimeRange(ts(lower), ts(upper))
	return &r
}

func newTestManager(store *fakeBatchStore) *FilterManager {
	registry := NewRegistry(RetentionPolicy{})
	builder := NewBuilder(store, 0.01, 1000, nil)
	return NewFilterManager(store, builder, registry, 0, nil)
}

func TestIsResultSetEmptyScenario(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A")
	store.addBatch(domain.LoadedBatch{BatchID: 2, FirstUpdated: ts(21), LastUpdated: ts(30)}, "X")
	store.addBatch(domain.LoadedBatch{BatchID: 3, FirstUpdated: ts(31), LastUpdated: ts(40)}, "B")

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(40) }
	require.NoError(t, manager.Refresh(context.Background()))

	refreshTime := manager.CurrentRefreshTime()
	require.NotNil(t, refreshTime)
	require.True(t, refreshTime.Equal(ts(40)))

	// X only in batch 2: a range entirely inside batch 1 is provably empty
	require.True(t, manager.IsResultSetEmpty("X", rangeOf(11, 19)))
	// a range overlapping batch 2 may contain X
	require.False(t, manager.IsResultSetEmpty("X", rangeOf(25, 35)))
	// past the refresh horizon the registry knows nothing
	require.False(t, manager.IsResultSetEmpty("X", rangeOf(41, 50)))
	// before the oldest filter the registry knows nothing either
	require.False(t, manager.IsResultSetEmpty("Y", rangeOf(5, 9)))
}

func TestIsResultSetEmptyFailsOpen(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A")

	manager := newTestManager(store)

	// before any refresh: no refresh time, no filters
	require.False(t, manager.IsResultSetEmpty("Z", rangeOf(11, 19)))

	manager.now = func() time.Time { return ts(20) }
	require.NoError(t, manager.Refresh(context.Background()))

	// no requested range
	require.False(t, manager.IsResultSetEmpty("Z", nil))
	// malformed range
	malformed := domain.TimeRange{Lower: timePtr(ts(19)), Upper: timePtr(ts(11))}
	require.False(t, manager.IsResultSetEmpty("Z", &malformed))
	// unbounded upper
	openUpper := domain.TimeRange{Lower: timePtr(ts(11))}
	require.False(t, manager.IsResultSetEmpty("Z", &openUpper))
	// unbounded lower
	openLower := domain.TimeRange{Upper: timePtr(ts(19))}
	require.False(t, manager.IsResultSetEmpty("Z", &openLower))
}

func TestNoFalseNegativesAcrossBatches(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A", "B", "C")
	store.addBatch(domain.LoadedBatch{BatchID: 2, FirstUpdated: ts(21), LastUpdated: ts(30)}, "D", "E")

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(30) }
	require.NoError(t, manager.Refresh(context.Background()))

	for _, subject := range []string{"A", "B", "C"} {
		require.False(t, manager.IsResultSetEmpty(subject, rangeOf(11, 19)),
			"subject %s present in batch 1 must never be pruned", subject)
	}
	for _, subject := range []string{"D", "E"} {
		require.False(t, manager.IsResultSetEmpty(subject, rangeOf(22, 29)),
			"subject %s present in batch 2 must never be pruned", subject)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A")
	store.addBatch(domain.LoadedBatch{BatchID: 2, FirstUpdated: ts(21), LastUpdated: ts(30)}, "B")

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(30) }
	require.NoError(t, manager.Refresh(context.Background()))

	first := manager.Filters()
	firstTime := manager.CurrentRefreshTime()

	manager.now = func() time.Time { return ts(35) }
	require.NoError(t, manager.Refresh(context.Background()))

	second := manager.Filters()
	require.Len(t, second, len(first))
	for i := range first {
		// no new batches: the exact same filters stay published
		require.Same(t, first[i], second[i])
	}

	secondTime := manager.CurrentRefreshTime()
	require.True(t, secondTime.After(*firstTime), "refresh time must advance monotonically")
}

func TestChangedBatchIntervalForcesRebuild(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A")

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(20) }
	require.NoError(t, manager.Refresh(context.Background()))
	original := manager.Filters()[0]

	// the batch was extended: same ID, later LastUpdated
	store.batches[0].LastUpdated = ts(25)
	store.identifiers[1] = append(store.identifiers[1], "B")

	manager.now = func() time.Time { return ts(26) }
	require.NoError(t, manager.Refresh(context.Background()))

	filters := manager.Filters()
	require.Len(t, filters, 1, "rebuild replaces, never duplicates")
	require.NotSame(t, original, filters[0])
	require.True(t, filters[0].LastUpdated().Equal(ts(25)))
	require.False(t, manager.IsResultSetEmpty("B", rangeOf(21, 24)))
}

func TestRefreshTimeClampsToNewestBatch(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	// the ingestion writer's clock ran ahead of ours
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(100)}, "A")

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(50) }
	require.NoError(t, manager.RefreshWithMargin(context.Background(), 5*time.Second))

	refreshTime := manager.CurrentRefreshTime()
	require.NotNil(t, refreshTime)
	require.True(t, refreshTime.Equal(ts(100)),
		"horizon must not lag behind committed data")
}

func TestTransientListErrorLeavesRegistryUntouched(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A")

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(20) }
	require.NoError(t, manager.Refresh(context.Background()))
	published := manager.Filters()
	refreshTime := manager.CurrentRefreshTime()

	store.listErr = errors.New("connection reset")
	require.Error(t, manager.Refresh(context.Background()))

	require.Equal(t, published, manager.Filters())
	require.True(t, manager.CurrentRefreshTime().Equal(*refreshTime))

	// next tick succeeds again
	store.listErr = nil
	store.addBatch(domain.LoadedBatch{BatchID: 2, FirstUpdated: ts(21), LastUpdated: ts(30)}, "B")
	manager.now = func() time.Time { return ts(30) }
	require.NoError(t, manager.Refresh(context.Background()))
	require.Len(t, manager.Filters(), 2)
}

func TestBuildFailureAbortsCycleOnly(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A")
	store.addBatch(domain.LoadedBatch{BatchID: 2, FirstUpdated: ts(21), LastUpdated: ts(30)}, "B")
	// batches are processed newest first, so batch 2 builds before batch 1 fails
	store.streamErr[1] = errors.New("query timeout")

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(30) }
	require.Error(t, manager.Refresh(context.Background()))

	// batch 2 built before the failure stays published, batch 1 has nothing
	filters := manager.Filters()
	require.Len(t, filters, 1)
	require.Equal(t, int64(2), filters[0].BatchID())

	store.streamErr = map[int64]error{}
	require.NoError(t, manager.Refresh(context.Background()))
	require.Len(t, manager.Filters(), 2)
}

func TestRefreshInvalidatesMetadataCache(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(10) }

	require.NoError(t, manager.Refresh(context.Background()))
	require.NoError(t, manager.Refresh(context.Background()))
	require.Equal(t, 2, store.invalidations)
}

func TestDuplicateBatchMetadataLastSeenWins(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	store.addBatch(domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)}, "A")
	// same batch reported again with a wider interval mid-cycle
	store.batches = append(store.batches, domain.LoadedBatch{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(25)})

	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(30) }
	require.NoError(t, manager.Refresh(context.Background()))

	filters := manager.Filters()
	require.Len(t, filters, 1)
	require.True(t, filters[0].LastUpdated().Equal(ts(20)),
		"last record seen in the cycle wins")
}

func TestRefreshDirect(t *testing.T) {
	t.Parallel()

	store := newFakeBatchStore()
	manager := newTestManager(store)
	manager.now = func() time.Time { return ts(40) }

	batches := []domain.LoadedBatch{
		{BatchID: 1, FirstUpdated: ts(10), LastUpdated: ts(20)},
		{BatchID: 2, FirstUpdated: ts(21), LastUpdated: ts(30)},
	}
	manager.RefreshDirect(batches, []string{"S1", "S2"})

	require.Len(t, manager.Filters(), 2)
	require.False(t, manager.IsResultSetEmpty("S1", rangeOf(11, 19)))
	require.True(t, manager.IsResultSetEmpty("stranger", rangeOf(11, 19)))
}

func timePtr(t time.Time) *time.Time {
	return &t
}
