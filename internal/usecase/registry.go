package usecase

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ClaimsPlatform/internal/domain"
)

// RetentionPolicy bounds how many filters the registry keeps. Zero values
// disable the corresponding bound, matching unbounded retention.
type RetentionPolicy struct {
	MaxFilters int
	MaxAge     time.Duration
}

// Registry holds the published list of batch filters, newest batch first,
// plus the refresh horizon. Readers take lock-free snapshots; writers replace
// the whole list under a mutex so no torn state is ever observable.
type Registry struct {
	mu        sync.Mutex
	filters   atomic.Pointer[[]*BatchFilter]
	refreshed atomic.Pointer[time.Time]
	retention RetentionPolicy
}

// NewRegistry returns an empty registry with the given retention policy.
func NewRegistry(retention RetentionPolicy) *Registry {
	r := &Registry{retention: retention}
	empty := make([]*BatchFilter, 0)
	r.filters.Store(&empty)
	return r
}

// Snapshot returns the currently published filter list. The slice is shared
// and must not be mutated by callers.
func (r *Registry) Snapshot() []*BatchFilter {
	return *r.filters.Load()
}

// RefreshTime returns the instant through which the registry is known
// complete, or nil before the first refresh.
func (r *Registry) RefreshTime() *time.Time {
	return r.refreshed.Load()
}

// SetRefreshTime advances the refresh horizon. It never moves backwards.
func (r *Registry) SetRefreshTime(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current := r.refreshed.Load(); current != nil && current.After(t) {
		return
	}
	r.refreshed.Store(&t)
}

// HasFilterFor reports whether a filter exists for exactly this batch record.
// A batch whose interval changed since its filter was built does not count,
// which forces a rebuild.
func (r *Registry) HasFilterFor(batch domain.LoadedBatch) bool {
	for _, filter := range r.Snapshot() {
		if filter.Batch().SameIdentity(batch) {
			return true
		}
	}
	return false
}

// Publish installs newFilter: any filter for the same batch ID is dropped,
// the new one is added, and the rebuilt list is swapped in as a whole, sorted
// by LastUpdated descending and trimmed to the retention policy.
func (r *Registry) Publish(newFilter *BatchFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.filters.Load()
	next := make([]*BatchFilter, 0, len(current)+1)
	for _, filter := range current {
		if filter.BatchID() != newFilter.BatchID() {
			next = append(next, filter)
		}
	}
	next = append(next, newFilter)

	sort.Slice(next, func(i, j int) bool {
		return next[i].LastUpdated().After(next[j].LastUpdated())
	})

	next = r.applyRetention(next)
	r.filters.Store(&next)
}

// applyRetention trims the tail of a descending-sorted list. Callers hold mu.
func (r *Registry) applyRetention(filters []*BatchFilter) []*BatchFilter {
	if r.retention.MaxFilters > 0 && len(filters) > r.retention.MaxFilters {
		filters = filters[:r.retention.MaxFilters]
	}

	if r.retention.MaxAge > 0 {
		horizon := r.refreshed.Load()
		if horizon != nil {
			cutoff := horizon.Add(-r.retention.MaxAge)
			kept := filters[:0:len(filters)]
			for _, filter := range filters {
				if !filter.LastUpdated().Before(cutoff) {
					kept = append(kept, filter)
				}
			}
			filters = kept
		}
	}

	return filters
}
