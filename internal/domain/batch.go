package domain

import "time"

// LoadedBatch is the metadata of one ingestion run: the range of last-modified
// instants covered by the records it loaded. Produced by the ETL pipeline and
// read-only here.
type LoadedBatch struct {
	BatchID      int64
	FirstUpdated time.Time
	LastUpdated  time.Time
}

// SameIdentity reports whether two batch records describe the exact same
// interval for the same batch. A batch whose interval changed since the last
// build (e.g. a reopened batch) is not the same identity.
func (b LoadedBatch) SameIdentity(other LoadedBatch) bool {
	return b.BatchID == other.BatchID &&
		b.FirstUpdated.Equal(other.FirstUpdated) &&
		b.LastUpdated.Equal(other.LastUpdated)
}

// TimeRange is a last-modified query range. A nil bound is unbounded on that
// side; present bounds are inclusive.
type TimeRange struct {
	Lower *time.Time
	Upper *time.Time
}

// NewTimeRange builds a closed range over both instants.
func NewTimeRange(lower, upper time.Time) TimeRange {
	return TimeRange{Lower: &lower, Upper: &upper}
}

// Malformed reports a lower bound after the upper bound.
func (r TimeRange) Malformed() bool {
	return r.Lower != nil && r.Upper != nil && r.Lower.After(*r.Upper)
}

// Overlaps reports whether the range intersects the closed interval
// [first, last].
func (r TimeRange) Overlaps(first, last time.Time) bool {
	if r.Malformed() {
		return false
	}
	if r.Lower != nil && r.Lower.After(last) {
		return false
	}
	if r.Upper != nil && r.Upper.Before(first) {
		return false
	}
	return true
}
