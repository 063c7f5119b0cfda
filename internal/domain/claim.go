package domain

import "time"

// ClaimType enumerates the sample claim feeds understood by the loader.
type ClaimType string

const (
	ClaimTypeInpatient  ClaimType = "inpatient"
	ClaimTypeOutpatient ClaimType = "outpatient"
	ClaimTypeCarrier    ClaimType = "carrier"
	ClaimTypePartD      ClaimType = "partd"
)

// SampleClaim is one parsed sample-data row destined for the store.
type SampleClaim struct {
	SubjectID   string
	ClaimID     string
	Type        ClaimType
	ServiceDate time.Time
	Amount      float64
}

// LoadSummary reports what a sample-data load wrote.
type LoadSummary struct {
	BatchID      int64
	Claims       int
	Subjects     int
	FirstUpdated time.Time
	LastUpdated  time.Time
}
