package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/ports"
)

// LoaderDeps wires the driven adapters into the sample-data load pipeline.
type LoaderDeps struct {
	Source ports.SampleSource
	Writer ports.ClaimWriter
	Logger *slog.Logger
}

// Loader ingests sample claim fixtures into the store as one loaded batch,
// so a fresh environment has data for the filter manager to index.
type Loader struct {
	source ports.SampleSource
	writer ports.ClaimWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader constructs the sample-data pipeline.
func NewLoader(deps LoaderDeps) *Loader {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: deps.Source, writer: deps.Writer, logger: logger, now: time.Now}
}

// Load fetches all sample claims and persists them plus the distinct subject
// identifiers as one batch. The batch interval is stamped from the load
// clock, not from claim service dates: it must cover the records' update
// instants so the batch sits near the refresh horizon, while service dates
// stay on the claim rows.
func (l *Loader) Load(ctx context.Context) (domain.LoadSummary, error) {
	if l.source == nil || l.writer == nil {
		return domain.LoadSummary{}, nil
	}

	claims, err := l.source.FetchClaims(ctx)
	if err != nil {
		return domain.LoadSummary{}, fmt.Errorf("fetch sample claims: %w", err)
	}
	if len(claims) == 0 {
		return domain.LoadSummary{}, nil
	}

	subjects := make(map[string]struct{}, len(claims))
	for _, claim := range claims {
		subjects[claim.SubjectID] = struct{}{}
	}

	started := l.now()
	batchID, err := l.writer.CreateBatch(ctx, started, started)
	if err != nil {
		return domain.LoadSummary{}, fmt.Errorf("create batch: %w", err)
	}

	for _, claim := range claims {
		if err := l.writer.SaveClaim(ctx, batchID, claim); err != nil {
			return domain.LoadSummary{}, fmt.Errorf("save claim %s: %w", claim.ClaimID, err)
		}
	}

	subjectIDs := make([]string, 0, len(subjects))
	for id := range subjects {
		subjectIDs = append(subjectIDs, id)
	}
	if err := l.writer.SaveIdentifiers(ctx, batchID, subjectIDs); err != nil {
		return domain.LoadSummary{}, fmt.Errorf("save identifiers: %w", err)
	}

	finished := l.now()
	if err := l.writer.CloseBatch(ctx, batchID, finished); err != nil {
		return domain.LoadSummary{}, fmt.Errorf("close batch: %w", err)
	}

	summary := domain.LoadSummary{
		BatchID:      batchID,
		Claims:       len(claims),
		Subjects:     len(subjectIDs),
		FirstUpdated: started,
		LastUpdated:  finished,
	}
	l.logger.Info("sample data loaded",
		"batchId", summary.BatchID,
		"claims", summary.Claims,
		"subjects", summary.Subjects)

	return summary, nil
}
