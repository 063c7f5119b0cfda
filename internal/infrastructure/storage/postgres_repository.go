package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/ports"
)

// PostgresRepository reads loaded-batch metadata and subject identifiers from
// Postgres and persists sample-data loads. The sql.DB it wraps is owned by
// the refresh/load path; request-serving goroutines never use it.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.BatchStore  = (*PostgresRepository)(nil)
	_ ports.ClaimWriter = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListBatches returns all loaded batches, newest last-updated first.
func (r *PostgresRepository) ListBatches(ctx context.Context) ([]domain.LoadedBatch, error) {
	query, args, err := r.builder.
		Select("batch_id", "first_updated", "last_updated").
		From("loaded_batches").
		OrderBy("last_updated DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.LoadedBatch
	for rows.Next() {
		var batch domain.LoadedBatch
		if err := rows.Scan(&batch.BatchID, &batch.FirstUpdated, &batch.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return batches, nil
}

// CountIdentifiers returns the exact subject count for a batch. The count
// fixes the bloom filter capacity before streaming begins.
func (r *PostgresRepository) CountIdentifiers(ctx context.Context, batchID int64) (int, error) {
	query, args, err := r.builder.
		Select("COUNT(*)").
		From("loaded_identifiers").
		Where(sq.Eq{"batch_id": batchID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identifiers: %w", err)
	}

	return count, nil
}

// StreamIdentifiers pages through the batch's subject identifiers with keyset
// pagination, handing each page to fn. At most one page is held in memory.
func (r *PostgresRepository) StreamIdentifiers(ctx context.Context, batchID int64, pageSize int, fn func(ids []string) error) error {
	if pageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	lastSeen := ""
	for {
		page, err := r.identifierPage(ctx, batchID, lastSeen, pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}
		if len(page) < pageSize {
			return nil
		}
		lastSeen = page[len(page)-1]
	}
}

func (r *PostgresRepository) identifierPage(ctx context.Context, batchID int64, afterID string, limit int) ([]string, error) {
	builder := r.builder.
		Select("subject_id").
		From("loaded_identifiers").
		Where(sq.Eq{"batch_id": batchID}).
		OrderBy("subject_id").
		Limit(uint64(limit))
	if afterID != "" {
		builder = builder.Where(sq.Gt{"subject_id": afterID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build page query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query identifier page: %w", err)
	}
	defer rows.Close()

	page := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		page = append(page, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return page, nil
}

// CreateBatch inserts a loaded-batch row and returns its generated ID.
func (r *PostgresRepository) CreateBatch(ctx context.Context, firstUpdated, lastUpdated time.Time) (int64, error) {
	query, args, err := r.builder.
		Insert("loaded_batches").
		Columns("first_updated", "last_updated").
		Values(firstUpdated, lastUpdated).
		Suffix("RETURNING batch_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert batch: %w", err)
	}

	var batchID int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&batchID); err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}

	return batchID, nil
}

// SaveIdentifiers bulk-inserts the batch's subject identifiers.
func (r *PostgresRepository) SaveIdentifiers(ctx context.Context, batchID int64, subjectIDs []string) error {
	if len(subjectIDs) == 0 {
		return nil
	}

	query := `INSERT INTO loaded_identifiers (batch_id, subject_id)
              SELECT $1, unnest($2::text[])
              ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, batchID, pq.StringArray(subjectIDs)); err != nil {
		return fmt.Errorf("insert identifiers: %w", err)
	}

	return nil
}

// CloseBatch extends the batch's interval to its final update instant.
func (r *PostgresRepository) CloseBatch(ctx context.Context, batchID int64, lastUpdated time.Time) error {
	query, args, err := r.builder.
		Update("loaded_batches").
		Set("last_updated", lastUpdated).
		Where(sq.Eq{"batch_id": batchID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build close batch: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return nil
}

// SaveClaim upserts one sample claim row.
func (r *PostgresRepository) SaveClaim(ctx context.Context, batchID int64, claim domain.SampleClaim) error {
	query := `INSERT INTO sample_claims (claim_id, batch_id, subject_id, claim_type, service_date, amount)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (claim_id) DO UPDATE
              SET batch_id = EXCLUDED.batch_id,
                  subject_id = EXCLUDED.subject_id,
                  claim_type = EXCLUDED.claim_type,
                  service_date = EXCLUDED.service_date,
                  amount = EXCLUDED.amount`

	_, err := r.db.ExecContext(ctx, query,
		claim.ClaimID,
		batchID,
		claim.SubjectID,
		string(claim.Type),
		claim.ServiceDate,
		claim.Amount,
	)
	if err != nil {
		return fmt.Errorf("upsert claim: %w", err)
	}

	return nil
}
