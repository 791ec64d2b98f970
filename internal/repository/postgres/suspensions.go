package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/repository"
)

var suspensionColumns = []string{
	"id",
	"identity_id",
	"action",
	"actor",
	"reason",
	"duration",
	"expires_at",
	"active",
	"created_at",
}

// SuspensionRepository implements port.SuspensionRepository using PostgreSQL.
type SuspensionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSuspensionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSuspensionRepository(exec pgExecutor) *SuspensionRepository {
	repo := &SuspensionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SuspensionRepository) WithTx(tx pgx.Tx) *SuspensionRepository {
	if tx == nil {
		return r
	}
	return &SuspensionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Append inserts a new history record.
func (r *SuspensionRepository) Append(ctx context.Context, record domain.SuspensionRecord) error {
	stmt, args, err := r.builder.Insert("estate.suspensions").
		Columns(suspensionColumns...).
		Values(
			record.ID,
			record.IdentityID,
			record.Action,
			record.Actor,
			record.Reason,
			record.Duration,
			record.ExpiresAt,
			record.Active,
			record.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert suspension sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert suspension record: %w", err)
	}

	return nil
}

// ActiveByIdentity returns the currently active suspension record, if any.
func (r *SuspensionRepository) ActiveByIdentity(ctx context.Context, identityID string) (*domain.SuspensionRecord, error) {
	stmt, args, err := r.builder.
		Select(suspensionColumns...).
		From("estate.suspensions").
		Where(squirrel.Eq{"identity_id": identityID, "active": true}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select active suspension sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	record, err := scanSuspension(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan active suspension: %w", err)
	}

	return record, nil
}

// Deactivate clears the active flag on all of the identity's records and
// reports how many were cleared.
func (r *SuspensionRepository) Deactivate(ctx context.Context, identityID string) (int, error) {
	stmt, args, err := r.builder.
		Update("estate.suspensions").
		Set("active", false).
		Where(squirrel.Eq{"identity_id": identityID, "active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build deactivate suspensions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate suspensions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// History returns all suspension records for the identity, newest first.
func (r *SuspensionRepository) History(ctx context.Context, identityID string) ([]domain.SuspensionRecord, error) {
	stmt, args, err := r.builder.
		Select(suspensionColumns...).
		From("estate.suspensions").
		Where(squirrel.Eq{"identity_id": identityID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select suspension history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select suspension history: %w", err)
	}
	defer rows.Close()

	var records []domain.SuspensionRecord
	for rows.Next() {
		record, err := scanSuspension(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suspension row: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suspension history: %w", err)
	}

	return records, nil
}

func scanSuspension(row pgx.Row) (*domain.SuspensionRecord, error) {
	var (
		record    domain.SuspensionRecord
		expiresAt *time.Time
	)

	if err := row.Scan(
		&record.ID,
		&record.IdentityID,
		&record.Action,
		&record.Actor,
		&record.Reason,
		&record.Duration,
		&expiresAt,
		&record.Active,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}

	record.ExpiresAt = expiresAt
	return &record, nil
}

var _ port.SuspensionRepository = (*SuspensionRepository)(nil)
