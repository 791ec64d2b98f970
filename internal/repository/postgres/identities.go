package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/repository"
)

var identityColumns = []string{
	"id",
	"email",
	"password_hash",
	"role",
	"verified",
	"deleted",
	"suspended",
	"failed_attempts",
	"locked_until",
	"created_at",
	"last_login",
}

// IdentityRepository implements port.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewIdentityRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewIdentityRepository(exec pgExecutor) *IdentityRepository {
	repo := &IdentityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *IdentityRepository) WithTx(tx pgx.Tx) *IdentityRepository {
	if tx == nil {
		return r
	}
	return &IdentityRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts the identity row plus its role extension profile, if any.
func (r *IdentityRepository) Create(ctx context.Context, identity domain.Identity) error {
	query := r.builder.Insert("estate.identities").
		Columns(identityColumns...).
		Values(
			identity.ID,
			strings.ToLower(identity.Email),
			identity.PasswordHash,
			identity.Role,
			identity.Verified,
			identity.Deleted,
			identity.Suspended,
			identity.FailedAttempts,
			identity.LockedUntil,
			identity.CreatedAt,
			identity.LastLogin,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert identity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	if identity.Agent != nil {
		if err := r.insertAgentProfile(ctx, identity.ID, *identity.Agent); err != nil {
			return err
		}
	}

	if identity.Admin != nil {
		if err := r.insertAdminProfile(ctx, identity.ID, *identity.Admin); err != nil {
			return err
		}
	}

	return nil
}

func (r *IdentityRepository) insertAgentProfile(ctx context.Context, identityID string, profile domain.AgentProfile) error {
	sql, args, err := r.builder.Insert("estate.agent_profiles").
		Columns("identity_id", "agency", "license_number", "verified").
		Values(identityID, profile.Agency, profile.LicenseNumber, profile.Verified).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert agent profile sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert agent profile: %w", err)
	}

	return nil
}

func (r *IdentityRepository) insertAdminProfile(ctx context.Context, identityID string, profile domain.AdminProfile) error {
	sql, args, err := r.builder.Insert("estate.admin_profiles").
		Columns(
			"identity_id",
			"is_active",
			"is_activated",
			"is_suspended",
			"access",
			"permissions",
			"lock_until",
			"otp_hash",
			"otp_expires_at",
			"deactivated_at",
			"deactivated_by",
		).
		Values(
			identityID,
			profile.IsActive,
			profile.IsActivated,
			profile.IsSuspended,
			profile.Access,
			permissionsToStrings(profile.Permissions),
			profile.LockUntil,
			profile.OTPHash,
			profile.OTPExpiresAt,
			profile.DeactivatedAt,
			profile.DeactivatedBy,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert admin profile sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert admin profile: %w", err)
	}

	return nil
}

// GetByID retrieves an identity and its role extension profile.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an identity by its lowercase email form.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(email)})
}

func (r *IdentityRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(identityColumns...).
		From("estate.identities").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	if err := r.attachProfile(ctx, identity); err != nil {
		return nil, err
	}

	return identity, nil
}

func (r *IdentityRepository) attachProfile(ctx context.Context, identity *domain.Identity) error {
	switch {
	case identity.Role == domain.RoleAgent:
		profile, err := r.agentProfile(ctx, identity.ID)
		if err != nil {
			return err
		}
		identity.Agent = profile
	case identity.Role.IsAdminClass():
		profile, err := r.adminProfile(ctx, identity.ID)
		if err != nil {
			return err
		}
		identity.Admin = profile
	}
	return nil
}

func (r *IdentityRepository) agentProfile(ctx context.Context, identityID string) (*domain.AgentProfile, error) {
	stmt, args, err := r.builder.
		Select("identity_id", "agency", "license_number", "verified").
		From("estate.agent_profiles").
		Where(squirrel.Eq{"identity_id": identityID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select agent profile sql: %w", err)
	}

	var profile domain.AgentProfile
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&profile.IdentityID, &profile.Agency, &profile.LicenseNumber, &profile.Verified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan agent profile: %w", err)
	}

	return &profile, nil
}

func (r *IdentityRepository) adminProfile(ctx context.Context, identityID string) (*domain.AdminProfile, error) {
	stmt, args, err := r.builder.
		Select(
			"identity_id",
			"is_active",
			"is_activated",
			"is_suspended",
			"access",
			"permissions",
			"lock_until",
			"otp_hash",
			"otp_expires_at",
			"deactivated_at",
			"deactivated_by",
		).
		From("estate.admin_profiles").
		Where(squirrel.Eq{"identity_id": identityID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select admin profile sql: %w", err)
	}

	var (
		profile     domain.AdminProfile
		permissions []string
	)
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&profile.IdentityID,
		&profile.IsActive,
		&profile.IsActivated,
		&profile.IsSuspended,
		&profile.Access,
		&permissions,
		&profile.LockUntil,
		&profile.OTPHash,
		&profile.OTPExpiresAt,
		&profile.DeactivatedAt,
		&profile.DeactivatedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan admin profile: %w", err)
	}

	profile.Permissions = stringsToPermissions(permissions)
	return &profile, nil
}

// List returns identities matching the filter, newest first. Profiles are not
// attached; listings only need the base row.
func (r *IdentityRepository) List(ctx context.Context, filter port.IdentityFilter) ([]domain.Identity, error) {
	query := r.builder.
		Select(identityColumns...).
		From("estate.identities").
		OrderBy("created_at DESC")

	query = applyIdentityFilter(query, filter)

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list identities sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}
		identities = append(identities, *identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

// Count reports how many identities match the filter.
func (r *IdentityRepository) Count(ctx context.Context, filter port.IdentityFilter) (int, error) {
	query := r.builder.
		Select("COUNT(*)").
		From("estate.identities")

	query = applyIdentityFilter(query, filter)

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count identities sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}

	return count, nil
}

// RecordFailedAttempt increments the failed-attempt counter and, when the
// incremented value reaches the threshold, sets the lock expiry in the same
// statement. Concurrent failed logins therefore never under-count.
func (r *IdentityRepository) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockFor time.Duration) (port.LockoutResult, error) {
	lockUntil := time.Now().UTC().Add(lockFor)

	stmt, args, err := r.builder.
		Update("estate.identities").
		Set("failed_attempts", squirrel.Expr("failed_attempts + 1")).
		Set("locked_until", squirrel.Expr(
			"CASE WHEN failed_attempts + 1 >= ? THEN ?::timestamptz ELSE locked_until END",
			threshold, lockUntil,
		)).
		Where(squirrel.Eq{"id": id, "deleted": false}).
		Suffix("RETURNING failed_attempts, locked_until").
		ToSql()
	if err != nil {
		return port.LockoutResult{}, fmt.Errorf("build record failed attempt sql: %w", err)
	}

	var result port.LockoutResult
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&result.FailedAttempts, &result.LockedUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return port.LockoutResult{}, repository.ErrNotFound
		}
		return port.LockoutResult{}, fmt.Errorf("record failed attempt: %w", err)
	}

	return result, nil
}

// ResetFailedAttempts clears the counter and lock after a successful login.
func (r *IdentityRepository) ResetFailedAttempts(ctx context.Context, id string, loginAt time.Time) error {
	stmt, args, err := r.builder.
		Update("estate.identities").
		Set("failed_attempts", 0).
		Set("locked_until", nil).
		Set("last_login", loginAt.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset failed attempts sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetSuspended toggles the suspension flag on the identity row.
func (r *IdentityRepository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	stmt, args, err := r.builder.
		Update("estate.identities").
		Set("suspended", suspended).
		Where(squirrel.Eq{"id": id, "deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set suspended sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set suspended: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SoftDelete marks the identity as deleted. The row is retained so that the
// deleted state wins over every other account state on later reads.
func (r *IdentityRepository) SoftDelete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Update("estate.identities").
		Set("deleted", true).
		Where(squirrel.Eq{"id": id, "deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkVerified flags the identity's email as confirmed.
func (r *IdentityRepository) MarkVerified(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Update("estate.identities").
		Set("verified", true).
		Where(squirrel.Eq{"id": id, "deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark verified sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark identity verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ActivateAdmin completes admin onboarding: the profile becomes activated and
// gains at least limited dashboard access.
func (r *IdentityRepository) ActivateAdmin(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Update("estate.admin_profiles").
		Set("is_activated", true).
		Set("is_active", true).
		Set("access", squirrel.Expr("CASE WHEN access = ? THEN ? ELSE access END",
			domain.AdminAccessNone, domain.AdminAccessLimited,
		)).
		Where(squirrel.Eq{"identity_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build activate admin sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("activate admin profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func applyIdentityFilter(query squirrel.SelectBuilder, filter port.IdentityFilter) squirrel.SelectBuilder {
	if filter.Role != "" {
		query = query.Where(squirrel.Eq{"role": filter.Role})
	}
	if filter.Suspended != nil {
		query = query.Where(squirrel.Eq{"suspended": *filter.Suspended})
	}
	if filter.Deleted != nil {
		query = query.Where(squirrel.Eq{"deleted": *filter.Deleted})
	}
	return query
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity    domain.Identity
		lockedUntil *time.Time
		lastLogin   *time.Time
	)

	if err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Role,
		&identity.Verified,
		&identity.Deleted,
		&identity.Suspended,
		&identity.FailedAttempts,
		&lockedUntil,
		&identity.CreatedAt,
		&lastLogin,
	); err != nil {
		return nil, err
	}

	identity.LockedUntil = lockedUntil
	identity.LastLogin = lastLogin
	return &identity, nil
}

func permissionsToStrings(permissions []domain.Permission) []string {
	if permissions == nil {
		return nil
	}
	out := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		out = append(out, string(permission))
	}
	return out
}

func stringsToPermissions(values []string) []domain.Permission {
	if values == nil {
		return nil
	}
	out := make([]domain.Permission, 0, len(values))
	for _, value := range values {
		out = append(out, domain.Permission(value))
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)
