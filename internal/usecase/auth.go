package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/infra/config"
	"github.com/havenlane/estate-iam/internal/infra/logger"
	"github.com/havenlane/estate-iam/internal/infra/security"
	"github.com/havenlane/estate-iam/internal/repository"
)

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Sign(claim domain.SessionClaim) (string, time.Time, error)
	Verify(raw string) (domain.SessionClaim, error)
}

// LoginResult carries the issued session token and the authenticated identity.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	Identity    domain.Identity
	Permissions []domain.Permission
}

// AuthService coordinates credential authentication and lockout bookkeeping.
type AuthService struct {
	cfg         *config.AppConfig
	identities  port.IdentityRepository
	suspensions port.SuspensionRepository
	signer      TokenIssuer
	events      port.EventPublisher
	log         *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	identities port.IdentityRepository,
	suspensions port.SuspensionRepository,
	signer TokenIssuer,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:         cfg,
		identities:  identities,
		suspensions: suspensions,
		signer:      signer,
		events:      events,
		log:         log,
	}
}

// Login validates credentials against the stored identity and issues a
// session token. The account-state gate runs before password verification, so
// deleted, suspended, and locked accounts are refused without touching the
// hash. Unknown email and wrong password return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if len(password) < security.MinPasswordLength {
		return nil, fmt.Errorf("%w: password too short", ErrInvalidInput)
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	now := time.Now().UTC()

	state := domain.EvaluateAccountState(identity, now)
	if !state.Allowed && state.Reason == domain.DenyAccountSuspended {
		lifted, liftErr := s.liftExpiredSuspension(ctx, identity, now)
		if liftErr != nil {
			return nil, liftErr
		}
		if lifted {
			identity.Suspended = false
			state = domain.EvaluateAccountState(identity, now)
		}
	}

	if !state.Allowed {
		switch state.Reason {
		case domain.DenyAccountDeleted:
			return nil, ErrAccountDeleted
		case domain.DenyAccountSuspended:
			return nil, ErrAccountSuspended
		case domain.DenyAccountLocked:
			return nil, &LockedError{RetryAfter: state.RetryAfter}
		case domain.DenyAdminNotOnboarded:
			return nil, ErrAdminNotOnboarded
		case domain.DenyAdminNoAccess:
			return nil, ErrAdminNoAccess
		default:
			return nil, ErrForbidden
		}
	}

	ok, err := security.VerifyPassword(password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if lockedUntil := s.registerFailedAttempt(ctx, identity); lockedUntil != nil {
			return nil, &LockedError{RetryAfter: *lockedUntil}
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.identities.ResetFailedAttempts(ctx, identity.ID, now); err != nil {
		return nil, fmt.Errorf("reset failed attempts: %w", err)
	}

	claim := domain.SessionClaim{
		IdentityID: identity.ID,
		Role:       domain.ClassifyRole(string(identity.Role)),
	}

	token, expiresAt, err := s.signer.Sign(claim)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	sanitized := *identity
	sanitized.PasswordHash = ""
	sanitized.FailedAttempts = 0
	sanitized.LockedUntil = nil
	sanitized.LastLogin = &now

	s.log.Info("login succeeded",
		zap.String("identity_id", identity.ID),
		zap.String("email", logger.MaskEmail(identity.Email)),
		zap.String("role", string(claim.Role)),
	)

	return &LoginResult{
		Token:       token,
		ExpiresAt:   expiresAt,
		Identity:    sanitized,
		Permissions: domain.EffectivePermissions(identity),
	}, nil
}

// registerFailedAttempt bumps the counter and, when this attempt crossed the
// threshold, publishes a lock event and returns the new lock expiry so the
// caller reports the lock instead of the uniform credentials error. Store
// failures here are logged, never surfaced.
func (s *AuthService) registerFailedAttempt(ctx context.Context, identity *domain.Identity) *time.Time {
	threshold := s.cfg.Lockout.MaxFailedAttempts
	if threshold <= 0 {
		threshold = 5
	}
	lockFor := s.cfg.Lockout.LockDuration
	if lockFor <= 0 {
		lockFor = 15 * time.Minute
	}

	result, err := s.identities.RecordFailedAttempt(ctx, identity.ID, threshold, lockFor)
	if err != nil {
		s.log.Error("record failed attempt",
			zap.String("identity_id", identity.ID),
			zap.Error(err),
		)
		return nil
	}

	if result.LockedUntil == nil || result.FailedAttempts != threshold {
		return nil
	}

	s.log.Warn("account locked after repeated failures",
		zap.String("identity_id", identity.ID),
		zap.Int("failed_attempts", result.FailedAttempts),
		zap.Time("locked_until", *result.LockedUntil),
	)

	event := domain.AccountLockedEvent{
		EventID:        uuid.NewString(),
		IdentityID:     identity.ID,
		FailedAttempts: result.FailedAttempts,
		LockedUntil:    *result.LockedUntil,
		LockedAt:       time.Now().UTC(),
	}
	if err := s.events.PublishAccountLocked(ctx, event); err != nil {
		s.log.Error("publish account locked event", zap.Error(err))
	}

	return result.LockedUntil
}

// liftExpiredSuspension clears a timed suspension whose window has elapsed.
// A suspended flag with no active record is treated as stale and cleared too.
func (s *AuthService) liftExpiredSuspension(ctx context.Context, identity *domain.Identity, now time.Time) (bool, error) {
	record, err := s.suspensions.ActiveByIdentity(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if err := s.identities.SetSuspended(ctx, identity.ID, false); err != nil {
				return false, fmt.Errorf("clear stale suspension flag: %w", err)
			}
			return true, nil
		}
		return false, fmt.Errorf("lookup active suspension: %w", err)
	}

	if record.ExpiresAt == nil || record.ExpiresAt.After(now) {
		return false, nil
	}

	if _, err := s.suspensions.Deactivate(ctx, identity.ID); err != nil {
		return false, fmt.Errorf("deactivate suspension: %w", err)
	}
	if err := s.identities.SetSuspended(ctx, identity.ID, false); err != nil {
		return false, fmt.Errorf("clear suspension flag: %w", err)
	}

	liftedAt := now
	event := domain.SuspensionLiftedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identity.ID,
		LiftedBy:   "system",
		Reason:     "suspension window elapsed",
		LiftedAt:   liftedAt,
	}
	if err := s.events.PublishSuspensionLifted(ctx, event); err != nil {
		s.log.Error("publish suspension lifted event", zap.Error(err))
	}

	return true, nil
}

var _ TokenIssuer = (*security.TokenSigner)(nil)
