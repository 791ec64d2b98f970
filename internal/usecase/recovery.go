package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/infra/config"
	"github.com/havenlane/estate-iam/internal/infra/logger"
	"github.com/havenlane/estate-iam/internal/infra/security"
	"github.com/havenlane/estate-iam/internal/repository"
)

const recoveryPurpose = "admin_recovery"

// RecoveryService issues one-time codes that let an admin-class account
// regain a session without its password, e.g. after a forced credential
// rotation. Codes are stored hashed with a TTL and an attempt cap.
type RecoveryService struct {
	cfg        *config.AppConfig
	identities port.IdentityRepository
	otps       port.OTPStore
	sender     port.VerificationSender
	signer     TokenIssuer
	log        *zap.Logger
}

// NewRecoveryService constructs a RecoveryService instance.
func NewRecoveryService(
	cfg *config.AppConfig,
	identities port.IdentityRepository,
	otps port.OTPStore,
	sender port.VerificationSender,
	signer TokenIssuer,
	log *zap.Logger,
) *RecoveryService {
	return &RecoveryService{
		cfg:        cfg,
		identities: identities,
		otps:       otps,
		sender:     sender,
		signer:     signer,
		log:        log,
	}
}

// RequestCode issues a recovery code for the given email. The response never
// discloses whether the email belongs to an eligible account.
func (s *RecoveryService) RequestCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("recovery requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	role := domain.ClassifyRole(string(identity.Role))
	if !role.IsAdminClass() || identity.Deleted {
		s.log.Info("recovery requested for ineligible identity",
			zap.String("identity_id", identity.ID))
		return nil
	}

	length := s.cfg.Recovery.CodeLength
	if length <= 0 {
		length = 6
	}
	ttl := s.cfg.Recovery.CodeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	code, err := security.GenerateNumericCode(length)
	if err != nil {
		return fmt.Errorf("generate recovery code: %w", err)
	}

	if _, err := s.otps.Store(ctx, recoveryPurpose, email, security.HashToken(code), ttl); err != nil {
		return fmt.Errorf("store recovery code: %w", err)
	}

	if err := s.sender.SendVerificationCode(ctx, email, code); err != nil {
		return fmt.Errorf("send recovery code: %w", err)
	}

	return nil
}

// VerifyCode checks the recovery code and, when valid, issues a fresh session
// token. The usual account-state gate still applies.
func (s *RecoveryService) VerifyCode(ctx context.Context, email, code string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and code are required", ErrInvalidInput)
	}

	record, err := s.otps.Fetch(ctx, recoveryPurpose, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("fetch recovery code: %w", err)
	}

	maxAttempts := s.cfg.Recovery.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if record.Attempts >= maxAttempts {
		return nil, ErrTooManyAttempts
	}

	if time.Now().UTC().After(record.ExpiresAt) {
		return nil, ErrInvalidCode
	}

	if security.HashToken(code) != record.Code {
		if _, err := s.otps.IncrementAttempts(ctx, recoveryPurpose, email); err != nil {
			s.log.Error("increment recovery attempts", zap.Error(err))
		}
		return nil, ErrInvalidCode
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	now := time.Now().UTC()
	state := domain.EvaluateAccountState(identity, now)
	if !state.Allowed {
		switch state.Reason {
		case domain.DenyAccountDeleted:
			return nil, ErrAccountDeleted
		case domain.DenyAccountSuspended:
			return nil, ErrAccountSuspended
		case domain.DenyAccountLocked:
			return nil, &LockedError{RetryAfter: state.RetryAfter}
		case domain.DenyAdminNotOnboarded, domain.DenyAdminNoAccess:
			// A proven recovery code completes onboarding and restores
			// at least limited dashboard access.
			if err := s.identities.ActivateAdmin(ctx, identity.ID); err != nil {
				return nil, fmt.Errorf("activate admin profile: %w", err)
			}
			if identity.Admin != nil {
				identity.Admin.IsActivated = true
				identity.Admin.IsActive = true
				if identity.Admin.Access == domain.AdminAccessNone {
					identity.Admin.Access = domain.AdminAccessLimited
				}
			}
		default:
			return nil, ErrForbidden
		}
	}

	if err := s.otps.Delete(ctx, recoveryPurpose, email); err != nil {
		s.log.Error("delete recovery code", zap.Error(err))
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

	return &LoginResult{
		Token:       token,
		ExpiresAt:   expiresAt,
		Identity:    sanitized,
		Permissions: domain.EffectivePermissions(identity),
	}, nil
}
