package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
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

const verifyPurpose = "email_verify"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// RegisterInput carries a public signup request. Only buyer and agent
// accounts can self-register; elevated roles are provisioned out of band.
type RegisterInput struct {
	Email         string
	Password      string
	Role          string
	Agency        string
	LicenseNumber *string
}

// RegistrationService creates identities and runs email verification.
type RegistrationService struct {
	cfg        *config.AppConfig
	identities port.IdentityRepository
	otps       port.OTPStore
	sender     port.VerificationSender
	events     port.EventPublisher
	log        *zap.Logger
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	cfg *config.AppConfig,
	identities port.IdentityRepository,
	otps port.OTPStore,
	sender port.VerificationSender,
	events port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		cfg:        cfg,
		identities: identities,
		otps:       otps,
		sender:     sender,
		events:     events,
		log:        log,
	}
}

// Register validates the signup request, persists the identity, and issues a
// verification code. The password hash is never returned.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	role := domain.ClassifyRole(input.Role)
	if role != domain.RoleUser && role != domain.RoleAgent {
		return nil, fmt.Errorf("%w: role %q cannot self-register", ErrInvalidInput, input.Role)
	}

	if err := security.ValidatePassword(input.Password, email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.identities.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	identity := domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
	}

	if role == domain.RoleAgent {
		identity.Agent = &domain.AgentProfile{
			IdentityID:    identity.ID,
			Agency:        strings.TrimSpace(input.Agency),
			LicenseNumber: input.LicenseNumber,
		}
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	s.issueVerificationCode(ctx, email)

	event := domain.IdentityRegisteredEvent{
		EventID:      uuid.NewString(),
		IdentityID:   identity.ID,
		Email:        email,
		Role:         role,
		RegisteredAt: now,
	}
	if err := s.events.PublishIdentityRegistered(ctx, event); err != nil {
		s.log.Error("publish identity registered event", zap.Error(err))
	}

	sanitized := identity
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// issueVerificationCode generates, stores, and dispatches an email code.
// Delivery problems are logged; the account itself was already created.
func (s *RegistrationService) issueVerificationCode(ctx context.Context, email string) {
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
		s.log.Error("generate verification code", zap.Error(err))
		return
	}

	if _, err := s.otps.Store(ctx, verifyPurpose, email, security.HashToken(code), ttl); err != nil {
		s.log.Error("store verification code", zap.Error(err))
		return
	}

	if err := s.sender.SendVerificationCode(ctx, email, code); err != nil {
		s.log.Error("send verification code",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}
}

// VerifyEmail confirms the emailed code and marks the identity verified.
func (s *RegistrationService) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and code are required", ErrInvalidInput)
	}

	record, err := s.otps.Fetch(ctx, verifyPurpose, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("fetch verification code: %w", err)
	}

	maxAttempts := s.cfg.Recovery.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if record.Attempts >= maxAttempts {
		return ErrTooManyAttempts
	}

	if time.Now().UTC().After(record.ExpiresAt) {
		return ErrInvalidCode
	}

	if security.HashToken(code) != record.Code {
		if _, err := s.otps.IncrementAttempts(ctx, verifyPurpose, email); err != nil {
			s.log.Error("increment verification attempts", zap.Error(err))
		}
		return ErrInvalidCode
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	if err := s.identities.MarkVerified(ctx, identity.ID); err != nil {
		return fmt.Errorf("mark identity verified: %w", err)
	}

	if err := s.otps.Delete(ctx, verifyPurpose, email); err != nil {
		s.log.Error("delete verification code", zap.Error(err))
	}

	return nil
}
