package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/repository"
)

// SessionService resolves bearer tokens into fresh identities.
type SessionService struct {
	identities port.IdentityRepository
	signer     TokenIssuer
	log        *zap.Logger
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(identities port.IdentityRepository, signer TokenIssuer, log *zap.Logger) *SessionService {
	return &SessionService{identities: identities, signer: signer, log: log}
}

// ResolveIdentity turns a bearer token into the current identity record. A
// missing, malformed, expired, or orphaned token yields (nil, nil): requests
// proceed anonymously and downstream guards decide what anonymity may do. The
// identity is always re-read from storage, so role changes, suspensions, and
// deletions take effect on the next request regardless of what the token says.
// Only a storage fault is an error.
func (s *SessionService) ResolveIdentity(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, nil
	}

	claim, err := s.signer.Verify(token)
	if err != nil {
		return nil, nil
	}

	identity, err := s.identities.GetByID(ctx, claim.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		s.log.Error("resolve identity", zap.String("identity_id", claim.IdentityID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return identity, nil
}
