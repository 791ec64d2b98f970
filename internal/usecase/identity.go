package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListIdentitiesInput narrows and paginates the admin identity listing.
type ListIdentitiesInput struct {
	Role      string
	Suspended *bool
	Deleted   *bool
	Page      int
	PerPage   int
}

// IdentityService covers the admin-facing identity operations.
type IdentityService struct {
	identities port.IdentityRepository
	log        *zap.Logger
}

// NewIdentityService constructs an IdentityService instance.
func NewIdentityService(identities port.IdentityRepository, log *zap.Logger) *IdentityService {
	return &IdentityService{identities: identities, log: log}
}

// List returns a page of identities. The actor needs users.view.
func (s *IdentityService) List(ctx context.Context, actor *domain.Identity, input ListIdentitiesInput) ([]domain.Identity, int, error) {
	if decision := GuardPermission(actor, time.Now().UTC(), domain.PermUsersView); !decision.Allowed {
		return nil, 0, decision.Err()
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}

	filter := port.IdentityFilter{
		Suspended: input.Suspended,
		Deleted:   input.Deleted,
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	}
	if input.Role != "" {
		filter.Role = domain.ClassifyRole(input.Role)
	}

	identities, err := s.identities.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}

	total, err := s.identities.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}

	for i := range identities {
		identities[i].PasswordHash = ""
	}

	return identities, total, nil
}

// Get returns a single identity by id. The actor needs users.view.
func (s *IdentityService) Get(ctx context.Context, actor *domain.Identity, targetID string) (*domain.Identity, error) {
	if decision := GuardPermission(actor, time.Now().UTC(), domain.PermUsersView); !decision.Allowed {
		return nil, decision.Err()
	}

	identity, err := s.identities.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	sanitized := *identity
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// Delete soft-deletes the target identity. The actor needs users.delete.
func (s *IdentityService) Delete(ctx context.Context, actor *domain.Identity, targetID string) error {
	if decision := GuardPermission(actor, time.Now().UTC(), domain.PermUsersDelete); !decision.Allowed {
		return decision.Err()
	}

	if actor != nil && actor.ID == targetID {
		return fmt.Errorf("%w: cannot delete own account", ErrInvalidInput)
	}

	if err := s.identities.SoftDelete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("soft delete identity: %w", err)
	}

	s.log.Info("identity soft-deleted",
		zap.String("identity_id", targetID),
		zap.String("actor_id", actor.ID),
	)

	return nil
}
