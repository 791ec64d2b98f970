package port

import (
	"context"

	"github.com/havenlane/estate-iam/internal/core/domain"
)

// SuspensionRepository persists the append-only suspension history.
type SuspensionRepository interface {
	Append(ctx context.Context, record domain.SuspensionRecord) error
	ActiveByIdentity(ctx context.Context, identityID string) (*domain.SuspensionRecord, error)
	Deactivate(ctx context.Context, identityID string) (int, error)
	History(ctx context.Context, identityID string) ([]domain.SuspensionRecord, error)
}
