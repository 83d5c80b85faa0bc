package waitingqueue

import (
	"context"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

// Repository stores queue snapshots. Queues are ephemeral operational state,
// so the backing store favors fast whole-snapshot reads and writes.
type Repository interface {
	Save(ctx context.Context, q Queue) error
	FindByID(ctx context.Context, id uuid.UUID) (Queue, error)
	ListByScope(ctx context.Context, sc scope.Scope) ([]Queue, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
