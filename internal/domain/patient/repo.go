package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

// SearchFilters narrows a free-text patient search.
type SearchFilters struct {
	Status       *Status
	CheckedIn    *bool
	UpdatedAfter *time.Time
}

// Repository is the external patient store. FindByID returns a typed
// not-found error for an absent id; ExistsByMRN returns false rather than an
// error when nothing matches. Genuine transport failures always propagate.
type Repository interface {
	Create(ctx context.Context, sc scope.Scope, p Patient) error
	FindByID(ctx context.Context, sc scope.Scope, id uuid.UUID) (Patient, error)
	Search(ctx context.Context, sc scope.Scope, term string, filters SearchFilters, limit, offset int) ([]Patient, int, error)
	FindByStatus(ctx context.Context, sc scope.Scope, status Status, limit, offset int) ([]Patient, int, error)
	Update(ctx context.Context, sc scope.Scope, p Patient) error
	ExistsByMRN(ctx context.Context, sc scope.Scope, mrn string) (bool, error)

	// CountByStatus powers the waiting-room dashboard.
	CountByStatus(ctx context.Context, sc scope.Scope) (map[Status]int, error)

	// CountWaitingCheckedInBefore returns how many waiting patients checked
	// in strictly before t. The check-in queue position derived from it is
	// advisory: it races with concurrent check-ins.
	CountWaitingCheckedInBefore(ctx context.Context, sc scope.Scope, t time.Time) (int, error)
}
