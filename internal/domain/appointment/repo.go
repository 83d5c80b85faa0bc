package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

// Repository is the external appointment store. FindByID returns a typed
// not-found error for an absent id; transport failures propagate as-is.
type Repository interface {
	Create(ctx context.Context, sc scope.Scope, a Appointment) error
	FindByID(ctx context.Context, sc scope.Scope, id uuid.UUID) (Appointment, error)
	FindByPatientAndDateRange(ctx context.Context, sc scope.Scope, patientID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, sc scope.Scope, patientID uuid.UUID, limit, offset int) ([]Appointment, int, error)
	Update(ctx context.Context, sc scope.Scope, a Appointment) error
}
