package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

// Service loads appointment snapshots, applies aggregate transitions and
// persists the results.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Schedule validates and stores a new appointment.
func (s *Service) Schedule(ctx context.Context, sc scope.Scope, a Appointment, actor string) (Appointment, []string, error) {
	now := s.now().UTC()
	created, err := New(a, actor, now)
	if err != nil {
		return Appointment{}, nil, err
	}
	if err := s.repo.Create(ctx, sc, created); err != nil {
		return Appointment{}, nil, err
	}
	return created, created.Warnings(now), nil
}

func (s *Service) GetAppointment(ctx context.Context, sc scope.Scope, id uuid.UUID) (Appointment, error) {
	return s.repo.FindByID(ctx, sc, id)
}

func (s *Service) ListByPatient(ctx context.Context, sc scope.Scope, patientID uuid.UUID, limit, offset int) ([]Appointment, int, error) {
	return s.repo.ListByPatient(ctx, sc, patientID, limit, offset)
}

func (s *Service) FindByPatientAndDateRange(ctx context.Context, sc scope.Scope, patientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return s.repo.FindByPatientAndDateRange(ctx, sc, patientID, from, to)
}

// MarkAsArrived records arrival inside the check-in window.
func (s *Service) MarkAsArrived(ctx context.Context, sc scope.Scope, id uuid.UUID, actor string) (Appointment, error) {
	return s.transition(ctx, sc, id, func(a Appointment, at time.Time) (Appointment, error) {
		return a.MarkAsArrived(actor, at)
	})
}

// Start begins the consultation.
func (s *Service) Start(ctx context.Context, sc scope.Scope, id uuid.UUID, actor string) (Appointment, error) {
	return s.transition(ctx, sc, id, func(a Appointment, at time.Time) (Appointment, error) {
		return a.StartAppointment(actor, at)
	})
}

// Complete closes an in-progress appointment.
func (s *Service) Complete(ctx context.Context, sc scope.Scope, id uuid.UUID, actor string, notes *string) (Appointment, error) {
	return s.transition(ctx, sc, id, func(a Appointment, at time.Time) (Appointment, error) {
		return a.CompleteAppointment(actor, notes, at)
	})
}

// MarkAsNoShow records a missed appointment.
func (s *Service) MarkAsNoShow(ctx context.Context, sc scope.Scope, id uuid.UUID, actor string, reason *string) (Appointment, error) {
	return s.transition(ctx, sc, id, func(a Appointment, at time.Time) (Appointment, error) {
		return a.MarkAsNoShow(actor, reason, at)
	})
}

// Cancel cancels a not-yet-finalized appointment.
func (s *Service) Cancel(ctx context.Context, sc scope.Scope, id uuid.UUID, actor string, reason *string) (Appointment, error) {
	return s.transition(ctx, sc, id, func(a Appointment, at time.Time) (Appointment, error) {
		return a.Cancel(actor, reason, at)
	})
}

// MarkReminderSent flags the appointment as reminded.
func (s *Service) MarkReminderSent(ctx context.Context, sc scope.Scope, id uuid.UUID) (Appointment, error) {
	return s.transition(ctx, sc, id, func(a Appointment, at time.Time) (Appointment, error) {
		return a.MarkReminderSent(at)
	})
}

func (s *Service) transition(ctx context.Context, sc scope.Scope, id uuid.UUID, fn func(Appointment, time.Time) (Appointment, error)) (Appointment, error) {
	a, err := s.repo.FindByID(ctx, sc, id)
	if err != nil {
		return Appointment{}, err
	}
	next, err := fn(a, s.now().UTC())
	if err != nil {
		return Appointment{}, err
	}
	if err := s.repo.Update(ctx, sc, next); err != nil {
		return Appointment{}, err
	}
	return next, nil
}
