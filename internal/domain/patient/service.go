package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

// Service loads patient snapshots, applies aggregate transitions and
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

// CreatePatient validates and stores a fresh patient record. The MRN must be
// unique within the scope.
func (s *Service) CreatePatient(ctx context.Context, sc scope.Scope, p Patient) (Patient, error) {
	now := s.now().UTC()
	created, err := New(p, now)
	if err != nil {
		return Patient{}, err
	}
	exists, err := s.repo.ExistsByMRN(ctx, sc, created.MRN)
	if err != nil {
		return Patient{}, err
	}
	if exists {
		return Patient{}, &errs.ConsistencyError{
			Entity: "patient", ID: created.ID.String(),
			Related: "mrn " + created.MRN,
			Reason:  "medical record number already in use",
		}
	}
	if err := s.repo.Create(ctx, sc, created); err != nil {
		return Patient{}, err
	}
	return created, nil
}

func (s *Service) GetPatient(ctx context.Context, sc scope.Scope, id uuid.UUID) (Patient, error) {
	return s.repo.FindByID(ctx, sc, id)
}

func (s *Service) ListByStatus(ctx context.Context, sc scope.Scope, status Status, limit, offset int) ([]Patient, int, error) {
	return s.repo.FindByStatus(ctx, sc, status, limit, offset)
}

// StartConsultation transitions a checked-in waiting patient into
// consultation.
func (s *Service) StartConsultation(ctx context.Context, sc scope.Scope, id, professionalID uuid.UUID) (Patient, error) {
	return s.transition(ctx, sc, id, func(p Patient, at time.Time) (Patient, error) {
		return p.StartConsultation(professionalID, at)
	})
}

// CompleteVisit closes a consultation.
func (s *Service) CompleteVisit(ctx context.Context, sc scope.Scope, id uuid.UUID, actor string, notes *string) (Patient, error) {
	return s.transition(ctx, sc, id, func(p Patient, at time.Time) (Patient, error) {
		return p.CompleteVisit(actor, notes, at)
	})
}

// MarkAsNoShow records that a waiting patient never presented.
func (s *Service) MarkAsNoShow(ctx context.Context, sc scope.Scope, id uuid.UUID, actor string, reason *string) (Patient, error) {
	return s.transition(ctx, sc, id, func(p Patient, at time.Time) (Patient, error) {
		return p.MarkAsNoShow(actor, reason, at)
	})
}

func (s *Service) transition(ctx context.Context, sc scope.Scope, id uuid.UUID, fn func(Patient, time.Time) (Patient, error)) (Patient, error) {
	p, err := s.repo.FindByID(ctx, sc, id)
	if err != nil {
		return Patient{}, err
	}
	next, err := fn(p, s.now().UTC())
	if err != nil {
		return Patient{}, err
	}
	if err := s.repo.Update(ctx, sc, next); err != nil {
		return Patient{}, err
	}
	return next, nil
}
