package waitingqueue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

// Service loads queue snapshots, applies aggregate operations and saves the
// resulting snapshot back. The snapshot in the store is always a complete,
// internally consistent queue.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateQueue validates and stores a new queue.
func (s *Service) CreateQueue(ctx context.Context, q Queue) (Queue, error) {
	created, err := New(q, s.now().UTC())
	if err != nil {
		return Queue{}, err
	}
	if err := s.repo.Save(ctx, created); err != nil {
		return Queue{}, err
	}
	return created, nil
}

func (s *Service) GetQueue(ctx context.Context, id uuid.UUID) (Queue, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListQueues(ctx context.Context, sc scope.Scope) ([]Queue, error) {
	return s.repo.ListByScope(ctx, sc)
}

// AddPatient enqueues a patient at the computed position.
func (s *Service) AddPatient(ctx context.Context, queueID uuid.UUID, req AddRequest) (Queue, error) {
	return s.apply(ctx, queueID, func(q Queue, at time.Time) (Queue, error) {
		return q.AddPatient(req, at)
	})
}

// RemovePatient dequeues a patient and compacts positions.
func (s *Service) RemovePatient(ctx context.Context, queueID, patientID uuid.UUID) (Queue, error) {
	return s.apply(ctx, queueID, func(q Queue, at time.Time) (Queue, error) {
		return q.RemovePatient(patientID, at)
	})
}

// MovePatient reslots a patient at the requested position.
func (s *Service) MovePatient(ctx context.Context, queueID, patientID uuid.UUID, newPosition int) (Queue, error) {
	return s.apply(ctx, queueID, func(q Queue, at time.Time) (Queue, error) {
		return q.MovePatient(patientID, newPosition, at)
	})
}

// Resort re-derives the queue order from the given rule.
func (s *Service) Resort(ctx context.Context, queueID uuid.UUID, method SortMethod) (Queue, error) {
	return s.apply(ctx, queueID, func(q Queue, at time.Time) (Queue, error) {
		return q.ResortQueue(method, at)
	})
}

// Pause suspends an active queue.
func (s *Service) Pause(ctx context.Context, queueID uuid.UUID) (Queue, error) {
	return s.apply(ctx, queueID, func(q Queue, at time.Time) (Queue, error) {
		return q.Pause(at)
	})
}

// Resume reactivates a paused queue.
func (s *Service) Resume(ctx context.Context, queueID uuid.UUID) (Queue, error) {
	return s.apply(ctx, queueID, func(q Queue, at time.Time) (Queue, error) {
		return q.Resume(at)
	})
}

// UpdateConfig replaces the queue configuration.
func (s *Service) UpdateConfig(ctx context.Context, queueID uuid.UUID, cfg Config) (Queue, error) {
	return s.apply(ctx, queueID, func(q Queue, at time.Time) (Queue, error) {
		return q.UpdateConfig(cfg, at)
	})
}

// Metrics returns the live queue numbers.
func (s *Service) Metrics(ctx context.Context, queueID uuid.UUID) (Metrics, error) {
	q, err := s.repo.FindByID(ctx, queueID)
	if err != nil {
		return Metrics{}, err
	}
	return q.GetMetrics(s.now().UTC()), nil
}

func (s *Service) apply(ctx context.Context, queueID uuid.UUID, fn func(Queue, time.Time) (Queue, error)) (Queue, error) {
	q, err := s.repo.FindByID(ctx, queueID)
	if err != nil {
		return Queue{}, err
	}
	next, err := fn(q, s.now().UTC())
	if err != nil {
		return Queue{}, err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return Queue{}, err
	}
	return next, nil
}
