package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

type mockRepo struct {
	patients map[uuid.UUID]Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]Patient)}
}

func (m *mockRepo) Create(_ context.Context, _ scope.Scope, p Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) FindByID(_ context.Context, _ scope.Scope, id uuid.UUID) (Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return Patient{}, &errs.NotFoundError{Entity: "patient", ID: id.String()}
	}
	return p, nil
}

func (m *mockRepo) Search(_ context.Context, _ scope.Scope, term string, filters SearchFilters, limit, offset int) ([]Patient, int, error) {
	var out []Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) FindByStatus(_ context.Context, _ scope.Scope, status Status, limit, offset int) ([]Patient, int, error) {
	var out []Patient
	for _, p := range m.patients {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Update(_ context.Context, _ scope.Scope, p Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return &errs.NotFoundError{Entity: "patient", ID: p.ID.String()}
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) ExistsByMRN(_ context.Context, _ scope.Scope, mrn string) (bool, error) {
	for _, p := range m.patients {
		if p.MRN == mrn {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CountByStatus(_ context.Context, _ scope.Scope) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, p := range m.patients {
		counts[p.Status]++
	}
	return counts, nil
}

func (m *mockRepo) CountWaitingCheckedInBefore(_ context.Context, _ scope.Scope, t time.Time) (int, error) {
	n := 0
	for _, p := range m.patients {
		if p.Status == StatusWaiting && p.CheckInRecord != nil && p.CheckInRecord.Time.Before(t) {
			n++
		}
	}
	return n, nil
}

func newTestService(repo *mockRepo) *Service {
	svc := NewService(repo)
	svc.SetClock(func() time.Time { return testNow })
	return svc
}

func TestCreatePatient(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.ForClinic(*validPatient().ClinicID)

	created, err := svc.CreatePatient(context.Background(), sc, validPatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if _, ok := repo.patients[created.ID]; !ok {
		t.Error("expected the patient to be stored")
	}
}

func TestCreatePatient_DuplicateMRN(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.ForClinic(uuid.New())

	if _, err := svc.CreatePatient(context.Background(), sc, validPatient()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreatePatient(context.Background(), sc, validPatient()); !errs.IsConsistency(err) {
		t.Errorf("expected consistency error for duplicate MRN, got %v", err)
	}
}

func TestServiceTransitions(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.ForClinic(uuid.New())

	created, err := svc.CreatePatient(context.Background(), sc, validPatient())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	checked, err := created.CheckIn("reception", nil, nil, testNow)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	repo.patients[checked.ID] = checked

	inConsult, err := svc.StartConsultation(context.Background(), sc, checked.ID, uuid.New())
	if err != nil {
		t.Fatalf("start consultation: %v", err)
	}
	if inConsult.Status != StatusInConsultation {
		t.Errorf("expected in_consultation, got %s", inConsult.Status)
	}

	done, err := svc.CompleteVisit(context.Background(), sc, checked.ID, "dr.lee", nil)
	if err != nil {
		t.Fatalf("complete visit: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if repo.patients[checked.ID].Status != StatusCompleted {
		t.Error("expected the final state to be persisted")
	}
}

func TestServiceTransitions_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo())
	sc := scope.ForClinic(uuid.New())
	if _, err := svc.StartConsultation(context.Background(), sc, uuid.New(), uuid.New()); !errs.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}
