package waitingqueue

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
)

var testNow = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func validQueue() Queue {
	clinicID := uuid.New()
	return Queue{
		Name:            "Morning Walk-In",
		Location:        "Reception A",
		ProfessionalIDs: []uuid.UUID{uuid.New()},
		ClinicID:        &clinicID,
	}
}

func addReq(q Queue) AddRequest {
	return AddRequest{
		PatientID:      uuid.New(),
		ProfessionalID: q.ProfessionalIDs[0],
	}
}

// assertContiguous checks the positions form exactly 1..N.
func assertContiguous(t *testing.T, q Queue) {
	t.Helper()
	seen := make(map[int]bool, len(q.Items))
	for _, it := range q.Items {
		if it.Position < 1 || it.Position > len(q.Items) {
			t.Fatalf("position %d out of range 1..%d", it.Position, len(q.Items))
		}
		if seen[it.Position] {
			t.Fatalf("duplicate position %d", it.Position)
		}
		seen[it.Position] = true
	}
}

func TestNewQueue(t *testing.T) {
	q, err := New(validQueue(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if q.Status != StatusActive {
		t.Errorf("expected active, got %s", q.Status)
	}
	if q.Config != DefaultConfig() {
		t.Errorf("expected default config, got %+v", q.Config)
	}
}

func TestNewQueue_Validation(t *testing.T) {
	q := validQueue()
	q.Name = " "
	if _, err := New(q, testNow); !errs.IsValidation(err) {
		t.Errorf("expected validation error for empty name, got %v", err)
	}

	q = validQueue()
	q.ProfessionalIDs = nil
	if _, err := New(q, testNow); !errs.IsValidation(err) {
		t.Errorf("expected validation error without professionals, got %v", err)
	}

	q = validQueue()
	q.ClinicID = nil
	if _, err := New(q, testNow); !errs.IsValidation(err) {
		t.Errorf("expected validation error without scope, got %v", err)
	}
}

func TestAddPatient(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	next, err := q.AddPatient(addReq(q), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(next.Items))
	}
	if next.Items[0].Position != 1 {
		t.Errorf("expected position 1, got %d", next.Items[0].Position)
	}
	if next.Items[0].EstimatedWaitMinutes != 0 {
		t.Errorf("first in line waits 0 minutes, got %d", next.Items[0].EstimatedWaitMinutes)
	}
	// The original snapshot is untouched.
	if len(q.Items) != 0 {
		t.Error("add mutated the original snapshot")
	}
}

func TestAddPatient_WaitEstimates(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	for i := 0; i < 3; i++ {
		var err error
		q, err = q.AddPatient(addReq(q), testNow.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	assertContiguous(t, q)

	// Service time is 15 minutes: expected waits are 0, 15, 30.
	for _, it := range q.Items {
		want := (it.Position - 1) * 15
		if it.EstimatedWaitMinutes != want {
			t.Errorf("position %d: expected wait %d, got %d", it.Position, want, it.EstimatedWaitMinutes)
		}
	}
}

func TestAddPatient_UrgentGoesFirst(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	q, _ = q.AddPatient(addReq(q), testNow)
	q, _ = q.AddPatient(addReq(q), testNow.Add(time.Minute))

	urgent := addReq(q)
	urgent.Urgency = UrgencyUrgent
	next, err := q.AddPatient(urgent, testNow.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, ok := next.NextPatient()
	if !ok || first.PatientID != urgent.PatientID {
		t.Error("expected the urgent patient at position 1")
	}
	assertContiguous(t, next)
}

func TestAddPatient_AppointmentsBeforeWalkIns(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	walkIn := addReq(q)
	walkIn.WalkIn = true
	q, _ = q.AddPatient(walkIn, testNow)

	apptID := uuid.New()
	scheduled := addReq(q)
	scheduled.AppointmentID = &apptID
	next, err := q.AddPatient(scheduled, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := next.NextPatient()
	if first.PatientID != scheduled.PatientID {
		t.Error("expected the appointment holder ahead of the walk-in")
	}
	assertContiguous(t, next)
}

func TestAddPatient_Duplicate(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	req := addReq(q)
	q, _ = q.AddPatient(req, testNow)
	if _, err := q.AddPatient(req, testNow.Add(time.Minute)); !errs.IsConsistency(err) {
		t.Errorf("expected consistency error for duplicate patient, got %v", err)
	}
}

func TestAddPatient_Closed(t *testing.T) {
	q := validQueue()
	q.Status = StatusClosed
	created, _ := New(q, testNow)
	if _, err := created.AddPatient(addReq(created), testNow); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error on closed queue, got %v", err)
	}
}

func TestAddPatient_Full(t *testing.T) {
	q := validQueue()
	q.Config = DefaultConfig()
	q.Config.MaxSize = 1
	created, _ := New(q, testNow)
	created, _ = created.AddPatient(addReq(created), testNow)
	if _, err := created.AddPatient(addReq(created), testNow); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error on full queue, got %v", err)
	}
}

func TestAddPatient_WalkInsDisallowed(t *testing.T) {
	q := validQueue()
	q.Config = DefaultConfig()
	q.Config.AllowWalkIns = false
	created, _ := New(q, testNow)

	walkIn := addReq(created)
	walkIn.WalkIn = true
	if _, err := created.AddPatient(walkIn, testNow); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error for disallowed walk-in, got %v", err)
	}
}

func TestAddPatient_UnknownProfessional(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	req := addReq(q)
	req.ProfessionalID = uuid.New()
	if _, err := q.AddPatient(req, testNow); !errs.IsValidation(err) {
		t.Errorf("expected validation error for unassigned professional, got %v", err)
	}
}

func TestPriorityFor(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	urgent := addReq(q)
	urgent.Urgency = UrgencyUrgent
	next, _ := q.AddPatient(urgent, testNow)
	// Base 1 + urgent weight 5.
	if got := next.Items[0].Priority; got != 6 {
		t.Errorf("expected priority 6, got %.1f", got)
	}

	penalized := addReq(next)
	penalized.WalkIn = true
	penalized.HasInsuranceIssue = true
	penalized.SpecialNeeds = []string{"wheelchair", "translation"}
	next, _ = next.AddPatient(penalized, testNow)
	// Base 1 + medium default 1 + needs 1 - walk-in 1 + insurance 1 = 3.
	var got float64
	for _, it := range next.Items {
		if it.PatientID == penalized.PatientID {
			got = it.Priority
		}
	}
	if got != 3 {
		t.Errorf("expected priority 3, got %.1f", got)
	}
}

func TestRemovePatient(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	first := addReq(q)
	second := addReq(q)
	third := addReq(q)
	q, _ = q.AddPatient(first, testNow)
	q, _ = q.AddPatient(second, testNow.Add(time.Minute))
	q, _ = q.AddPatient(third, testNow.Add(2*time.Minute))

	next, err := q.RemovePatient(second.PatientID, testNow.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(next.Items))
	}
	assertContiguous(t, next)
	// The third patient moved up and their estimate shrank with them.
	for _, it := range next.Items {
		if it.PatientID == third.PatientID && it.Position != 2 {
			t.Errorf("expected third patient at position 2, got %d", it.Position)
		}
	}

	if _, err := next.RemovePatient(second.PatientID, testNow); !errs.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestMovePatient(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	var reqs []AddRequest
	for i := 0; i < 4; i++ {
		r := addReq(q)
		reqs = append(reqs, r)
		q, _ = q.AddPatient(r, testNow.Add(time.Duration(i)*time.Minute))
	}

	next, err := q.MovePatient(reqs[3].PatientID, 1, testNow.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := next.NextPatient()
	if first.PatientID != reqs[3].PatientID {
		t.Error("expected the moved patient at position 1")
	}
	assertContiguous(t, next)

	// Out-of-range targets clamp instead of failing.
	clamped, err := next.MovePatient(reqs[0].PatientID, 99, testNow.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertContiguous(t, clamped)
	for _, it := range clamped.Items {
		if it.PatientID == reqs[0].PatientID && it.Position != len(clamped.Items) {
			t.Errorf("expected clamp to the back, got position %d", it.Position)
		}
	}

	if _, err := next.MovePatient(uuid.New(), 1, testNow); !errs.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestResortQueue_ByUrgency(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	low := addReq(q)
	low.Urgency = UrgencyLow
	high := addReq(q)
	high.Urgency = UrgencyHigh
	q, _ = q.AddPatient(low, testNow)
	q, _ = q.AddPatient(high, testNow.Add(time.Minute))

	next, err := q.ResortQueue(SortByUrgency, testNow.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := next.NextPatient()
	if first.PatientID != high.PatientID {
		t.Error("expected the high-urgency patient first")
	}
	assertContiguous(t, next)
}

func TestResortQueue_AppointmentTimePutsWalkInsLast(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	walkIn := addReq(q)
	walkIn.WalkIn = true
	walkIn.Urgency = UrgencyUrgent // front of the queue on insert
	scheduled := addReq(q)
	apptID := uuid.New()
	scheduled.AppointmentID = &apptID
	q, _ = q.AddPatient(walkIn, testNow)
	q, _ = q.AddPatient(scheduled, testNow.Add(time.Minute))

	next, err := q.ResortQueue(SortByAppointmentTime, testNow.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := next.Items[len(next.Items)-1]
	if last.PatientID != walkIn.PatientID {
		t.Error("expected the walk-in sorted after scheduled entries")
	}
}

func TestResortQueue_ArrivalTimeIsIdempotent(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	for i := 0; i < 3; i++ {
		q, _ = q.AddPatient(addReq(q), testNow.Add(time.Duration(i)*time.Minute))
	}

	once, err := q.ResortQueue(SortByArrivalTime, testNow.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := once.ResortQueue(SortByArrivalTime, testNow.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range once.Items {
		if once.Items[i].PatientID != twice.Items[i].PatientID {
			t.Fatalf("resort is not idempotent at index %d", i)
		}
	}
}

func TestResortQueue_UnknownMethod(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	if _, err := q.ResortQueue("bogus", testNow); !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPauseResume(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	paused, err := q.Pause(testNow)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.CanAcceptPatients() {
		t.Error("paused queue must not accept patients")
	}
	if _, err := paused.Pause(testNow); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error on double pause, got %v", err)
	}

	resumed, err := paused.Resume(testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !resumed.CanAcceptPatients() {
		t.Error("resumed queue should accept patients")
	}
	if _, err := q.Resume(testNow); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error resuming an active queue, got %v", err)
	}
}

func TestUpdateConfig_RecomputesWaits(t *testing.T) {
	q, _ := New(validQueue(), testNow)
	q, _ = q.AddPatient(addReq(q), testNow)
	q, _ = q.AddPatient(addReq(q), testNow.Add(time.Minute))

	cfg := q.Config
	cfg.EstimatedServiceTime = 20
	next, err := q.UpdateConfig(cfg, testNow.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, it := range next.Items {
		want := (it.Position - 1) * 20
		if it.EstimatedWaitMinutes != want {
			t.Errorf("position %d: expected wait %d, got %d", it.Position, want, it.EstimatedWaitMinutes)
		}
	}
}

func TestGetMetrics(t *testing.T) {
	q, _ := New(validQueue(), testNow)

	empty := q.GetMetrics(testNow)
	if empty.TotalPatients != 0 || empty.AverageWaitMinutes != 0 {
		t.Errorf("expected zero metrics on empty queue, got %+v", empty)
	}

	urgent := addReq(q)
	urgent.Urgency = UrgencyUrgent
	walkIn := addReq(q)
	walkIn.WalkIn = true
	walkIn.SpecialNeeds = []string{"wheelchair"}
	q, _ = q.AddPatient(urgent, testNow)
	q, _ = q.AddPatient(walkIn, testNow.Add(10*time.Minute))

	m := q.GetMetrics(testNow.Add(30 * time.Minute))
	if m.TotalPatients != 2 {
		t.Errorf("expected 2 patients, got %d", m.TotalPatients)
	}
	if m.UrgentCount != 1 || m.WalkInCount != 1 || m.AppointmentCount != 1 {
		t.Errorf("unexpected counts: %+v", m)
	}
	if m.SpecialNeedsCount != 1 {
		t.Errorf("expected 1 special-needs entry, got %d", m.SpecialNeedsCount)
	}
	if m.LongestWaitMinutes != 30 {
		t.Errorf("expected longest wait 30, got %d", m.LongestWaitMinutes)
	}
	if m.AverageWaitMinutes != 25 {
		t.Errorf("expected average wait 25, got %.1f", m.AverageWaitMinutes)
	}
	if m.EstimatedThroughputMinutes != 30 {
		t.Errorf("expected throughput 30, got %d", m.EstimatedThroughputMinutes)
	}
}
