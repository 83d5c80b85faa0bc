package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
)

var testNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func validAppointment() Appointment {
	clinicID := uuid.New()
	start := testNow.Add(2 * time.Hour)
	return Appointment{
		Patient: PatientSnapshot{
			ID:        uuid.New(),
			Name:      "Ana Souza",
			Phone:     "+15550100",
			Email:     "ana.souza@example.com",
			BirthDate: testNow.AddDate(-34, 0, 0),
		},
		Professional: ProfessionalSnapshot{
			ID:             uuid.New(),
			Name:           "Dr. Lee",
			Specialization: "General Practice",
			Title:          "Dr.",
		},
		Slot: TimeSlot{
			Start:           start,
			End:             start.Add(30 * time.Minute),
			DurationMinutes: 30,
		},
		Type:     TypeConsultation,
		ClinicID: &clinicID,
	}
}

func TestNewAppointment(t *testing.T) {
	a, err := New(validAppointment(), "scheduler", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected default status scheduled, got %s", a.Status)
	}
	if a.Urgency != UrgencyMedium {
		t.Errorf("expected default urgency medium, got %s", a.Urgency)
	}
	if len(a.History) != 1 || a.History[0].Status != StatusScheduled {
		t.Errorf("expected one initial history entry, got %v", a.History)
	}
}

func TestNewAppointment_SlotValidation(t *testing.T) {
	a := validAppointment()
	a.Slot.End = a.Slot.Start.Add(-time.Minute)
	if _, err := New(a, "scheduler", testNow); !errs.IsValidation(err) {
		t.Errorf("expected validation error for inverted slot, got %v", err)
	}

	a = validAppointment()
	a.Slot.DurationMinutes = 45
	if _, err := New(a, "scheduler", testNow); !errs.IsValidation(err) {
		t.Errorf("expected validation error for duration mismatch, got %v", err)
	}
}

func TestNewAppointment_Warnings(t *testing.T) {
	a := validAppointment()
	start := testNow.Add(-time.Hour)
	a.Slot = TimeSlot{Start: start, End: start.Add(30 * time.Minute), DurationMinutes: 30}
	created, err := New(a, "scheduler", testNow)
	if err != nil {
		t.Fatalf("a past slot is a warning, not an error: %v", err)
	}
	if len(created.Warnings(testNow)) == 0 {
		t.Error("expected a warning for a past scheduled time")
	}

	night := validAppointment()
	nightStart := time.Date(2025, 6, 3, 23, 0, 0, 0, time.UTC)
	night.Slot = TimeSlot{Start: nightStart, End: nightStart.Add(30 * time.Minute), DurationMinutes: 30}
	created, err = New(night, "scheduler", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created.Warnings(testNow)) == 0 {
		t.Error("expected a warning for an out-of-hours slot")
	}
}

func TestCanBeCheckedIn_Window(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)

	// Slot starts at testNow+2h; two hours early is outside the window.
	if a.CanBeCheckedIn(testNow) {
		t.Error("two hours early should be outside the check-in window")
	}
	// Ten minutes early is inside.
	if !a.CanBeCheckedIn(a.Slot.Start.Add(-10 * time.Minute)) {
		t.Error("ten minutes early should be inside the check-in window")
	}
	// Up to 60 minutes late is still allowed.
	if !a.CanBeCheckedIn(a.Slot.Start.Add(59 * time.Minute)) {
		t.Error("59 minutes late should be inside the check-in window")
	}
	if a.CanBeCheckedIn(a.Slot.Start.Add(61 * time.Minute)) {
		t.Error("61 minutes late should be outside the check-in window")
	}
}

func TestMarkAsArrived(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)

	at := a.Slot.Start.Add(-5 * time.Minute)
	arrived, err := a.MarkAsArrived("reception", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arrived.Status != StatusArrived {
		t.Errorf("expected arrived, got %s", arrived.Status)
	}
	ts, ok := arrived.ArrivedAt()
	if !ok || !ts.Equal(at) {
		t.Errorf("expected arrival history entry at %v, got %v ok=%t", at, ts, ok)
	}
	// The original snapshot is untouched.
	if a.Status != StatusScheduled {
		t.Error("transition mutated the original snapshot")
	}

	if _, err := a.MarkAsArrived("reception", testNow); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error outside the window, got %v", err)
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)

	arrived, err := a.MarkAsArrived("reception", a.Slot.Start.Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("arrive: %v", err)
	}
	started, err := arrived.StartAppointment("dr.lee", a.Slot.Start)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.ActualStart == nil {
		t.Fatal("expected actual start to be stamped")
	}
	if got := started.WaitMinutes(); got != 10 {
		t.Errorf("expected 10 minute wait, got %d", got)
	}

	done, err := started.CompleteAppointment("dr.lee", nil, a.Slot.Start.Add(25*time.Minute))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if done.ActualEnd == nil || !done.ActualEnd.After(*done.ActualStart) {
		t.Error("expected actual end after actual start")
	}
	if len(done.History) != 4 {
		t.Errorf("expected 4 history entries, got %d", len(done.History))
	}
}

func TestCompleteAppointment_RequiresInProgress(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	if _, err := a.CompleteAppointment("dr.lee", nil, testNow); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	reason := "patient request"
	cancelled, err := a.Cancel("reception", &reason, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestCancel_DiscardsActualTimes(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	arrived, _ := a.MarkAsArrived("reception", a.Slot.Start.Add(-10*time.Minute))
	started, _ := arrived.StartAppointment("dr.lee", a.Slot.Start)

	cancelled, err := started.Cancel("dr.lee", nil, a.Slot.Start.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("cancelling an in-progress appointment: %v", err)
	}
	if cancelled.ActualStart != nil || cancelled.ActualEnd != nil {
		t.Error("cancelled snapshot must not carry actual times")
	}
}

func TestCancel_Finalized(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	arrived, _ := a.MarkAsArrived("reception", a.Slot.Start.Add(-10*time.Minute))
	started, _ := arrived.StartAppointment("dr.lee", a.Slot.Start)
	done, _ := started.CompleteAppointment("dr.lee", nil, a.Slot.Start.Add(20*time.Minute))

	if _, err := done.Cancel("reception", nil, a.Slot.Start.Add(time.Hour)); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error cancelling a completed appointment, got %v", err)
	}
}

func TestMarkAsNoShow(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	ns, err := a.MarkAsNoShow("reception", nil, a.Slot.Start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ns.Status != StatusNoShow {
		t.Errorf("expected no_show, got %s", ns.Status)
	}

	cancelled, _ := a.Cancel("reception", nil, testNow)
	if _, err := cancelled.MarkAsNoShow("reception", nil, a.Slot.Start.Add(time.Hour)); !errs.IsInvalidState(err) {
		t.Errorf("expected invalid-state error, got %v", err)
	}
}

func TestIsOverdue(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	if a.IsOverdue(a.Slot.Start.Add(10 * time.Minute)) {
		t.Error("ten minutes late is not yet overdue")
	}
	if !a.IsOverdue(a.Slot.Start.Add(20 * time.Minute)) {
		t.Error("twenty minutes late should be overdue")
	}
	arrived, _ := a.MarkAsArrived("reception", a.Slot.Start)
	if arrived.IsOverdue(a.Slot.Start.Add(20 * time.Minute)) {
		t.Error("an arrived appointment is never overdue")
	}
}

func TestShouldSendReminder(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)

	// Routine urgency uses the 24 hour window; two hours out qualifies.
	if !a.ShouldSendReminder(testNow) {
		t.Error("expected reminder due inside the routine window")
	}

	urgent := validAppointment()
	urgent.Urgency = UrgencyUrgent
	ua, _ := New(urgent, "scheduler", testNow)
	if ua.ShouldSendReminder(testNow) {
		t.Error("urgent window is one hour; two hours out is too early")
	}
	if !ua.ShouldSendReminder(ua.Slot.Start.Add(-30 * time.Minute)) {
		t.Error("expected reminder due 30 minutes before an urgent appointment")
	}

	sent, err := a.MarkReminderSent(testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.ShouldSendReminder(testNow) {
		t.Error("no reminder after one was sent")
	}
}

func TestAppointmentPriorityScore(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	// Medium urgency alone.
	if got := a.PriorityScore(testNow); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}

	em := validAppointment()
	em.Urgency = UrgencyUrgent
	em.Type = TypeEmergency
	ea, _ := New(em, "scheduler", testNow)
	// Urgent 4 + emergency type 2.
	if got := ea.PriorityScore(testNow); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
	// Overdue adds 2.
	if got := ea.PriorityScore(ea.Slot.Start.Add(20 * time.Minute)); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
}

func TestHistoryIsAppendOnly(t *testing.T) {
	a, _ := New(validAppointment(), "scheduler", testNow)
	arrived, _ := a.MarkAsArrived("reception", a.Slot.Start.Add(-10*time.Minute))

	if len(a.History) != 1 {
		t.Errorf("original history grew: %d entries", len(a.History))
	}
	if len(arrived.History) != 2 {
		t.Errorf("expected 2 entries on new snapshot, got %d", len(arrived.History))
	}
}
