package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusArrived     Status = "arrived"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// Urgency ranks how soon the patient must be seen.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Type is the kind of visit the appointment books.
type Type string

const (
	TypeConsultation Type = "consultation"
	TypeFollowUp     Type = "follow_up"
	TypeEmergency    Type = "emergency"
	TypeRoutine      Type = "routine"
	TypeEvaluation   Type = "evaluation"
	TypeTherapy      Type = "therapy"
	TypeProcedure    Type = "procedure"
)

// PatientSnapshot is a denormalized value copy of the booked patient, not a
// live reference.
type PatientSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	BirthDate time.Time `json:"birth_date"`
}

// ProfessionalSnapshot is a denormalized value copy of the professional.
type ProfessionalSnapshot struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Title          string    `json:"title"`
}

// TimeSlot is the booked window. Duration must agree with End - Start.
type TimeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

// HistoryEntry records one status transition. History is append-only and is
// never reordered or trimmed.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Reason    *string   `json:"reason,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

// Appointment is the appointment aggregate. Like the patient aggregate it is
// copy-on-write: transitions return a new validated snapshot.
type Appointment struct {
	ID           uuid.UUID            `json:"id"`
	Patient      PatientSnapshot      `json:"patient"`
	Professional ProfessionalSnapshot `json:"professional"`
	Slot         TimeSlot             `json:"slot"`
	Status       Status               `json:"status"`
	Urgency      Urgency              `json:"urgency"`
	Type         Type                 `json:"type"`
	History      []HistoryEntry       `json:"history"`
	ActualStart  *time.Time           `json:"actual_start,omitempty"`
	ActualEnd    *time.Time           `json:"actual_end,omitempty"`
	ReminderSent bool                 `json:"reminder_sent"`
	ClinicID     *uuid.UUID           `json:"clinic_id,omitempty"`
	WorkspaceID  *uuid.UUID           `json:"workspace_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

const (
	checkInEarlyWindow = 30 * time.Minute
	checkInLateWindow  = 60 * time.Minute
	overdueAfter       = 15 * time.Minute

	reminderWindowUrgent  = time.Hour
	reminderWindowRoutine = 24 * time.Hour

	clinicOpenHour  = 6
	clinicCloseHour = 22
)

var validStatuses = map[Status]bool{
	StatusScheduled: true, StatusArrived: true, StatusInProgress: true,
	StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
	StatusRescheduled: true,
}

var validUrgencies = map[Urgency]bool{
	UrgencyLow: true, UrgencyMedium: true, UrgencyHigh: true, UrgencyUrgent: true,
}

var validTypes = map[Type]bool{
	TypeConsultation: true, TypeFollowUp: true, TypeEmergency: true,
	TypeRoutine: true, TypeEvaluation: true, TypeTherapy: true, TypeProcedure: true,
}

// New validates and returns a fresh appointment snapshot. A missing status
// defaults to scheduled with an initial history entry.
func New(a Appointment, actor string, now time.Time) (Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Urgency == "" {
		a.Urgency = UrgencyMedium
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	a = a.clone()
	if len(a.History) == 0 {
		a.History = []HistoryEntry{{Status: a.Status, Timestamp: now, Actor: actor}}
	}
	if err := a.Validate(now); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (a Appointment) clone() Appointment {
	a.History = append([]HistoryEntry(nil), a.History...)
	if a.ActualStart != nil {
		t := *a.ActualStart
		a.ActualStart = &t
	}
	if a.ActualEnd != nil {
		t := *a.ActualEnd
		a.ActualEnd = &t
	}
	if a.ClinicID != nil {
		v := *a.ClinicID
		a.ClinicID = &v
	}
	if a.WorkspaceID != nil {
		v := *a.WorkspaceID
		a.WorkspaceID = &v
	}
	return a
}

// Validate checks every construction-time invariant, so an illegal
// combination (for example cancelled with actual times set) can never be
// constructed.
func (a Appointment) Validate(now time.Time) error {
	fail := func(field, reason string) error {
		return &errs.ValidationError{Entity: "appointment", Field: field, Reason: reason}
	}

	if a.Patient.ID == uuid.Nil {
		return fail("patient.id", "must be set")
	}
	if strings.TrimSpace(a.Patient.Name) == "" {
		return fail("patient.name", "must not be empty")
	}
	if a.Professional.ID == uuid.Nil {
		return fail("professional.id", "must be set")
	}
	if strings.TrimSpace(a.Professional.Name) == "" {
		return fail("professional.name", "must not be empty")
	}

	if !a.Slot.Start.Before(a.Slot.End) {
		return fail("slot", "start must precede end")
	}
	if a.Slot.DurationMinutes <= 0 {
		return fail("slot.duration_minutes", "must be positive")
	}
	if got := int(a.Slot.End.Sub(a.Slot.Start).Minutes()); got != a.Slot.DurationMinutes {
		return fail("slot.duration_minutes", fmt.Sprintf("declared %d does not match window of %d", a.Slot.DurationMinutes, got))
	}

	if !validStatuses[a.Status] {
		return fail("status", fmt.Sprintf("invalid status %q", a.Status))
	}
	if !validUrgencies[a.Urgency] {
		return fail("urgency", fmt.Sprintf("invalid urgency %q", a.Urgency))
	}
	if !validTypes[a.Type] {
		return fail("type", fmt.Sprintf("invalid type %q", a.Type))
	}

	if a.ClinicID == nil && a.WorkspaceID == nil {
		return fail("scope", "either clinic_id or workspace_id must be set")
	}
	if a.ClinicID != nil && a.WorkspaceID != nil {
		return fail("scope", "clinic_id and workspace_id are mutually exclusive")
	}

	switch a.Status {
	case StatusCancelled:
		if a.ActualStart != nil || a.ActualEnd != nil {
			return fail("status", "cancelled appointment cannot carry actual times")
		}
	case StatusCompleted:
		if a.ActualStart == nil || a.ActualEnd == nil {
			return fail("status", "completed appointment requires actual start and end times")
		}
		if !a.ActualEnd.After(*a.ActualStart) {
			return fail("actual_end", "must be strictly after actual start")
		}
	}
	if (a.Status == StatusCompleted || a.Status == StatusNoShow) && a.Slot.Start.After(now) {
		return fail("status", fmt.Sprintf("%s appointment cannot be future-dated", a.Status))
	}
	return nil
}

// Warnings returns non-fatal findings: a scheduled time already in the past,
// or a booking outside the 06:00-22:00 window.
func (a Appointment) Warnings(now time.Time) []string {
	var out []string
	if a.Status == StatusScheduled && a.Slot.Start.Before(now) {
		out = append(out, "scheduled time has already passed")
	}
	if h := a.Slot.Start.Hour(); h < clinicOpenHour || h >= clinicCloseHour {
		out = append(out, "scheduled outside normal clinic hours (06:00-22:00)")
	}
	return out
}

// -- Derived queries --

// CanBeCheckedIn reports whether arrival may be recorded: the appointment is
// still scheduled and now falls inside [start-30m, start+60m].
func (a Appointment) CanBeCheckedIn(now time.Time) bool {
	if a.Status != StatusScheduled {
		return false
	}
	earliest := a.Slot.Start.Add(-checkInEarlyWindow)
	latest := a.Slot.Start.Add(checkInLateWindow)
	return !now.Before(earliest) && !now.After(latest)
}

// IsReadyToStart reports whether the consultation may begin: the patient has
// arrived, or the appointment is still scheduled inside its check-in window.
func (a Appointment) IsReadyToStart(now time.Time) bool {
	if a.Status == StatusArrived {
		return true
	}
	return a.CanBeCheckedIn(now)
}

// IsOverdue reports whether a scheduled appointment is more than 15 minutes
// past its start time.
func (a Appointment) IsOverdue(now time.Time) bool {
	return a.Status == StatusScheduled && now.After(a.Slot.Start.Add(overdueAfter))
}

// IsUrgent reports whether the urgency is high or urgent.
func (a Appointment) IsUrgent() bool {
	return a.Urgency == UrgencyHigh || a.Urgency == UrgencyUrgent
}

// ArrivedAt returns the timestamp of the recorded arrival transition, if any.
func (a Appointment) ArrivedAt() (time.Time, bool) {
	for _, h := range a.History {
		if h.Status == StatusArrived {
			return h.Timestamp, true
		}
	}
	return time.Time{}, false
}

// WaitMinutes returns how long the patient waited between arrival and the
// actual start of the appointment, in whole minutes. Zero when either
// timestamp is missing.
func (a Appointment) WaitMinutes() int {
	arrived, ok := a.ArrivedAt()
	if !ok || a.ActualStart == nil {
		return 0
	}
	m := int(a.ActualStart.Sub(arrived).Minutes())
	if m < 0 {
		return 0
	}
	return m
}

// ShouldSendReminder reports whether a reminder is due: never reminded,
// still scheduled, and the time to the appointment falls inside a window of
// 60 minutes for urgent/high bookings and 24 hours otherwise.
func (a Appointment) ShouldSendReminder(now time.Time) bool {
	if a.ReminderSent || a.Status != StatusScheduled {
		return false
	}
	until := a.Slot.Start.Sub(now)
	if until <= 0 {
		return false
	}
	window := reminderWindowRoutine
	if a.IsUrgent() {
		window = reminderWindowUrgent
	}
	return until <= window
}

// PriorityScore ranks the appointment 0-10 from urgency, overdue state,
// recorded wait and an emergency-type bonus.
func (a Appointment) PriorityScore(now time.Time) int {
	score := 0

	switch a.Urgency {
	case UrgencyUrgent:
		score += 4
	case UrgencyHigh:
		score += 3
	case UrgencyMedium:
		score++
	}

	if a.IsOverdue(now) {
		score += 2
	}

	switch waited := a.WaitMinutes(); {
	case waited >= 60:
		score += 3
	case waited >= 30:
		score += 2
	case waited >= 15:
		score++
	}

	if a.Type == TypeEmergency {
		score += 2
	}

	if score > 10 {
		score = 10
	}
	return score
}

// -- Transitions --

// MarkAsArrived records the patient's arrival inside the check-in window.
func (a Appointment) MarkAsArrived(actor string, at time.Time) (Appointment, error) {
	if !a.CanBeCheckedIn(at) {
		return Appointment{}, a.stateError("mark as arrived", "outside the check-in window or not scheduled")
	}
	next := a.clone()
	next.Status = StatusArrived
	next.appendHistory(StatusArrived, actor, nil, nil, at)
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Appointment{}, err
	}
	return next, nil
}

// StartAppointment begins the consultation and stamps the actual start time.
func (a Appointment) StartAppointment(actor string, at time.Time) (Appointment, error) {
	if !a.IsReadyToStart(at) {
		return Appointment{}, a.stateError("start", "appointment is not ready to start")
	}
	next := a.clone()
	next.Status = StatusInProgress
	start := at
	next.ActualStart = &start
	next.appendHistory(StatusInProgress, actor, nil, nil, at)
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Appointment{}, err
	}
	return next, nil
}

// CompleteAppointment closes an in-progress appointment. The actual end must
// fall strictly after the actual start.
func (a Appointment) CompleteAppointment(actor string, notes *string, at time.Time) (Appointment, error) {
	if a.Status != StatusInProgress {
		return Appointment{}, a.stateError("complete", "appointment is not in progress")
	}
	if a.ActualStart == nil {
		return Appointment{}, a.stateError("complete", "appointment has no actual start time")
	}
	if !at.After(*a.ActualStart) {
		return Appointment{}, a.stateError("complete", "end time must be after the actual start")
	}
	next := a.clone()
	next.Status = StatusCompleted
	end := at
	next.ActualEnd = &end
	next.appendHistory(StatusCompleted, actor, nil, notes, at)
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Appointment{}, err
	}
	return next, nil
}

// MarkAsNoShow records that the patient never arrived.
func (a Appointment) MarkAsNoShow(actor string, reason *string, at time.Time) (Appointment, error) {
	if a.Status != StatusScheduled && a.Status != StatusArrived {
		return Appointment{}, a.stateError("mark as no-show", "only scheduled or arrived appointments can no-show")
	}
	next := a.clone()
	next.Status = StatusNoShow
	next.appendHistory(StatusNoShow, actor, reason, nil, at)
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Appointment{}, err
	}
	return next, nil
}

// Cancel cancels the appointment from any state except completed, no_show
// and cancelled. Any recorded actual times are discarded so the cancelled
// snapshot carries none.
func (a Appointment) Cancel(actor string, reason *string, at time.Time) (Appointment, error) {
	switch a.Status {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return Appointment{}, a.stateError("cancel", "appointment is already finalized")
	}
	next := a.clone()
	next.Status = StatusCancelled
	next.ActualStart = nil
	next.ActualEnd = nil
	next.appendHistory(StatusCancelled, actor, reason, nil, at)
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Appointment{}, err
	}
	return next, nil
}

// MarkReminderSent records that the reminder went out.
func (a Appointment) MarkReminderSent(at time.Time) (Appointment, error) {
	next := a.clone()
	next.ReminderSent = true
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Appointment{}, err
	}
	return next, nil
}

func (a *Appointment) appendHistory(status Status, actor string, reason, notes *string, at time.Time) {
	a.History = append(a.History, HistoryEntry{
		Status:    status,
		Timestamp: at,
		Actor:     actor,
		Reason:    reason,
		Notes:     notes,
	})
}

func (a Appointment) stateError(op, reason string) error {
	return &errs.InvalidStateError{
		Entity:    "appointment",
		ID:        a.ID.String(),
		Operation: op,
		Current:   string(a.Status),
		Reason:    reason,
	}
}
