// Package checkin orchestrates the cross-aggregate patient check-in
// workflow: request validation, patient and appointment transitions, two
// sequential repository writes, advisory queue positioning and warning
// assembly.
package checkin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/domain/appointment"
	"github.com/frontdesk/frontdesk/internal/domain/patient"
	"github.com/frontdesk/frontdesk/internal/platform/errs"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

const (
	maxSpecialNeeds   = 10
	staleRecordMonths = 6
	recentUpdateDays  = 7
)

// Request is a front-desk check-in request.
type Request struct {
	Scope             scope.Scope `json:"scope"`
	PatientID         uuid.UUID   `json:"patient_id"`
	AppointmentID     *uuid.UUID  `json:"appointment_id,omitempty"`
	Actor             string      `json:"actor"`
	Location          *string     `json:"location,omitempty"`
	SpecialNeeds      []string    `json:"special_needs,omitempty"`
	ArrivalTime       time.Time   `json:"arrival_time,omitempty"`
	InsuranceVerified bool        `json:"insurance_verified"`
}

// Result is the outcome of a successful check-in.
type Result struct {
	Patient                      patient.Patient          `json:"patient"`
	Appointment                  *appointment.Appointment `json:"appointment,omitempty"`
	Warnings                     []string                 `json:"warnings,omitempty"`
	EstimatedWaitMinutes         int                      `json:"estimated_wait_minutes"`
	QueuePosition                int                      `json:"queue_position"`
	NeedsInsuranceReverification bool                     `json:"needs_insurance_reverification"`
	NeedsFormUpdate              bool                     `json:"needs_form_update"`
}

// Auditor records check-in events. Implementations are best-effort: a
// failure here never fails the check-in itself.
type Auditor interface {
	RecordCheckIn(ctx context.Context, patientID uuid.UUID, appointmentID *uuid.UUID, actor string, at time.Time) error
}

// StatusCache holds short-lived waiting-room snapshots. Staleness is
// acceptable: the numbers are advisory dashboard data.
type StatusCache interface {
	Get(ctx context.Context, sc scope.Scope) (*WaitingRoomStatus, bool)
	Set(ctx context.Context, sc scope.Scope, st *WaitingRoomStatus)
}

// Service is the check-in orchestrator.
type Service struct {
	patients     patient.Repository
	appointments appointment.Repository
	audit        Auditor
	statusCache  StatusCache
	now          func() time.Time
}

// NewService wires the orchestrator. audit may be nil.
func NewService(patients patient.Repository, appointments appointment.Repository, audit Auditor) *Service {
	return &Service{
		patients:     patients,
		appointments: appointments,
		audit:        audit,
		now:          time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetStatusCache attaches an optional waiting-room status cache.
func (s *Service) SetStatusCache(c StatusCache) { s.statusCache = c }

// CheckInPatient performs the full check-in workflow. The patient write and
// the appointment write are two independent, sequential writes with no
// transaction: when the patient write commits and the appointment write
// fails the error is a PartialFailureError and the caller owns the retry.
// The returned queue position races with concurrent check-ins and is
// advisory only.
func (s *Service) CheckInPatient(ctx context.Context, req Request) (*Result, error) {
	now := s.now().UTC()
	at := req.ArrivalTime
	if at.IsZero() {
		at = now
	}

	if err := s.validateRequest(req, at, now); err != nil {
		return nil, err
	}

	p, err := s.patients.FindByID(ctx, req.Scope, req.PatientID)
	if err != nil {
		return nil, err
	}
	if !p.CanBeCheckedIn() {
		return nil, &errs.InvalidStateError{
			Entity:    "patient",
			ID:        p.ID.String(),
			Operation: "check in",
			Current:   string(p.Status),
			Reason:    "patient cannot be checked in at this time",
		}
	}

	var appt *appointment.Appointment
	if req.AppointmentID != nil {
		a, err := s.appointments.FindByID(ctx, req.Scope, *req.AppointmentID)
		if err != nil {
			return nil, err
		}
		if a.Patient.ID != p.ID {
			return nil, &errs.ConsistencyError{
				Entity:  "appointment",
				ID:      a.ID.String(),
				Related: "patient " + p.ID.String(),
				Reason:  "appointment belongs to a different patient",
			}
		}
		if !a.CanBeCheckedIn(at) {
			return nil, &errs.InvalidStateError{
				Entity:    "appointment",
				ID:        a.ID.String(),
				Operation: "check in",
				Current:   string(a.Status),
				Reason:    "appointment cannot be checked in at this time",
			}
		}
		appt = &a
	}

	needsInsurance := !req.InsuranceVerified && p.Insurance.IsExpired(at)
	needsFormUpdate := !p.EmergencyContact.Verified ||
		strings.TrimSpace(p.EmergencyContact.Phone) == "" ||
		recordIsStale(p.UpdatedAt, at)

	updated, err := p.CheckIn(req.Actor, req.Location, req.SpecialNeeds, at)
	if err != nil {
		return nil, err
	}

	var updatedAppt *appointment.Appointment
	if appt != nil {
		a, err := appt.MarkAsArrived(req.Actor, at)
		if err != nil {
			return nil, err
		}
		updatedAppt = &a
	}

	// Patient first, then appointment. Two independent writes.
	if err := s.patients.Update(ctx, req.Scope, updated); err != nil {
		return nil, fmt.Errorf("persist patient %s: %w", updated.ID, err)
	}
	if updatedAppt != nil {
		if err := s.appointments.Update(ctx, req.Scope, *updatedAppt); err != nil {
			return nil, &errs.PartialFailureError{
				Operation: "check-in",
				Succeeded: "patient",
				Failed:    "appointment",
				Err:       err,
			}
		}
	}

	result := &Result{
		Patient:                      updated,
		Appointment:                  updatedAppt,
		NeedsInsuranceReverification: needsInsurance,
		NeedsFormUpdate:              needsFormUpdate,
	}

	// The position read races with concurrent check-ins; it is an estimate
	// and its failure does not unwind the committed writes.
	ahead, err := s.patients.CountWaitingCheckedInBefore(ctx, req.Scope, at)
	if err != nil {
		result.Warnings = append(result.Warnings, "queue position unavailable")
	} else {
		result.QueuePosition = ahead + 1
		result.EstimatedWaitMinutes = updated.EstimatedWaitMinutes(at) * ahead
	}

	result.Warnings = append(result.Warnings, s.assembleWarnings(updated, updatedAppt, at)...)

	if s.audit != nil {
		// Best-effort; an audit failure never fails the check-in.
		_ = s.audit.RecordCheckIn(ctx, updated.ID, req.AppointmentID, req.Actor, at)
	}
	return result, nil
}

func (s *Service) validateRequest(req Request, at, now time.Time) error {
	fail := func(field, reason string) error {
		return &errs.ValidationError{Entity: "check_in_request", Field: field, Reason: reason}
	}
	if req.PatientID == uuid.Nil {
		return fail("patient_id", "must be set")
	}
	if strings.TrimSpace(req.Actor) == "" {
		return fail("actor", "must not be empty")
	}
	if at.After(now) {
		return fail("arrival_time", "must not be in the future")
	}
	if len(req.SpecialNeeds) > maxSpecialNeeds {
		return fail("special_needs", fmt.Sprintf("at most %d entries allowed", maxSpecialNeeds))
	}
	if err := req.Scope.Validate(); err != nil {
		return fail("scope", err.Error())
	}
	return nil
}

func (s *Service) assembleWarnings(p patient.Patient, a *appointment.Appointment, at time.Time) []string {
	var w []string
	if p.RequiresSpecialAttention(at) {
		w = append(w, "patient requires special attention")
	}
	if p.SpecialNeeds {
		w = append(w, "patient has special needs on record")
	}
	if p.IsMinor() {
		w = append(w, "patient is a minor; remind guardian to stay present")
	}
	if p.Age(at) >= 65 {
		w = append(w, "senior patient (65+)")
	}
	if p.Insurance.IsExpired(at) {
		w = append(w, "insurance policy is expired")
	}
	if a != nil {
		if a.IsOverdue(at) {
			w = append(w, "appointment is overdue")
		}
		if a.IsUrgent() {
			w = append(w, "appointment is marked urgent")
		}
	}
	if recordIsStale(p.UpdatedAt, at) {
		w = append(w, "patient record has not been updated in over 6 months")
	}
	return w
}

func recordIsStale(updatedAt, now time.Time) bool {
	return updatedAt.Before(now.AddDate(0, -staleRecordMonths, 0))
}

// VerificationData carries the demographics the patient confirmed at the
// desk.
type VerificationData struct {
	FirstName         *string `json:"first_name,omitempty"`
	LastName          *string `json:"last_name,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty"`
	Address           *string `json:"address,omitempty"`
	InsuranceVerified bool    `json:"insurance_verified"`
}

// FieldCheck is a single compared field in a verification report.
type FieldCheck struct {
	Field   string `json:"field"`
	Matches bool   `json:"matches"`
}

// VerificationReport summarizes how the confirmed data compares to the
// record and which follow-ups the desk should trigger.
type VerificationReport struct {
	PatientID                    uuid.UUID    `json:"patient_id"`
	Checks                       []FieldCheck `json:"checks"`
	Verified                     bool         `json:"verified"`
	NeedsInsuranceReverification bool         `json:"needs_insurance_reverification"`
	NeedsFormUpdate              bool         `json:"needs_form_update"`
}

// VerifyPatientInfo compares desk-confirmed demographics against the stored
// record without mutating it.
func (s *Service) VerifyPatientInfo(ctx context.Context, sc scope.Scope, patientID uuid.UUID, data VerificationData) (*VerificationReport, error) {
	if err := sc.Validate(); err != nil {
		return nil, &errs.ValidationError{Entity: "verification_request", Field: "scope", Reason: err.Error()}
	}
	p, err := s.patients.FindByID(ctx, sc, patientID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	report := &VerificationReport{PatientID: p.ID, Verified: true}
	check := func(field string, claimed *string, actual string) {
		if claimed == nil {
			return
		}
		matches := strings.EqualFold(strings.TrimSpace(*claimed), strings.TrimSpace(actual))
		report.Checks = append(report.Checks, FieldCheck{Field: field, Matches: matches})
		if !matches {
			report.Verified = false
		}
	}
	check("first_name", data.FirstName, p.FirstName)
	check("last_name", data.LastName, p.LastName)
	check("phone", data.Phone, p.Phone)
	check("email", data.Email, p.Email)
	if data.Address != nil {
		actual := ""
		if p.Address != nil {
			actual = *p.Address
		}
		check("address", data.Address, actual)
	}

	report.NeedsInsuranceReverification = !data.InsuranceVerified && p.Insurance.IsExpired(now)
	report.NeedsFormUpdate = !p.EmergencyContact.Verified || recordIsStale(p.UpdatedAt, now)
	return report, nil
}

// WaitingRoomStatus is the aggregate view of the waiting room.
type WaitingRoomStatus struct {
	Waiting        int       `json:"waiting"`
	InConsultation int       `json:"in_consultation"`
	Completed      int       `json:"completed"`
	NoShow         int       `json:"no_show"`
	Total          int       `json:"total"`
	AsOf           time.Time `json:"as_of"`
}

// GetWaitingRoomStatus returns live per-status patient counts for the scope.
func (s *Service) GetWaitingRoomStatus(ctx context.Context, sc scope.Scope) (*WaitingRoomStatus, error) {
	if err := sc.Validate(); err != nil {
		return nil, &errs.ValidationError{Entity: "waiting_room_request", Field: "scope", Reason: err.Error()}
	}
	if s.statusCache != nil {
		if st, ok := s.statusCache.Get(ctx, sc); ok {
			return st, nil
		}
	}
	counts, err := s.patients.CountByStatus(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("count patients by status: %w", err)
	}
	st := &WaitingRoomStatus{
		Waiting:        counts[patient.StatusWaiting],
		InConsultation: counts[patient.StatusInConsultation],
		Completed:      counts[patient.StatusCompleted],
		NoShow:         counts[patient.StatusNoShow],
		AsOf:           s.now().UTC(),
	}
	for _, n := range counts {
		st.Total += n
	}
	if s.statusCache != nil {
		s.statusCache.Set(ctx, sc, st)
	}
	return st, nil
}

// SearchRequest is a ranked patient search.
type SearchRequest struct {
	Scope   scope.Scope
	Term    string
	Filters patient.SearchFilters
	Limit   int
	Offset  int
}

// SearchPatients runs the repository search and ranks the hits: name match
// +10, MRN match +8, phone match +6, email match +4, record updated within 7
// days +2, descending.
func (s *Service) SearchPatients(ctx context.Context, req SearchRequest) ([]patient.Patient, error) {
	if err := req.Scope.Validate(); err != nil {
		return nil, &errs.ValidationError{Entity: "search_request", Field: "scope", Reason: err.Error()}
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	matches, _, err := s.patients.Search(ctx, req.Scope, req.Term, req.Filters, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}

	now := s.now().UTC()
	term := strings.ToLower(strings.TrimSpace(req.Term))
	score := func(p patient.Patient) int {
		if term == "" {
			return 0
		}
		n := 0
		if strings.Contains(strings.ToLower(p.FullName()), term) {
			n += 10
		}
		if strings.Contains(strings.ToLower(p.MRN), term) {
			n += 8
		}
		if strings.Contains(p.Phone, term) {
			n += 6
		}
		if strings.Contains(strings.ToLower(p.Email), term) {
			n += 4
		}
		if p.UpdatedAt.After(now.AddDate(0, 0, -recentUpdateDays)) {
			n += 2
		}
		return n
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return score(matches[i]) > score(matches[j])
	})
	return matches, nil
}
