package patient

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
)

// Status is the per-visit lifecycle state of a patient.
type Status string

const (
	StatusWaiting        Status = "waiting"
	StatusInConsultation Status = "in_consultation"
	StatusCompleted      Status = "completed"
	StatusNoShow         Status = "no_show"
	StatusCancelled      Status = "cancelled"
)

// InsuranceStatus is the state of a patient's insurance policy.
type InsuranceStatus string

const (
	InsuranceActive  InsuranceStatus = "active"
	InsuranceExpired InsuranceStatus = "expired"
	InsurancePending InsuranceStatus = "pending"
	InsuranceNone    InsuranceStatus = "none"
)

// EmergencyContact is the mandatory contact sub-record on every patient.
type EmergencyContact struct {
	Name         string  `db:"ec_name" json:"name"`
	Phone        string  `db:"ec_phone" json:"phone"`
	Email        *string `db:"ec_email" json:"email,omitempty"`
	Relationship *string `db:"ec_relationship" json:"relationship,omitempty"`
	Verified     bool    `db:"ec_verified" json:"verified"`
}

// Insurance is the optional insurance sub-record.
type Insurance struct {
	Provider     string          `json:"provider"`
	PolicyNumber string          `json:"policy_number"`
	Status       InsuranceStatus `json:"status"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	Copay        *float64        `json:"copay,omitempty"`
}

// IsExpired reports whether the policy is marked expired or is past its
// expiration date as of now.
func (i *Insurance) IsExpired(now time.Time) bool {
	if i == nil {
		return false
	}
	if i.Status == InsuranceExpired {
		return true
	}
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

// CheckInRecord exists if and only if the patient has been checked in during
// the current visit.
type CheckInRecord struct {
	Time                 time.Time `json:"time"`
	CheckedInBy          string    `json:"checked_in_by"`
	Location             *string   `json:"location,omitempty"`
	SpecialNeeds         []string  `json:"special_needs,omitempty"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
}

// Patient is the per-visit patient aggregate. It is a value type: every
// transition returns a new, re-validated snapshot and never mutates the
// receiver.
type Patient struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	MRN              string           `db:"mrn" json:"mrn"`
	FirstName        string           `db:"first_name" json:"first_name"`
	LastName         string           `db:"last_name" json:"last_name"`
	BirthDate        time.Time        `db:"birth_date" json:"birth_date"`
	Minor            bool             `db:"minor" json:"minor"`
	Phone            string           `db:"phone" json:"phone"`
	Email            string           `db:"email" json:"email"`
	Address          *string          `db:"address" json:"address,omitempty"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
	Insurance        *Insurance       `json:"insurance,omitempty"`
	Status           Status           `db:"status" json:"status"`
	CheckInRecord    *CheckInRecord   `json:"check_in,omitempty"`
	SpecialNeeds     bool             `db:"special_needs" json:"special_needs"`
	Notes            string           `db:"notes" json:"notes,omitempty"`
	ClinicID         *uuid.UUID       `db:"clinic_id" json:"clinic_id,omitempty"`
	WorkspaceID      *uuid.UUID       `db:"workspace_id" json:"workspace_id,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

const (
	baseWaitMinutes         = 15
	specialAttentionFactor  = 0.8
	maxAgeYears             = 150
	adultAge                = 18
	seniorAge               = 65
	excessiveWaitMinutes    = 45
	excessiveWaitSpecialMin = 30
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// New validates and returns a fresh patient snapshot. Missing status defaults
// to waiting; id and timestamps are stamped when absent.
func New(p Patient, now time.Time) (Patient, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusWaiting
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	p = p.clone()
	if err := p.Validate(now); err != nil {
		return Patient{}, err
	}
	return p, nil
}

// clone deep-copies the pointer and slice fields so snapshots stay
// independent of each other.
func (p Patient) clone() Patient {
	if p.Address != nil {
		v := *p.Address
		p.Address = &v
	}
	if p.EmergencyContact.Email != nil {
		v := *p.EmergencyContact.Email
		p.EmergencyContact.Email = &v
	}
	if p.EmergencyContact.Relationship != nil {
		v := *p.EmergencyContact.Relationship
		p.EmergencyContact.Relationship = &v
	}
	if p.Insurance != nil {
		ins := *p.Insurance
		if ins.ExpiresAt != nil {
			t := *ins.ExpiresAt
			ins.ExpiresAt = &t
		}
		if ins.Copay != nil {
			c := *ins.Copay
			ins.Copay = &c
		}
		p.Insurance = &ins
	}
	if p.CheckInRecord != nil {
		ci := *p.CheckInRecord
		if ci.Location != nil {
			l := *ci.Location
			ci.Location = &l
		}
		ci.SpecialNeeds = append([]string(nil), ci.SpecialNeeds...)
		p.CheckInRecord = &ci
	}
	if p.ClinicID != nil {
		v := *p.ClinicID
		p.ClinicID = &v
	}
	if p.WorkspaceID != nil {
		v := *p.WorkspaceID
		p.WorkspaceID = &v
	}
	return p
}

var validStatuses = map[Status]bool{
	StatusWaiting:        true,
	StatusInConsultation: true,
	StatusCompleted:      true,
	StatusNoShow:         true,
	StatusCancelled:      true,
}

// Validate checks every construction-time invariant. It runs on each new
// snapshot, not only at first creation.
func (p Patient) Validate(now time.Time) error {
	fail := func(field, reason string) error {
		return &errs.ValidationError{Entity: "patient", Field: field, Reason: reason}
	}

	if strings.TrimSpace(p.FirstName) == "" {
		return fail("first_name", "must not be empty")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fail("last_name", "must not be empty")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return fail("phone", "must not be empty")
	}
	if !emailRe.MatchString(p.Email) {
		return fail("email", fmt.Sprintf("%q is not a valid email address", p.Email))
	}
	if strings.TrimSpace(p.MRN) == "" {
		return fail("mrn", "medical record number must not be empty")
	}
	if p.ClinicID == nil && p.WorkspaceID == nil {
		return fail("scope", "either clinic_id or workspace_id must be set")
	}
	if p.ClinicID != nil && p.WorkspaceID != nil {
		return fail("scope", "clinic_id and workspace_id are mutually exclusive")
	}
	if !validStatuses[p.Status] {
		return fail("status", fmt.Sprintf("invalid status %q", p.Status))
	}

	if p.BirthDate.After(now) {
		return fail("birth_date", "must not be in the future")
	}
	age := p.Age(now)
	if age < 0 || age > maxAgeYears {
		return fail("birth_date", fmt.Sprintf("derived age %d is out of range", age))
	}
	if p.Minor != (age < adultAge) {
		return fail("minor", fmt.Sprintf("minor flag %t disagrees with age %d", p.Minor, age))
	}

	if strings.TrimSpace(p.EmergencyContact.Name) == "" {
		return fail("emergency_contact.name", "must not be empty")
	}
	if strings.TrimSpace(p.EmergencyContact.Phone) == "" {
		return fail("emergency_contact.phone", "must not be empty")
	}
	if p.EmergencyContact.Email != nil && !emailRe.MatchString(*p.EmergencyContact.Email) {
		return fail("emergency_contact.email", "is not a valid email address")
	}

	if p.Insurance != nil {
		if strings.TrimSpace(p.Insurance.Provider) == "" {
			return fail("insurance.provider", "must not be empty")
		}
		if strings.TrimSpace(p.Insurance.PolicyNumber) == "" {
			return fail("insurance.policy_number", "must not be empty")
		}
		if p.Insurance.Copay != nil && *p.Insurance.Copay < 0 {
			return fail("insurance.copay", "must not be negative")
		}
		// An expired policy is an advisory, not a failure; see Advisories.
	}
	return nil
}

// Advisories returns the non-fatal findings on an otherwise valid snapshot.
func (p Patient) Advisories(now time.Time) []string {
	var out []string
	if p.Insurance.IsExpired(now) {
		out = append(out, "insurance policy is expired")
	}
	return out
}

// -- Derived queries --

// FullName returns "First Last".
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age returns the patient's age in whole years as of now.
func (p Patient) Age(now time.Time) int {
	years := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// IsMinor reports whether the patient is under 18.
func (p Patient) IsMinor() bool { return p.Minor }

// IsCheckedIn reports whether a check-in record exists for the current visit.
func (p Patient) IsCheckedIn() bool { return p.CheckInRecord != nil }

// CanBeCheckedIn reports whether a check-in is legal right now: the patient
// must be waiting and must not already hold a check-in record.
func (p Patient) CanBeCheckedIn() bool {
	return p.Status == StatusWaiting && p.CheckInRecord == nil
}

// MinutesWaited returns whole minutes since check-in, or 0 when the patient
// has not checked in.
func (p Patient) MinutesWaited(now time.Time) int {
	if p.CheckInRecord == nil {
		return 0
	}
	m := int(now.Sub(p.CheckInRecord.Time).Minutes())
	if m < 0 {
		return 0
	}
	return m
}

// RequiresSpecialAttention reports whether the patient needs front-desk
// priority handling: a standing special-needs flag, a minor, a senior,
// expired insurance, or special needs recorded at check-in.
func (p Patient) RequiresSpecialAttention(now time.Time) bool {
	if p.SpecialNeeds || p.Minor {
		return true
	}
	if p.Age(now) >= seniorAge {
		return true
	}
	if p.Insurance.IsExpired(now) {
		return true
	}
	return p.CheckInRecord != nil && len(p.CheckInRecord.SpecialNeeds) > 0
}

// HasExcessiveWait reports whether the current wait has crossed the
// tolerance threshold: 30 minutes for special-attention patients, 45
// otherwise.
func (p Patient) HasExcessiveWait(now time.Time) bool {
	limit := excessiveWaitMinutes
	if p.RequiresSpecialAttention(now) {
		limit = excessiveWaitSpecialMin
	}
	return p.MinutesWaited(now) > limit
}

// PriorityScore ranks the patient 0-10 from age bracket, special-needs
// signals, current wait and insurance status. Higher scores are seen first.
func (p Patient) PriorityScore(now time.Time) int {
	score := 0

	switch age := p.Age(now); {
	case age < 5:
		score += 3
	case age < adultAge:
		score += 2
	case age >= 80:
		score += 3
	case age >= seniorAge:
		score += 2
	}

	if p.SpecialNeeds {
		score += 2
	}
	if p.CheckInRecord != nil && len(p.CheckInRecord.SpecialNeeds) > 0 {
		score++
	}

	switch waited := p.MinutesWaited(now); {
	case waited >= 60:
		score += 3
	case waited >= 30:
		score += 2
	case waited >= 15:
		score++
	}

	if p.Insurance.IsExpired(now) {
		score++
	}

	if score > 10 {
		score = 10
	}
	return score
}

// EstimatedWaitMinutes is the server-independent wait heuristic: a 15 minute
// base, scaled by 0.8 when the patient requires special attention.
func (p Patient) EstimatedWaitMinutes(now time.Time) int {
	est := float64(baseWaitMinutes)
	if p.RequiresSpecialAttention(now) {
		est *= specialAttentionFactor
	}
	return int(est)
}

// -- Transitions --

// CheckIn records the patient's arrival. Legal only while waiting with no
// existing check-in record.
func (p Patient) CheckIn(actor string, location *string, specialNeeds []string, at time.Time) (Patient, error) {
	if !p.CanBeCheckedIn() {
		return Patient{}, p.stateError("check in", "patient cannot be checked in at this time")
	}
	next := p.clone()
	next.CheckInRecord = &CheckInRecord{
		Time:         at,
		CheckedInBy:  actor,
		Location:     location,
		SpecialNeeds: append([]string(nil), specialNeeds...),
	}
	next.CheckInRecord.EstimatedWaitMinutes = next.EstimatedWaitMinutes(at)
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Patient{}, err
	}
	return next, nil
}

// StartConsultation moves a checked-in waiting patient into consultation and
// appends an audit note.
func (p Patient) StartConsultation(professionalID uuid.UUID, at time.Time) (Patient, error) {
	if p.Status != StatusWaiting || p.CheckInRecord == nil {
		return Patient{}, p.stateError("start consultation", "patient must be waiting and checked in")
	}
	next := p.clone()
	next.Status = StatusInConsultation
	next.Notes = appendNote(next.Notes,
		fmt.Sprintf("consultation started at %s by professional %s", at.Format(time.RFC3339), professionalID))
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Patient{}, err
	}
	return next, nil
}

// CompleteVisit closes a consultation.
func (p Patient) CompleteVisit(actor string, notes *string, at time.Time) (Patient, error) {
	if p.Status != StatusInConsultation {
		return Patient{}, p.stateError("complete visit", "patient is not in consultation")
	}
	next := p.clone()
	next.Status = StatusCompleted
	next.Notes = appendNote(next.Notes,
		fmt.Sprintf("visit completed at %s by %s", at.Format(time.RFC3339), actor))
	if notes != nil && *notes != "" {
		next.Notes = appendNote(next.Notes, *notes)
	}
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Patient{}, err
	}
	return next, nil
}

// MarkAsNoShow records that a waiting patient never presented.
func (p Patient) MarkAsNoShow(actor string, reason *string, at time.Time) (Patient, error) {
	if p.Status != StatusWaiting {
		return Patient{}, p.stateError("mark as no-show", "patient is not waiting")
	}
	next := p.clone()
	next.Status = StatusNoShow
	note := fmt.Sprintf("marked no-show at %s by %s", at.Format(time.RFC3339), actor)
	if reason != nil && *reason != "" {
		note += ": " + *reason
	}
	next.Notes = appendNote(next.Notes, note)
	next.UpdatedAt = at
	if err := next.Validate(at); err != nil {
		return Patient{}, err
	}
	return next, nil
}

func (p Patient) stateError(op, reason string) error {
	return &errs.InvalidStateError{
		Entity:    "patient",
		ID:        p.ID.String(),
		Operation: op,
		Current:   string(p.Status),
		Reason:    reason,
	}
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}
