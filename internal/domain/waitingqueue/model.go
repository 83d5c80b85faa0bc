package waitingqueue

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
)

// Status is the queue lifecycle state. Only active and paused have defined
// transitions; closed is loadable but terminal in this core.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusClosed Status = "closed"
)

// Urgency ranks a queue entry. The queue keeps its own urgency scale so it
// stays independent of the appointment aggregate.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

var urgencyRank = map[Urgency]int{
	UrgencyLow:    0,
	UrgencyMedium: 1,
	UrgencyHigh:   2,
	UrgencyUrgent: 3,
}

// SortMethod selects the tie-break rule for ResortQueue.
type SortMethod string

const (
	SortByPriority        SortMethod = "priority"
	SortByUrgency         SortMethod = "urgency"
	SortByAppointmentTime SortMethod = "appointment_time"
	SortByArrivalTime     SortMethod = "arrival_time"
)

// Config tunes queue behavior.
type Config struct {
	MaxWaitMinutes         int     `json:"max_wait_minutes"`
	MaxSize                int     `json:"max_size"`
	EstimatedServiceTime   int     `json:"estimated_service_time"` // minutes per patient
	UrgentPriorityWeight   float64 `json:"urgent_priority_weight"`
	AllowWalkIns           bool    `json:"allow_walk_ins"`
	PrioritizeAppointments bool    `json:"prioritize_appointments"`
}

// DefaultConfig returns the standard front-desk queue configuration.
func DefaultConfig() Config {
	return Config{
		MaxWaitMinutes:         120,
		MaxSize:                50,
		EstimatedServiceTime:   15,
		UrgentPriorityWeight:   5,
		AllowWalkIns:           true,
		PrioritizeAppointments: true,
	}
}

// Item is one queue entry. Position is 1-based and, across every queue
// state, positions form a contiguous permutation of 1..N.
type Item struct {
	ID                   uuid.UUID  `json:"id"`
	PatientID            uuid.UUID  `json:"patient_id"`
	AppointmentID        *uuid.UUID `json:"appointment_id,omitempty"`
	ArrivedAt            time.Time  `json:"arrived_at"`
	Priority             float64    `json:"priority"` // 1-10
	Urgency              Urgency    `json:"urgency"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	ActualWaitMinutes    *int       `json:"actual_wait_minutes,omitempty"`
	Position             int        `json:"position"`
	WalkIn               bool       `json:"walk_in"`
	RequiresTranslation  bool       `json:"requires_translation"`
	HasInsuranceIssue    bool       `json:"has_insurance_issue"`
	SpecialNeeds         []string   `json:"special_needs,omitempty"`
}

// Queue is the waiting-queue aggregate. Every structural operation returns a
// new queue value with positions and wait estimates recomputed; a queue is
// never left partially updated.
type Queue struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Location        string      `json:"location"`
	Status          Status      `json:"status"`
	Items           []Item      `json:"items"` // ordered by Position
	Config          Config      `json:"config"`
	ProfessionalIDs []uuid.UUID `json:"professional_ids"`
	ClinicID        *uuid.UUID  `json:"clinic_id,omitempty"`
	WorkspaceID     *uuid.UUID  `json:"workspace_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// AddRequest describes the patient being enqueued.
type AddRequest struct {
	PatientID           uuid.UUID  `json:"patient_id"`
	AppointmentID       *uuid.UUID `json:"appointment_id,omitempty"`
	ProfessionalID      uuid.UUID  `json:"professional_id"`
	Urgency             Urgency    `json:"urgency"`
	WalkIn              bool       `json:"walk_in"`
	SpecialNeeds        []string   `json:"special_needs,omitempty"`
	RequiresTranslation bool       `json:"requires_translation"`
	HasInsuranceIssue   bool       `json:"has_insurance_issue"`
}

// Metrics are the live aggregate numbers for a queue.
type Metrics struct {
	TotalPatients              int     `json:"total_patients"`
	AverageWaitMinutes         float64 `json:"average_wait_minutes"`
	LongestWaitMinutes         int     `json:"longest_wait_minutes"`
	UrgentCount                int     `json:"urgent_count"`
	WalkInCount                int     `json:"walk_in_count"`
	AppointmentCount           int     `json:"appointment_count"`
	SpecialNeedsCount          int     `json:"special_needs_count"`
	EstimatedThroughputMinutes int     `json:"estimated_throughput_minutes"`
}

// New validates and returns a fresh queue snapshot.
func New(q Queue, now time.Time) (Queue, error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Status == "" {
		q.Status = StatusActive
	}
	if q.Config == (Config{}) {
		q.Config = DefaultConfig()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = now
	}
	q = q.clone()
	if err := q.Validate(); err != nil {
		return Queue{}, err
	}
	return q, nil
}

func (q Queue) clone() Queue {
	items := make([]Item, len(q.Items))
	copy(items, q.Items)
	for i := range items {
		if items[i].AppointmentID != nil {
			v := *items[i].AppointmentID
			items[i].AppointmentID = &v
		}
		if items[i].ActualWaitMinutes != nil {
			v := *items[i].ActualWaitMinutes
			items[i].ActualWaitMinutes = &v
		}
		items[i].SpecialNeeds = append([]string(nil), items[i].SpecialNeeds...)
	}
	q.Items = items
	q.ProfessionalIDs = append([]uuid.UUID(nil), q.ProfessionalIDs...)
	if q.ClinicID != nil {
		v := *q.ClinicID
		q.ClinicID = &v
	}
	if q.WorkspaceID != nil {
		v := *q.WorkspaceID
		q.WorkspaceID = &v
	}
	return q
}

// Validate checks the queue invariants, in particular that item positions
// are a contiguous 1..N permutation with no duplicates.
func (q Queue) Validate() error {
	fail := func(field, reason string) error {
		return &errs.ValidationError{Entity: "waiting_queue", Field: field, Reason: reason}
	}

	if strings.TrimSpace(q.Name) == "" {
		return fail("name", "must not be empty")
	}
	switch q.Status {
	case StatusActive, StatusPaused, StatusClosed:
	default:
		return fail("status", fmt.Sprintf("invalid status %q", q.Status))
	}
	if len(q.ProfessionalIDs) == 0 {
		return fail("professional_ids", "queue must serve at least one professional")
	}
	if q.ClinicID == nil && q.WorkspaceID == nil {
		return fail("scope", "either clinic_id or workspace_id must be set")
	}
	if q.ClinicID != nil && q.WorkspaceID != nil {
		return fail("scope", "clinic_id and workspace_id are mutually exclusive")
	}
	if q.Config.EstimatedServiceTime <= 0 {
		return fail("config.estimated_service_time", "must be positive")
	}

	seen := make(map[int]bool, len(q.Items))
	for _, it := range q.Items {
		if it.Position < 1 || it.Position > len(q.Items) {
			return fail("items", fmt.Sprintf("position %d out of range 1..%d", it.Position, len(q.Items)))
		}
		if seen[it.Position] {
			return fail("items", fmt.Sprintf("duplicate position %d", it.Position))
		}
		seen[it.Position] = true
		if it.Priority < 1 || it.Priority > 10 {
			return fail("items", fmt.Sprintf("priority %.1f out of range 1..10", it.Priority))
		}
	}
	return nil
}

// CanAcceptPatients reports whether the queue is open for new entries.
func (q Queue) CanAcceptPatients() bool {
	if q.Status != StatusActive {
		return false
	}
	return q.Config.MaxSize <= 0 || len(q.Items) < q.Config.MaxSize
}

// HasPatient reports whether the patient already occupies a slot.
func (q Queue) HasPatient(patientID uuid.UUID) bool {
	for _, it := range q.Items {
		if it.PatientID == patientID {
			return true
		}
	}
	return false
}

func (q Queue) servesProfessional(id uuid.UUID) bool {
	for _, p := range q.ProfessionalIDs {
		if p == id {
			return true
		}
	}
	return false
}

// AddPatient inserts a new entry at its computed position: urgent entries go
// to the front, appointment holders slot ahead of walk-ins when the queue is
// configured to prioritize appointments, and everything else appends.
func (q Queue) AddPatient(req AddRequest, at time.Time) (Queue, error) {
	if !q.CanAcceptPatients() {
		return Queue{}, &errs.InvalidStateError{
			Entity: "waiting_queue", ID: q.ID.String(), Operation: "add patient",
			Current: string(q.Status), Reason: "queue is not accepting new patients",
		}
	}
	if req.WalkIn && !q.Config.AllowWalkIns {
		return Queue{}, &errs.InvalidStateError{
			Entity: "waiting_queue", ID: q.ID.String(), Operation: "add patient",
			Current: string(q.Status), Reason: "walk-ins are not allowed on this queue",
		}
	}
	if !q.servesProfessional(req.ProfessionalID) {
		return Queue{}, &errs.ValidationError{
			Entity: "waiting_queue", Field: "professional_id",
			Reason: fmt.Sprintf("professional %s is not assigned to this queue", req.ProfessionalID),
		}
	}
	if q.HasPatient(req.PatientID) {
		return Queue{}, &errs.ConsistencyError{
			Entity: "waiting_queue", ID: q.ID.String(),
			Related: "patient " + req.PatientID.String(),
			Reason:  "patient is already in the queue",
		}
	}
	if req.Urgency == "" {
		req.Urgency = UrgencyMedium
	}

	next := q.clone()
	pos := next.insertPosition(req)

	// Shift everyone at or behind the slot back by one.
	for i := range next.Items {
		if next.Items[i].Position >= pos {
			next.Items[i].Position++
			next.Items[i].EstimatedWaitMinutes = (next.Items[i].Position - 1) * next.Config.EstimatedServiceTime
		}
	}

	next.Items = append(next.Items, Item{
		ID:                   uuid.New(),
		PatientID:            req.PatientID,
		AppointmentID:        req.AppointmentID,
		ArrivedAt:            at,
		Priority:             q.priorityFor(req),
		Urgency:              req.Urgency,
		EstimatedWaitMinutes: (pos - 1) * next.Config.EstimatedServiceTime,
		Position:             pos,
		WalkIn:               req.WalkIn,
		RequiresTranslation:  req.RequiresTranslation,
		HasInsuranceIssue:    req.HasInsuranceIssue,
		SpecialNeeds:         append([]string(nil), req.SpecialNeeds...),
	})
	next.sortByPosition()
	next.UpdatedAt = at
	if err := next.Validate(); err != nil {
		return Queue{}, err
	}
	return next, nil
}

// insertPosition computes the 1-based slot for a new entry against the
// current (position-sorted) items.
func (q Queue) insertPosition(req AddRequest) int {
	if req.Urgency == UrgencyUrgent {
		return 1
	}
	if q.Config.PrioritizeAppointments && !req.WalkIn {
		for _, it := range q.Items {
			if it.WalkIn {
				// Take the first walk-in's slot, pushing all walk-ins back.
				return it.Position
			}
		}
	}
	return len(q.Items) + 1
}

// priorityFor scores a new entry 1-10: a base of 1, the urgency weight, half
// a point per special need, a walk-in penalty when appointments are
// prioritized, and a bump for insurance issues.
func (q Queue) priorityFor(req AddRequest) float64 {
	score := 1.0
	switch req.Urgency {
	case UrgencyUrgent:
		score += q.Config.UrgentPriorityWeight
	case UrgencyHigh:
		score += 3
	case UrgencyMedium:
		score++
	}
	score += 0.5 * float64(len(req.SpecialNeeds))
	if req.WalkIn && q.Config.PrioritizeAppointments {
		score--
	}
	if req.HasInsuranceIssue {
		score++
	}
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

// RemovePatient deletes the patient's entry and compacts the remaining
// positions back to a contiguous 1..N sequence.
func (q Queue) RemovePatient(patientID uuid.UUID, at time.Time) (Queue, error) {
	idx := -1
	for i, it := range q.Items {
		if it.PatientID == patientID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Queue{}, &errs.NotFoundError{Entity: "queue item", ID: patientID.String()}
	}
	next := q.clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	next.sortByPosition()
	next.renumber()
	next.UpdatedAt = at
	if err := next.Validate(); err != nil {
		return Queue{}, err
	}
	return next, nil
}

// MovePatient extracts the entry and reinserts it at the requested 1-based
// slot. Out-of-range targets clamp to the queue bounds.
func (q Queue) MovePatient(patientID uuid.UUID, newPosition int, at time.Time) (Queue, error) {
	idx := -1
	for i, it := range q.Items {
		if it.PatientID == patientID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Queue{}, &errs.NotFoundError{Entity: "queue item", ID: patientID.String()}
	}
	next := q.clone()
	next.sortByPosition()

	// Extract, then reinsert at the requested slot.
	var moved Item
	ordered := make([]Item, 0, len(next.Items))
	for _, it := range next.Items {
		if it.PatientID == patientID {
			moved = it
			continue
		}
		ordered = append(ordered, it)
	}
	if newPosition < 1 {
		newPosition = 1
	}
	if newPosition > len(ordered)+1 {
		newPosition = len(ordered) + 1
	}
	ordered = append(ordered[:newPosition-1], append([]Item{moved}, ordered[newPosition-1:]...)...)

	next.Items = ordered
	next.renumber()
	next.UpdatedAt = at
	if err := next.Validate(); err != nil {
		return Queue{}, err
	}
	return next, nil
}

// ResortQueue re-derives the ordering from the given tie-break rule and
// renumbers positions and wait estimates. Ties keep their current relative
// order.
func (q Queue) ResortQueue(method SortMethod, at time.Time) (Queue, error) {
	next := q.clone()
	next.sortByPosition()

	switch method {
	case SortByPriority:
		sort.SliceStable(next.Items, func(i, j int) bool {
			return next.Items[i].Priority > next.Items[j].Priority
		})
	case SortByUrgency:
		sort.SliceStable(next.Items, func(i, j int) bool {
			return urgencyRank[next.Items[i].Urgency] > urgencyRank[next.Items[j].Urgency]
		})
	case SortByAppointmentTime:
		// Walk-ins always sort after scheduled entries; arrival time breaks
		// ties within each group.
		sort.SliceStable(next.Items, func(i, j int) bool {
			a, b := next.Items[i], next.Items[j]
			if a.WalkIn != b.WalkIn {
				return !a.WalkIn
			}
			return a.ArrivedAt.Before(b.ArrivedAt)
		})
	case SortByArrivalTime, "":
		sort.SliceStable(next.Items, func(i, j int) bool {
			return next.Items[i].ArrivedAt.Before(next.Items[j].ArrivedAt)
		})
	default:
		return Queue{}, &errs.ValidationError{
			Entity: "waiting_queue", Field: "sort_method",
			Reason: fmt.Sprintf("unknown sort method %q", method),
		}
	}

	next.renumber()
	next.UpdatedAt = at
	if err := next.Validate(); err != nil {
		return Queue{}, err
	}
	return next, nil
}

// UpdateConfig replaces the configuration and recomputes wait estimates.
func (q Queue) UpdateConfig(cfg Config, at time.Time) (Queue, error) {
	next := q.clone()
	next.Config = cfg
	next.sortByPosition()
	next.renumber()
	next.UpdatedAt = at
	if err := next.Validate(); err != nil {
		return Queue{}, err
	}
	return next, nil
}

// Pause suspends an active queue.
func (q Queue) Pause(at time.Time) (Queue, error) {
	if q.Status != StatusActive {
		return Queue{}, &errs.InvalidStateError{
			Entity: "waiting_queue", ID: q.ID.String(), Operation: "pause",
			Current: string(q.Status), Reason: "only an active queue can be paused",
		}
	}
	next := q.clone()
	next.Status = StatusPaused
	next.UpdatedAt = at
	return next, nil
}

// Resume reactivates a paused queue.
func (q Queue) Resume(at time.Time) (Queue, error) {
	if q.Status != StatusPaused {
		return Queue{}, &errs.InvalidStateError{
			Entity: "waiting_queue", ID: q.ID.String(), Operation: "resume",
			Current: string(q.Status), Reason: "only a paused queue can be resumed",
		}
	}
	next := q.clone()
	next.Status = StatusActive
	next.UpdatedAt = at
	return next, nil
}

// GetMetrics computes the live queue numbers. Waits are measured from each
// entry's arrival to now.
func (q Queue) GetMetrics(now time.Time) Metrics {
	m := Metrics{
		TotalPatients:              len(q.Items),
		EstimatedThroughputMinutes: len(q.Items) * q.Config.EstimatedServiceTime,
	}
	if len(q.Items) == 0 {
		return m
	}
	total := 0
	for _, it := range q.Items {
		waited := int(now.Sub(it.ArrivedAt).Minutes())
		if waited < 0 {
			waited = 0
		}
		total += waited
		if waited > m.LongestWaitMinutes {
			m.LongestWaitMinutes = waited
		}
		if it.Urgency == UrgencyUrgent {
			m.UrgentCount++
		}
		if it.WalkIn {
			m.WalkInCount++
		} else {
			m.AppointmentCount++
		}
		if len(it.SpecialNeeds) > 0 {
			m.SpecialNeedsCount++
		}
	}
	m.AverageWaitMinutes = float64(total) / float64(len(q.Items))
	return m
}

// NextPatient returns the entry at position 1, if any.
func (q Queue) NextPatient() (Item, bool) {
	for _, it := range q.Items {
		if it.Position == 1 {
			return it, true
		}
	}
	return Item{}, false
}

func (q *Queue) sortByPosition() {
	sort.SliceStable(q.Items, func(i, j int) bool {
		return q.Items[i].Position < q.Items[j].Position
	})
}

// renumber assigns contiguous positions following the current slice order
// and recomputes each entry's estimated wait.
func (q *Queue) renumber() {
	for i := range q.Items {
		q.Items[i].Position = i + 1
		q.Items[i].EstimatedWaitMinutes = i * q.Config.EstimatedServiceTime
	}
}
