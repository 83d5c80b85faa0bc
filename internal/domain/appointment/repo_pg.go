package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo returns the Postgres-backed appointment repository. Transition
// history is stored as a JSONB document alongside the flattened snapshot
// columns.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const apptCols = `id, patient_id, patient_name, patient_phone, patient_email, patient_birth_date,
	professional_id, professional_name, professional_specialization, professional_title,
	slot_start, slot_end, duration_minutes, status, urgency, appt_type, history,
	actual_start, actual_end, reminder_sent, clinic_id, workspace_id, created_at, updated_at`

func scopeCond(sc scope.Scope, n int) (string, []interface{}) {
	if sc.ClinicID != nil {
		return fmt.Sprintf("clinic_id = $%d", n), []interface{}{*sc.ClinicID}
	}
	return fmt.Sprintf("workspace_id = $%d", n), []interface{}{*sc.WorkspaceID}
}

func (r *repoPG) Create(ctx context.Context, sc scope.Scope, a Appointment) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	row, err := toRow(a)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO appointment (
			id, patient_id, patient_name, patient_phone, patient_email, patient_birth_date,
			professional_id, professional_name, professional_specialization, professional_title,
			slot_start, slot_end, duration_minutes, status, urgency, appt_type, history,
			actual_start, actual_end, reminder_sent, clinic_id, workspace_id, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,
			$7,$8,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,
			$18,$19,$20,$21,$22,$23,$24
		)`, row...)
	if err != nil {
		return fmt.Errorf("insert appointment %s: %w", a.ID, err)
	}
	return nil
}

func (r *repoPG) FindByID(ctx context.Context, sc scope.Scope, id uuid.UUID) (Appointment, error) {
	if err := sc.Validate(); err != nil {
		return Appointment{}, err
	}
	cond, args := scopeCond(sc, 2)
	row := r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1 AND `+cond,
		append([]interface{}{id}, args...)...)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, &errs.NotFoundError{Entity: "appointment", ID: id.String()}
	}
	if err != nil {
		return Appointment{}, fmt.Errorf("find appointment %s: %w", id, err)
	}
	return a, nil
}

func (r *repoPG) FindByPatientAndDateRange(ctx context.Context, sc scope.Scope, patientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	cond, args := scopeCond(sc, 4)
	rows, err := r.pool.Query(ctx,
		`SELECT `+apptCols+` FROM appointment
		 WHERE patient_id = $1 AND slot_start >= $2 AND slot_start < $3 AND `+cond+`
		 ORDER BY slot_start`,
		append([]interface{}{patientID, from, to}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("find appointments for patient %s: %w", patientID, err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *repoPG) ListByPatient(ctx context.Context, sc scope.Scope, patientID uuid.UUID, limit, offset int) ([]Appointment, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}
	cond, args := scopeCond(sc, 2)
	args = append([]interface{}{patientID}, args...)

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE patient_id = $1 AND `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE patient_id = $1 AND `+cond+`
		 ORDER BY slot_start DESC LIMIT $3 OFFSET $4`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out, err := scanAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repoPG) Update(ctx context.Context, sc scope.Scope, a Appointment) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	row, err := toRow(a)
	if err != nil {
		return err
	}
	cond, args := scopeCond(sc, 25)
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment SET
			patient_id = $2, patient_name = $3, patient_phone = $4, patient_email = $5, patient_birth_date = $6,
			professional_id = $7, professional_name = $8, professional_specialization = $9, professional_title = $10,
			slot_start = $11, slot_end = $12, duration_minutes = $13,
			status = $14, urgency = $15, appt_type = $16, history = $17,
			actual_start = $18, actual_end = $19, reminder_sent = $20,
			clinic_id = $21, workspace_id = $22, created_at = $23, updated_at = $24
		WHERE id = $1 AND `+cond, append(row, args...)...)
	if err != nil {
		return fmt.Errorf("update appointment %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &errs.NotFoundError{Entity: "appointment", ID: a.ID.String()}
	}
	return nil
}

func toRow(a Appointment) ([]interface{}, error) {
	history, err := json.Marshal(a.History)
	if err != nil {
		return nil, fmt.Errorf("marshal history for appointment %s: %w", a.ID, err)
	}
	return []interface{}{
		a.ID, a.Patient.ID, a.Patient.Name, a.Patient.Phone, a.Patient.Email, a.Patient.BirthDate,
		a.Professional.ID, a.Professional.Name, a.Professional.Specialization, a.Professional.Title,
		a.Slot.Start, a.Slot.End, a.Slot.DurationMinutes,
		string(a.Status), string(a.Urgency), string(a.Type), history,
		a.ActualStart, a.ActualEnd, a.ReminderSent,
		a.ClinicID, a.WorkspaceID, a.CreatedAt, a.UpdatedAt,
	}, nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a                    Appointment
		status, urgency, typ string
		history              []byte
	)
	err := row.Scan(
		&a.ID, &a.Patient.ID, &a.Patient.Name, &a.Patient.Phone, &a.Patient.Email, &a.Patient.BirthDate,
		&a.Professional.ID, &a.Professional.Name, &a.Professional.Specialization, &a.Professional.Title,
		&a.Slot.Start, &a.Slot.End, &a.Slot.DurationMinutes,
		&status, &urgency, &typ, &history,
		&a.ActualStart, &a.ActualEnd, &a.ReminderSent,
		&a.ClinicID, &a.WorkspaceID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Appointment{}, err
	}
	a.Status = Status(status)
	a.Urgency = Urgency(urgency)
	a.Type = Type(typ)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.History); err != nil {
			return Appointment{}, fmt.Errorf("decode history for appointment %s: %w", a.ID, err)
		}
	}
	return a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
