package patient

import (
	"context"
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

// NewRepo returns the Postgres-backed patient repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, mrn, first_name, last_name, birth_date, minor, phone, email, address,
	ec_name, ec_phone, ec_email, ec_relationship, ec_verified,
	ins_provider, ins_policy_number, ins_status, ins_expires_at, ins_copay,
	status, checkin_time, checkin_by, checkin_location, checkin_special_needs, checkin_estimated_wait,
	special_needs, notes, clinic_id, workspace_id, created_at, updated_at`

// scopeCond renders the tenancy filter starting at placeholder $n.
func scopeCond(sc scope.Scope, n int) (string, []interface{}) {
	if sc.ClinicID != nil {
		return fmt.Sprintf("clinic_id = $%d", n), []interface{}{*sc.ClinicID}
	}
	return fmt.Sprintf("workspace_id = $%d", n), []interface{}{*sc.WorkspaceID}
}

func (r *repoPG) Create(ctx context.Context, sc scope.Scope, p Patient) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	row := toRow(p)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (
			id, mrn, first_name, last_name, birth_date, minor, phone, email, address,
			ec_name, ec_phone, ec_email, ec_relationship, ec_verified,
			ins_provider, ins_policy_number, ins_status, ins_expires_at, ins_copay,
			status, checkin_time, checkin_by, checkin_location, checkin_special_needs, checkin_estimated_wait,
			special_needs, notes, clinic_id, workspace_id, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,
			$10,$11,$12,$13,$14,
			$15,$16,$17,$18,$19,
			$20,$21,$22,$23,$24,$25,
			$26,$27,$28,$29,$30,$31
		)`, row...)
	if err != nil {
		return fmt.Errorf("insert patient %s: %w", p.ID, err)
	}
	return nil
}

func (r *repoPG) FindByID(ctx context.Context, sc scope.Scope, id uuid.UUID) (Patient, error) {
	if err := sc.Validate(); err != nil {
		return Patient{}, err
	}
	cond, args := scopeCond(sc, 2)
	row := r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND `+cond,
		append([]interface{}{id}, args...)...)
	p, err := scanPatient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Patient{}, &errs.NotFoundError{Entity: "patient", ID: id.String()}
	}
	if err != nil {
		return Patient{}, fmt.Errorf("find patient %s: %w", id, err)
	}
	return p, nil
}

func (r *repoPG) Search(ctx context.Context, sc scope.Scope, term string, filters SearchFilters, limit, offset int) ([]Patient, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}
	cond, args := scopeCond(sc, 1)
	where := cond
	n := len(args) + 1

	if term != "" {
		where += fmt.Sprintf(` AND (first_name || ' ' || last_name ILIKE $%d OR mrn ILIKE $%d OR phone LIKE $%d OR email ILIKE $%d)`, n, n, n, n)
		args = append(args, "%"+term+"%")
		n++
	}
	if filters.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filters.Status))
		n++
	}
	if filters.CheckedIn != nil {
		if *filters.CheckedIn {
			where += " AND checkin_time IS NOT NULL"
		} else {
			where += " AND checkin_time IS NULL"
		}
	}
	if filters.UpdatedAfter != nil {
		where += fmt.Sprintf(" AND updated_at > $%d", n)
		args = append(args, *filters.UpdatedAfter)
		n++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM patient WHERE %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		patientCols, where, n, n+1)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()

	out, err := scanPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repoPG) FindByStatus(ctx context.Context, sc scope.Scope, status Status, limit, offset int) ([]Patient, int, error) {
	st := status
	return r.Search(ctx, sc, "", SearchFilters{Status: &st}, limit, offset)
}

func (r *repoPG) Update(ctx context.Context, sc scope.Scope, p Patient) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	row := toRow(p)
	cond, args := scopeCond(sc, 32)
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient SET
			mrn = $2, first_name = $3, last_name = $4, birth_date = $5, minor = $6,
			phone = $7, email = $8, address = $9,
			ec_name = $10, ec_phone = $11, ec_email = $12, ec_relationship = $13, ec_verified = $14,
			ins_provider = $15, ins_policy_number = $16, ins_status = $17, ins_expires_at = $18, ins_copay = $19,
			status = $20, checkin_time = $21, checkin_by = $22, checkin_location = $23,
			checkin_special_needs = $24, checkin_estimated_wait = $25,
			special_needs = $26, notes = $27, clinic_id = $28, workspace_id = $29,
			created_at = $30, updated_at = $31
		WHERE id = $1 AND `+cond, append(row, args...)...)
	if err != nil {
		return fmt.Errorf("update patient %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &errs.NotFoundError{Entity: "patient", ID: p.ID.String()}
	}
	return nil
}

func (r *repoPG) ExistsByMRN(ctx context.Context, sc scope.Scope, mrn string) (bool, error) {
	if err := sc.Validate(); err != nil {
		return false, err
	}
	cond, args := scopeCond(sc, 2)
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE mrn = $1 AND `+cond+`)`,
		append([]interface{}{mrn}, args...)...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check mrn %q: %w", mrn, err)
	}
	return exists, nil
}

func (r *repoPG) CountByStatus(ctx context.Context, sc scope.Scope) (map[Status]int, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	cond, args := scopeCond(sc, 1)
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM patient WHERE `+cond+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count patients by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[Status(st)] = n
	}
	return counts, rows.Err()
}

func (r *repoPG) CountWaitingCheckedInBefore(ctx context.Context, sc scope.Scope, t time.Time) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	cond, args := scopeCond(sc, 2)
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient
		 WHERE status = 'waiting' AND checkin_time IS NOT NULL AND checkin_time < $1 AND `+cond,
		append([]interface{}{t}, args...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waiting patients: %w", err)
	}
	return n, nil
}

// toRow flattens the aggregate into the positional insert/update arguments.
func toRow(p Patient) []interface{} {
	var (
		insProvider, insPolicy, insStatus *string
		insExpires                        *time.Time
		insCopay                          *float64

		ciTime          *time.Time
		ciBy, ciLoc     *string
		ciNeeds         []string
		ciEstimatedWait *int
	)
	if p.Insurance != nil {
		insProvider = &p.Insurance.Provider
		insPolicy = &p.Insurance.PolicyNumber
		st := string(p.Insurance.Status)
		insStatus = &st
		insExpires = p.Insurance.ExpiresAt
		insCopay = p.Insurance.Copay
	}
	if p.CheckInRecord != nil {
		ciTime = &p.CheckInRecord.Time
		ciBy = &p.CheckInRecord.CheckedInBy
		ciLoc = p.CheckInRecord.Location
		ciNeeds = p.CheckInRecord.SpecialNeeds
		ciEstimatedWait = &p.CheckInRecord.EstimatedWaitMinutes
	}
	return []interface{}{
		p.ID, p.MRN, p.FirstName, p.LastName, p.BirthDate, p.Minor, p.Phone, p.Email, p.Address,
		p.EmergencyContact.Name, p.EmergencyContact.Phone, p.EmergencyContact.Email,
		p.EmergencyContact.Relationship, p.EmergencyContact.Verified,
		insProvider, insPolicy, insStatus, insExpires, insCopay,
		string(p.Status), ciTime, ciBy, ciLoc, ciNeeds, ciEstimatedWait,
		p.SpecialNeeds, p.Notes, p.ClinicID, p.WorkspaceID, p.CreatedAt, p.UpdatedAt,
	}
}

func scanPatient(row pgx.Row) (Patient, error) {
	var (
		p Patient

		status string

		insProvider, insPolicy, insStatus *string
		insExpires                        *time.Time
		insCopay                          *float64

		ciTime          *time.Time
		ciBy, ciLoc     *string
		ciNeeds         []string
		ciEstimatedWait *int
	)
	err := row.Scan(
		&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.BirthDate, &p.Minor, &p.Phone, &p.Email, &p.Address,
		&p.EmergencyContact.Name, &p.EmergencyContact.Phone, &p.EmergencyContact.Email,
		&p.EmergencyContact.Relationship, &p.EmergencyContact.Verified,
		&insProvider, &insPolicy, &insStatus, &insExpires, &insCopay,
		&status, &ciTime, &ciBy, &ciLoc, &ciNeeds, &ciEstimatedWait,
		&p.SpecialNeeds, &p.Notes, &p.ClinicID, &p.WorkspaceID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Patient{}, err
	}
	p.Status = Status(status)
	if insProvider != nil {
		p.Insurance = &Insurance{
			Provider:     *insProvider,
			PolicyNumber: derefStr(insPolicy),
			Status:       InsuranceStatus(derefStr(insStatus)),
			ExpiresAt:    insExpires,
			Copay:        insCopay,
		}
	}
	if ciTime != nil {
		p.CheckInRecord = &CheckInRecord{
			Time:         *ciTime,
			CheckedInBy:  derefStr(ciBy),
			Location:     ciLoc,
			SpecialNeeds: ciNeeds,
		}
		if ciEstimatedWait != nil {
			p.CheckInRecord.EstimatedWaitMinutes = *ciEstimatedWait
		}
	}
	return p, nil
}

func scanPatients(rows pgx.Rows) ([]Patient, error) {
	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
