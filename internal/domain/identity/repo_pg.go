package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Physician Repository ===========

type physicianRepoPG struct{ pool *pgxpool.Pool }

func NewPhysicianRepoPG(pool *pgxpool.Pool) PhysicianRepository { return &physicianRepoPG{pool: pool} }

func (r *physicianRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const physicianCols = `id, first_name, last_name, specialty, active, is_intern, mentor_id, user_id, created_at, updated_at`

func (r *physicianRepoPG) scanPhysician(row pgx.Row) (*Physician, error) {
	var p Physician
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Specialty, &p.Active,
		&p.IsIntern, &p.MentorID, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *physicianRepoPG) Create(ctx context.Context, p *Physician) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO physician (id, first_name, last_name, specialty, active, is_intern, mentor_id, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.FirstName, p.LastName, p.Specialty, p.Active, p.IsIntern, p.MentorID, p.UserID)
	return err
}

func (r *physicianRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Physician, error) {
	return r.scanPhysician(r.conn(ctx).QueryRow(ctx, `SELECT `+physicianCols+` FROM physician WHERE id = $1`, id))
}

func (r *physicianRepoPG) GetByUserID(ctx context.Context, userID string) (*Physician, error) {
	return r.scanPhysician(r.conn(ctx).QueryRow(ctx, `SELECT `+physicianCols+` FROM physician WHERE user_id = $1`, userID))
}

func (r *physicianRepoPG) Update(ctx context.Context, p *Physician) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE physician SET first_name=$2, last_name=$3, specialty=$4, active=$5,
			is_intern=$6, mentor_id=$7, user_id=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Specialty, p.Active, p.IsIntern, p.MentorID, p.UserID)
	return err
}

func (r *physicianRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM physician WHERE id = $1`, id)
	return err
}

func (r *physicianRepoPG) List(ctx context.Context, limit, offset int) ([]*Physician, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM physician`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+physicianCols+` FROM physician ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Physician
	for rows.Next() {
		p, err := r.scanPhysician(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *physicianRepoPG) ListInterns(ctx context.Context, mentorID uuid.UUID) ([]*Physician, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+physicianCols+` FROM physician WHERE mentor_id = $1 ORDER BY last_name, first_name`, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Physician
	for rows.Next() {
		p, err := r.scanPhysician(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, first_name, last_name, birth_date, active, personal_physician_id, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Active,
		&p.PersonalPhysicianID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, first_name, last_name, birth_date, active, personal_physician_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Active, p.PersonalPhysicianID)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, birth_date=$4, active=$5,
			personal_physician_id=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Active, p.PersonalPhysicianID)
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Change History Repository ===========

type changeHistoryRepoPG struct{ pool *pgxpool.Pool }

func NewChangeHistoryRepoPG(pool *pgxpool.Pool) ChangeHistoryRepository {
	return &changeHistoryRepoPG{pool: pool}
}

func (r *changeHistoryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *changeHistoryRepoPG) Append(ctx context.Context, h *PhysicianChangeHistory) error {
	h.ID = uuid.New()
	if h.EstablishedAt.IsZero() {
		h.EstablishedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO physician_change_history (id, patient_id, physician_id, established_at)
		VALUES ($1,$2,$3,$4)`,
		h.ID, h.PatientID, h.PhysicianID, h.EstablishedAt)
	return err
}

func (r *changeHistoryRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PhysicianChangeHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, physician_id, established_at
		FROM physician_change_history
		WHERE patient_id = $1
		ORDER BY established_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PhysicianChangeHistory
	for rows.Next() {
		var h PhysicianChangeHistory
		if err := rows.Scan(&h.ID, &h.PatientID, &h.PhysicianID, &h.EstablishedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}

func (r *changeHistoryRepoPG) CountSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM physician_change_history
		WHERE patient_id = $1 AND established_at >= $2`, patientID, since).Scan(&total)
	return total, err
}
