package scheduling

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

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const slotCols = `id, physician_id, date, slot_time, created_at`

func (r *slotRepoPG) scanSlot(row pgx.Row) (*ScheduleSlot, error) {
	var s ScheduleSlot
	err := row.Scan(&s.ID, &s.PhysicianID, &s.Date, &s.SlotTime, &s.CreatedAt)
	return &s, err
}

func (r *slotRepoPG) Create(ctx context.Context, s *ScheduleSlot) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_slot (id, physician_id, date, slot_time)
		VALUES ($1,$2,$3,$4)`,
		s.ID, s.PhysicianID, s.Date, s.SlotTime)
	if db.IsUniqueViolation(err) {
		return ErrSlotExists
	}
	return err
}

func (r *slotRepoPG) Find(ctx context.Context, physicianID uuid.UUID, date time.Time, slotTime float64) (*ScheduleSlot, error) {
	return r.scanSlot(r.conn(ctx).QueryRow(ctx, `
		SELECT `+slotCols+` FROM schedule_slot
		WHERE physician_id = $1 AND date = $2 AND slot_time = $3`,
		physicianID, date, slotTime))
}

func (r *slotRepoPG) ListRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) ([]*ScheduleSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotCols+` FROM schedule_slot
		WHERE physician_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, slot_time`,
		physicianID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ScheduleSlot
	for rows.Next() {
		s, err := r.scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *slotRepoPG) DeleteRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM schedule_slot
		WHERE physician_id = $1 AND date >= $2 AND date <= $3`,
		physicianID, from, to)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *slotRepoPG) CountRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM schedule_slot
		WHERE physician_id = $1 AND date >= $2 AND date <= $3`,
		physicianID, from, to).Scan(&total)
	return total, err
}

func (r *slotRepoPG) TryLock(ctx context.Context, physicianID uuid.UUID, date time.Time, slotTime float64) (*ScheduleSlot, error) {
	s, err := r.scanSlot(r.conn(ctx).QueryRow(ctx, `
		SELECT `+slotCols+` FROM schedule_slot
		WHERE physician_id = $1 AND date = $2 AND slot_time = $3
		FOR UPDATE NOWAIT`,
		physicianID, date, slotTime))
	if db.IsLockNotAvailable(err) {
		return nil, ErrSlotContended
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// =========== Visit Repository ===========

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewVisitRepoPG(pool *pgxpool.Pool) VisitRepository { return &visitRepoPG{pool: pool} }

func (r *visitRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const visitCols = `id, physician_id, patient_id, visit_date, visit_time, state,
	diagnosis_id, slot_id, notes, created_at, updated_at`

func (r *visitRepoPG) scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PhysicianID, &v.PatientID, &v.VisitDate, &v.VisitTime,
		&v.State, &v.DiagnosisID, &v.SlotID, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit (id, physician_id, patient_id, visit_date, visit_time, state, diagnosis_id, slot_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		v.ID, v.PhysicianID, v.PatientID, v.VisitDate, v.VisitTime, v.State, v.DiagnosisID, v.SlotID, v.Notes)
	if db.IsUniqueViolation(err) {
		return ErrSlotContended
	}
	return err
}

func (r *visitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return r.scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
}

func (r *visitRepoPG) Update(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit SET physician_id=$2, patient_id=$3, visit_date=$4, visit_time=$5,
			state=$6, diagnosis_id=$7, slot_id=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.PhysicianID, v.PatientID, v.VisitDate, v.VisitTime,
		v.State, v.DiagnosisID, v.SlotID, v.Notes)
	if db.IsUniqueViolation(err) {
		return ErrSlotContended
	}
	return err
}

func (r *visitRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM visit WHERE id = $1`, id)
	return err
}

func (r *visitRepoPG) ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE physician_id = $1`, physicianID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+visitCols+` FROM visit
		WHERE physician_id = $1
		ORDER BY visit_date DESC, visit_time DESC LIMIT $2 OFFSET $3`,
		physicianID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := r.scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+visitCols+` FROM visit
		WHERE patient_id = $1
		ORDER BY visit_date DESC, visit_time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := r.scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *visitRepoPG) FindConflict(ctx context.Context, physicianID uuid.UUID, date time.Time, slotTime float64, excludeID uuid.UUID) (*Visit, error) {
	return r.scanVisit(r.conn(ctx).QueryRow(ctx, `
		SELECT `+visitCols+` FROM visit
		WHERE physician_id = $1 AND visit_date = $2 AND visit_time = $3
		  AND state <> 'cancelled' AND id <> $4
		LIMIT 1`,
		physicianID, date, slotTime, excludeID))
}

func (r *visitRepoPG) FindPatientSameDay(ctx context.Context, patientID uuid.UUID, date time.Time, excludeID uuid.UUID) (*Visit, error) {
	return r.scanVisit(r.conn(ctx).QueryRow(ctx, `
		SELECT `+visitCols+` FROM visit
		WHERE patient_id = $1 AND visit_date = $2
		  AND state <> 'cancelled' AND id <> $3
		LIMIT 1`,
		patientID, date, excludeID))
}
