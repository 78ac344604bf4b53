package diagnosis

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

// =========== Category Repository ===========

type categoryRepoPG struct{ pool *pgxpool.Pool }

func NewCategoryRepoPG(pool *pgxpool.Pool) CategoryRepository { return &categoryRepoPG{pool: pool} }

func (r *categoryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *categoryRepoPG) Create(ctx context.Context, c *DiseaseCategory) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO disease_category (id, name) VALUES ($1,$2)`, c.ID, c.Name)
	return err
}

func (r *categoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DiseaseCategory, error) {
	var c DiseaseCategory
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name FROM disease_category WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	return &c, err
}

func (r *categoryRepoPG) List(ctx context.Context) ([]*DiseaseCategory, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM disease_category ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DiseaseCategory
	for rows.Next() {
		var c DiseaseCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

func (r *categoryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM disease_category WHERE id = $1`, id)
	return err
}

// =========== Disease Repository ===========

type diseaseRepoPG struct{ pool *pgxpool.Pool }

func NewDiseaseRepoPG(pool *pgxpool.Pool) DiseaseRepository { return &diseaseRepoPG{pool: pool} }

func (r *diseaseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *diseaseRepoPG) Create(ctx context.Context, d *Disease) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO disease (id, name, category_id) VALUES ($1,$2,$3)`,
		d.ID, d.Name, d.CategoryID)
	return err
}

func (r *diseaseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Disease, error) {
	var d Disease
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, category_id FROM disease WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.CategoryID)
	return &d, err
}

func (r *diseaseRepoPG) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Disease, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, category_id FROM disease WHERE category_id = $1 ORDER BY name`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Disease
	for rows.Next() {
		var d Disease
		if err := rows.Scan(&d.ID, &d.Name, &d.CategoryID); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *diseaseRepoPG) List(ctx context.Context, limit, offset int) ([]*Disease, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM disease`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, category_id FROM disease ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Disease
	for rows.Next() {
		var d Disease
		if err := rows.Scan(&d.ID, &d.Name, &d.CategoryID); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}

func (r *diseaseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM disease WHERE id = $1`, id)
	return err
}

// =========== Diagnosis Repository ===========

type diagnosisRepoPG struct{ pool *pgxpool.Pool }

func NewDiagnosisRepoPG(pool *pgxpool.Pool) DiagnosisRepository { return &diagnosisRepoPG{pool: pool} }

func (r *diagnosisRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const diagnosisCols = `id, physician_id, patient_id, disease_id, diagnosed_at,
	recommendations, state, mentor_comment, needs_mentor_review, created_at, updated_at`

func (r *diagnosisRepoPG) scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	err := row.Scan(&d.ID, &d.PhysicianID, &d.PatientID, &d.DiseaseID, &d.DiagnosedAt,
		&d.Recommendations, &d.State, &d.MentorComment, &d.NeedsMentorReview,
		&d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *diagnosisRepoPG) Create(ctx context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	if d.DiagnosedAt.IsZero() {
		d.DiagnosedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diagnosis (id, physician_id, patient_id, disease_id, diagnosed_at,
			recommendations, state, mentor_comment, needs_mentor_review)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.PhysicianID, d.PatientID, d.DiseaseID, d.DiagnosedAt,
		d.Recommendations, d.State, d.MentorComment, d.NeedsMentorReview)
	return err
}

func (r *diagnosisRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	return r.scanDiagnosis(r.conn(ctx).QueryRow(ctx, `SELECT `+diagnosisCols+` FROM diagnosis WHERE id = $1`, id))
}

func (r *diagnosisRepoPG) Update(ctx context.Context, d *Diagnosis) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE diagnosis SET disease_id=$2, recommendations=$3, state=$4,
			mentor_comment=$5, needs_mentor_review=$6, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.DiseaseID, d.Recommendations, d.State, d.MentorComment, d.NeedsMentorReview)
	return err
}

func (r *diagnosisRepoPG) ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM diagnosis WHERE physician_id = $1`, physicianID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+diagnosisCols+` FROM diagnosis
		WHERE physician_id = $1 ORDER BY diagnosed_at DESC LIMIT $2 OFFSET $3`,
		physicianID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		d, err := r.scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *diagnosisRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM diagnosis WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+diagnosisCols+` FROM diagnosis
		WHERE patient_id = $1 ORDER BY diagnosed_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		d, err := r.scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *diagnosisRepoPG) ListPendingReview(ctx context.Context, mentorID uuid.UUID) ([]*Diagnosis, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id, d.physician_id, d.patient_id, d.disease_id, d.diagnosed_at,
			d.recommendations, d.state, d.mentor_comment, d.needs_mentor_review,
			d.created_at, d.updated_at
		FROM diagnosis d
		JOIN physician p ON p.id = d.physician_id
		WHERE d.state = 'pending_review' AND p.mentor_id = $1
		ORDER BY d.diagnosed_at`, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		d, err := r.scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
