package diagnosis

import (
	"context"

	"github.com/google/uuid"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *DiseaseCategory) error
	GetByID(ctx context.Context, id uuid.UUID) (*DiseaseCategory, error)
	List(ctx context.Context) ([]*DiseaseCategory, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DiseaseRepository interface {
	Create(ctx context.Context, d *Disease) error
	GetByID(ctx context.Context, id uuid.UUID) (*Disease, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Disease, error)
	List(ctx context.Context, limit, offset int) ([]*Disease, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DiagnosisRepository interface {
	Create(ctx context.Context, d *Diagnosis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error)
	Update(ctx context.Context, d *Diagnosis) error
	ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error)
	ListPendingReview(ctx context.Context, mentorID uuid.UUID) ([]*Diagnosis, error)
}
