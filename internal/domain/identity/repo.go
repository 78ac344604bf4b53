package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PhysicianRepository interface {
	Create(ctx context.Context, p *Physician) error
	GetByID(ctx context.Context, id uuid.UUID) (*Physician, error)
	GetByUserID(ctx context.Context, userID string) (*Physician, error)
	Update(ctx context.Context, p *Physician) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Physician, int, error)
	ListInterns(ctx context.Context, mentorID uuid.UUID) ([]*Physician, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type ChangeHistoryRepository interface {
	Append(ctx context.Context, h *PhysicianChangeHistory) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PhysicianChangeHistory, error)
	CountSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, error)
}
