package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSlotExists is returned when a slot insert hits the unique
	// constraint on (physician, date, time).
	ErrSlotExists = errors.New("slot already exists")

	// ErrSlotContended is returned when a NOWAIT row lock on a slot cannot
	// be acquired because a concurrent booking holds it.
	ErrSlotContended = errors.New("slot unavailable / already booked")
)

type SlotRepository interface {
	Create(ctx context.Context, s *ScheduleSlot) error
	Find(ctx context.Context, physicianID uuid.UUID, date time.Time, slotTime float64) (*ScheduleSlot, error)
	ListRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) ([]*ScheduleSlot, error)
	DeleteRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error)
	CountRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error)
	// TryLock acquires a FOR UPDATE NOWAIT lock on the slot row. Only
	// meaningful inside a transaction; contention maps to ErrSlotContended.
	TryLock(ctx context.Context, physicianID uuid.UUID, date time.Time, slotTime float64) (*ScheduleSlot, error)
}

type VisitRepository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
	// FindConflict returns a non-cancelled visit occupying the given slot,
	// excluding excludeID (uuid.Nil to exclude nothing).
	FindConflict(ctx context.Context, physicianID uuid.UUID, date time.Time, slotTime float64, excludeID uuid.UUID) (*Visit, error)
	// FindPatientSameDay returns a non-cancelled visit for the patient on
	// the given date, excluding excludeID.
	FindPatientSameDay(ctx context.Context, patientID uuid.UUID, date time.Time, excludeID uuid.UUID) (*Visit, error)
}
