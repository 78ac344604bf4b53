package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleSlot maps to the schedule_slot table. SlotTime is a fractional
// hour (9.5 means 9:30 AM). The table carries UNIQUE(physician_id, date,
// slot_time).
type ScheduleSlot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PhysicianID uuid.UUID `db:"physician_id" json:"physician_id"`
	Date        time.Time `db:"date" json:"date"`
	SlotTime    float64   `db:"slot_time" json:"slot_time"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Visit states. Cancelled is reachable from draft and scheduled only;
// completed is terminal and immutable.
const (
	StateDraft      = "draft"
	StateScheduled  = "scheduled"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateCancelled  = "cancelled"
)

// Visit maps to the visit table. Non-cancelled rows are unique per
// (physician, date, time) via a partial unique index.
type Visit struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PhysicianID uuid.UUID  `db:"physician_id" json:"physician_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitDate   time.Time  `db:"visit_date" json:"visit_date"`
	VisitTime   float64    `db:"visit_time" json:"visit_time"`
	State       string     `db:"state" json:"state"`
	DiagnosisID *uuid.UUID `db:"diagnosis_id" json:"diagnosis_id,omitempty"`
	SlotID      *uuid.UUID `db:"slot_id" json:"slot_id,omitempty"`
	Notes       string     `db:"notes" json:"notes"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the visit still occupies its slot.
func (v *Visit) Active() bool {
	return v.State != StateCancelled
}
