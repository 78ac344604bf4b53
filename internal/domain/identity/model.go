package identity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSpecialty is applied to physicians created without one.
const DefaultSpecialty = "Internal Medicine"

// Physician maps to the physician table.
type Physician struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Specialty string     `db:"specialty" json:"specialty"`
	Active    bool       `db:"active" json:"active"`
	IsIntern  bool       `db:"is_intern" json:"is_intern"`
	MentorID  *uuid.UUID `db:"mentor_id" json:"mentor_id,omitempty"`
	UserID    *string    `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Name returns the physician's display name.
func (p *Physician) Name() string {
	return p.FirstName + " " + p.LastName
}

// Patient maps to the patient table.
type Patient struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	BirthDate           *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Active              bool       `db:"active" json:"active"`
	PersonalPhysicianID *uuid.UUID `db:"personal_physician_id" json:"personal_physician_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Name returns the patient's display name.
func (p *Patient) Name() string {
	return p.FirstName + " " + p.LastName
}

// PhysicianChangeHistory records one assignment of a personal physician to a
// patient. Rows are append-only.
type PhysicianChangeHistory struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	PhysicianID   uuid.UUID `db:"physician_id" json:"physician_id"`
	EstablishedAt time.Time `db:"established_at" json:"established_at"`
}
