package diagnosis

import (
	"time"

	"github.com/google/uuid"
)

// Diagnosis review states. Non-intern diagnoses are created directly in
// final; intern diagnoses walk the full chain.
const (
	StateDraft         = "draft"
	StatePendingReview = "pending_review"
	StateReviewed      = "reviewed"
	StateFinal         = "final"
)

// DiseaseCategory maps to the disease_category table.
type DiseaseCategory struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Disease maps to the disease table.
type Disease struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	CategoryID uuid.UUID `db:"category_id" json:"category_id"`
}

// Diagnosis maps to the diagnosis table.
type Diagnosis struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PhysicianID       uuid.UUID `db:"physician_id" json:"physician_id"`
	PatientID         uuid.UUID `db:"patient_id" json:"patient_id"`
	DiseaseID         uuid.UUID `db:"disease_id" json:"disease_id"`
	DiagnosedAt       time.Time `db:"diagnosed_at" json:"diagnosed_at"`
	Recommendations   string    `db:"recommendations" json:"recommendations"`
	State             string    `db:"state" json:"state"`
	MentorComment     *string   `db:"mentor_comment" json:"mentor_comment,omitempty"`
	NeedsMentorReview bool      `db:"needs_mentor_review" json:"needs_mentor_review"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// hasMentorComment reports whether a non-blank mentor comment is present.
func (d *Diagnosis) hasMentorComment() bool {
	return d.MentorComment != nil && *d.MentorComment != ""
}
