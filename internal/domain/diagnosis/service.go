package diagnosis

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/platform/db"
)

var (
	ErrDiagnosisNotFound    = errors.New("diagnosis not found")
	ErrDiseaseNotFound      = errors.New("disease not found")
	ErrPhysicianNotFound    = errors.New("physician not found")
	ErrBlankRecommendations = errors.New("recommendations cannot be blank")
	ErrNotIntern            = errors.New("only intern diagnoses go through mentor review")
	ErrNotDraft             = errors.New("only draft diagnoses can be submitted for review")
	ErrNotPendingReview     = errors.New("diagnosis is not awaiting review")
	ErrNotAssignedMentor    = errors.New("only the assigned mentor may review this diagnosis")
	ErrCommentRequired      = errors.New("a mentor comment is required")
	ErrAlreadyFinal         = errors.New("diagnosis is already final")
)

// PhysicianDirectory resolves physicians from the identity domain.
type PhysicianDirectory interface {
	GetPhysician(ctx context.Context, id uuid.UUID) (*identity.Physician, error)
}

type Service struct {
	diagnoses  DiagnosisRepository
	diseases   DiseaseRepository
	categories CategoryRepository
	physicians PhysicianDirectory
	tx         db.TxRunner
}

func NewService(diagnoses DiagnosisRepository, diseases DiseaseRepository, categories CategoryRepository, physicians PhysicianDirectory, tx db.TxRunner) *Service {
	return &Service{
		diagnoses:  diagnoses,
		diseases:   diseases,
		categories: categories,
		physicians: physicians,
		tx:         tx,
	}
}

// -- Categories and Diseases --

func (s *Service) CreateCategory(ctx context.Context, c *DiseaseCategory) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("category name is required")
	}
	return s.categories.Create(ctx, c)
}

func (s *Service) ListCategories(ctx context.Context) ([]*DiseaseCategory, error) {
	return s.categories.List(ctx)
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

func (s *Service) CreateDisease(ctx context.Context, d *Disease) error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("disease name is required")
	}
	if _, err := s.categories.GetByID(ctx, d.CategoryID); err != nil {
		return errors.New("disease category not found")
	}
	return s.diseases.Create(ctx, d)
}

func (s *Service) GetDisease(ctx context.Context, id uuid.UUID) (*Disease, error) {
	return s.diseases.GetByID(ctx, id)
}

func (s *Service) ListDiseases(ctx context.Context, limit, offset int) ([]*Disease, int, error) {
	return s.diseases.List(ctx, limit, offset)
}

func (s *Service) ListDiseasesByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Disease, error) {
	return s.diseases.ListByCategory(ctx, categoryID)
}

func (s *Service) DeleteDisease(ctx context.Context, id uuid.UUID) error {
	return s.diseases.Delete(ctx, id)
}

// -- Diagnosis workflow --

// Create records a diagnosis. Intern diagnoses start in draft and must walk
// the review chain; everyone else's are final immediately.
func (s *Service) Create(ctx context.Context, d *Diagnosis) error {
	if strings.TrimSpace(d.Recommendations) == "" {
		return ErrBlankRecommendations
	}
	if _, err := s.diseases.GetByID(ctx, d.DiseaseID); err != nil {
		return ErrDiseaseNotFound
	}
	phys, err := s.physicians.GetPhysician(ctx, d.PhysicianID)
	if err != nil {
		return ErrPhysicianNotFound
	}

	if phys.IsIntern {
		d.State = StateDraft
		d.NeedsMentorReview = true
	} else {
		d.State = StateFinal
		d.NeedsMentorReview = false
	}
	return s.diagnoses.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return nil, ErrDiagnosisNotFound
	}
	return d, nil
}

// SubmitForReview queues an intern's draft diagnosis for its mentor.
func (s *Service) SubmitForReview(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.NeedsMentorReview {
		return nil, ErrNotIntern
	}
	if d.State != StateDraft {
		return nil, ErrNotDraft
	}
	d.State = StatePendingReview
	if err := s.diagnoses.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Review records the mentor's comment and moves the diagnosis to reviewed.
// Only the authenticated user matching the diagnosing intern's assigned
// mentor may review.
func (s *Service) Review(ctx context.Context, id uuid.UUID, reviewerUserID, comment string) (*Diagnosis, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.State != StatePendingReview {
		return nil, ErrNotPendingReview
	}
	if strings.TrimSpace(comment) == "" {
		return nil, ErrCommentRequired
	}

	author, err := s.physicians.GetPhysician(ctx, d.PhysicianID)
	if err != nil {
		return nil, ErrPhysicianNotFound
	}
	if author.MentorID == nil {
		return nil, ErrNotAssignedMentor
	}
	mentor, err := s.physicians.GetPhysician(ctx, *author.MentorID)
	if err != nil {
		return nil, ErrPhysicianNotFound
	}
	if mentor.UserID == nil || *mentor.UserID != reviewerUserID {
		return nil, ErrNotAssignedMentor
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		d.MentorComment = &comment
		d.State = StateReviewed
		return s.diagnoses.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Finalize closes the diagnosis. Intern diagnoses cannot become final
// without the mentor's comment on record.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.State == StateFinal {
		return nil, ErrAlreadyFinal
	}
	if d.NeedsMentorReview && !d.hasMentorComment() {
		return nil, ErrCommentRequired
	}
	d.State = StateFinal
	if err := s.diagnoses.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateRecommendations edits the treatment notes. The write is rejected if
// it would strand an intern diagnosis in reviewed or final state without a
// mentor comment.
func (s *Service) UpdateRecommendations(ctx context.Context, id uuid.UUID, recommendations string) (*Diagnosis, error) {
	if strings.TrimSpace(recommendations) == "" {
		return nil, ErrBlankRecommendations
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Recommendations = recommendations
	if d.NeedsMentorReview && (d.State == StateReviewed || d.State == StateFinal) && !d.hasMentorComment() {
		return nil, ErrCommentRequired
	}
	if err := s.diagnoses.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	return s.diagnoses.ListByPhysician(ctx, physicianID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	return s.diagnoses.ListByPatient(ctx, patientID, limit, offset)
}

// ListPendingReview returns the review backlog for a mentor, oldest first.
func (s *Service) ListPendingReview(ctx context.Context, mentorID uuid.UUID) ([]*Diagnosis, error) {
	return s.diagnoses.ListPendingReview(ctx, mentorID)
}
