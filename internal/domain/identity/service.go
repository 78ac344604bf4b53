package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/db"
)

var (
	ErrPhysicianNotFound  = errors.New("physician not found")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrInternNeedsMentor  = errors.New("an intern must have a mentor assigned")
	ErrMentorIsIntern     = errors.New("an intern cannot be a mentor")
	ErrMentorOnNonIntern  = errors.New("only interns can have a mentor")
	ErrInternAsPersonal   = errors.New("an intern cannot be a personal physician")
	ErrNoPatientsSelected = errors.New("no patients selected")
)

type Service struct {
	physicians PhysicianRepository
	patients   PatientRepository
	history    ChangeHistoryRepository
	tx         db.TxRunner
}

func NewService(physicians PhysicianRepository, patients PatientRepository, history ChangeHistoryRepository, tx db.TxRunner) *Service {
	return &Service{physicians: physicians, patients: patients, history: history, tx: tx}
}

// -- Physician --

// validateMentorship enforces the intern/mentor rules on a physician row.
func (s *Service) validateMentorship(ctx context.Context, p *Physician) error {
	if p.IsIntern {
		if p.MentorID == nil {
			return ErrInternNeedsMentor
		}
		mentor, err := s.physicians.GetByID(ctx, *p.MentorID)
		if err != nil {
			return fmt.Errorf("mentor %s: %w", p.MentorID, ErrPhysicianNotFound)
		}
		if mentor.IsIntern {
			return ErrMentorIsIntern
		}
		return nil
	}
	if p.MentorID != nil {
		return ErrMentorOnNonIntern
	}
	return nil
}

func (s *Service) CreatePhysician(ctx context.Context, p *Physician) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.Specialty == "" {
		p.Specialty = DefaultSpecialty
	}
	if err := s.validateMentorship(ctx, p); err != nil {
		return err
	}
	p.Active = true
	return s.physicians.Create(ctx, p)
}

func (s *Service) GetPhysician(ctx context.Context, id uuid.UUID) (*Physician, error) {
	return s.physicians.GetByID(ctx, id)
}

func (s *Service) UpdatePhysician(ctx context.Context, p *Physician) error {
	if _, err := s.physicians.GetByID(ctx, p.ID); err != nil {
		return ErrPhysicianNotFound
	}
	if err := s.validateMentorship(ctx, p); err != nil {
		return err
	}
	return s.physicians.Update(ctx, p)
}

func (s *Service) DeletePhysician(ctx context.Context, id uuid.UUID) error {
	return s.physicians.Delete(ctx, id)
}

func (s *Service) ListPhysicians(ctx context.Context, limit, offset int) ([]*Physician, int, error) {
	return s.physicians.List(ctx, limit, offset)
}

// ListInterns returns the interns mentored by the given physician.
func (s *Service) ListInterns(ctx context.Context, mentorID uuid.UUID) ([]*Physician, error) {
	return s.physicians.ListInterns(ctx, mentorID)
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	p.Active = true
	if p.PersonalPhysicianID != nil {
		phys, err := s.physicians.GetByID(ctx, *p.PersonalPhysicianID)
		if err != nil {
			return ErrPhysicianNotFound
		}
		if phys.IsIntern {
			return ErrInternAsPersonal
		}
	}
	if err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		if p.PersonalPhysicianID != nil {
			return s.history.Append(ctx, &PhysicianChangeHistory{
				PatientID:   p.ID,
				PhysicianID: *p.PersonalPhysicianID,
			})
		}
		return nil
	}); err != nil {
		return err
	}
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if _, err := s.patients.GetByID(ctx, p.ID); err != nil {
		return ErrPatientNotFound
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// -- Physician assignment --

// AssignPhysician sets a patient's personal physician and appends a history
// record, atomically. Assigning the current physician again is a no-op.
func (s *Service) AssignPhysician(ctx context.Context, patientID, physicianID uuid.UUID) error {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return ErrPatientNotFound
	}
	if patient.PersonalPhysicianID != nil && *patient.PersonalPhysicianID == physicianID {
		return nil
	}

	phys, err := s.physicians.GetByID(ctx, physicianID)
	if err != nil {
		return ErrPhysicianNotFound
	}
	if phys.IsIntern {
		return ErrInternAsPersonal
	}

	return s.tx(ctx, func(ctx context.Context) error {
		patient.PersonalPhysicianID = &physicianID
		if err := s.patients.Update(ctx, patient); err != nil {
			return err
		}
		return s.history.Append(ctx, &PhysicianChangeHistory{
			PatientID:   patientID,
			PhysicianID: physicianID,
		})
	})
}

// MassReassign assigns one physician to many patients in a single
// transaction, writing a history row per patient. Returns the number of
// patients actually changed.
func (s *Service) MassReassign(ctx context.Context, patientIDs []uuid.UUID, physicianID uuid.UUID) (int, error) {
	if len(patientIDs) == 0 {
		return 0, ErrNoPatientsSelected
	}

	phys, err := s.physicians.GetByID(ctx, physicianID)
	if err != nil {
		return 0, ErrPhysicianNotFound
	}
	if phys.IsIntern {
		return 0, ErrInternAsPersonal
	}

	changed := 0
	err = s.tx(ctx, func(ctx context.Context) error {
		for _, pid := range patientIDs {
			patient, err := s.patients.GetByID(ctx, pid)
			if err != nil {
				return fmt.Errorf("patient %s: %w", pid, ErrPatientNotFound)
			}
			if patient.PersonalPhysicianID != nil && *patient.PersonalPhysicianID == physicianID {
				continue
			}
			patient.PersonalPhysicianID = &physicianID
			if err := s.patients.Update(ctx, patient); err != nil {
				return err
			}
			if err := s.history.Append(ctx, &PhysicianChangeHistory{
				PatientID:   pid,
				PhysicianID: physicianID,
			}); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// History returns a patient's physician assignments, most recent first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*PhysicianChangeHistory, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, ErrPatientNotFound
	}
	return s.history.ListByPatient(ctx, patientID)
}
