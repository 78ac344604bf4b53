package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/notify"
	"github.com/hms/hms/pkg/timeslot"
)

var (
	ErrVisitNotFound      = errors.New("visit not found")
	ErrUnknownPatient     = errors.New("patient not found")
	ErrNoSlot             = errors.New("no schedule slot exists for the requested time")
	ErrSameDayVisit       = errors.New("patient already has a visit on this date")
	ErrCompletedImmutable = errors.New("completed visits cannot be modified")
	ErrCompletedDelete    = errors.New("completed visits cannot be deleted")
	ErrNeedsDiagnosis     = errors.New("cannot complete a visit without a diagnosis")
)

// PatientDirectory resolves patients from the identity domain.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

// Booking is the visit booking engine: slot validation, the visit state
// machine, and the locking protocol that keeps concurrent bookings off the
// same slot.
type Booking struct {
	visits     VisitRepository
	slots      SlotRepository
	physicians PhysicianDirectory
	patients   PatientDirectory
	tx         db.TxRunner
	notifier   *notify.Notifier
	now        func() time.Time
}

func NewBooking(visits VisitRepository, slots SlotRepository, physicians PhysicianDirectory, patients PatientDirectory, tx db.TxRunner, notifier *notify.Notifier) *Booking {
	return &Booking{
		visits:     visits,
		slots:      slots,
		physicians: physicians,
		patients:   patients,
		tx:         tx,
		notifier:   notifier,
		now:        time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (b *Booking) SetClock(now func() time.Time) { b.now = now }

// clockFraction converts the current wall clock to a fractional hour.
func clockFraction(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

// validateTiming runs the date/time checks that need no repository access:
// working hours and granularity, weekday, and not-in-the-past (down to the
// wall clock when the date is today).
func (b *Booking) validateTiming(date time.Time, slotTime float64) error {
	if err := timeslot.ValidateTime(slotTime); err != nil {
		return err
	}
	if !timeslot.IsWeekday(date) {
		return timeslot.ErrWeekend
	}
	now := b.now()
	today := timeslot.DateOnly(now)
	day := timeslot.DateOnly(date)
	if day.Before(today) {
		return timeslot.ErrPastDate
	}
	if day.Equal(today) && slotTime < clockFraction(now) {
		return timeslot.ErrPastDate
	}
	return nil
}

// checkAvailability verifies slot existence, slot conflicts, and the
// one-visit-per-patient-per-day rule, in that order. excludeID is ignored
// when uuid.Nil.
func (b *Booking) checkAvailability(ctx context.Context, physicianID, patientID uuid.UUID, date time.Time, slotTime float64, excludeID uuid.UUID) (*ScheduleSlot, error) {
	day := timeslot.DateOnly(date)

	slot, err := b.slots.Find(ctx, physicianID, day, slotTime)
	if db.IsNoRows(err) {
		return nil, ErrNoSlot
	}
	if err != nil {
		return nil, err
	}

	if _, err := b.visits.FindConflict(ctx, physicianID, day, slotTime, excludeID); err == nil {
		return nil, ErrSlotContended
	} else if !db.IsNoRows(err) {
		return nil, err
	}

	if _, err := b.visits.FindPatientSameDay(ctx, patientID, day, excludeID); err == nil {
		return nil, ErrSameDayVisit
	} else if !db.IsNoRows(err) {
		return nil, err
	}

	return slot, nil
}

// lockSlot takes the row lock on the slot inside the current transaction.
// A missing slot surfaces as ErrNoSlot, contention as ErrSlotContended.
func (b *Booking) lockSlot(ctx context.Context, physicianID uuid.UUID, date time.Time, slotTime float64) (*ScheduleSlot, error) {
	slot, err := b.slots.TryLock(ctx, physicianID, timeslot.DateOnly(date), slotTime)
	if db.IsNoRows(err) {
		return nil, ErrNoSlot
	}
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// Create books a new draft visit. The slot row is locked and availability is
// rechecked inside the transaction, so two concurrent bookings of the same
// slot cannot both succeed.
func (b *Booking) Create(ctx context.Context, physicianID, patientID uuid.UUID, date time.Time, slotTime float64, notes string) (*Visit, error) {
	phys, err := b.physicians.GetPhysician(ctx, physicianID)
	if err != nil {
		return nil, ErrUnknownPhysician
	}
	patient, err := b.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, ErrUnknownPatient
	}
	if err := b.validateTiming(date, slotTime); err != nil {
		return nil, err
	}

	visit := &Visit{
		PhysicianID: physicianID,
		PatientID:   patientID,
		VisitDate:   timeslot.DateOnly(date),
		VisitTime:   slotTime,
		State:       StateDraft,
		Notes:       notes,
	}
	err = b.tx(ctx, func(ctx context.Context) error {
		if _, err := b.lockSlot(ctx, physicianID, date, slotTime); err != nil {
			return err
		}
		slot, err := b.checkAvailability(ctx, physicianID, patientID, date, slotTime, uuid.Nil)
		if err != nil {
			return err
		}
		visit.SlotID = &slot.ID
		return b.visits.Create(ctx, visit)
	})
	if err != nil {
		return nil, err
	}

	b.notifyVisit(ctx, "visit-booked", phys, patient, visit)
	return visit, nil
}

// Get returns a visit by id.
func (b *Booking) Get(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := b.visits.GetByID(ctx, id)
	if err != nil {
		return nil, ErrVisitNotFound
	}
	return v, nil
}

// Schedule confirms a draft visit. The slot is re-locked and availability
// rechecked in case the world changed since the draft was created.
func (b *Booking) Schedule(ctx context.Context, id uuid.UUID) (*Visit, error) {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.State != StateDraft {
		return nil, transitionError(visit.State, StateScheduled)
	}

	err = b.tx(ctx, func(ctx context.Context) error {
		if _, err := b.lockSlot(ctx, visit.PhysicianID, visit.VisitDate, visit.VisitTime); err != nil {
			return err
		}
		if _, err := b.visits.FindConflict(ctx, visit.PhysicianID, visit.VisitDate, visit.VisitTime, visit.ID); err == nil {
			return ErrSlotContended
		} else if !db.IsNoRows(err) {
			return err
		}
		visit.State = StateScheduled
		return b.visits.Update(ctx, visit)
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// Start moves a scheduled visit to in_progress when the patient arrives.
func (b *Booking) Start(ctx context.Context, id uuid.UUID) (*Visit, error) {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.State != StateScheduled {
		return nil, transitionError(visit.State, StateInProgress)
	}
	visit.State = StateInProgress
	if err := b.visits.Update(ctx, visit); err != nil {
		return nil, err
	}
	return visit, nil
}

// Complete closes a visit. A diagnosis must be attached first; completed
// visits are immutable afterwards.
func (b *Booking) Complete(ctx context.Context, id uuid.UUID) (*Visit, error) {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.State != StateInProgress {
		return nil, transitionError(visit.State, StateCompleted)
	}
	if visit.DiagnosisID == nil {
		return nil, ErrNeedsDiagnosis
	}
	visit.State = StateCompleted
	if err := b.visits.Update(ctx, visit); err != nil {
		return nil, err
	}
	return visit, nil
}

// Cancel frees the visit's slot. Only draft and scheduled visits can be
// cancelled; the slot row is locked for the state flip so a concurrent
// booking sees a consistent picture.
func (b *Booking) Cancel(ctx context.Context, id uuid.UUID) (*Visit, error) {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.State == StateCancelled {
		return visit, nil
	}
	if visit.State != StateDraft && visit.State != StateScheduled {
		return nil, transitionError(visit.State, StateCancelled)
	}

	err = b.tx(ctx, func(ctx context.Context) error {
		if _, err := b.lockSlot(ctx, visit.PhysicianID, visit.VisitDate, visit.VisitTime); err != nil && !errors.Is(err, ErrNoSlot) {
			return err
		}
		visit.State = StateCancelled
		return b.visits.Update(ctx, visit)
	})
	if err != nil {
		return nil, err
	}

	if phys, perr := b.physicians.GetPhysician(ctx, visit.PhysicianID); perr == nil {
		if patient, perr := b.patients.GetPatient(ctx, visit.PatientID); perr == nil {
			b.notifyVisit(ctx, "visit-cancelled", phys, patient, visit)
		}
	}
	return visit, nil
}

// Reschedule moves a draft or scheduled visit to a new weekday slot,
// creating the slot on demand. The old visit is cancelled and a new
// scheduled visit is created atomically; the new visit is returned.
func (b *Booking) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newTime float64) (*Visit, error) {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.State != StateDraft && visit.State != StateScheduled {
		return nil, transitionError(visit.State, StateScheduled)
	}
	if err := b.validateTiming(newDate, newTime); err != nil {
		return nil, err
	}

	day := timeslot.DateOnly(newDate)
	replacement := &Visit{
		PhysicianID: visit.PhysicianID,
		PatientID:   visit.PatientID,
		VisitDate:   day,
		VisitTime:   newTime,
		State:       StateScheduled,
		Notes:       visit.Notes,
	}
	err = b.tx(ctx, func(ctx context.Context) error {
		// Ensure the target slot exists before locking it.
		slot, err := b.slots.Find(ctx, visit.PhysicianID, day, newTime)
		if db.IsNoRows(err) {
			slot = &ScheduleSlot{PhysicianID: visit.PhysicianID, Date: day, SlotTime: newTime}
			if err := b.slots.Create(ctx, slot); err != nil && !errors.Is(err, ErrSlotExists) {
				return err
			}
		} else if err != nil {
			return err
		}

		if _, err := b.lockSlot(ctx, visit.PhysicianID, day, newTime); err != nil {
			return err
		}
		if _, err := b.visits.FindConflict(ctx, visit.PhysicianID, day, newTime, visit.ID); err == nil {
			return ErrSlotContended
		} else if !db.IsNoRows(err) {
			return err
		}
		if _, err := b.visits.FindPatientSameDay(ctx, visit.PatientID, day, visit.ID); err == nil {
			return ErrSameDayVisit
		} else if !db.IsNoRows(err) {
			return err
		}

		visit.State = StateCancelled
		if err := b.visits.Update(ctx, visit); err != nil {
			return err
		}
		replacement.SlotID = &slot.ID
		return b.visits.Create(ctx, replacement)
	})
	if err != nil {
		return nil, err
	}

	if phys, perr := b.physicians.GetPhysician(ctx, visit.PhysicianID); perr == nil {
		if patient, perr := b.patients.GetPatient(ctx, visit.PatientID); perr == nil {
			b.notifyVisit(ctx, "visit-rescheduled", phys, patient, replacement)
		}
	}
	return replacement, nil
}

// AttachDiagnosis links a diagnosis to the visit.
func (b *Booking) AttachDiagnosis(ctx context.Context, id, diagnosisID uuid.UUID) (*Visit, error) {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.State == StateCompleted {
		return nil, ErrCompletedImmutable
	}
	if visit.State == StateCancelled {
		return nil, errors.New("cannot attach a diagnosis to a cancelled visit")
	}
	visit.DiagnosisID = &diagnosisID
	if err := b.visits.Update(ctx, visit); err != nil {
		return nil, err
	}
	return visit, nil
}

// UpdateNotes edits the free-text notes. Completed visits are immutable.
func (b *Booking) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Visit, error) {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.State == StateCompleted {
		return nil, ErrCompletedImmutable
	}
	visit.Notes = notes
	if err := b.visits.Update(ctx, visit); err != nil {
		return nil, err
	}
	return visit, nil
}

// Delete removes a visit. Completed visits are kept forever.
func (b *Booking) Delete(ctx context.Context, id uuid.UUID) error {
	visit, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	if visit.State == StateCompleted {
		return ErrCompletedDelete
	}
	return b.visits.Delete(ctx, id)
}

func (b *Booking) ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return b.visits.ListByPhysician(ctx, physicianID, limit, offset)
}

func (b *Booking) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return b.visits.ListByPatient(ctx, patientID, limit, offset)
}

func (b *Booking) notifyVisit(ctx context.Context, template string, phys *identity.Physician, patient *identity.Patient, visit *Visit) {
	if b.notifier == nil {
		return
	}
	_, _ = b.notifier.SendTemplate(ctx, template, patient.Name(), map[string]string{
		"patient_name":   patient.Name(),
		"physician_name": phys.Name(),
		"date":           visit.VisitDate.Format("2006-01-02"),
		"time":           timeslot.Clock(visit.VisitTime),
	})
}

func transitionError(from, to string) error {
	return fmt.Errorf("cannot move visit from %s to %s", from, to)
}
