package scheduling

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/pkg/timeslot"
)

// Fixed clock for every test: Wednesday 2026-03-04, 10:00.
var testNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -- Mock Repositories --

type mockSlotRepo struct {
	slots map[uuid.UUID]*ScheduleSlot
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[uuid.UUID]*ScheduleSlot)}
}

func slotMatches(s *ScheduleSlot, physicianID uuid.UUID, d time.Time, t float64) bool {
	return s.PhysicianID == physicianID && s.Date.Equal(timeslot.DateOnly(d)) && s.SlotTime == t
}

func (m *mockSlotRepo) Create(_ context.Context, s *ScheduleSlot) error {
	for _, existing := range m.slots {
		if slotMatches(existing, s.PhysicianID, s.Date, s.SlotTime) {
			return ErrSlotExists
		}
	}
	s.ID = uuid.New()
	s.Date = timeslot.DateOnly(s.Date)
	s.CreatedAt = time.Now()
	m.slots[s.ID] = s
	return nil
}

func (m *mockSlotRepo) Find(_ context.Context, physicianID uuid.UUID, d time.Time, t float64) (*ScheduleSlot, error) {
	for _, s := range m.slots {
		if slotMatches(s, physicianID, d, t) {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockSlotRepo) ListRange(_ context.Context, physicianID uuid.UUID, from, to time.Time) ([]*ScheduleSlot, error) {
	var result []*ScheduleSlot
	for _, s := range m.slots {
		if s.PhysicianID == physicianID && !s.Date.Before(from) && !s.Date.After(to) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSlotRepo) DeleteRange(_ context.Context, physicianID uuid.UUID, from, to time.Time) (int, error) {
	deleted := 0
	for id, s := range m.slots {
		if s.PhysicianID == physicianID && !s.Date.Before(from) && !s.Date.After(to) {
			delete(m.slots, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockSlotRepo) CountRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error) {
	items, _ := m.ListRange(ctx, physicianID, from, to)
	return len(items), nil
}

func (m *mockSlotRepo) TryLock(ctx context.Context, physicianID uuid.UUID, d time.Time, t float64) (*ScheduleSlot, error) {
	return m.Find(ctx, physicianID, d, t)
}

type mockVisitRepo struct {
	visits map[uuid.UUID]*Visit
}

func newMockVisitRepo() *mockVisitRepo {
	return &mockVisitRepo{visits: make(map[uuid.UUID]*Visit)}
}

func (m *mockVisitRepo) Create(_ context.Context, v *Visit) error {
	v.ID = uuid.New()
	v.VisitDate = timeslot.DateOnly(v.VisitDate)
	v.CreatedAt = time.Now()
	v.UpdatedAt = time.Now()
	cp := *v
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockVisitRepo) GetByID(_ context.Context, id uuid.UUID) (*Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (m *mockVisitRepo) Update(_ context.Context, v *Visit) error {
	if _, ok := m.visits[v.ID]; !ok {
		return fmt.Errorf("not found")
	}
	v.UpdatedAt = time.Now()
	cp := *v
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockVisitRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.visits, id)
	return nil
}

func (m *mockVisitRepo) ListByPhysician(_ context.Context, physicianID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var result []*Visit
	for _, v := range m.visits {
		if v.PhysicianID == physicianID {
			result = append(result, v)
		}
	}
	return result, len(result), nil
}

func (m *mockVisitRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var result []*Visit
	for _, v := range m.visits {
		if v.PatientID == patientID {
			result = append(result, v)
		}
	}
	return result, len(result), nil
}

func (m *mockVisitRepo) FindConflict(_ context.Context, physicianID uuid.UUID, d time.Time, t float64, excludeID uuid.UUID) (*Visit, error) {
	for _, v := range m.visits {
		if v.ID != excludeID && v.PhysicianID == physicianID && v.VisitDate.Equal(timeslot.DateOnly(d)) &&
			v.VisitTime == t && v.State != StateCancelled {
			cp := *v
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockVisitRepo) FindPatientSameDay(_ context.Context, patientID uuid.UUID, d time.Time, excludeID uuid.UUID) (*Visit, error) {
	for _, v := range m.visits {
		if v.ID != excludeID && v.PatientID == patientID && v.VisitDate.Equal(timeslot.DateOnly(d)) &&
			v.State != StateCancelled {
			cp := *v
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// -- Mock Directories --

type mockDirectory struct {
	physicians map[uuid.UUID]*identity.Physician
	patients   map[uuid.UUID]*identity.Patient
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		physicians: make(map[uuid.UUID]*identity.Physician),
		patients:   make(map[uuid.UUID]*identity.Patient),
	}
}

func (m *mockDirectory) GetPhysician(_ context.Context, id uuid.UUID) (*identity.Physician, error) {
	p, ok := m.physicians[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockDirectory) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockDirectory) addPhysician(intern bool) *identity.Physician {
	p := &identity.Physician{ID: uuid.New(), FirstName: "Gregory", LastName: "House", IsIntern: intern}
	m.physicians[p.ID] = p
	return p
}

func (m *mockDirectory) addPatient() *identity.Patient {
	p := &identity.Patient{ID: uuid.New(), FirstName: "John", LastName: "Doe"}
	m.patients[p.ID] = p
	return p
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type bookingFixture struct {
	booking *Booking
	slots   *mockSlotRepo
	visits  *mockVisitRepo
	dir     *mockDirectory
	phys    *identity.Physician
	patient *identity.Patient
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	slots := newMockSlotRepo()
	visits := newMockVisitRepo()
	dir := newMockDirectory()
	b := NewBooking(visits, slots, dir, dir, passthroughTx, nil)
	b.SetClock(fixedClock)

	f := &bookingFixture{booking: b, slots: slots, visits: visits, dir: dir}
	f.phys = dir.addPhysician(false)
	f.patient = dir.addPatient()
	return f
}

// addSlot seeds a schedule slot directly, the way migrations or the
// generator would.
func (f *bookingFixture) addSlot(t *testing.T, d time.Time, slotTime float64) *ScheduleSlot {
	t.Helper()
	s := &ScheduleSlot{PhysicianID: f.phys.ID, Date: d, SlotTime: slotTime}
	if err := f.slots.Create(context.Background(), s); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return s
}

func (f *bookingFixture) create(t *testing.T, d time.Time, slotTime float64) *Visit {
	t.Helper()
	v, err := f.booking.Create(context.Background(), f.phys.ID, f.patient.ID, d, slotTime, "checkup")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return v
}

// Thursday after the fixed clock date.
var bookDay = date(2026, 3, 5)

// -- Create / Validation --

func TestCreateVisit(t *testing.T) {
	f := newBookingFixture(t)
	slot := f.addSlot(t, bookDay, 9.5)

	v := f.create(t, bookDay, 9.5)

	if v.State != StateDraft {
		t.Errorf("state = %q, want draft", v.State)
	}
	if v.SlotID == nil || *v.SlotID != slot.ID {
		t.Error("visit not linked to its slot")
	}
	if v.Notes != "checkup" {
		t.Errorf("notes = %q", v.Notes)
	}
}

func TestCreateVisitValidation(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)

	tests := []struct {
		name string
		date time.Time
		time float64
		want error
	}{
		{"before opening", bookDay, 7.5, timeslot.ErrOutOfHours},
		{"at closing", bookDay, 18.0, timeslot.ErrOutOfHours},
		{"quarter hour", bookDay, 9.25, timeslot.ErrNotOnBoundary},
		{"saturday", date(2026, 3, 7), 9.5, timeslot.ErrWeekend},
		{"sunday", date(2026, 3, 8), 9.5, timeslot.ErrWeekend},
		{"yesterday", date(2026, 3, 3), 9.5, timeslot.ErrPastDate},
		{"earlier today", testNow, 8.5, timeslot.ErrPastDate},
		{"no slot", bookDay, 11.0, ErrNoSlot},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.booking.Create(context.Background(), f.phys.ID, f.patient.ID, tc.date, tc.time, "")
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateVisitSlotConflict(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	f.create(t, bookDay, 9.5)

	other := f.dir.addPatient()
	_, err := f.booking.Create(context.Background(), f.phys.ID, other.ID, bookDay, 9.5, "")
	if !errors.Is(err, ErrSlotContended) {
		t.Errorf("err = %v, want ErrSlotContended", err)
	}
}

func TestCreateVisitSamePatientSameDay(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	f.addSlot(t, bookDay, 14.0)
	f.create(t, bookDay, 9.5)

	_, err := f.booking.Create(context.Background(), f.phys.ID, f.patient.ID, bookDay, 14.0, "")
	if !errors.Is(err, ErrSameDayVisit) {
		t.Errorf("err = %v, want ErrSameDayVisit", err)
	}
}

func TestCreateVisitUnknownParties(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)

	if _, err := f.booking.Create(context.Background(), uuid.New(), f.patient.ID, bookDay, 9.5, ""); !errors.Is(err, ErrUnknownPhysician) {
		t.Errorf("err = %v, want ErrUnknownPhysician", err)
	}
	if _, err := f.booking.Create(context.Background(), f.phys.ID, uuid.New(), bookDay, 9.5, ""); !errors.Is(err, ErrUnknownPatient) {
		t.Errorf("err = %v, want ErrUnknownPatient", err)
	}
}

// -- State Machine --

func TestVisitLifecycle(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)

	ctx := context.Background()
	if v, _ = f.booking.Schedule(ctx, v.ID); v.State != StateScheduled {
		t.Fatalf("after Schedule state = %q", v.State)
	}
	if v, _ = f.booking.Start(ctx, v.ID); v.State != StateInProgress {
		t.Fatalf("after Start state = %q", v.State)
	}
	diagID := uuid.New()
	if _, err := f.booking.AttachDiagnosis(ctx, v.ID, diagID); err != nil {
		t.Fatalf("AttachDiagnosis: %v", err)
	}
	v, err := f.booking.Complete(ctx, v.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if v.State != StateCompleted {
		t.Errorf("state = %q, want completed", v.State)
	}
}

func TestIllegalTransitions(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()

	// draft cannot start or complete
	if _, err := f.booking.Start(ctx, v.ID); err == nil {
		t.Error("Start from draft should fail")
	}
	if _, err := f.booking.Complete(ctx, v.ID); err == nil {
		t.Error("Complete from draft should fail")
	}

	// scheduled cannot schedule again
	if _, err := f.booking.Schedule(ctx, v.ID); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, err := f.booking.Schedule(ctx, v.ID); err == nil {
		t.Error("Schedule twice should fail")
	}
}

func TestCompleteRequiresDiagnosis(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()

	f.booking.Schedule(ctx, v.ID)
	f.booking.Start(ctx, v.ID)

	_, err := f.booking.Complete(ctx, v.ID)
	if !errors.Is(err, ErrNeedsDiagnosis) {
		t.Errorf("err = %v, want ErrNeedsDiagnosis", err)
	}
}

func completedVisit(t *testing.T, f *bookingFixture) *Visit {
	t.Helper()
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()
	f.booking.Schedule(ctx, v.ID)
	f.booking.Start(ctx, v.ID)
	f.booking.AttachDiagnosis(ctx, v.ID, uuid.New())
	v, err := f.booking.Complete(ctx, v.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return v
}

func TestCompletedVisitIsImmutable(t *testing.T) {
	f := newBookingFixture(t)
	v := completedVisit(t, f)
	ctx := context.Background()

	if _, err := f.booking.UpdateNotes(ctx, v.ID, "edited"); !errors.Is(err, ErrCompletedImmutable) {
		t.Errorf("UpdateNotes err = %v, want ErrCompletedImmutable", err)
	}
	if _, err := f.booking.AttachDiagnosis(ctx, v.ID, uuid.New()); !errors.Is(err, ErrCompletedImmutable) {
		t.Errorf("AttachDiagnosis err = %v, want ErrCompletedImmutable", err)
	}
	if err := f.booking.Delete(ctx, v.ID); !errors.Is(err, ErrCompletedDelete) {
		t.Errorf("Delete err = %v, want ErrCompletedDelete", err)
	}
	if _, err := f.booking.Cancel(ctx, v.ID); err == nil {
		t.Error("Cancel of completed visit should fail")
	}
}

// -- Cancel --

func TestCancelFreesSlot(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()

	if _, err := f.booking.Cancel(ctx, v.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// The freed slot is bookable again.
	other := f.dir.addPatient()
	if _, err := f.booking.Create(ctx, f.phys.ID, other.ID, bookDay, 9.5, ""); err != nil {
		t.Errorf("rebooking freed slot: %v", err)
	}
}

func TestCancelInProgressRejected(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()
	f.booking.Schedule(ctx, v.ID)
	f.booking.Start(ctx, v.ID)

	if _, err := f.booking.Cancel(ctx, v.ID); err == nil {
		t.Error("Cancel of in_progress visit should fail")
	}
}

func TestCancelIdempotent(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()

	if _, err := f.booking.Cancel(ctx, v.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.booking.Cancel(ctx, v.ID); err != nil {
		t.Errorf("second Cancel: %v", err)
	}
}

// -- Reschedule --

func TestReschedule(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()
	f.booking.Schedule(ctx, v.ID)

	// Monday next week; the target slot does not exist yet.
	target := date(2026, 3, 9)
	moved, err := f.booking.Reschedule(ctx, v.ID, target, 14.0)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	if moved.State != StateScheduled {
		t.Errorf("new visit state = %q, want scheduled", moved.State)
	}
	if !moved.VisitDate.Equal(target) || moved.VisitTime != 14.0 {
		t.Errorf("new visit at %v %v", moved.VisitDate, moved.VisitTime)
	}
	if moved.Notes != "checkup" {
		t.Error("notes not carried over")
	}

	old, _ := f.booking.Get(ctx, v.ID)
	if old.State != StateCancelled {
		t.Errorf("old visit state = %q, want cancelled", old.State)
	}

	// Slot was created on demand.
	if _, err := f.slots.Find(ctx, f.phys.ID, target, 14.0); err != nil {
		t.Error("target slot was not created")
	}
}

func TestRescheduleToWeekendRejected(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)

	_, err := f.booking.Reschedule(context.Background(), v.ID, date(2026, 3, 7), 9.5)
	if !errors.Is(err, timeslot.ErrWeekend) {
		t.Errorf("err = %v, want ErrWeekend", err)
	}
}

func TestRescheduleWrongStateRejected(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	v := f.create(t, bookDay, 9.5)
	ctx := context.Background()
	f.booking.Schedule(ctx, v.ID)
	f.booking.Start(ctx, v.ID)

	if _, err := f.booking.Reschedule(ctx, v.ID, date(2026, 3, 9), 14.0); err == nil {
		t.Error("Reschedule of in_progress visit should fail")
	}
}

func TestRescheduleIntoOccupiedSlotRejected(t *testing.T) {
	f := newBookingFixture(t)
	f.addSlot(t, bookDay, 9.5)
	f.addSlot(t, date(2026, 3, 9), 14.0)
	v := f.create(t, bookDay, 9.5)

	other := f.dir.addPatient()
	ctx := context.Background()
	if _, err := f.booking.Create(ctx, f.phys.ID, other.ID, date(2026, 3, 9), 14.0, ""); err != nil {
		t.Fatalf("seed occupying visit: %v", err)
	}

	_, err := f.booking.Reschedule(ctx, v.ID, date(2026, 3, 9), 14.0)
	if !errors.Is(err, ErrSlotContended) {
		t.Errorf("err = %v, want ErrSlotContended", err)
	}
}
