package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/pkg/timeslot"
)

type generatorFixture struct {
	generator *Generator
	slots     *mockSlotRepo
	dir       *mockDirectory
	phys      *identity.Physician
}

func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()
	slots := newMockSlotRepo()
	dir := newMockDirectory()
	g := NewGenerator(slots, dir, passthroughTx, nil)
	g.SetClock(fixedClock)
	return &generatorFixture{generator: g, slots: slots, dir: dir, phys: dir.addPhysician(false)}
}

func TestGenerateRange(t *testing.T) {
	f := newGeneratorFixture(t)

	// Thursday and Friday: 20 slots each.
	created, err := f.generator.GenerateRange(context.Background(), f.phys.ID, date(2026, 3, 5), date(2026, 3, 6))
	if err != nil {
		t.Fatalf("GenerateRange: %v", err)
	}
	if created != 40 {
		t.Errorf("created = %d, want 40", created)
	}
}

func TestGenerateRangeIdempotent(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()

	if _, err := f.generator.GenerateRange(ctx, f.phys.ID, date(2026, 3, 5), date(2026, 3, 5)); err != nil {
		t.Fatalf("first GenerateRange: %v", err)
	}
	created, err := f.generator.GenerateRange(ctx, f.phys.ID, date(2026, 3, 5), date(2026, 3, 5))
	if err != nil {
		t.Fatalf("second GenerateRange: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
}

func TestGenerateRangeSkipsWeekends(t *testing.T) {
	f := newGeneratorFixture(t)

	// Thursday through Sunday: only Thursday and Friday are filled.
	created, err := f.generator.GenerateRange(context.Background(), f.phys.ID, date(2026, 3, 5), date(2026, 3, 8))
	if err != nil {
		t.Fatalf("GenerateRange: %v", err)
	}
	if created != 40 {
		t.Errorf("created = %d, want 40", created)
	}
	for _, s := range f.slots.slots {
		if !timeslot.IsWeekday(s.Date) {
			t.Errorf("slot generated on weekend: %v", s.Date)
		}
	}
}

func TestGenerateRangeValidation(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()

	if _, err := f.generator.GenerateRange(ctx, f.phys.ID, date(2026, 3, 3), date(2026, 3, 5)); !errors.Is(err, timeslot.ErrPastDate) {
		t.Errorf("past start err = %v, want ErrPastDate", err)
	}
	if _, err := f.generator.GenerateRange(ctx, f.phys.ID, date(2026, 3, 6), date(2026, 3, 5)); !errors.Is(err, timeslot.ErrRangeInverted) {
		t.Errorf("inverted range err = %v, want ErrRangeInverted", err)
	}
	if _, err := f.generator.GenerateRange(ctx, uuid.New(), date(2026, 3, 5), date(2026, 3, 6)); !errors.Is(err, ErrUnknownPhysician) {
		t.Errorf("unknown physician err = %v, want ErrUnknownPhysician", err)
	}

	intern := f.dir.addPhysician(true)
	if _, err := f.generator.GenerateRange(ctx, intern.ID, date(2026, 3, 5), date(2026, 3, 6)); !errors.Is(err, ErrInternSchedule) {
		t.Errorf("intern err = %v, want ErrInternSchedule", err)
	}
}

func TestClearAndRegenerate(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()

	if _, err := f.generator.GenerateRange(ctx, f.phys.ID, date(2026, 3, 5), date(2026, 3, 5)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	created, err := f.generator.ClearAndRegenerate(ctx, f.phys.ID, date(2026, 3, 5), date(2026, 3, 5))
	if err != nil {
		t.Fatalf("ClearAndRegenerate: %v", err)
	}
	if created != 20 {
		t.Errorf("created = %d, want 20 (full day after clearing)", created)
	}
	count, _ := f.generator.CountRange(ctx, f.phys.ID, date(2026, 3, 5), date(2026, 3, 5))
	if count != 20 {
		t.Errorf("count after regenerate = %d, want 20", count)
	}
}

func TestGenerateMonthClampsToToday(t *testing.T) {
	f := newGeneratorFixture(t)

	// The clock says March 4; March 1-3 must not be generated.
	created, err := f.generator.GenerateMonth(context.Background(), f.phys.ID, 2026, time.March)
	if err != nil {
		t.Fatalf("GenerateMonth: %v", err)
	}
	if created == 0 {
		t.Fatal("no slots generated")
	}
	for _, s := range f.slots.slots {
		if s.Date.Before(date(2026, 3, 4)) {
			t.Errorf("slot generated before today: %v", s.Date)
		}
	}
}

func TestGenerateMonthInPastRejected(t *testing.T) {
	f := newGeneratorFixture(t)

	_, err := f.generator.GenerateMonth(context.Background(), f.phys.ID, 2026, time.February)
	if !errors.Is(err, timeslot.ErrPastDate) {
		t.Errorf("err = %v, want ErrPastDate", err)
	}
}

func TestGenerateNextWeek(t *testing.T) {
	f := newGeneratorFixture(t)

	created, err := f.generator.GenerateNextWeek(context.Background(), f.phys.ID)
	if err != nil {
		t.Fatalf("GenerateNextWeek: %v", err)
	}
	// Monday March 9 through Friday March 13, 20 slots a day.
	if created != 100 {
		t.Errorf("created = %d, want 100", created)
	}
	monday, friday := date(2026, 3, 9), date(2026, 3, 13)
	for _, s := range f.slots.slots {
		if s.Date.Before(monday) || s.Date.After(friday) {
			t.Errorf("slot outside next week: %v", s.Date)
		}
	}
}

func TestGenerateAlternating(t *testing.T) {
	f := newGeneratorFixture(t)

	// March 5-6 fall in ISO week 10 (even), March 9-13 in week 11 (odd).
	// With morningOnEven, the first week gets mornings, the second
	// afternoons.
	created, err := f.generator.GenerateAlternating(context.Background(), f.phys.ID, date(2026, 3, 5), date(2026, 3, 13), true)
	if err != nil {
		t.Fatalf("GenerateAlternating: %v", err)
	}
	// 2 days x 10 morning slots + 5 days x 10 afternoon slots.
	if created != 70 {
		t.Errorf("created = %d, want 70", created)
	}
	for _, s := range f.slots.slots {
		morning := s.SlotTime < timeslot.MiddayTime
		if timeslot.IsEvenISOWeek(s.Date) && !morning {
			t.Errorf("afternoon slot in even week: %v %v", s.Date, s.SlotTime)
		}
		if !timeslot.IsEvenISOWeek(s.Date) && morning {
			t.Errorf("morning slot in odd week: %v %v", s.Date, s.SlotTime)
		}
	}
}
