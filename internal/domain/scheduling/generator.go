package scheduling

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/notify"
	"github.com/hms/hms/pkg/timeslot"
)

var (
	ErrUnknownPhysician = errors.New("physician not found")
	ErrInternSchedule   = errors.New("interns do not have their own schedule")
)

// PhysicianDirectory resolves physicians from the identity domain.
type PhysicianDirectory interface {
	GetPhysician(ctx context.Context, id uuid.UUID) (*identity.Physician, error)
}

// Generator creates schedule slots for physicians over date ranges.
type Generator struct {
	slots      SlotRepository
	physicians PhysicianDirectory
	tx         db.TxRunner
	notifier   *notify.Notifier
	now        func() time.Time
}

func NewGenerator(slots SlotRepository, physicians PhysicianDirectory, tx db.TxRunner, notifier *notify.Notifier) *Generator {
	return &Generator{
		slots:      slots,
		physicians: physicians,
		tx:         tx,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (g *Generator) resolvePhysician(ctx context.Context, id uuid.UUID) (*identity.Physician, error) {
	phys, err := g.physicians.GetPhysician(ctx, id)
	if err != nil {
		return nil, ErrUnknownPhysician
	}
	if phys.IsIntern {
		return nil, ErrInternSchedule
	}
	return phys, nil
}

// generateDays walks the date range and inserts the given times on every
// weekday, skipping slots that already exist. Returns the number created.
func (g *Generator) generateDays(ctx context.Context, physicianID uuid.UUID, from, to time.Time, times func(day time.Time) []float64) (int, error) {
	created := 0
	for day := timeslot.DateOnly(from); !day.After(timeslot.DateOnly(to)); day = day.AddDate(0, 0, 1) {
		if !timeslot.IsWeekday(day) {
			continue
		}
		for _, t := range times(day) {
			err := g.slots.Create(ctx, &ScheduleSlot{PhysicianID: physicianID, Date: day, SlotTime: t})
			if errors.Is(err, ErrSlotExists) {
				continue
			}
			if err != nil {
				return 0, err
			}
			created++
		}
	}
	return created, nil
}

func (g *Generator) notifyGenerated(ctx context.Context, phys *identity.Physician, created int, from, to time.Time) {
	if g.notifier == nil {
		return
	}
	// Delivery failure must not fail the generation.
	_, _ = g.notifier.SendTemplate(ctx, "schedule-generated", phys.Name(), map[string]string{
		"physician_name": phys.Name(),
		"slot_count":     strconv.Itoa(created),
		"from":           from.Format("2006-01-02"),
		"to":             to.Format("2006-01-02"),
	})
}

// GenerateRange fills every weekday in [from, to] with the full set of
// half-hour slots. Existing slots are left alone, so the operation is
// idempotent.
func (g *Generator) GenerateRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error) {
	phys, err := g.resolvePhysician(ctx, physicianID)
	if err != nil {
		return 0, err
	}
	if err := timeslot.ValidateRange(from, to, g.now()); err != nil {
		return 0, err
	}

	var created int
	err = g.tx(ctx, func(ctx context.Context) error {
		created, err = g.generateDays(ctx, physicianID, from, to, func(time.Time) []float64 {
			return timeslot.Times()
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	g.notifyGenerated(ctx, phys, created, from, to)
	return created, nil
}

// ClearAndRegenerate deletes all slots in the range and generates a fresh
// set, atomically.
func (g *Generator) ClearAndRegenerate(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error) {
	phys, err := g.resolvePhysician(ctx, physicianID)
	if err != nil {
		return 0, err
	}
	if err := timeslot.ValidateRange(from, to, g.now()); err != nil {
		return 0, err
	}

	var created int
	err = g.tx(ctx, func(ctx context.Context) error {
		if _, err := g.slots.DeleteRange(ctx, physicianID, timeslot.DateOnly(from), timeslot.DateOnly(to)); err != nil {
			return err
		}
		created, err = g.generateDays(ctx, physicianID, from, to, func(time.Time) []float64 {
			return timeslot.Times()
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	g.notifyGenerated(ctx, phys, created, from, to)
	return created, nil
}

// GenerateMonth fills the named calendar month. When the month has already
// started, generation begins today rather than failing on past dates.
func (g *Generator) GenerateMonth(ctx context.Context, physicianID uuid.UUID, year int, month time.Month) (int, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	today := timeslot.DateOnly(g.now())
	if last.Before(today) {
		return 0, timeslot.ErrPastDate
	}
	if first.Before(today) {
		first = today
	}
	return g.GenerateRange(ctx, physicianID, first, last)
}

// GenerateNextWeek fills Monday through Friday of the week after the
// current one.
func (g *Generator) GenerateNextWeek(ctx context.Context, physicianID uuid.UUID) (int, error) {
	today := timeslot.DateOnly(g.now())
	daysUntilMonday := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	monday := today.AddDate(0, 0, daysUntilMonday)
	friday := monday.AddDate(0, 0, 4)
	return g.GenerateRange(ctx, physicianID, monday, friday)
}

// GenerateAlternating fills the range with a recurring half-day pattern:
// mornings on even ISO weeks and afternoons on odd weeks, or the reverse
// when morningOnEven is false.
func (g *Generator) GenerateAlternating(ctx context.Context, physicianID uuid.UUID, from, to time.Time, morningOnEven bool) (int, error) {
	phys, err := g.resolvePhysician(ctx, physicianID)
	if err != nil {
		return 0, err
	}
	if err := timeslot.ValidateRange(from, to, g.now()); err != nil {
		return 0, err
	}

	var created int
	err = g.tx(ctx, func(ctx context.Context) error {
		created, err = g.generateDays(ctx, physicianID, from, to, func(day time.Time) []float64 {
			if timeslot.IsEvenISOWeek(day) == morningOnEven {
				return timeslot.MorningTimes()
			}
			return timeslot.AfternoonTimes()
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	g.notifyGenerated(ctx, phys, created, from, to)
	return created, nil
}

// CountRange reports how many slots exist for the physician in [from, to].
func (g *Generator) CountRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) (int, error) {
	return g.slots.CountRange(ctx, physicianID, timeslot.DateOnly(from), timeslot.DateOnly(to))
}

// ListRange returns the physician's slots in [from, to] ordered by date and
// time.
func (g *Generator) ListRange(ctx context.Context, physicianID uuid.UUID, from, to time.Time) ([]*ScheduleSlot, error) {
	if _, err := g.physicians.GetPhysician(ctx, physicianID); err != nil {
		return nil, ErrUnknownPhysician
	}
	return g.slots.ListRange(ctx, physicianID, timeslot.DateOnly(from), timeslot.DateOnly(to))
}

// SetClock overrides the wall clock. Tests only.
func (g *Generator) SetClock(now func() time.Time) { g.now = now }
