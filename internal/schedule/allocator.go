package schedule

import (
	"errors"
	"strings"

	"github.com/arka-edu/school-suite-api/internal/models"
)

// Sentinel outcomes of period allocation. Both are expected, recoverable
// results of a single call; neither mutates caller state.
var (
	// ErrAllDaysFilled means every working day is out of room.
	ErrAllDaysFilled = errors.New("all working days are filled")
	// ErrSlotOccupied means the computed slot collides with an existing
	// period, which can happen when the list was edited concurrently.
	ErrSlotOccupied = errors.New("slot occupied")
)

// Allocator places successive periods for one section against a time grid.
type Allocator struct {
	grid *Grid
}

// NewAllocator builds an allocator over a validated grid.
func NewAllocator(grid *Grid) *Allocator {
	return &Allocator{grid: grid}
}

// Next computes the next period for the section given the periods placed so
// far. It returns ErrAllDaysFilled when no working day has room left, and
// ErrSlotOccupied when the computed slot unexpectedly collides.
//
// The target day is derived from the chronologically latest day that holds
// periods, not from the last list element, so out-of-order edits cannot
// push the allocator backwards through the week.
func (a *Allocator) Next(section string, periods []models.Period) (models.Period, error) {
	grid := a.grid

	if len(periods) == 0 {
		return a.finish(periods, a.firstOfDay(section, grid.WorkingDays[0]))
	}

	dayIdx := a.latestOccupiedDay(periods)
	if dayIdx < 0 {
		// No period falls on a configured working day; start the week over.
		return a.finish(periods, a.firstOfDay(section, grid.WorkingDays[0]))
	}

	// Probe whether the current day has room for even a minimum-length
	// period; if not, advance a day. A remainder at or above the minimum
	// stays on the day so it can be filled by a shortened trailing period.
	lastEnd := a.lastEndOn(periods, grid.WorkingDays[dayIdx])
	if MinutesBetween(lastEnd, grid.End) < grid.Policy.MinPeriodMinutes {
		dayIdx++
		if dayIdx >= len(grid.WorkingDays) {
			return models.Period{}, ErrAllDaysFilled
		}
	}

	day := grid.WorkingDays[dayIdx]
	sameDay := periodsOn(periods, day)
	if len(sameDay) == 0 {
		return a.finish(periods, a.firstOfDay(section, day))
	}

	lastOfDay := sameDay[len(sameDay)-1]
	lastOfDayEnd, err := ParseClock(lastOfDay.EndTime)
	if err != nil {
		return models.Period{}, err
	}
	remaining := MinutesBetween(lastOfDayEnd, grid.End)

	if a.shouldInsertBreak(sameDay, remaining) {
		return a.finish(periods, models.Period{
			Day:          day,
			PeriodNumber: len(sameDay) + 1,
			StartTime:    lastOfDayEnd.String(),
			EndTime:      AddMinutes(lastOfDayEnd, grid.BreakDuration).String(),
			PeriodType:   models.PeriodTypeBreak,
			Section:      section,
		})
	}

	next := models.Period{
		Day:          day,
		PeriodNumber: len(sameDay) + 1,
		StartTime:    lastOfDayEnd.String(),
		PeriodType:   models.PeriodTypeLecture,
		Section:      section,
	}

	switch {
	case remaining >= grid.PeriodDuration:
		next.EndTime = AddMinutes(lastOfDayEnd, grid.PeriodDuration).String()
	case remaining >= grid.Policy.MinPeriodMinutes:
		// A short trailing period beats wasted time or a rejected add.
		next.EndTime = grid.End.String()
	default:
		dayIdx++
		if dayIdx >= len(grid.WorkingDays) {
			return models.Period{}, ErrAllDaysFilled
		}
		next = a.firstOfDay(section, grid.WorkingDays[dayIdx])
	}

	return a.finish(periods, next)
}

// ValidateEdit re-checks an in-place period edit against the rest of the
// list. A failed check leaves the list untouched and the edit discarded.
func (a *Allocator) ValidateEdit(periods []models.Period, candidate models.Period, index int) error {
	if Overlaps(periods, candidate, index) {
		return ErrSlotOccupied
	}
	return nil
}

func (a *Allocator) finish(periods []models.Period, next models.Period) (models.Period, error) {
	// Construction above should not collide, but concurrent or manual edits
	// can leave the list in a state the day heuristics did not anticipate.
	if Overlaps(periods, next, -1) {
		return models.Period{}, ErrSlotOccupied
	}
	return next, nil
}

func (a *Allocator) firstOfDay(section, day string) models.Period {
	return models.Period{
		Day:          day,
		PeriodNumber: 1,
		StartTime:    a.grid.Start.String(),
		EndTime:      AddMinutes(a.grid.Start, a.grid.FirstPeriodDuration).String(),
		PeriodType:   models.PeriodTypeLecture,
		Section:      section,
	}
}

func (a *Allocator) shouldInsertBreak(sameDay []models.Period, remaining int) bool {
	if a.grid.BreakDuration <= 0 {
		return false
	}
	lectures := 0
	for _, p := range sameDay {
		switch p.PeriodType {
		case models.PeriodTypeBreak:
			return false
		case models.PeriodTypeLecture:
			lectures++
		}
	}
	if lectures < a.grid.Policy.LecturesBeforeBreak {
		return false
	}
	return remaining >= a.grid.BreakDuration+a.grid.PeriodDuration
}

// latestOccupiedDay returns the highest working-day index that holds at
// least one period, or -1 when none falls on a working day.
func (a *Allocator) latestOccupiedDay(periods []models.Period) int {
	latest := -1
	for _, p := range periods {
		if idx := a.grid.DayIndex(p.Day); idx > latest {
			latest = idx
		}
	}
	return latest
}

// lastEndOn returns the latest end time among the day's periods.
func (a *Allocator) lastEndOn(periods []models.Period, day string) Clock {
	var last Clock
	for _, p := range periodsOn(periods, day) {
		if end, err := ParseClock(p.EndTime); err == nil && end > last {
			last = end
		}
	}
	return last
}

// periodsOn gathers the day's periods sorted chronologically by start time.
func periodsOn(periods []models.Period, day string) []models.Period {
	normalized := strings.ToUpper(strings.TrimSpace(day))
	var out []models.Period
	for _, p := range periods {
		if strings.ToUpper(strings.TrimSpace(p.Day)) == normalized {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, errA := ParseClock(out[j-1].StartTime)
			b, errB := ParseClock(out[j].StartTime)
			if errA != nil || errB != nil || a <= b {
				break
			}
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
