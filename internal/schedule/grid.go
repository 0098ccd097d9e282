package schedule

import (
	"fmt"
	"strings"

	"github.com/arka-edu/school-suite-api/internal/models"
)

// Default policy values. Different schools run different conventions, so
// both knobs stay configurable and these defaults only apply when unset.
const (
	DefaultLecturesBeforeBreak = 4
	DefaultMinPeriodMinutes    = 15
)

// Policy carries the allocation conventions that are not derivable from a
// timetable's time grid.
type Policy struct {
	// LecturesBeforeBreak is how many lecture periods a day accumulates
	// before the allocator inserts the day's break.
	LecturesBeforeBreak int
	// MinPeriodMinutes is the shortest trailing period worth placing. A
	// remainder below this rolls the allocation to the next working day.
	MinPeriodMinutes int
}

func (p Policy) withDefaults() Policy {
	if p.LecturesBeforeBreak <= 0 {
		p.LecturesBeforeBreak = DefaultLecturesBeforeBreak
	}
	if p.MinPeriodMinutes <= 0 {
		p.MinPeriodMinutes = DefaultMinPeriodMinutes
	}
	return p
}

// Grid is the validated, parsed form of a models.TimeGrid together with the
// allocation policy. It is immutable once built.
type Grid struct {
	Start               Clock
	End                 Clock
	PeriodDuration      int
	FirstPeriodDuration int
	BreakDuration       int
	LunchDuration       int
	WorkingDays         []string
	Policy              Policy
}

// NewGrid parses and validates a time grid. Validation happens once at
// timetable creation; the allocator assumes it is dealing with a valid grid.
func NewGrid(tg models.TimeGrid, policy Policy) (*Grid, error) {
	start, err := ParseClock(tg.SchoolStartTime)
	if err != nil {
		return nil, fmt.Errorf("school start time: %w", err)
	}
	end, err := ParseClock(tg.SchoolEndTime)
	if err != nil {
		return nil, fmt.Errorf("school end time: %w", err)
	}
	if MinutesBetween(start, end) <= 0 {
		return nil, fmt.Errorf("school start time %s must precede end time %s", tg.SchoolStartTime, tg.SchoolEndTime)
	}
	if tg.PeriodDuration <= 0 {
		return nil, fmt.Errorf("period duration must be positive, got %d", tg.PeriodDuration)
	}
	if tg.FirstPeriodDuration < 0 {
		return nil, fmt.Errorf("first period duration must not be negative, got %d", tg.FirstPeriodDuration)
	}
	if tg.BreakDuration < 0 || tg.LunchDuration < 0 {
		return nil, fmt.Errorf("break and lunch durations must not be negative")
	}
	if len(tg.WorkingDays) == 0 {
		return nil, fmt.Errorf("at least one working day is required")
	}

	days := make([]string, 0, len(tg.WorkingDays))
	seen := make(map[string]struct{}, len(tg.WorkingDays))
	for _, day := range tg.WorkingDays {
		normalized := strings.ToUpper(strings.TrimSpace(day))
		if normalized == "" {
			return nil, fmt.Errorf("working day names must not be empty")
		}
		if _, dup := seen[normalized]; dup {
			return nil, fmt.Errorf("duplicate working day %s", normalized)
		}
		seen[normalized] = struct{}{}
		days = append(days, normalized)
	}

	first := tg.FirstPeriodDuration
	if first == 0 {
		first = tg.PeriodDuration
	}

	return &Grid{
		Start:               start,
		End:                 end,
		PeriodDuration:      tg.PeriodDuration,
		FirstPeriodDuration: first,
		BreakDuration:       tg.BreakDuration,
		LunchDuration:       tg.LunchDuration,
		WorkingDays:         days,
		Policy:              policy.withDefaults(),
	}, nil
}

// DayIndex returns the position of the day in the working-day order, or -1
// for days outside the grid.
func (g *Grid) DayIndex(day string) int {
	normalized := strings.ToUpper(strings.TrimSpace(day))
	for i, d := range g.WorkingDays {
		if d == normalized {
			return i
		}
	}
	return -1
}
