package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arka-edu/school-suite-api/internal/models"
)

func newTestAllocator(t *testing.T, mutate func(*models.TimeGrid)) *Allocator {
	t.Helper()
	tg := models.TimeGrid{
		SchoolStartTime:     "08:00",
		SchoolEndTime:       "14:00",
		PeriodDuration:      40,
		FirstPeriodDuration: 50,
		BreakDuration:       10,
		WorkingDays:         []string{"Monday", "Tuesday"},
	}
	if mutate != nil {
		mutate(&tg)
	}
	grid, err := NewGrid(tg, Policy{})
	require.NoError(t, err)
	return NewAllocator(grid)
}

func TestNextBasicFill(t *testing.T) {
	alloc := newTestAllocator(t, nil)
	var periods []models.Period

	first, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, "MONDAY", first.Day)
	assert.Equal(t, 1, first.PeriodNumber)
	assert.Equal(t, "08:00", first.StartTime)
	assert.Equal(t, "08:50", first.EndTime)
	assert.Equal(t, models.PeriodTypeLecture, first.PeriodType)
	assert.Equal(t, "10-A", first.Section)

	periods = append(periods, first)
	second, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, 2, second.PeriodNumber)
	assert.Equal(t, "08:50", second.StartTime)
	assert.Equal(t, "09:30", second.EndTime)
	assert.Equal(t, models.PeriodTypeLecture, second.PeriodType, "no break after a single lecture")
}

func TestNextInsertsBreakAfterFourLectures(t *testing.T) {
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("MONDAY", "08:00", "08:50", 1),
		lecture("MONDAY", "08:50", "09:30", 2),
		lecture("MONDAY", "09:30", "10:10", 3),
		lecture("MONDAY", "10:10", "10:50", 4),
	}

	fifth, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodTypeBreak, fifth.PeriodType)
	assert.Equal(t, "10:50", fifth.StartTime)
	assert.Equal(t, "11:00", fifth.EndTime)
	assert.Equal(t, 5, fifth.PeriodNumber)

	// Once the break exists the next slot goes back to lectures.
	periods = append(periods, fifth)
	sixth, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodTypeLecture, sixth.PeriodType)
	assert.Equal(t, "11:00", sixth.StartTime)
	assert.Equal(t, "11:40", sixth.EndTime)
}

func TestNextOnlyOneBreakPerDay(t *testing.T) {
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("MONDAY", "08:00", "08:50", 1),
		lecture("MONDAY", "08:50", "09:30", 2),
		lecture("MONDAY", "09:30", "10:10", 3),
		lecture("MONDAY", "10:10", "10:50", 4),
		{Day: "MONDAY", PeriodNumber: 5, StartTime: "10:50", EndTime: "11:00", PeriodType: models.PeriodTypeBreak, Section: "10-A"},
		lecture("MONDAY", "11:00", "11:40", 6),
		lecture("MONDAY", "11:40", "12:20", 7),
		lecture("MONDAY", "12:20", "13:00", 8),
	}

	next, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodTypeLecture, next.PeriodType, "second break is never inserted")
}

func TestNextShortTailPeriodShrinksToSchoolEnd(t *testing.T) {
	// 13:40 leaves a 20 minute remainder: below the period duration but at
	// or above the minimum, so the day ends with a shortened period.
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("MONDAY", "08:00", "13:40", 1),
	}

	next, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, "MONDAY", next.Day)
	assert.Equal(t, "13:40", next.StartTime)
	assert.Equal(t, "14:00", next.EndTime)
}

func TestNextRollsOverWhenRemainderTooSmall(t *testing.T) {
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("MONDAY", "08:00", "13:50", 1),
	}

	next, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, "TUESDAY", next.Day)
	assert.Equal(t, 1, next.PeriodNumber)
	assert.Equal(t, "08:00", next.StartTime)
	assert.Equal(t, "08:50", next.EndTime, "new day starts with the first-period duration")
}

func TestNextRejectsWhenAllDaysFilled(t *testing.T) {
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("MONDAY", "08:00", "13:50", 1),
		lecture("TUESDAY", "08:00", "13:50", 1),
	}

	_, err := alloc.Next("10-A", periods)
	assert.ErrorIs(t, err, ErrAllDaysFilled)
}

func TestNextTargetsChronologicallyLatestDay(t *testing.T) {
	// The Tuesday period was appended before the Monday one; the allocator
	// must still continue on Tuesday rather than walk back to Monday.
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("TUESDAY", "08:00", "08:50", 1),
		lecture("MONDAY", "08:00", "08:50", 1),
	}

	next, err := alloc.Next("10-A", periods)
	require.NoError(t, err)
	assert.Equal(t, "TUESDAY", next.Day)
	assert.Equal(t, "08:50", next.StartTime)
}

func TestNextDetectsManualCollision(t *testing.T) {
	// A manually stretched period still covers the slot the allocator
	// computes after the chronologically last entry.
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("MONDAY", "08:00", "10:00", 1),
		lecture("MONDAY", "08:50", "09:30", 2),
	}

	_, err := alloc.Next("10-A", periods)
	assert.ErrorIs(t, err, ErrSlotOccupied)
}

func TestNextFillsWeekInDayOrder(t *testing.T) {
	alloc := newTestAllocator(t, func(tg *models.TimeGrid) {
		tg.WorkingDays = []string{"Monday", "Tuesday", "Wednesday"}
	})

	var periods []models.Period
	var visited []string
	for {
		next, err := alloc.Next("10-A", periods)
		if err != nil {
			assert.ErrorIs(t, err, ErrAllDaysFilled)
			break
		}
		if len(visited) == 0 || visited[len(visited)-1] != next.Day {
			visited = append(visited, next.Day)
		}
		require.False(t, Overlaps(periods, next, -1))
		periods = append(periods, next)
		require.Less(t, len(periods), 100, "allocation must terminate")
	}

	assert.Equal(t, []string{"MONDAY", "TUESDAY", "WEDNESDAY"}, visited,
		"each working day is visited exactly once, in order")

	// The laid-out week never contains a same-day overlap.
	for i, p1 := range periods {
		for j, p2 := range periods {
			if i == j || p1.Day != p2.Day {
				continue
			}
			s1, e1, _ := interval(p1)
			s2, e2, _ := interval(p2)
			assert.False(t, s1 < e2 && s2 < e1, "periods %d and %d overlap", i, j)
		}
	}

	// Every day ends flush with the school end time.
	for _, day := range []string{"MONDAY", "TUESDAY", "WEDNESDAY"} {
		var lastEnd string
		for _, p := range periodsOn(periods, day) {
			lastEnd = p.EndTime
		}
		assert.Equal(t, "14:00", lastEnd, day)
	}
}

func TestValidateEdit(t *testing.T) {
	alloc := newTestAllocator(t, nil)
	periods := []models.Period{
		lecture("MONDAY", "08:00", "08:50", 1),
		lecture("MONDAY", "08:50", "09:30", 2),
	}

	moved := lecture("MONDAY", "09:30", "10:10", 2)
	assert.NoError(t, alloc.ValidateEdit(periods, moved, 1))

	colliding := lecture("MONDAY", "08:20", "09:00", 2)
	assert.ErrorIs(t, alloc.ValidateEdit(periods, colliding, 1), ErrSlotOccupied)
}
