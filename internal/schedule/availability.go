package schedule

import (
	"strings"

	"github.com/arka-edu/school-suite-api/internal/models"
)

// Booking is one committed interval for a teacher somewhere in the branch.
type Booking struct {
	Day         string `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	TimetableID string `json:"timetable_id"`
}

// Occupancy maps a teacher id to every interval already committed to them
// across all timetables of one branch and academic year. It is a derived
// value rebuilt on demand, passed around explicitly so availability checks
// stay pure functions of their inputs.
type Occupancy map[string][]Booking

// BuildOccupancy aggregates the per-teacher bookings from every period with
// an assigned teacher in the supplied timetables. The caller provides a
// consistent snapshot of the scope, typically one List query, and excludes
// the timetable currently being edited so its unsaved periods are judged
// through the local list instead.
func BuildOccupancy(timetables []models.Timetable) Occupancy {
	occ := make(Occupancy)
	for _, tt := range timetables {
		for _, p := range tt.Periods {
			if p.TeacherID == "" {
				continue
			}
			occ[p.TeacherID] = append(occ[p.TeacherID], Booking{
				Day:         strings.ToUpper(strings.TrimSpace(p.Day)),
				StartTime:   p.StartTime,
				EndTime:     p.EndTime,
				TimetableID: tt.ID,
			})
		}
	}
	return occ
}

// Without returns a copy of the occupancy with every booking of the given
// timetable removed. Callers editing a timetable drop its persisted
// bookings so the unsaved local period list is the single source of truth
// for that timetable.
func (o Occupancy) Without(timetableID string) Occupancy {
	if timetableID == "" {
		return o
	}
	out := make(Occupancy, len(o))
	for teacherID, bookings := range o {
		kept := make([]Booking, 0, len(bookings))
		for _, b := range bookings {
			if b.TimetableID != timetableID {
				kept = append(kept, b)
			}
		}
		if len(kept) > 0 {
			out[teacherID] = kept
		}
	}
	return out
}

// IsAvailable reports whether the teacher is free on day for [start, end).
// Local periods of the timetable being edited are checked first, excluding
// the entry at excludeIndex, so in-flight edits are caught before any save.
// Calling twice with the same arguments always yields the same answer.
func (o Occupancy) IsAvailable(teacherID, day, start, end string, localPeriods []models.Period, excludeIndex int) bool {
	candStart, err := ParseClock(start)
	if err != nil {
		return false
	}
	candEnd, err := ParseClock(end)
	if err != nil {
		return false
	}
	normalized := strings.ToUpper(strings.TrimSpace(day))

	for i, p := range localPeriods {
		if i == excludeIndex || p.TeacherID != teacherID {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(p.Day)) != normalized {
			continue
		}
		pStart, pEnd, ok := interval(p)
		if ok && pStart < candEnd && candStart < pEnd {
			return false
		}
	}

	for _, booking := range o[teacherID] {
		if booking.Day != normalized {
			continue
		}
		bStart, errS := ParseClock(booking.StartTime)
		bEnd, errE := ParseClock(booking.EndTime)
		if errS != nil || errE != nil {
			continue
		}
		if bStart < candEnd && candStart < bEnd {
			return false
		}
	}

	return true
}

// FilterAvailable returns the candidates free on day for [start, end). When
// the slot is not yet known the whole candidate list comes back unfiltered;
// an unscheduled period constrains no one. An empty result is a normal
// outcome, not a failure.
func (o Occupancy) FilterAvailable(candidates []models.Teacher, day, start, end string, localPeriods []models.Period, excludeIndex int) []models.Teacher {
	if day == "" || start == "" || end == "" {
		return candidates
	}
	available := make([]models.Teacher, 0, len(candidates))
	for _, teacher := range candidates {
		if o.IsAvailable(teacher.ID, day, start, end, localPeriods, excludeIndex) {
			available = append(available, teacher)
		}
	}
	return available
}
