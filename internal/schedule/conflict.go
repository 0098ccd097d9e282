package schedule

import (
	"strings"

	"github.com/arka-edu/school-suite-api/internal/models"
)

// Overlaps reports whether the candidate period collides with any entry in
// existing. The entry at excludeIndex is skipped, which callers use when
// re-validating an edited period in place; pass -1 to check all entries.
//
// Two periods collide when they fall on the same day and their half-open
// [start, end) intervals intersect, or when they are exact duplicates on
// (subject, period number, start, end). The duplicate check exists because
// hand-entered periods can repeat a slot with independently typed times; it
// only applies once a subject is attached, so unassigned slots on different
// days never shadow each other.
func Overlaps(existing []models.Period, candidate models.Period, excludeIndex int) bool {
	candStart, candEnd, ok := interval(candidate)
	if !ok {
		return false
	}
	candDay := strings.ToUpper(strings.TrimSpace(candidate.Day))

	for i, entry := range existing {
		if i == excludeIndex {
			continue
		}
		entryStart, entryEnd, ok := interval(entry)
		if !ok {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(entry.Day)) == candDay &&
			entryStart < candEnd && candStart < entryEnd {
			return true
		}
		if candidate.SubjectID != "" &&
			entry.SubjectID == candidate.SubjectID &&
			entry.PeriodNumber == candidate.PeriodNumber &&
			entry.StartTime == candidate.StartTime &&
			entry.EndTime == candidate.EndTime {
			return true
		}
	}
	return false
}

func interval(p models.Period) (Clock, Clock, bool) {
	start, err := ParseClock(p.StartTime)
	if err != nil {
		return 0, 0, false
	}
	end, err := ParseClock(p.EndTime)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
