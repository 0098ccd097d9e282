package models

import "time"

// TimetableStatus represents the lifecycle of a section timetable.
type TimetableStatus string

const (
	TimetableStatusDraft    TimetableStatus = "DRAFT"
	TimetableStatusActive   TimetableStatus = "ACTIVE"
	TimetableStatusInactive TimetableStatus = "INACTIVE"
)

// PeriodType classifies a scheduled slot.
type PeriodType string

const (
	PeriodTypeLecture   PeriodType = "LECTURE"
	PeriodTypeLab       PeriodType = "LAB"
	PeriodTypePractical PeriodType = "PRACTICAL"
	PeriodTypeBreak     PeriodType = "BREAK"
	PeriodTypeLunch     PeriodType = "LUNCH"
	PeriodTypeAssembly  PeriodType = "ASSEMBLY"
	PeriodTypeSports    PeriodType = "SPORTS"
	PeriodTypeLibrary   PeriodType = "LIBRARY"
)

// TimeGrid captures the daily timing rules a timetable is built against.
// Clock values use the HH:MM wire format.
type TimeGrid struct {
	SchoolStartTime     string   `json:"school_start_time"`
	SchoolEndTime       string   `json:"school_end_time"`
	PeriodDuration      int      `json:"period_duration"`
	FirstPeriodDuration int      `json:"first_period_duration,omitempty"`
	BreakDuration       int      `json:"break_duration"`
	LunchDuration       int      `json:"lunch_duration"`
	WorkingDays         []string `json:"working_days"`
}

// Period is one scheduled slot on a given day for one class section.
// Subject and teacher are normalized id references; display fields are
// resolved at the API boundary, never inside the engine.
type Period struct {
	Day          string     `json:"day"`
	PeriodNumber int        `json:"period_number"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	PeriodType   PeriodType `json:"period_type"`
	SubjectID    string     `json:"subject_id,omitempty"`
	TeacherID    string     `json:"teacher_id,omitempty"`
	Room         string     `json:"room,omitempty"`
	Section      string     `json:"section"`
}

// Timetable is the aggregate holding the full week of periods for one
// class section within a branch and academic year. It is persisted as a
// whole document; periods are never updated field-by-field in storage.
type Timetable struct {
	ID           string          `json:"id"`
	ClassID      string          `json:"class_id"`
	Section      string          `json:"section"`
	AcademicYear string          `json:"academic_year"`
	BranchID     string          `json:"branch_id"`
	TimeGrid     TimeGrid        `json:"time_grid"`
	Periods      []Period        `json:"periods"`
	Status       TimetableStatus `json:"status"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TimetableFilter captures query options for listing timetables.
type TimetableFilter struct {
	BranchID     string
	AcademicYear string
	ClassID      string
	Section      string
	Status       string
	Page         int
	PageSize     int
}

// CanTransition reports whether the status change follows the
// draft -> active -> inactive lifecycle.
func (s TimetableStatus) CanTransition(next TimetableStatus) bool {
	switch s {
	case TimetableStatusDraft:
		return next == TimetableStatusActive
	case TimetableStatusActive:
		return next == TimetableStatusInactive
	default:
		return false
	}
}
