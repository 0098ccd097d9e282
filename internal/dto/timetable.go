package dto

import "github.com/arka-edu/school-suite-api/internal/models"

// CreateTimetableRequest opens a new draft timetable for a class section.
type CreateTimetableRequest struct {
	ClassID      string          `json:"classId" validate:"required"`
	Section      string          `json:"section" validate:"required"`
	AcademicYear string          `json:"academicYear" validate:"required"`
	BranchID     string          `json:"branchId" validate:"required"`
	TimeGrid     models.TimeGrid `json:"timeGrid" validate:"required"`
}

// AddPeriodRequest carries optional metadata attached to an auto-allocated
// period. Day, number and times are computed by the allocator.
type AddPeriodRequest struct {
	SubjectID  string `json:"subjectId"`
	TeacherID  string `json:"teacherId"`
	RoomNumber string `json:"roomNumber"`
}

// AllocatePeriodsRequest asks the allocator to place a batch of periods.
type AllocatePeriodsRequest struct {
	Count int `json:"count" validate:"required,min=1,max=100"`
}

// AllocationFailure reports one slot in a batch that could not be placed.
type AllocationFailure struct {
	Slot    int    `json:"slot"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AllocatePeriodsResponse summarises a batch allocation. Placed periods are
// persisted even when later slots in the same batch fail.
type AllocatePeriodsResponse struct {
	Requested int                 `json:"requested"`
	Placed    int                 `json:"placed"`
	Periods   []models.Period     `json:"periods"`
	Failures  []AllocationFailure `json:"failures,omitempty"`
}

// UpdatePeriodRequest replaces a period at a given index. Times are "HH:MM".
type UpdatePeriodRequest struct {
	Day          string            `json:"day" validate:"required"`
	PeriodNumber int               `json:"periodNumber" validate:"required,min=1"`
	StartTime    string            `json:"startTime" validate:"required"`
	EndTime      string            `json:"endTime" validate:"required"`
	PeriodType   models.PeriodType `json:"periodType" validate:"required"`
	SubjectID    string            `json:"subjectId"`
	TeacherID    string            `json:"teacherId"`
	RoomNumber   string            `json:"roomNumber"`
}

// AssignTeacherRequest binds a teacher to an existing period.
type AssignTeacherRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
}

// AvailableTeachersQuery filters the branch teacher pool by a concrete slot.
// When the slot fields are empty the whole active pool is returned.
type AvailableTeachersQuery struct {
	BranchID     string `form:"branchId" json:"branchId" validate:"required"`
	AcademicYear string `form:"academicYear" json:"academicYear" validate:"required"`
	Day          string `form:"day" json:"day"`
	StartTime    string `form:"startTime" json:"startTime"`
	EndTime      string `form:"endTime" json:"endTime"`
	TimetableID  string `form:"timetableId" json:"timetableId"`
	PeriodIndex  *int   `form:"periodIndex" json:"periodIndex"`
}

// UpdateTimetableStatusRequest moves a timetable through its lifecycle.
type UpdateTimetableStatusRequest struct {
	Status models.TimetableStatus `json:"status" validate:"required"`
}
