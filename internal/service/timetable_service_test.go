package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arka-edu/school-suite-api/internal/dto"
	"github.com/arka-edu/school-suite-api/internal/models"
	appErrors "github.com/arka-edu/school-suite-api/pkg/errors"
)

type timetableRepoStub struct {
	byID      map[string]*models.Timetable
	scope     []models.Timetable
	created   []*models.Timetable
	updated   []*models.Timetable
	updateErr error
	deleted   []string
}

func (s *timetableRepoStub) ListByScope(ctx context.Context, branchID, academicYear string) ([]models.Timetable, error) {
	return s.scope, nil
}

func (s *timetableRepoStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	items := make([]models.Timetable, 0, len(s.byID))
	for _, tt := range s.byID {
		items = append(items, *tt)
	}
	return items, len(items), nil
}

func (s *timetableRepoStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	if tt, ok := s.byID[id]; ok {
		clone := *tt
		clone.Periods = append([]models.Period(nil), tt.Periods...)
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timetableRepoStub) Create(ctx context.Context, tt *models.Timetable) error {
	tt.ID = "tt-new"
	tt.Version = 1
	s.created = append(s.created, tt)
	return nil
}

func (s *timetableRepoStub) Update(ctx context.Context, tt *models.Timetable) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	tt.Version++
	s.updated = append(s.updated, tt)
	if s.byID == nil {
		s.byID = map[string]*models.Timetable{}
	}
	s.byID[tt.ID] = tt
	return nil
}

func (s *timetableRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type teacherReaderStub struct {
	teachers map[string]*models.Teacher
	branch   []models.Teacher
}

func (s teacherReaderStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := s.teachers[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s teacherReaderStub) ListByBranch(ctx context.Context, branchID string) ([]models.Teacher, error) {
	return s.branch, nil
}

type classReaderStub struct {
	classes map[string]*models.Class
}

func (s classReaderStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := s.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func testTimeGrid() models.TimeGrid {
	return models.TimeGrid{
		SchoolStartTime:     "08:00",
		SchoolEndTime:       "14:00",
		PeriodDuration:      40,
		FirstPeriodDuration: 50,
		BreakDuration:       10,
		WorkingDays:         []string{"MONDAY", "TUESDAY"},
	}
}

func testTimetable() *models.Timetable {
	return &models.Timetable{
		ID:           "tt-1",
		ClassID:      "class-1",
		Section:      "A",
		AcademicYear: "2026-27",
		BranchID:     "branch-1",
		TimeGrid:     testTimeGrid(),
		Periods:      []models.Period{},
		Status:       models.TimetableStatusDraft,
		Version:      3,
	}
}

func newTestTimetableService(repo *timetableRepoStub, teachers teacherReaderStub, classes classReaderStub) *TimetableService {
	cache := NewCacheService(nil, nil, 0, nil, false)
	return NewTimetableService(repo, teachers, classes, cache, NewMetricsService(), nil, nil, TimetableServiceConfig{})
}

func TestTimetableServiceCreate(t *testing.T) {
	repo := &timetableRepoStub{}
	classes := classReaderStub{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", BranchID: "branch-1", Name: "Grade 8", Sections: []models.Section{{Name: "A", RoomNumber: "R-101"}}},
	}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classes)

	tt, err := svc.Create(context.Background(), dto.CreateTimetableRequest{
		ClassID:      "class-1",
		Section:      "A",
		AcademicYear: "2026-27",
		BranchID:     "branch-1",
		TimeGrid:     testTimeGrid(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusDraft, tt.Status)
	assert.Equal(t, "tt-new", tt.ID)
	require.Len(t, repo.created, 1)
}

func TestTimetableServiceCreateRejectsBadGrid(t *testing.T) {
	svc := newTestTimetableService(&timetableRepoStub{}, teacherReaderStub{}, classReaderStub{})

	grid := testTimeGrid()
	grid.SchoolEndTime = "07:00"
	_, err := svc.Create(context.Background(), dto.CreateTimetableRequest{
		ClassID:      "class-1",
		Section:      "A",
		AcademicYear: "2026-27",
		BranchID:     "branch-1",
		TimeGrid:     grid,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCreateRejectsUnknownSection(t *testing.T) {
	classes := classReaderStub{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Sections: []models.Section{{Name: "A"}}},
	}}
	svc := newTestTimetableService(&timetableRepoStub{}, teacherReaderStub{}, classes)

	_, err := svc.Create(context.Background(), dto.CreateTimetableRequest{
		ClassID:      "class-1",
		Section:      "Z",
		AcademicYear: "2026-27",
		BranchID:     "branch-1",
		TimeGrid:     testTimeGrid(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceAddPeriod(t *testing.T) {
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": testTimetable()}}
	classes := classReaderStub{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Sections: []models.Section{{Name: "A", RoomNumber: "R-101"}}},
	}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classes)

	period, err := svc.AddPeriod(context.Background(), "tt-1", dto.AddPeriodRequest{SubjectID: "math"})
	require.NoError(t, err)
	assert.Equal(t, "MONDAY", period.Day)
	assert.Equal(t, 1, period.PeriodNumber)
	assert.Equal(t, "08:00", period.StartTime)
	assert.Equal(t, "08:50", period.EndTime)
	assert.Equal(t, "math", period.SubjectID)
	assert.Equal(t, "R-101", period.Room)
	require.Len(t, repo.updated, 1)
	assert.Len(t, repo.updated[0].Periods, 1)
}

func TestTimetableServiceAddPeriodUnknownTimetable(t *testing.T) {
	svc := newTestTimetableService(&timetableRepoStub{}, teacherReaderStub{}, classReaderStub{})

	_, err := svc.AddPeriod(context.Background(), "missing", dto.AddPeriodRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceAllocatePeriodsBatch(t *testing.T) {
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": testTimetable()}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	result, err := svc.AllocatePeriods(context.Background(), "tt-1", dto.AllocatePeriodsRequest{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 3, result.Placed)
	require.Len(t, result.Periods, 3)
	assert.Empty(t, result.Failures)
	assert.Equal(t, "08:00", result.Periods[0].StartTime)
	assert.Equal(t, "08:50", result.Periods[1].StartTime)
	assert.Equal(t, "09:30", result.Periods[2].StartTime)
	require.Len(t, repo.updated, 1)
}

func TestTimetableServiceAllocatePeriodsKeepsPlacedOnExhaustion(t *testing.T) {
	tt := testTimetable()
	tt.TimeGrid = models.TimeGrid{
		SchoolStartTime: "08:00",
		SchoolEndTime:   "08:40",
		PeriodDuration:  40,
		WorkingDays:     []string{"MONDAY"},
	}
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": tt}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	result, err := svc.AllocatePeriods(context.Background(), "tt-1", dto.AllocatePeriodsRequest{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Placed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, appErrors.ErrAllDaysFilled.Code, result.Failures[0].Code)
	assert.Equal(t, 1, result.Failures[0].Slot)
	require.Len(t, repo.updated, 1)
	assert.Len(t, repo.updated[0].Periods, 1)
}

func TestTimetableServiceUpdatePeriodConflict(t *testing.T) {
	tt := testTimetable()
	tt.Periods = []models.Period{
		{Day: "MONDAY", PeriodNumber: 1, StartTime: "08:00", EndTime: "08:50", PeriodType: models.PeriodTypeLecture, Section: "A"},
		{Day: "MONDAY", PeriodNumber: 2, StartTime: "08:50", EndTime: "09:30", PeriodType: models.PeriodTypeLecture, Section: "A"},
	}
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": tt}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	_, err := svc.UpdatePeriod(context.Background(), "tt-1", 1, dto.UpdatePeriodRequest{
		Day:          "MONDAY",
		PeriodNumber: 2,
		StartTime:    "08:30",
		EndTime:      "09:10",
		PeriodType:   models.PeriodTypeLecture,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotOccupied.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}

func TestTimetableServiceUpdatePeriodMove(t *testing.T) {
	tt := testTimetable()
	tt.Periods = []models.Period{
		{Day: "MONDAY", PeriodNumber: 1, StartTime: "08:00", EndTime: "08:50", PeriodType: models.PeriodTypeLecture, Section: "A"},
	}
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": tt}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	period, err := svc.UpdatePeriod(context.Background(), "tt-1", 0, dto.UpdatePeriodRequest{
		Day:          "TUESDAY",
		PeriodNumber: 1,
		StartTime:    "09:00",
		EndTime:      "09:40",
		PeriodType:   models.PeriodTypeLab,
		SubjectID:    "chem",
	})
	require.NoError(t, err)
	assert.Equal(t, "TUESDAY", period.Day)
	assert.Equal(t, models.PeriodTypeLab, period.PeriodType)
	require.Len(t, repo.updated, 1)
}

func TestTimetableServiceRemovePeriod(t *testing.T) {
	tt := testTimetable()
	tt.Periods = []models.Period{
		{Day: "MONDAY", PeriodNumber: 1, StartTime: "08:00", EndTime: "08:50", Section: "A"},
		{Day: "MONDAY", PeriodNumber: 2, StartTime: "08:50", EndTime: "09:30", Section: "A"},
	}
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": tt}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	require.NoError(t, svc.RemovePeriod(context.Background(), "tt-1", 0))
	require.Len(t, repo.updated, 1)
	require.Len(t, repo.updated[0].Periods, 1)
	assert.Equal(t, 2, repo.updated[0].Periods[0].PeriodNumber)
}

func TestTimetableServiceAssignTeacher(t *testing.T) {
	tt := testTimetable()
	tt.Periods = []models.Period{
		{Day: "MONDAY", PeriodNumber: 1, StartTime: "08:00", EndTime: "08:50", PeriodType: models.PeriodTypeLecture, Section: "A"},
	}
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": tt}}
	teachers := teacherReaderStub{teachers: map[string]*models.Teacher{
		"t-1": {ID: "t-1", BranchID: "branch-1", Active: true},
	}}
	svc := newTestTimetableService(repo, teachers, classReaderStub{})

	period, err := svc.AssignTeacher(context.Background(), "tt-1", 0, dto.AssignTeacherRequest{TeacherID: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", period.TeacherID)
	require.Len(t, repo.updated, 1)
}

func TestTimetableServiceAssignTeacherBusyElsewhere(t *testing.T) {
	tt := testTimetable()
	tt.Periods = []models.Period{
		{Day: "MONDAY", PeriodNumber: 1, StartTime: "08:00", EndTime: "08:50", PeriodType: models.PeriodTypeLecture, Section: "A"},
	}
	other := models.Timetable{
		ID:       "tt-2",
		BranchID: "branch-1",
		Periods: []models.Period{
			{Day: "MONDAY", StartTime: "08:20", EndTime: "09:00", TeacherID: "t-1", PeriodType: models.PeriodTypeLecture},
		},
	}
	repo := &timetableRepoStub{
		byID:  map[string]*models.Timetable{"tt-1": tt},
		scope: []models.Timetable{*tt, other},
	}
	teachers := teacherReaderStub{teachers: map[string]*models.Teacher{
		"t-1": {ID: "t-1", BranchID: "branch-1", Active: true},
	}}
	svc := newTestTimetableService(repo, teachers, classReaderStub{})

	_, err := svc.AssignTeacher(context.Background(), "tt-1", 0, dto.AssignTeacherRequest{TeacherID: "t-1"})
	require.Error(t, err)
	assert.Equal(t, "TEACHER_UNAVAILABLE", appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}

func TestTimetableServiceAssignTeacherWrongBranch(t *testing.T) {
	tt := testTimetable()
	tt.Periods = []models.Period{
		{Day: "MONDAY", PeriodNumber: 1, StartTime: "08:00", EndTime: "08:50", Section: "A"},
	}
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": tt}}
	teachers := teacherReaderStub{teachers: map[string]*models.Teacher{
		"t-9": {ID: "t-9", BranchID: "branch-2", Active: true},
	}}
	svc := newTestTimetableService(repo, teachers, classReaderStub{})

	_, err := svc.AssignTeacher(context.Background(), "tt-1", 0, dto.AssignTeacherRequest{TeacherID: "t-9"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceAvailableTeachers(t *testing.T) {
	busy := models.Timetable{
		ID:       "tt-2",
		BranchID: "branch-1",
		Periods: []models.Period{
			{Day: "MONDAY", StartTime: "09:00", EndTime: "09:40", TeacherID: "t-1", PeriodType: models.PeriodTypeLecture},
		},
	}
	repo := &timetableRepoStub{scope: []models.Timetable{busy}}
	teachers := teacherReaderStub{branch: []models.Teacher{
		{ID: "t-1", BranchID: "branch-1", Active: true},
		{ID: "t-2", BranchID: "branch-1", Active: true},
	}}
	svc := newTestTimetableService(repo, teachers, classReaderStub{})

	free, err := svc.AvailableTeachers(context.Background(), dto.AvailableTeachersQuery{
		BranchID:     "branch-1",
		AcademicYear: "2026-27",
		Day:          "MONDAY",
		StartTime:    "09:20",
		EndTime:      "10:00",
	})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "t-2", free[0].ID)
}

func TestTimetableServiceAvailableTeachersWithoutSlot(t *testing.T) {
	repo := &timetableRepoStub{}
	teachers := teacherReaderStub{branch: []models.Teacher{
		{ID: "t-1"}, {ID: "t-2"},
	}}
	svc := newTestTimetableService(repo, teachers, classReaderStub{})

	free, err := svc.AvailableTeachers(context.Background(), dto.AvailableTeachersQuery{
		BranchID:     "branch-1",
		AcademicYear: "2026-27",
	})
	require.NoError(t, err)
	assert.Len(t, free, 2)
}

func TestTimetableServiceUpdateStatus(t *testing.T) {
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": testTimetable()}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	tt, err := svc.UpdateStatus(context.Background(), "tt-1", dto.UpdateTimetableStatusRequest{Status: models.TimetableStatusActive})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusActive, tt.Status)

	_, err = svc.UpdateStatus(context.Background(), "tt-1", dto.UpdateTimetableStatusRequest{Status: models.TimetableStatusDraft})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceStaleWriteIsRejected(t *testing.T) {
	repo := &timetableRepoStub{
		byID:      map[string]*models.Timetable{"tt-1": testTimetable()},
		updateErr: sql.ErrNoRows,
	}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	_, err := svc.AddPeriod(context.Background(), "tt-1", dto.AddPeriodRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleTimetable.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceInactiveIsReadOnly(t *testing.T) {
	tt := testTimetable()
	tt.Status = models.TimetableStatusInactive
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": tt}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	_, err := svc.AddPeriod(context.Background(), "tt-1", dto.AddPeriodRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDelete(t *testing.T) {
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{"tt-1": testTimetable()}}
	svc := newTestTimetableService(repo, teacherReaderStub{}, classReaderStub{})

	require.NoError(t, svc.Delete(context.Background(), "tt-1"))
	assert.Equal(t, []string{"tt-1"}, repo.deleted)
}
