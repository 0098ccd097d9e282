package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arka-edu/school-suite-api/internal/dto"
	"github.com/arka-edu/school-suite-api/internal/models"
	"github.com/arka-edu/school-suite-api/internal/schedule"
	appErrors "github.com/arka-edu/school-suite-api/pkg/errors"
)

type timetableRepository interface {
	ListByScope(ctx context.Context, branchID, academicYear string) ([]models.Timetable, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Create(ctx context.Context, tt *models.Timetable) error
	Update(ctx context.Context, tt *models.Timetable) error
	Delete(ctx context.Context, id string) error
}

type timetableTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListByBranch(ctx context.Context, branchID string) ([]models.Teacher, error)
}

type timetableClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// TimetableServiceConfig governs allocation policy and occupancy caching.
type TimetableServiceConfig struct {
	Policy       schedule.Policy
	OccupancyTTL time.Duration
}

// TimetableService orchestrates the allocation engine over persisted
// timetables. Occupancy snapshots for a branch and academic year are cached
// and invalidated on every timetable write in that branch.
type TimetableService struct {
	repo      timetableRepository
	teachers  timetableTeacherReader
	classes   timetableClassReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	policy    schedule.Policy
	ttl       time.Duration
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	repo timetableRepository,
	teachers timetableTeacherReader,
	classes timetableClassReader,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OccupancyTTL <= 0 {
		cfg.OccupancyTTL = 5 * time.Minute
	}
	return &TimetableService{
		repo:      repo,
		teachers:  teachers,
		classes:   classes,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		policy:    cfg.Policy,
		ttl:       cfg.OccupancyTTL,
	}
}

// Create opens a new draft timetable after validating its time grid.
func (s *TimetableService) Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if _, err := schedule.NewGrid(req.TimeGrid, s.policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time grid")
	}
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.SectionRoom(req.Section) == "" {
		known := false
		for _, sec := range class.Sections {
			if sec.Name == req.Section {
				known = true
				break
			}
		}
		if !known {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class has no section %q", req.Section))
		}
	}
	tt := &models.Timetable{
		ClassID:      req.ClassID,
		Section:      req.Section,
		AcademicYear: req.AcademicYear,
		BranchID:     req.BranchID,
		TimeGrid:     req.TimeGrid,
		Periods:      []models.Period{},
		Status:       models.TimetableStatusDraft,
	}
	if err := s.repo.Create(ctx, tt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	s.invalidateOccupancy(ctx, tt.BranchID)
	s.logger.Info("timetable created",
		zap.String("timetableId", tt.ID),
		zap.String("classId", tt.ClassID),
		zap.String("section", tt.Section))
	return tt, nil
}

// Get returns one timetable by id.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	return s.find(ctx, id)
}

// List returns timetables matching the filter together with the total count.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return items, total, nil
}

// AddPeriod asks the allocator for the next free slot and persists it.
func (s *TimetableService) AddPeriod(ctx context.Context, timetableID string, req dto.AddPeriodRequest) (*models.Period, error) {
	tt, err := s.find(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMutable(tt); err != nil {
		return nil, err
	}
	grid, err := schedule.NewGrid(tt.TimeGrid, s.policy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time grid")
	}
	period, err := s.allocate(ctx, tt, schedule.NewAllocator(grid), req)
	if err != nil {
		return nil, err
	}
	tt.Periods = append(tt.Periods, *period)
	if err := s.persist(ctx, tt); err != nil {
		return nil, err
	}
	return period, nil
}

// AllocatePeriods places up to req.Count periods in one batch. Slots placed
// before the first failure are kept and persisted; the response reports the
// outcome per slot.
func (s *TimetableService) AllocatePeriods(ctx context.Context, timetableID string, req dto.AllocatePeriodsRequest) (*dto.AllocatePeriodsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}
	tt, err := s.find(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMutable(tt); err != nil {
		return nil, err
	}
	grid, err := schedule.NewGrid(tt.TimeGrid, s.policy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time grid")
	}
	alloc := schedule.NewAllocator(grid)

	result := &dto.AllocatePeriodsResponse{Requested: req.Count}
	for i := 0; i < req.Count; i++ {
		period, err := alloc.Next(tt.Section, tt.Periods)
		if err != nil {
			appErr := s.mapAllocationError(err)
			result.Failures = append(result.Failures, dto.AllocationFailure{
				Slot:    i,
				Code:    appErr.Code,
				Message: appErr.Message,
			})
			if errors.Is(err, schedule.ErrAllDaysFilled) {
				// Every later slot in the batch would fail the same way.
				break
			}
			continue
		}
		s.metrics.RecordAllocation("placed")
		tt.Periods = append(tt.Periods, period)
		result.Periods = append(result.Periods, period)
		result.Placed++
	}

	if result.Placed > 0 {
		if err := s.persist(ctx, tt); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdatePeriod replaces a period after re-checking conflicts against the rest
// of the week and, when a teacher is bound, against branch occupancy.
func (s *TimetableService) UpdatePeriod(ctx context.Context, timetableID string, index int, req dto.UpdatePeriodRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	tt, err := s.find(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMutable(tt); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(tt.Periods) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "period index out of range")
	}
	grid, err := schedule.NewGrid(tt.TimeGrid, s.policy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time grid")
	}
	if grid.DayIndex(req.Day) < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a working day", req.Day))
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	if schedule.MinutesBetween(start, end) <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must end after it starts")
	}

	candidate := models.Period{
		Day:          req.Day,
		PeriodNumber: req.PeriodNumber,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		PeriodType:   req.PeriodType,
		SubjectID:    req.SubjectID,
		TeacherID:    req.TeacherID,
		Room:         req.RoomNumber,
		Section:      tt.Section,
	}
	alloc := schedule.NewAllocator(grid)
	if err := alloc.ValidateEdit(tt.Periods, candidate, index); err != nil {
		return nil, s.mapAllocationError(err)
	}
	if candidate.TeacherID != "" {
		if err := s.ensureTeacherFree(ctx, tt, candidate, index); err != nil {
			return nil, err
		}
	}
	tt.Periods[index] = candidate
	if err := s.persist(ctx, tt); err != nil {
		return nil, err
	}
	return &tt.Periods[index], nil
}

// RemovePeriod deletes the period at index and persists the document.
func (s *TimetableService) RemovePeriod(ctx context.Context, timetableID string, index int) error {
	tt, err := s.find(ctx, timetableID)
	if err != nil {
		return err
	}
	if err := s.ensureMutable(tt); err != nil {
		return err
	}
	if index < 0 || index >= len(tt.Periods) {
		return appErrors.Clone(appErrors.ErrNotFound, "period index out of range")
	}
	tt.Periods = append(tt.Periods[:index], tt.Periods[index+1:]...)
	return s.persist(ctx, tt)
}

// AssignTeacher binds a teacher to an existing period after checking branch
// wide availability for the period's slot.
func (s *TimetableService) AssignTeacher(ctx context.Context, timetableID string, index int, req dto.AssignTeacherRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	tt, err := s.find(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMutable(tt); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(tt.Periods) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "period index out of range")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher is inactive")
	}
	if teacher.BranchID != tt.BranchID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher belongs to another branch")
	}

	candidate := tt.Periods[index]
	candidate.TeacherID = teacher.ID
	if err := s.ensureTeacherFree(ctx, tt, candidate, index); err != nil {
		return nil, err
	}
	tt.Periods[index] = candidate
	if err := s.persist(ctx, tt); err != nil {
		return nil, err
	}
	return &tt.Periods[index], nil
}

// AvailableTeachers returns the branch teacher pool filtered down to those
// free during the requested slot. Without a slot the whole active pool is
// returned.
func (s *TimetableService) AvailableTeachers(ctx context.Context, query dto.AvailableTeachersQuery) ([]models.Teacher, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	candidates, err := s.teachers.ListByBranch(ctx, query.BranchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	occupancy, err := s.occupancy(ctx, query.BranchID, query.AcademicYear)
	if err != nil {
		return nil, err
	}

	var local []models.Period
	excludeIndex := -1
	if query.TimetableID != "" {
		tt, err := s.find(ctx, query.TimetableID)
		if err != nil {
			return nil, err
		}
		occupancy = occupancy.Without(tt.ID)
		local = tt.Periods
		if query.PeriodIndex != nil {
			excludeIndex = *query.PeriodIndex
		}
	}
	return occupancy.FilterAvailable(candidates, query.Day, query.StartTime, query.EndTime, local, excludeIndex), nil
}

// UpdateStatus moves the timetable through its lifecycle.
func (s *TimetableService) UpdateStatus(ctx context.Context, timetableID string, req dto.UpdateTimetableStatusRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	tt, err := s.find(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if !tt.Status.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move timetable from %s to %s", tt.Status, req.Status))
	}
	tt.Status = req.Status
	if err := s.persist(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

// Delete removes the timetable and drops the branch occupancy snapshot.
func (s *TimetableService) Delete(ctx context.Context, timetableID string) error {
	tt, err := s.find(ctx, timetableID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, timetableID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.invalidateOccupancy(ctx, tt.BranchID)
	return nil
}

func (s *TimetableService) find(ctx context.Context, id string) (*models.Timetable, error) {
	tt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return tt, nil
}

func (s *TimetableService) ensureMutable(tt *models.Timetable) error {
	if tt.Status == models.TimetableStatusInactive {
		return appErrors.Clone(appErrors.ErrConflict, "inactive timetables are read only")
	}
	return nil
}

func (s *TimetableService) allocate(ctx context.Context, tt *models.Timetable, alloc *schedule.Allocator, req dto.AddPeriodRequest) (*models.Period, error) {
	period, err := alloc.Next(tt.Section, tt.Periods)
	if err != nil {
		return nil, s.mapAllocationError(err)
	}
	s.metrics.RecordAllocation("placed")
	period.SubjectID = req.SubjectID
	period.Room = req.RoomNumber
	if period.Room == "" {
		period.Room = s.defaultRoom(ctx, tt)
	}
	if req.TeacherID != "" {
		period.TeacherID = req.TeacherID
		if err := s.ensureTeacherFree(ctx, tt, period, -1); err != nil {
			return nil, err
		}
	}
	return &period, nil
}

// ensureTeacherFree checks the candidate teacher against branch occupancy
// built without the timetable being edited, so the unsaved local period list
// is the only source for this timetable's slots.
func (s *TimetableService) ensureTeacherFree(ctx context.Context, tt *models.Timetable, candidate models.Period, excludeIndex int) error {
	occupancy, err := s.occupancy(ctx, tt.BranchID, tt.AcademicYear)
	if err != nil {
		return err
	}
	occupancy = occupancy.Without(tt.ID)
	if !occupancy.IsAvailable(candidate.TeacherID, candidate.Day, candidate.StartTime, candidate.EndTime, tt.Periods, excludeIndex) {
		return appErrors.New("TEACHER_UNAVAILABLE", appErrors.ErrConflict.Status,
			fmt.Sprintf("teacher is already booked on %s between %s and %s", candidate.Day, candidate.StartTime, candidate.EndTime))
	}
	return nil
}

// occupancy returns the cached branch occupancy snapshot, rebuilding it from
// a consistent timetable scope read on a miss.
func (s *TimetableService) occupancy(ctx context.Context, branchID, academicYear string) (schedule.Occupancy, error) {
	key := occupancyCacheKey(branchID, academicYear)
	var cached schedule.Occupancy
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	timetables, err := s.repo.ListByScope(ctx, branchID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch timetables")
	}
	occupancy := schedule.BuildOccupancy(timetables)
	s.metrics.RecordOccupancyRebuild()
	if err := s.cache.Set(ctx, key, occupancy, s.ttl); err != nil {
		s.logger.Warn("occupancy cache write failed", zap.String("branchId", branchID), zap.Error(err))
	}
	return occupancy, nil
}

func (s *TimetableService) persist(ctx context.Context, tt *models.Timetable) error {
	if err := s.repo.Update(ctx, tt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrStaleTimetable, appErrors.ErrStaleTimetable.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	s.invalidateOccupancy(ctx, tt.BranchID)
	return nil
}

func (s *TimetableService) invalidateOccupancy(ctx context.Context, branchID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("occupancy:%s:*", branchID)); err != nil {
		s.logger.Warn("occupancy invalidation failed", zap.String("branchId", branchID), zap.Error(err))
	}
}

func (s *TimetableService) defaultRoom(ctx context.Context, tt *models.Timetable) string {
	class, err := s.classes.FindByID(ctx, tt.ClassID)
	if err != nil {
		return ""
	}
	return class.SectionRoom(tt.Section)
}

func (s *TimetableService) mapAllocationError(err error) *appErrors.Error {
	switch {
	case errors.Is(err, schedule.ErrSlotOccupied):
		s.metrics.RecordAllocation("slot_occupied")
		return appErrors.Clone(appErrors.ErrSlotOccupied, appErrors.ErrSlotOccupied.Message)
	case errors.Is(err, schedule.ErrAllDaysFilled):
		s.metrics.RecordAllocation("all_days_filled")
		return appErrors.Clone(appErrors.ErrAllDaysFilled, appErrors.ErrAllDaysFilled.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "allocation failed")
	}
}

func occupancyCacheKey(branchID, academicYear string) string {
	return fmt.Sprintf("occupancy:%s:%s", branchID, academicYear)
}
