package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arka-edu/school-suite-api/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func timetableMockRows() *sqlmock.Rows {
	grid := `{"school_start_time":"08:00","school_end_time":"14:00","period_duration":40,"break_duration":10,"lunch_duration":0,"working_days":["MONDAY"]}`
	periods := `[{"day":"MONDAY","period_number":1,"start_time":"08:00","end_time":"08:40","period_type":"LECTURE","teacher_id":"teacher-1","section":"10-A"}]`
	return sqlmock.NewRows([]string{
		"id", "class_id", "section", "academic_year", "branch_id",
		"time_grid", "periods", "status", "version", "created_at", "updated_at",
	}).AddRow("tt-1", "class-1", "10-A", "2026/2027", "branch-1",
		[]byte(grid), []byte(periods), "DRAFT", 1, time.Now(), time.Now())
}

func TestTimetableRepositoryListByScope(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, section, academic_year, branch_id, time_grid, periods, status, version, created_at, updated_at FROM timetables WHERE branch_id = $1 AND academic_year = $2 ORDER BY created_at")).
		WithArgs("branch-1", "2026/2027").
		WillReturnRows(timetableMockRows())

	timetables, err := repo.ListByScope(context.Background(), "branch-1", "2026/2027")
	require.NoError(t, err)
	require.Len(t, timetables, 1)
	assert.Equal(t, "10-A", timetables[0].Section)
	assert.Equal(t, "MONDAY", timetables[0].TimeGrid.WorkingDays[0])
	require.Len(t, timetables[0].Periods, 1)
	assert.Equal(t, "teacher-1", timetables[0].Periods[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery("SELECT .* FROM timetables WHERE id = ").
		WithArgs("tt-1").
		WillReturnRows(timetableMockRows())

	tt, err := repo.FindByID(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusDraft, tt.Status)
	assert.Equal(t, 1, tt.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO timetables").
		WithArgs(sqlmock.AnyArg(), "class-1", "10-A", "2026/2027", "branch-1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "DRAFT", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tt := &models.Timetable{
		ClassID:      "class-1",
		Section:      "10-A",
		AcademicYear: "2026/2027",
		BranchID:     "branch-1",
		Status:       models.TimetableStatusDraft,
		TimeGrid: models.TimeGrid{
			SchoolStartTime: "08:00",
			SchoolEndTime:   "14:00",
			PeriodDuration:  40,
			WorkingDays:     []string{"MONDAY"},
		},
	}
	require.NoError(t, repo.Create(context.Background(), tt))
	assert.NotEmpty(t, tt.ID)
	assert.Equal(t, 1, tt.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateVersionCheck(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	tt := &models.Timetable{
		ID:      "tt-1",
		Status:  models.TimetableStatusDraft,
		Version: 1,
		TimeGrid: models.TimeGrid{
			SchoolStartTime: "08:00",
			SchoolEndTime:   "14:00",
			PeriodDuration:  40,
			WorkingDays:     []string{"MONDAY"},
		},
	}

	mock.ExpectExec("UPDATE timetables").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "DRAFT", sqlmock.AnyArg(), "tt-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), tt))
	assert.Equal(t, 2, tt.Version, "version bumps after a successful update")

	// A concurrent writer bumped the version; no rows match.
	mock.ExpectExec("UPDATE timetables").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "DRAFT", sqlmock.AnyArg(), "tt-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), tt)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("DELETE FROM timetables").
		WithArgs("tt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "tt-1"))

	mock.ExpectExec("DELETE FROM timetables").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
