package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/arka-edu/school-suite-api/internal/models"
)

// TimetableRepository persists timetables as whole documents: the metadata
// columns are queryable, the time grid and period list live in JSONB.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

type timetableRow struct {
	ID           string         `db:"id"`
	ClassID      string         `db:"class_id"`
	Section      string         `db:"section"`
	AcademicYear string         `db:"academic_year"`
	BranchID     string         `db:"branch_id"`
	TimeGrid     types.JSONText `db:"time_grid"`
	Periods      types.JSONText `db:"periods"`
	Status       string         `db:"status"`
	Version      int            `db:"version"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

const timetableColumns = "id, class_id, section, academic_year, branch_id, time_grid, periods, status, version, created_at, updated_at"

func (row *timetableRow) toModel() (*models.Timetable, error) {
	tt := &models.Timetable{
		ID:           row.ID,
		ClassID:      row.ClassID,
		Section:      row.Section,
		AcademicYear: row.AcademicYear,
		BranchID:     row.BranchID,
		Status:       models.TimetableStatus(row.Status),
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if err := json.Unmarshal(row.TimeGrid, &tt.TimeGrid); err != nil {
		return nil, fmt.Errorf("decode time grid for timetable %s: %w", row.ID, err)
	}
	if len(row.Periods) > 0 {
		if err := json.Unmarshal(row.Periods, &tt.Periods); err != nil {
			return nil, fmt.Errorf("decode periods for timetable %s: %w", row.ID, err)
		}
	}
	return tt, nil
}

func encodeTimetable(tt *models.Timetable) (types.JSONText, types.JSONText, error) {
	grid, err := json.Marshal(tt.TimeGrid)
	if err != nil {
		return nil, nil, fmt.Errorf("encode time grid: %w", err)
	}
	periods := tt.Periods
	if periods == nil {
		periods = []models.Period{}
	}
	encoded, err := json.Marshal(periods)
	if err != nil {
		return nil, nil, fmt.Errorf("encode periods: %w", err)
	}
	return types.JSONText(grid), types.JSONText(encoded), nil
}

// ListByScope loads every timetable of a branch and academic year in one
// query, so occupancy is derived from a consistent snapshot.
func (r *TimetableRepository) ListByScope(ctx context.Context, branchID, academicYear string) ([]models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE branch_id = $1 AND academic_year = $2 ORDER BY created_at", timetableColumns)
	var rows []timetableRow
	if err := r.db.SelectContext(ctx, &rows, query, branchID, academicYear); err != nil {
		return nil, fmt.Errorf("list timetables by scope: %w", err)
	}
	timetables := make([]models.Timetable, 0, len(rows))
	for i := range rows {
		tt, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		timetables = append(timetables, *tt)
	}
	return timetables, nil
}

// List returns timetables matching the filter plus the total count.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	base := "FROM timetables WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.Status))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var rows []timetableRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}

	timetables := make([]models.Timetable, 0, len(rows))
	for i := range rows {
		tt, err := rows[i].toModel()
		if err != nil {
			return nil, 0, err
		}
		timetables = append(timetables, *tt)
	}
	return timetables, total, nil
}

// FindByID loads a single timetable document.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE id = $1", timetableColumns)
	var row timetableRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Create inserts the timetable and fills in its generated identity.
func (r *TimetableRepository) Create(ctx context.Context, tt *models.Timetable) error {
	grid, periods, err := encodeTimetable(tt)
	if err != nil {
		return err
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tt.Version = 1
	tt.CreatedAt = now
	tt.UpdatedAt = now

	const query = `INSERT INTO timetables (id, class_id, section, academic_year, branch_id, time_grid, periods, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		tt.ID, tt.ClassID, tt.Section, tt.AcademicYear, tt.BranchID,
		grid, periods, string(tt.Status), tt.Version, tt.CreatedAt, tt.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// Update replaces the whole document guarded by an optimistic version
// check. sql.ErrNoRows signals the version moved underneath the caller.
func (r *TimetableRepository) Update(ctx context.Context, tt *models.Timetable) error {
	grid, periods, err := encodeTimetable(tt)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	const query = `UPDATE timetables
		SET time_grid = $1, periods = $2, status = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`
	result, err := r.db.ExecContext(ctx, query, grid, periods, string(tt.Status), now, tt.ID, tt.Version)
	if err != nil {
		return fmt.Errorf("update timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	tt.Version++
	tt.UpdatedAt = now
	return nil
}

// Delete removes the timetable document.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM timetables WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
