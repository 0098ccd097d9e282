package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/arka-edu/school-suite-api/internal/models"
)

// ClassRepository persists classes; sections live in a JSONB column since
// they are only ever read as part of the owning class.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

type classRow struct {
	ID        string         `db:"id"`
	BranchID  string         `db:"branch_id"`
	Name      string         `db:"name"`
	Sections  types.JSONText `db:"sections"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row *classRow) toModel() (*models.Class, error) {
	class := &models.Class{
		ID:        row.ID,
		BranchID:  row.BranchID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Sections) > 0 {
		if err := json.Unmarshal(row.Sections, &class.Sections); err != nil {
			return nil, fmt.Errorf("decode sections for class %s: %w", row.ID, err)
		}
	}
	return class, nil
}

// List returns classes with filtering and pagination.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf("SELECT id, branch_id, name, sections, created_at, updated_at %s ORDER BY name LIMIT %d OFFSET %d", base, size, offset)
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	classes := make([]models.Class, 0, len(rows))
	for i := range rows {
		class, err := rows[i].toModel()
		if err != nil {
			return nil, 0, err
		}
		classes = append(classes, *class)
	}
	return classes, total, nil
}

// FindByID loads a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, branch_id, name, sections, created_at, updated_at FROM classes WHERE id = $1`
	var row classRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Create inserts a class together with its sections.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	sections := class.Sections
	if sections == nil {
		sections = []models.Section{}
	}
	encoded, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, branch_id, name, sections, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		class.ID, class.BranchID, class.Name, types.JSONText(encoded), class.CreatedAt, class.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// Update replaces a class and its sections.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	sections := class.Sections
	if sections == nil {
		sections = []models.Section{}
	}
	encoded, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	class.UpdatedAt = time.Now().UTC()

	const query = `UPDATE classes SET name = $1, sections = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, class.Name, types.JSONText(encoded), class.UpdatedAt, class.ID); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
