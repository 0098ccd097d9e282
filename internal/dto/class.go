package dto

import "github.com/arka-edu/school-suite-api/internal/models"

// CreateClassRequest registers a class with its sections.
type CreateClassRequest struct {
	Name     string           `json:"name" validate:"required"`
	BranchID string           `json:"branchId" validate:"required"`
	Sections []models.Section `json:"sections" validate:"required,min=1,dive"`
}

// UpdateClassRequest replaces the mutable parts of a class.
type UpdateClassRequest struct {
	Name     *string          `json:"name"`
	Sections []models.Section `json:"sections" validate:"omitempty,min=1,dive"`
}
