package dto

// CreateTeacherRequest registers a teacher in a branch.
type CreateTeacherRequest struct {
	FullName  string  `json:"fullName" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone"`
	BranchID  string  `json:"branchId" validate:"required"`
	Expertise *string `json:"expertise"`
}

// UpdateTeacherRequest patches mutable teacher fields.
type UpdateTeacherRequest struct {
	FullName  *string `json:"fullName"`
	Phone     *string `json:"phone"`
	Expertise *string `json:"expertise"`
	Active    *bool   `json:"active"`
}
