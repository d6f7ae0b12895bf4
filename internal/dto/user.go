package dto

import "github.com/noah-isme/sasm-ims-api/internal/models"

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	FullName  string          `json:"fullName" validate:"required,max=128"`
	Role      models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN HR OFFICE STUDENT"`
	Office    *string         `json:"office" validate:"required_if=Role OFFICE,omitempty,max=128"`
	StudentNo *string         `json:"studentNo" validate:"omitempty,max=32"`
	Active    bool            `json:"active"`
	Password  string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	FullName  string          `json:"fullName" validate:"required,max=128"`
	Role      models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN HR OFFICE STUDENT"`
	Office    *string         `json:"office" validate:"required_if=Role OFFICE,omitempty,max=128"`
	StudentNo *string         `json:"studentNo" validate:"omitempty,max=32"`
	Active    *bool           `json:"active"`
}

// UserQuery captures list filters.
type UserQuery struct {
	Role      string `form:"role" validate:"omitempty,oneof=SUPERADMIN HR OFFICE STUDENT"`
	Office    string `form:"office"`
	Active    string `form:"active" validate:"omitempty,oneof=true false"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}
