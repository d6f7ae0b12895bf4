package dto

import "github.com/noah-isme/sasm-ims-api/internal/models"

// ScholarQuery captures list filters.
type ScholarQuery struct {
	Office    string `form:"office"`
	Type      string `form:"type" validate:"omitempty,oneof=student_assistant student_marshal"`
	Status    string `form:"status" validate:"omitempty,oneof=active inactive"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// UpdateScholarRequest edits a scholar. Nil fields are unchanged.
type UpdateScholarRequest struct {
	ScholarOffice     *string               `json:"scholarOffice" validate:"omitempty,min=1,max=128"`
	ScholarType       *models.Position      `json:"scholarType" validate:"omitempty,oneof=student_assistant student_marshal"`
	Status            *models.ScholarStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	PerformanceRating *float64              `json:"performanceRating" validate:"omitempty,min=1,max=5"`
}
