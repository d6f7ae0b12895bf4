package dto

import "github.com/noah-isme/sasm-ims-api/internal/models"

// CreateScholarRequestRequest is an office asking for more scholars.
type CreateScholarRequestRequest struct {
	ScholarType models.Position `json:"scholarType" validate:"required,oneof=student_assistant student_marshal"`
	Quantity    int             `json:"quantity" validate:"required,min=1,max=50"`
	Reason      string          `json:"reason" validate:"required,max=1000"`
}

// ReviewScholarRequestRequest is HR's decision on a request.
type ReviewScholarRequestRequest struct {
	Decision models.ScholarRequestStatus `json:"decision" validate:"required,oneof=approved rejected fulfilled"`
	Note     *string                     `json:"note" validate:"omitempty,max=1000"`
}

// ScholarRequestQuery captures list filters. Status accepts a comma separated list.
type ScholarRequestQuery struct {
	Office   string `form:"office"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
