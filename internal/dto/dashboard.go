package dto

import (
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
)

// StepCount is the number of applications sitting in one pipeline step.
type StepCount struct {
	Key   workflow.StepKey `json:"key"`
	Label string           `json:"label"`
	Count int              `json:"count"`
}

// PipelineSummary groups application counts by workflow step.
type PipelineSummary struct {
	Steps   []StepCount `json:"steps"`
	Failed  int         `json:"failed"`
	OnHold  int         `json:"onHold"`
	Unknown int         `json:"unknown"`
	Total   int         `json:"total"`
}

// OfficeCount pairs an office with a number.
type OfficeCount struct {
	Office string `json:"office"`
	Count  int    `json:"count"`
}

// HRDashboardResponse is the HR overview.
type HRDashboardResponse struct {
	Pipeline               PipelineSummary `json:"pipeline"`
	ActiveScholarsByOffice []OfficeCount   `json:"activeScholarsByOffice"`
	ActiveScholars         int             `json:"activeScholars"`
	PendingLeaves          int             `json:"pendingLeaves"`
	PendingScholarRequests int             `json:"pendingScholarRequests"`
}

// OfficeDashboardResponse is the office overview.
type OfficeDashboardResponse struct {
	Office          string `json:"office"`
	ActiveScholars  int    `json:"activeScholars"`
	PendingLeaves   int    `json:"pendingLeaves"`
	PendingDTR      int    `json:"pendingDtr"`
	OpenRequests    int    `json:"openRequests"`
	ApprovedRequest int    `json:"approvedRequests"`
}

// StudentDashboardResponse is what a student sees on login.
type StudentDashboardResponse struct {
	Application         *models.Application `json:"application,omitempty"`
	Progress            *workflow.Progress  `json:"progress,omitempty"`
	UnreadNotifications int                 `json:"unreadNotifications"`
	ServiceMonths       int                 `json:"serviceMonths"`
	Scholar             *models.Scholar     `json:"scholar,omitempty"`
}
