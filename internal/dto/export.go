package dto

import "github.com/noah-isme/sasm-ims-api/internal/models"

// ExportRequest captures POST /exports.
type ExportRequest struct {
	Type   models.ExportType   `json:"type" validate:"required,oneof=dtr roster service_history"`
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Office string              `json:"office"`
	UserID string              `json:"userId"`
	From   string              `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string              `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
