package dto

import (
	"encoding/json"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

// UpsertScheduleRequest replaces a user's schedule.
type UpsertScheduleRequest struct {
	ClassScheduleData json.RawMessage    `json:"classScheduleData"`
	DutyHours         []models.DutyShift `json:"dutyHours" validate:"omitempty,max=42,dive"`
}
