package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleUserType labels whose duty a schedule describes.
type ScheduleUserType string

const (
	ScheduleUserTrainee ScheduleUserType = "trainee"
	ScheduleUserScholar ScheduleUserType = "scholar"
)

// Schedule holds a user's class timetable and duty hours.
type Schedule struct {
	ID                string           `db:"id" json:"id"`
	UserID            string           `db:"user_id" json:"userId"`
	ApplicationID     *string          `db:"application_id" json:"applicationId,omitempty"`
	ScholarID         *string          `db:"scholar_id" json:"scholarId,omitempty"`
	UserType          ScheduleUserType `db:"user_type" json:"userType"`
	ClassScheduleData types.JSONText   `db:"class_schedule_data" json:"classScheduleData"`
	DutyHours         types.JSONText   `db:"duty_hours" json:"dutyHours"`
	LastModifiedBy    *string          `db:"last_modified_by" json:"lastModifiedBy,omitempty"`
	LastModifiedAt    *time.Time       `db:"last_modified_at" json:"lastModifiedAt,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updatedAt"`
}

// DutyShift is one entry of Schedule.DutyHours.
type DutyShift struct {
	Day       string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Location  string `json:"location,omitempty"`
}
