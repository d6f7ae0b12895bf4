package models

import "time"

// ScholarStatus tracks whether a scholar is currently serving.
type ScholarStatus string

const (
	ScholarStatusActive   ScholarStatus = "active"
	ScholarStatusInactive ScholarStatus = "inactive"
)

// Scholar is a deployed student assistant or marshal.
type Scholar struct {
	ID                string        `db:"id" json:"id"`
	UserID            string        `db:"user_id" json:"userId"`
	ApplicationID     string        `db:"application_id" json:"applicationId"`
	FullName          string        `db:"full_name" json:"fullName"`
	ScholarOffice     string        `db:"scholar_office" json:"scholarOffice"`
	ScholarType       Position      `db:"scholar_type" json:"scholarType"`
	Status            ScholarStatus `db:"status" json:"status"`
	DeployedBy        string        `db:"deployed_by" json:"deployedBy"`
	DeployedAt        time.Time     `db:"deployed_at" json:"deployedAt"`
	PerformanceRating *float64      `db:"performance_rating" json:"performanceRating,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// ScholarFilter narrows scholar listings.
type ScholarFilter struct {
	Office    string
	Type      Position
	Status    ScholarStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
