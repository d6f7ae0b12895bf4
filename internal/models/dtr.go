package models

import (
	"math"
	"time"
)

// DTRStatus tracks review of a daily time record.
type DTRStatus string

const (
	DTRStatusOpen      DTRStatus = "open"
	DTRStatusSubmitted DTRStatus = "submitted"
	DTRStatusApproved  DTRStatus = "approved"
	DTRStatusRejected  DTRStatus = "rejected"
)

// DTREntry is one day's time in and time out for a scholar.
type DTREntry struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"userId"`
	ScholarID  *string    `db:"scholar_id" json:"scholarId,omitempty"`
	Office     string     `db:"office" json:"office"`
	WorkDate   time.Time  `db:"work_date" json:"workDate"`
	TimeIn     time.Time  `db:"time_in" json:"timeIn"`
	TimeOut    *time.Time `db:"time_out" json:"timeOut,omitempty"`
	Hours      float64    `db:"hours" json:"hours"`
	Status     DTRStatus  `db:"status" json:"status"`
	Remarks    *string    `db:"remarks" json:"remarks,omitempty"`
	ReviewedBy *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

// WorkedHours returns the hours between in and out rounded to two decimals.
func WorkedHours(in, out time.Time) float64 {
	if !out.After(in) {
		return 0
	}
	return math.Round(out.Sub(in).Hours()*100) / 100
}

// DTRFilter narrows DTR listings.
type DTRFilter struct {
	UserID   string
	Office   string
	Status   DTRStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
