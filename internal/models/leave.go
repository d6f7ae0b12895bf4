package models

import "time"

// LeaveStatus is the lifecycle of a leave request.
type LeaveStatus string

const (
	LeaveStatusPending   LeaveStatus = "pending"
	LeaveStatusApproved  LeaveStatus = "approved"
	LeaveStatusRejected  LeaveStatus = "rejected"
	LeaveStatusCancelled LeaveStatus = "cancelled"
)

// Leave is a scholar's request to be excused from duty.
type Leave struct {
	ID         string      `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"userId"`
	ScholarID  *string     `db:"scholar_id" json:"scholarId,omitempty"`
	Office     string      `db:"office" json:"office"`
	LeaveType  string      `db:"leave_type" json:"leaveType"`
	StartDate  time.Time   `db:"start_date" json:"startDate"`
	EndDate    time.Time   `db:"end_date" json:"endDate"`
	Reason     string      `db:"reason" json:"reason"`
	Status     LeaveStatus `db:"status" json:"status"`
	ReviewedBy *string     `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time  `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNote *string     `db:"review_note" json:"reviewNote,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// LeaveFilter narrows leave listings.
type LeaveFilter struct {
	UserID   string
	Office   string
	Statuses []LeaveStatus
	Page     int
	PageSize int
}
