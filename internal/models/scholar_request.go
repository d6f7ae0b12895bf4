package models

import "time"

// ScholarRequestStatus is the lifecycle of an office's staffing request.
type ScholarRequestStatus string

const (
	ScholarRequestPending   ScholarRequestStatus = "pending"
	ScholarRequestApproved  ScholarRequestStatus = "approved"
	ScholarRequestRejected  ScholarRequestStatus = "rejected"
	ScholarRequestFulfilled ScholarRequestStatus = "fulfilled"
	ScholarRequestCancelled ScholarRequestStatus = "cancelled"
)

// ScholarRequest is an office asking HR for additional scholars.
type ScholarRequest struct {
	ID          string               `db:"id" json:"id"`
	Office      string               `db:"office" json:"office"`
	RequestedBy string               `db:"requested_by" json:"requestedBy"`
	ScholarType Position             `db:"scholar_type" json:"scholarType"`
	Quantity    int                  `db:"quantity" json:"quantity"`
	Reason      string               `db:"reason" json:"reason"`
	Status      ScholarRequestStatus `db:"status" json:"status"`
	ReviewedBy  *string              `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time           `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNote  *string              `db:"review_note" json:"reviewNote,omitempty"`
	FulfilledAt *time.Time           `db:"fulfilled_at" json:"fulfilledAt,omitempty"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updatedAt"`
}

// ScholarRequestFilter narrows request listings.
type ScholarRequestFilter struct {
	Office   string
	Statuses []ScholarRequestStatus
	Page     int
	PageSize int
}
