package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/sasm-ims-api/internal/workflow"
)

// Position is the role an applicant applies for.
type Position string

const (
	PositionStudentAssistant Position = "student_assistant"
	PositionStudentMarshal   Position = "student_marshal"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	return p == PositionStudentAssistant || p == PositionStudentMarshal
}

// Priority orders applications in the HR review queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// MaxApplicationTags caps the labels kept on one application.
const MaxApplicationTags = 10

// ArchiveReasonEndOfSemester marks applications closed by the semester rollover.
const ArchiveReasonEndOfSemester = "End of Semester"

// Application is a student's request to join the scholar programme.
type Application struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"userId"`
	ApplicantName   string          `db:"applicant_name" json:"applicantName"`
	Position        Position        `db:"position" json:"position"`
	Status          workflow.Status `db:"status" json:"status"`
	ScholarOffice   *string         `db:"scholar_office" json:"scholarOffice,omitempty"`
	Semester        string          `db:"semester" json:"semester"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	Priority        Priority        `db:"priority" json:"priority"`
	Tags            pq.StringArray  `db:"tags" json:"tags"`
	LastReviewedBy  *string         `db:"last_reviewed_by" json:"lastReviewedBy,omitempty"`
	StatusChangedAt *time.Time      `db:"status_changed_at" json:"statusChangedAt,omitempty"`
	SubmittedAt     time.Time       `db:"submitted_at" json:"submittedAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	Statuses  []workflow.Status
	Position  Position
	Priority  Priority
	Tag       string
	Office    string
	UserID    string
	Semester  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ApplicationStatusChange is one row of an application's status history.
type ApplicationStatusChange struct {
	ID            string          `db:"id" json:"id"`
	ApplicationID string          `db:"application_id" json:"applicationId"`
	FromStatus    workflow.Status `db:"from_status" json:"fromStatus"`
	ToStatus      workflow.Status `db:"to_status" json:"toStatus"`
	Note          *string         `db:"note" json:"note,omitempty"`
	ChangedBy     string          `db:"changed_by" json:"changedBy"`
	ChangedAt     time.Time       `db:"changed_at" json:"changedAt"`
}

// ArchivedApplication is an application moved out of the active pipeline.
type ArchivedApplication struct {
	ID            string          `db:"id" json:"id"`
	ApplicationID string          `db:"application_id" json:"applicationId"`
	UserID        string          `db:"user_id" json:"userId"`
	Position      Position        `db:"position" json:"position"`
	Status        workflow.Status `db:"status" json:"status"`
	ScholarOffice *string         `db:"scholar_office" json:"scholarOffice,omitempty"`
	Semester      string          `db:"semester" json:"semester"`
	ArchiveReason string          `db:"archive_reason" json:"archiveReason"`
	ArchivedBy    string          `db:"archived_by" json:"archivedBy"`
	ArchivedAt    time.Time       `db:"archived_at" json:"archivedAt"`
	Snapshot      types.JSONText  `db:"snapshot" json:"snapshot,omitempty"`
}
