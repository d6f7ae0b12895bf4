package models

import "time"

// Notification types emitted by the services.
const (
	NotificationTypeApplicationStatus = "application_status"
	NotificationTypeDeployment        = "deployment"
	NotificationTypeLeave             = "leave"
	NotificationTypeDTR               = "dtr"
	NotificationTypeEvaluation        = "evaluation"
	NotificationTypeScholarRequest    = "scholar_request"
)

// Notification is a message addressed to exactly one user.
type Notification struct {
	ID          string     `db:"id" json:"id"`
	RecipientID string     `db:"recipient_id" json:"recipientId"`
	Type        string     `db:"type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Message     string     `db:"message" json:"message"`
	RelatedType *string    `db:"related_type" json:"relatedType,omitempty"`
	RelatedID   *string    `db:"related_id" json:"relatedId,omitempty"`
	IsRead      bool       `db:"is_read" json:"isRead"`
	ReadAt      *time.Time `db:"read_at" json:"readAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// NotificationFilter scopes listing to one recipient.
type NotificationFilter struct {
	RecipientID string
	IsRead      *bool
	Limit       int
	Skip        int
}
