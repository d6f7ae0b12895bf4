package models

import "time"

// Audit actions recorded by services and the audit middleware.
const (
	AuditActionLogin              = "LOGIN"
	AuditActionLogout             = "LOGOUT"
	AuditActionPasswordChange     = "PASSWORD_CHANGE"
	AuditActionUserCreate         = "USER_CREATE"
	AuditActionUserUpdate         = "USER_UPDATE"
	AuditActionUserDelete         = "USER_DELETE"
	AuditActionApplicationSubmit  = "APPLICATION_SUBMIT"
	AuditActionApplicationStatus  = "APPLICATION_STATUS"
	AuditActionApplicationArchive = "APPLICATION_ARCHIVE"
	AuditActionScholarDeploy      = "SCHOLAR_DEPLOY"
	AuditActionScholarUpdate      = "SCHOLAR_UPDATE"
	AuditActionLeaveReview        = "LEAVE_REVIEW"
	AuditActionDTRReview          = "DTR_REVIEW"
	AuditActionRequestReview      = "SCHOLAR_REQUEST_REVIEW"
	AuditActionMaintenance        = "MAINTENANCE"
	AuditActionScheduleUpsert     = "SCHEDULE_UPSERT"
	AuditActionExportRequest      = "EXPORT_REQUEST"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// RequestMeta carries the caller's network details into audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}
