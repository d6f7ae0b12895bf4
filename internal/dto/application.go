package dto

import (
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
)

// SubmitApplicationRequest is sent by a student applying for a position.
type SubmitApplicationRequest struct {
	Position      models.Position `json:"position" validate:"required,oneof=student_assistant student_marshal"`
	Semester      string          `json:"semester" validate:"required,max=32"`
	ScholarOffice *string         `json:"scholarOffice" validate:"omitempty,max=128"`
	Notes         *string         `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateApplicationRequest edits staff-managed fields.
type UpdateApplicationRequest struct {
	ScholarOffice *string          `json:"scholarOffice" validate:"omitempty,max=128"`
	Notes         *string          `json:"notes" validate:"omitempty,max=2000"`
	Priority      *models.Priority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// UpdateApplicationStatusRequest moves an application through the workflow.
type UpdateApplicationStatusRequest struct {
	Status workflow.Status `json:"status" validate:"required"`
	Note   *string         `json:"note" validate:"omitempty,max=1000"`
}

// ApplicationQuery captures list filters.
type ApplicationQuery struct {
	Status    string `form:"status"`
	Position  string `form:"position" validate:"omitempty,oneof=student_assistant student_marshal"`
	Priority  string `form:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Tag       string `form:"tag" validate:"omitempty,max=32"`
	Office    string `form:"office"`
	Semester  string `form:"semester"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// ArchiveSemesterRequest closes every application of a semester.
type ArchiveSemesterRequest struct {
	Semester string `json:"semester" validate:"required"`
	Reason   string `json:"reason"`
}

// ArchiveSemesterResult summarises an archival run.
type ArchiveSemesterResult struct {
	Semester            string `json:"semester"`
	Archived            int    `json:"archived"`
	ServicePeriodsAdded int    `json:"servicePeriodsAdded"`
	ScholarsDeactivated int    `json:"scholarsDeactivated"`
}

// Bulk action kinds accepted by POST /applications/bulk.
const (
	BulkActionAssign         = "assign"
	BulkActionUpdateStatus   = "update_status"
	BulkActionUpdatePriority = "update_priority"
	BulkActionAddTag         = "add_tag"
)

// BulkApplicationAction applies one action to many applications. Exactly the payload
// matching Kind must be set; see PayloadMatchesKind.
type BulkApplicationAction struct {
	Kind           string                          `json:"kind" validate:"required,oneof=assign update_status update_priority add_tag"`
	ApplicationIDs []string                        `json:"applicationIds" validate:"required,min=1,max=200,dive,required"`
	Assign         *AssignOfficePayload            `json:"assign,omitempty" validate:"required_if=Kind assign"`
	UpdateStatus   *UpdateApplicationStatusRequest `json:"updateStatus,omitempty" validate:"required_if=Kind update_status"`
	UpdatePriority *UpdatePriorityPayload          `json:"updatePriority,omitempty" validate:"required_if=Kind update_priority"`
	AddTag         *AddTagPayload                  `json:"addTag,omitempty" validate:"required_if=Kind add_tag"`
}

// AssignOfficePayload sets the office an applicant will serve in.
type AssignOfficePayload struct {
	ScholarOffice string `json:"scholarOffice" validate:"required,max=128"`
}

// UpdatePriorityPayload reorders applications in the review queue.
type UpdatePriorityPayload struct {
	Priority models.Priority `json:"priority" validate:"required,oneof=low normal high urgent"`
}

// AddTagPayload attaches labels to applications. Existing tags are kept.
type AddTagPayload struct {
	Tags []string `json:"tags" validate:"required,min=1,max=10,dive,required,max=32"`
}

// BulkActionResult lists per-application outcomes.
type BulkActionResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
}

// PayloadMatchesKind reports whether only the payload named by Kind is present.
func (a BulkApplicationAction) PayloadMatchesKind() bool {
	set := 0
	for _, present := range []bool{a.Assign != nil, a.UpdateStatus != nil, a.UpdatePriority != nil, a.AddTag != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return false
	}
	switch a.Kind {
	case BulkActionAssign:
		return a.Assign != nil
	case BulkActionUpdateStatus:
		return a.UpdateStatus != nil
	case BulkActionUpdatePriority:
		return a.UpdatePriority != nil
	case BulkActionAddTag:
		return a.AddTag != nil
	}
	return false
}
