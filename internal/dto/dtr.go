package dto

// TimeInRequest opens today's record.
type TimeInRequest struct {
	Remarks *string `json:"remarks" validate:"omitempty,max=500"`
}

// TimeOutRequest closes today's record.
type TimeOutRequest struct {
	Remarks *string `json:"remarks" validate:"omitempty,max=500"`
}

// DTRQuery captures list filters. Dates use YYYY-MM-DD.
type DTRQuery struct {
	UserID   string `form:"userId"`
	Office   string `form:"office"`
	Status   string `form:"status" validate:"omitempty,oneof=open submitted approved rejected"`
	From     string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ReviewRequest approves or rejects a DTR record or a leave.
type ReviewRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approved rejected"`
	Note     *string `json:"note" validate:"omitempty,max=1000"`
}
