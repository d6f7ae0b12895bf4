package dto

// CreateLeaveRequest files a leave. Dates use YYYY-MM-DD.
type CreateLeaveRequest struct {
	LeaveType string `json:"leaveType" validate:"required,max=64"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

// LeaveQuery captures list filters. Status accepts a comma separated list.
type LeaveQuery struct {
	UserID   string `form:"userId"`
	Office   string `form:"office"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
