package dto

// EvaluationRequest creates or edits an evaluation. Submit finalises it.
type EvaluationRequest struct {
	ScholarID string         `json:"scholarId" validate:"required"`
	Period    string         `json:"period" validate:"required,max=32"`
	Ratings   map[string]int `json:"ratings" validate:"required,min=1,dive,keys,required,max=64,endkeys,min=1,max=5"`
	Comments  *string        `json:"comments" validate:"omitempty,max=2000"`
	Submit    bool           `json:"submit"`
}

// EvaluationQuery captures list filters.
type EvaluationQuery struct {
	ScholarID string `form:"scholarId"`
	Office    string `form:"office"`
	Period    string `form:"period"`
	Status    string `form:"status" validate:"omitempty,oneof=draft submitted"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
