package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// EvaluationStatus tracks whether an evaluation counts toward the rating.
type EvaluationStatus string

const (
	EvaluationStatusDraft     EvaluationStatus = "draft"
	EvaluationStatusSubmitted EvaluationStatus = "submitted"
)

// Rating bounds for every criterion.
const (
	MinCriterionRating = 1
	MaxCriterionRating = 5
)

// CriterionRatings maps a criterion name to its 1-5 score, stored as JSONB.
type CriterionRatings map[string]int

// Value marshals ratings for persistence.
func (r CriterionRatings) Value() (driver.Value, error) {
	if r == nil {
		r = CriterionRatings{}
	}
	data, err := json.Marshal(map[string]int(r))
	if err != nil {
		return nil, fmt.Errorf("marshal criterion ratings: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB ratings.
func (r *CriterionRatings) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*r = CriterionRatings{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for CriterionRatings", value)
	}
	out := map[string]int{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal criterion ratings: %w", err)
		}
	}
	*r = out
	return nil
}

// Average returns the mean score rounded to two decimals, 0 when empty.
func (r CriterionRatings) Average() float64 {
	if len(r) == 0 {
		return 0
	}
	total := 0
	for _, v := range r {
		total += v
	}
	return math.Round(float64(total)/float64(len(r))*100) / 100
}

// Evaluation is an office's periodic assessment of a scholar.
type Evaluation struct {
	ID          string           `db:"id" json:"id"`
	ScholarID   string           `db:"scholar_id" json:"scholarId"`
	Office      string           `db:"office" json:"office"`
	EvaluatorID string           `db:"evaluator_id" json:"evaluatorId"`
	Period      string           `db:"period" json:"period"`
	Ratings     CriterionRatings `db:"ratings" json:"ratings"`
	Average     float64          `db:"average" json:"average"`
	Comments    *string          `db:"comments" json:"comments,omitempty"`
	Status      EvaluationStatus `db:"status" json:"status"`
	SubmittedAt *time.Time       `db:"submitted_at" json:"submittedAt,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updatedAt"`
}

// EvaluationFilter narrows evaluation listings.
type EvaluationFilter struct {
	ScholarID string
	Office    string
	Period    string
	Status    EvaluationStatus
	Page      int
	PageSize  int
}
