package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ServicePeriod is one completed scholar term.
type ServicePeriod struct {
	StartDate             time.Time `json:"startDate"`
	EndDate               time.Time `json:"endDate"`
	Months                int       `json:"months"`
	ScholarType           Position  `json:"scholarType"`
	ArchivedApplicationID string    `json:"archivedApplicationId,omitempty"`
	RecordedAt            time.Time `json:"recordedAt"`
}

// ServicePeriods is persisted as a JSONB array.
type ServicePeriods []ServicePeriod

// Value marshals the periods for persistence.
func (p ServicePeriods) Value() (driver.Value, error) {
	if p == nil {
		p = ServicePeriods{}
	}
	data, err := json.Marshal([]ServicePeriod(p))
	if err != nil {
		return nil, fmt.Errorf("marshal service periods: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB array into the slice.
func (p *ServicePeriods) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = ServicePeriods{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ServicePeriods", value)
	}
	if len(data) == 0 {
		*p = ServicePeriods{}
		return nil
	}
	var out []ServicePeriod
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal service periods: %w", err)
	}
	*p = out
	return nil
}

// HasArchive reports whether a period was already recorded for the archived application.
func (p ServicePeriods) HasArchive(archivedID string) bool {
	if archivedID == "" {
		return false
	}
	for _, period := range p {
		if period.ArchivedApplicationID == archivedID {
			return true
		}
	}
	return false
}

// HasEndNear reports whether a period without an archive key ends within window of t.
// Rows written before periods carried the archive id can only be matched this way.
func (p ServicePeriods) HasEndNear(t time.Time, window time.Duration) bool {
	for _, period := range p {
		if period.ArchivedApplicationID != "" {
			continue
		}
		diff := period.EndDate.Sub(t)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true
		}
	}
	return false
}

// UserData holds a user's service history.
type UserData struct {
	UserID          string         `db:"user_id" json:"userId"`
	ServiceMonths   int            `db:"service_months" json:"serviceMonths"`
	ServicePeriods  ServicePeriods `db:"service_periods" json:"servicePeriods"`
	EffectivityDate *time.Time     `db:"effectivity_date" json:"effectivityDate,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}
