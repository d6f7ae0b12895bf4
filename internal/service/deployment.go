package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

// legacyPeriodWindow matches service periods recorded before they carried an archive id.
const legacyPeriodWindow = 60 * time.Second

type scholarStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, scholar *models.Scholar) error
	FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Scholar, error)
	Reactivate(ctx context.Context, exec sqlx.ExtContext, scholar *models.Scholar) error
	Deactivate(ctx context.Context, exec sqlx.ExtContext, userID string) (int64, error)
}

type scheduleRelabeler interface {
	RelabelForScholar(ctx context.Context, exec sqlx.ExtContext, userID, scholarID, applicationID, actorID string, at time.Time) (int64, error)
}

type serviceHistoryStore interface {
	Get(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.UserData, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, data *models.UserData) error
}

// deployment is the outcome of making an accepted applicant a scholar.
type deployment struct {
	Scholar            *models.Scholar
	Created            bool
	SchedulesRelabeled int64
}

// deployScholar ensures an active scholar exists for the accepted application and that every
// schedule of the user points at it. Callers run it inside their transaction.
func deployScholar(ctx context.Context, exec sqlx.ExtContext, scholars scholarStore, schedules scheduleRelabeler, app *models.Application, deployedBy string, at time.Time) (*deployment, error) {
	if deployedBy == "" {
		return nil, errors.New("deploy scholar: deployedBy is required")
	}
	result := &deployment{}

	existing, err := scholars.FindByUserID(ctx, exec, app.UserID)
	switch {
	case err == nil && existing.Status == models.ScholarStatusActive:
		result.Scholar = existing
	case err == nil:
		// A returning scholar keeps their record; it is pointed at the new application.
		existing.ApplicationID = app.ID
		existing.FullName = app.ApplicantName
		existing.ScholarOffice = stringValue(app.ScholarOffice)
		existing.ScholarType = app.Position
		existing.Status = models.ScholarStatusActive
		existing.DeployedBy = deployedBy
		existing.DeployedAt = at
		if err := scholars.Reactivate(ctx, exec, existing); err != nil {
			return nil, err
		}
		result.Scholar = existing
	case errors.Is(err, sql.ErrNoRows):
		scholar := &models.Scholar{
			UserID:        app.UserID,
			ApplicationID: app.ID,
			FullName:      app.ApplicantName,
			ScholarOffice: stringValue(app.ScholarOffice),
			ScholarType:   app.Position,
			Status:        models.ScholarStatusActive,
			DeployedBy:    deployedBy,
			DeployedAt:    at,
		}
		if err := scholars.Create(ctx, exec, scholar); err != nil {
			return nil, err
		}
		result.Scholar = scholar
		result.Created = true
	default:
		return nil, err
	}

	relabeled, err := schedules.RelabelForScholar(ctx, exec, app.UserID, result.Scholar.ID, app.ID, deployedBy, at)
	if err != nil {
		return nil, err
	}
	result.SchedulesRelabeled = relabeled
	return result, nil
}

// servicePeriodInput describes one completed term to record.
type servicePeriodInput struct {
	UserID                string
	ArchivedApplicationID string
	ScholarType           models.Position
	Start                 time.Time
	End                   time.Time
	Months                int
}

// recordServicePeriod appends the period unless it is already present. It returns whether a
// period was added.
func recordServicePeriod(ctx context.Context, exec sqlx.ExtContext, store serviceHistoryStore, in servicePeriodInput, now time.Time) (bool, error) {
	data, err := store.Get(ctx, exec, in.UserID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return false, err
		}
		data = &models.UserData{UserID: in.UserID, ServicePeriods: models.ServicePeriods{}}
	}

	if data.ServicePeriods.HasArchive(in.ArchivedApplicationID) || data.ServicePeriods.HasEndNear(in.End, legacyPeriodWindow) {
		return false, nil
	}

	data.ServicePeriods = append(data.ServicePeriods, models.ServicePeriod{
		StartDate:             in.Start,
		EndDate:               in.End,
		Months:                in.Months,
		ScholarType:           in.ScholarType,
		ArchivedApplicationID: in.ArchivedApplicationID,
		RecordedAt:            now,
	})
	data.ServiceMonths += in.Months
	if err := store.Upsert(ctx, exec, data); err != nil {
		return false, fmt.Errorf("record service period for %s: %w", in.UserID, err)
	}
	return true, nil
}

// periodStart returns the start of a term of months ending at end, preferring the deployment date.
func periodStart(deployedAt *time.Time, end time.Time, months int) time.Time {
	if deployedAt != nil && !deployedAt.IsZero() && deployedAt.Before(end) {
		return *deployedAt
	}
	return end.AddDate(0, -months, 0)
}
