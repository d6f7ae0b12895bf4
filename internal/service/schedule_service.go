package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type scheduleRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Schedule, error)
	Upsert(ctx context.Context, schedule *models.Schedule) error
}

type scholarFinder interface {
	FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Scholar, error)
}

// ScheduleService reads and writes class schedules and duty hours.
type ScheduleService struct {
	repo      scheduleRepository
	scholars  scholarFinder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, scholars scholarFinder, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, scholars: scholars, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the schedule of userID. Users read their own; staff and office users read any.
func (s *ScheduleService) Get(ctx context.Context, actor *models.JWTClaims, userID string) (*models.Schedule, error) {
	if !canReadSchedule(actor, userID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view this schedule")
	}
	schedule, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "schedule not found", "failed to load schedule")
	}
	return schedule, nil
}

// Upsert replaces the schedule data of userID. Only the owner or HR may write.
func (s *ScheduleService) Upsert(ctx context.Context, actor *models.JWTClaims, userID string, req dto.UpsertScheduleRequest) (*models.Schedule, error) {
	if actor == nil || (actor.UserID != userID && !actor.Role.IsStaff()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner or HR can edit a schedule")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}
	classData := types.JSONText(`{}`)
	if len(req.ClassScheduleData) > 0 {
		if !json.Valid(req.ClassScheduleData) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "classScheduleData must be valid JSON")
		}
		classData = types.JSONText(req.ClassScheduleData)
	}
	shifts := req.DutyHours
	if shifts == nil {
		shifts = []models.DutyShift{}
	}
	dutyHours, err := json.Marshal(shifts)
	if err != nil {
		return nil, internalError(err, "failed to encode duty hours")
	}

	now := s.now()
	schedule := &models.Schedule{
		UserID:            userID,
		UserType:          models.ScheduleUserTrainee,
		ClassScheduleData: classData,
		DutyHours:         dutyHours,
		LastModifiedBy:    &actor.UserID,
		LastModifiedAt:    &now,
	}
	if existing, err := s.repo.GetByUserID(ctx, userID); err == nil {
		schedule.ID = existing.ID
		schedule.UserType = existing.UserType
		schedule.ScholarID = existing.ScholarID
		schedule.ApplicationID = existing.ApplicationID
		schedule.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to load schedule")
	} else if scholar, err := s.scholars.FindByUserID(ctx, nil, userID); err == nil && scholar.Status == models.ScholarStatusActive {
		schedule.UserType = models.ScheduleUserScholar
		schedule.ScholarID = &scholar.ID
		schedule.ApplicationID = &scholar.ApplicationID
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to load scholar")
	}

	if err := s.repo.Upsert(ctx, schedule); err != nil {
		return nil, internalError(err, "failed to save schedule")
	}
	s.logger.Debug("schedule saved", zap.String("user_id", userID), zap.String("user_type", string(schedule.UserType)))
	return schedule, nil
}

func canReadSchedule(actor *models.JWTClaims, userID string) bool {
	if actor == nil {
		return false
	}
	return actor.UserID == userID || actor.Role.IsStaff() || actor.Role == models.RoleOffice
}
