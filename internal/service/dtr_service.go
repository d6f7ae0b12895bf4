package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type dtrRepository interface {
	Create(ctx context.Context, entry *models.DTREntry) error
	GetByID(ctx context.Context, id string) (*models.DTREntry, error)
	FindLatestOpen(ctx context.Context, userID string) (*models.DTREntry, error)
	CloseEntry(ctx context.Context, id string, timeOut time.Time, hours float64, remarks *string) error
	Review(ctx context.Context, id string, status models.DTRStatus, reviewerID string, remarks *string, at time.Time) error
	List(ctx context.Context, filter models.DTRFilter) ([]models.DTREntry, int, error)
}

// DTRService records scholars' daily time in and time out.
type DTRService struct {
	repo      dtrRepository
	scholars  scholarFinder
	audit     auditLogger
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewDTRService constructs the service. Work days are read in loc, UTC when nil.
func NewDTRService(repo dtrRepository, scholars scholarFinder, audit auditLogger, n notifier, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *DTRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DTRService{
		repo:      repo,
		scholars:  scholars,
		audit:     audit,
		notifier:  n,
		validator: validate,
		logger:    logger,
		location:  loc,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// workDay is the office calendar day of t, as a DATE-shaped UTC midnight.
func (s *DTRService) workDay(t time.Time) time.Time {
	y, m, d := t.In(s.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TimeIn opens a record for the current office day. A scholar holds at most
// one open record at a time.
func (s *DTRService) TimeIn(ctx context.Context, actor *models.JWTClaims, req dto.TimeInRequest) (*models.DTREntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid time in payload")
	}
	scholar, err := s.activeScholar(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := s.workDay(now)

	if open, err := s.repo.FindLatestOpen(ctx, actor.UserID); err == nil {
		if open.WorkDate.Equal(today) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "you already timed in today")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("time out of your %s record first", open.WorkDate.Format(dateLayout)))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check open time record")
	}

	entry := &models.DTREntry{
		UserID:    actor.UserID,
		ScholarID: &scholar.ID,
		Office:    scholar.ScholarOffice,
		WorkDate:  today,
		TimeIn:    now,
		Status:    models.DTRStatusOpen,
		Remarks:   trimmed(req.Remarks),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, internalError(err, "failed to record time in")
	}
	return entry, nil
}

// TimeOut closes the open record and computes the worked hours. The record
// may have been opened on the previous calendar day.
func (s *DTRService) TimeOut(ctx context.Context, actor *models.JWTClaims, req dto.TimeOutRequest) (*models.DTREntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid time out payload")
	}
	now := s.now()
	entry, err := s.repo.FindLatestOpen(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "no open time record", "failed to load time record")
	}

	hours := models.WorkedHours(entry.TimeIn, now)
	remarks := trimmed(req.Remarks)
	if err := s.repo.CloseEntry(ctx, entry.ID, now, hours, remarks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "time record is no longer open")
		}
		return nil, internalError(err, "failed to record time out")
	}
	entry.TimeOut = &now
	entry.Hours = hours
	entry.Status = models.DTRStatusSubmitted
	if remarks != nil {
		entry.Remarks = remarks
	}
	return entry, nil
}

// List returns time records visible to the actor.
func (s *DTRService) List(ctx context.Context, actor *models.JWTClaims, query dto.DTRQuery) ([]models.DTREntry, *models.Pagination, error) {
	filter, err := s.filter(actor, query)
	if err != nil {
		return nil, nil, err
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list time records")
	}
	return entries, models.NewPagination(query.Page, query.PageSize, total), nil
}

func (s *DTRService) filter(actor *models.JWTClaims, query dto.DTRQuery) (models.DTRFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.DTRFilter{}, validationError(err, "invalid time record filters")
	}
	from, err := parseDate(query.From)
	if err != nil {
		return models.DTRFilter{}, validationError(err, "invalid from date")
	}
	to, err := parseDate(query.To)
	if err != nil {
		return models.DTRFilter{}, validationError(err, "invalid to date")
	}
	if from != nil && to != nil && to.Before(*from) {
		return models.DTRFilter{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	filter := models.DTRFilter{
		UserID:   strings.TrimSpace(query.UserID),
		Status:   models.DTRStatus(query.Status),
		From:     from,
		To:       to,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if actor != nil && actor.Role == models.RoleStudent {
		filter.UserID = actor.UserID
		return filter, nil
	}
	office, err := officeScope(actor, strings.TrimSpace(query.Office))
	if err != nil {
		return models.DTRFilter{}, err
	}
	filter.Office = office
	return filter, nil
}

// Review approves or rejects a submitted record.
func (s *DTRService) Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewRequest, meta models.RequestMeta) (*models.DTREntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "time record not found", "failed to load time record")
	}
	office, err := officeScope(actor, entry.Office)
	if err != nil {
		return nil, err
	}
	if office != entry.Office {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "time record not found")
	}
	if entry.Status != models.DTRStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("time record is %s and cannot be reviewed", entry.Status))
	}

	status := models.DTRStatus(req.Decision)
	now := s.now()
	note := trimmed(req.Note)
	if err := s.repo.Review(ctx, entry.ID, status, actor.UserID, note, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "time record was already reviewed")
		}
		return nil, internalError(err, "failed to review time record")
	}
	entry.Status = status
	entry.ReviewedBy = &actor.UserID
	entry.ReviewedAt = &now
	if note != nil {
		entry.Remarks = note
	}

	emitAudit(ctx, s.audit, s.logger, "dtr-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDTRReview,
		Resource:   "dtr_entries",
		ResourceID: &entry.ID,
		NewValues:  auditJSON(map[string]interface{}{"status": status}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	relatedType := "dtr"
	notify(ctx, s.notifier, s.logger, &models.Notification{
		RecipientID: entry.UserID,
		Type:        models.NotificationTypeDTR,
		Title:       "Time record reviewed",
		Message:     fmt.Sprintf("Your time record for %s was %s.", entry.WorkDate.Format(dateLayout), status),
		RelatedType: &relatedType,
		RelatedID:   &entry.ID,
	})
	return entry, nil
}

func (s *DTRService) activeScholar(ctx context.Context, userID string) (*models.Scholar, error) {
	scholar, err := s.scholars.FindByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only active scholars can record time")
		}
		return nil, internalError(err, "failed to load scholar")
	}
	if scholar.Status != models.ScholarStatusActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only active scholars can record time")
	}
	return scholar, nil
}
