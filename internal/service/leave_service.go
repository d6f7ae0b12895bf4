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

type leaveRepository interface {
	Create(ctx context.Context, leave *models.Leave) error
	GetByID(ctx context.Context, id string) (*models.Leave, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.Leave, int, error)
	Transition(ctx context.Context, id string, to models.LeaveStatus, reviewerID *string, note *string, at time.Time) error
}

type roleDirectory interface {
	ListIDsByRole(ctx context.Context, role models.UserRole, office string) ([]string, error)
}

// LeaveService handles scholars' leave requests.
type LeaveService struct {
	repo      leaveRepository
	scholars  scholarFinder
	directory roleDirectory
	audit     auditLogger
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeaveService constructs the service.
func NewLeaveService(repo leaveRepository, scholars scholarFinder, directory roleDirectory, audit auditLogger, n notifier, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveService{
		repo:      repo,
		scholars:  scholars,
		directory: directory,
		audit:     audit,
		notifier:  n,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create files a leave for the calling scholar and tells the office.
func (s *LeaveService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest) (*models.Leave, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid leave payload")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, validationError(err, "invalid start date")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, validationError(err, "invalid end date")
	}
	if end.Before(*start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}

	scholar, err := s.scholars.FindByUserID(ctx, nil, actor.UserID)
	if err != nil || scholar.Status != models.ScholarStatusActive {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to load scholar")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only active scholars can file a leave")
	}

	leave := &models.Leave{
		UserID:    actor.UserID,
		ScholarID: &scholar.ID,
		Office:    scholar.ScholarOffice,
		LeaveType: strings.TrimSpace(req.LeaveType),
		StartDate: *start,
		EndDate:   *end,
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, internalError(err, "failed to file leave")
	}

	if s.directory != nil {
		recipients, err := s.directory.ListIDsByRole(ctx, models.RoleOffice, leave.Office)
		if err != nil {
			s.logger.Warn("failed to resolve office recipients", zap.String("office", leave.Office), zap.Error(err))
		}
		relatedType := "leave"
		for _, recipient := range recipients {
			notify(ctx, s.notifier, s.logger, &models.Notification{
				RecipientID: recipient,
				Type:        models.NotificationTypeLeave,
				Title:       "New leave request",
				Message:     fmt.Sprintf("%s filed a %s leave from %s to %s.", scholar.FullName, leave.LeaveType, req.StartDate, req.EndDate),
				RelatedType: &relatedType,
				RelatedID:   &leave.ID,
			})
		}
	}
	return leave, nil
}

// List returns leaves visible to the actor.
func (s *LeaveService) List(ctx context.Context, actor *models.JWTClaims, query dto.LeaveQuery) ([]models.Leave, *models.Pagination, error) {
	statuses, err := parseLeaveStatuses(query.Status)
	if err != nil {
		return nil, nil, err
	}
	filter := models.LeaveFilter{
		UserID:   strings.TrimSpace(query.UserID),
		Statuses: statuses,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if actor != nil && actor.Role == models.RoleStudent {
		filter.UserID = actor.UserID
	} else {
		office, err := officeScope(actor, strings.TrimSpace(query.Office))
		if err != nil {
			return nil, nil, err
		}
		filter.Office = office
	}
	leaves, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list leaves")
	}
	return leaves, models.NewPagination(query.Page, query.PageSize, total), nil
}

// Review approves or rejects a pending leave.
func (s *LeaveService) Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewRequest, meta models.RequestMeta) (*models.Leave, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	leave, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "leave not found", "failed to load leave")
	}
	office, err := officeScope(actor, leave.Office)
	if err != nil {
		return nil, err
	}
	if office != leave.Office {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
	}

	status := models.LeaveStatus(req.Decision)
	note := trimmed(req.Note)
	now := s.now()
	if err := s.transition(ctx, leave, status, &actor.UserID, note, now); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.logger, "leave-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionLeaveReview,
		Resource:   "leaves",
		ResourceID: &leave.ID,
		OldValues:  []byte(`{"status":"pending"}`),
		NewValues:  auditJSON(map[string]interface{}{"status": status, "note": note}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	relatedType := "leave"
	notify(ctx, s.notifier, s.logger, &models.Notification{
		RecipientID: leave.UserID,
		Type:        models.NotificationTypeLeave,
		Title:       "Leave reviewed",
		Message:     fmt.Sprintf("Your %s leave starting %s was %s.", leave.LeaveType, leave.StartDate.Format(dateLayout), status),
		RelatedType: &relatedType,
		RelatedID:   &leave.ID,
	})
	return leave, nil
}

// Cancel withdraws the caller's own pending leave.
func (s *LeaveService) Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.Leave, error) {
	leave, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "leave not found", "failed to load leave")
	}
	if leave.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
	}
	if err := s.transition(ctx, leave, models.LeaveStatusCancelled, nil, nil, s.now()); err != nil {
		return nil, err
	}
	return leave, nil
}

func (s *LeaveService) transition(ctx context.Context, leave *models.Leave, to models.LeaveStatus, reviewerID, note *string, at time.Time) error {
	if leave.Status != models.LeaveStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("leave is %s and can no longer change", leave.Status))
	}
	if err := s.repo.Transition(ctx, leave.ID, to, reviewerID, note, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "leave is no longer pending")
		}
		return internalError(err, "failed to update leave")
	}
	leave.Status = to
	leave.ReviewedBy = reviewerID
	leave.ReviewNote = note
	leave.ReviewedAt = &at
	return nil
}

func parseLeaveStatuses(raw string) ([]models.LeaveStatus, error) {
	var out []models.LeaveStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		switch status := models.LeaveStatus(part); status {
		case models.LeaveStatusPending, models.LeaveStatusApproved, models.LeaveStatusRejected, models.LeaveStatusCancelled:
			out = append(out, status)
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown leave status %q", part))
		}
	}
	return out, nil
}
