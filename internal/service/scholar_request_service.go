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

type scholarRequestRepository interface {
	Create(ctx context.Context, req *models.ScholarRequest) error
	GetByID(ctx context.Context, id string) (*models.ScholarRequest, error)
	List(ctx context.Context, filter models.ScholarRequestFilter) ([]models.ScholarRequest, int, error)
	Transition(ctx context.Context, req *models.ScholarRequest, from models.ScholarRequestStatus) error
}

// scholarRequestFlow lists the decisions HR may take from each status.
var scholarRequestFlow = map[models.ScholarRequestStatus][]models.ScholarRequestStatus{
	models.ScholarRequestPending:  {models.ScholarRequestApproved, models.ScholarRequestRejected},
	models.ScholarRequestApproved: {models.ScholarRequestFulfilled},
}

// ScholarRequestService handles offices asking HR for more scholars.
type ScholarRequestService struct {
	repo      scholarRequestRepository
	directory roleDirectory
	audit     auditLogger
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScholarRequestService constructs the service.
func NewScholarRequestService(repo scholarRequestRepository, directory roleDirectory, audit auditLogger, n notifier, validate *validator.Validate, logger *zap.Logger) *ScholarRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScholarRequestService{
		repo:      repo,
		directory: directory,
		audit:     audit,
		notifier:  n,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create files a request on behalf of the caller's office.
func (s *ScholarRequestService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateScholarRequestRequest) (*models.ScholarRequest, error) {
	if actor == nil || actor.Role != models.RoleOffice || actor.Office == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only office accounts can request scholars")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid scholar request payload")
	}
	request := &models.ScholarRequest{
		Office:      actor.Office,
		RequestedBy: actor.UserID,
		ScholarType: req.ScholarType,
		Quantity:    req.Quantity,
		Reason:      strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, internalError(err, "failed to create scholar request")
	}

	if s.directory != nil {
		recipients, err := s.directory.ListIDsByRole(ctx, models.RoleHR, "")
		if err != nil {
			s.logger.Warn("failed to resolve HR recipients", zap.Error(err))
		}
		relatedType := "scholar_request"
		for _, recipient := range recipients {
			notify(ctx, s.notifier, s.logger, &models.Notification{
				RecipientID: recipient,
				Type:        models.NotificationTypeScholarRequest,
				Title:       "New scholar request",
				Message:     fmt.Sprintf("%s requests %d %s.", request.Office, request.Quantity, strings.ReplaceAll(string(request.ScholarType), "_", " ")),
				RelatedType: &relatedType,
				RelatedID:   &request.ID,
			})
		}
	}
	return request, nil
}

// List returns requests; office users see their own office only.
func (s *ScholarRequestService) List(ctx context.Context, actor *models.JWTClaims, query dto.ScholarRequestQuery) ([]models.ScholarRequest, *models.Pagination, error) {
	office, err := officeScope(actor, strings.TrimSpace(query.Office))
	if err != nil {
		return nil, nil, err
	}
	statuses, err := parseRequestStatuses(query.Status)
	if err != nil {
		return nil, nil, err
	}
	filter := models.ScholarRequestFilter{Office: office, Statuses: statuses, Page: query.Page, PageSize: query.PageSize}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list scholar requests")
	}
	return items, models.NewPagination(query.Page, query.PageSize, total), nil
}

// Get returns one request visible to the actor.
func (s *ScholarRequestService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ScholarRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "scholar request not found", "failed to load scholar request")
	}
	office, err := officeScope(actor, request.Office)
	if err != nil {
		return nil, err
	}
	if office != request.Office {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scholar request not found")
	}
	return request, nil
}

// Review records HR's decision: approve or reject a pending request, fulfil an approved one.
func (s *ScholarRequestService) Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewScholarRequestRequest, meta models.RequestMeta) (*models.ScholarRequest, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HR can review scholar requests")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "scholar request not found", "failed to load scholar request")
	}
	from := request.Status
	if !requestTransitionAllowed(from, req.Decision) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move scholar request from %s to %s", from, req.Decision))
	}

	now := s.now()
	request.Status = req.Decision
	request.ReviewedBy = &actor.UserID
	request.ReviewedAt = &now
	if note := trimmed(req.Note); note != nil {
		request.ReviewNote = note
	}
	if req.Decision == models.ScholarRequestFulfilled {
		request.FulfilledAt = &now
	}
	if err := s.repo.Transition(ctx, request, from); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "scholar request changed concurrently, reload and retry")
		}
		return nil, internalError(err, "failed to update scholar request")
	}

	emitAudit(ctx, s.audit, s.logger, "scholar-request-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRequestReview,
		Resource:   "scholar_requests",
		ResourceID: &request.ID,
		OldValues:  auditJSON(map[string]interface{}{"status": from}),
		NewValues:  auditJSON(map[string]interface{}{"status": request.Status}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	relatedType := "scholar_request"
	notify(ctx, s.notifier, s.logger, &models.Notification{
		RecipientID: request.RequestedBy,
		Type:        models.NotificationTypeScholarRequest,
		Title:       "Scholar request updated",
		Message:     fmt.Sprintf("Your request for %d scholars is now %s.", request.Quantity, request.Status),
		RelatedType: &relatedType,
		RelatedID:   &request.ID,
	})
	return request, nil
}

// Cancel withdraws a pending request of the caller's office.
func (s *ScholarRequestService) Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.ScholarRequest, error) {
	request, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleOffice && !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot cancel this request")
	}
	if request.Status != models.ScholarRequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("scholar request is %s and can no longer be cancelled", request.Status))
	}
	request.Status = models.ScholarRequestCancelled
	if err := s.repo.Transition(ctx, request, models.ScholarRequestPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "scholar request is no longer pending")
		}
		return nil, internalError(err, "failed to cancel scholar request")
	}
	return request, nil
}

func requestTransitionAllowed(from, to models.ScholarRequestStatus) bool {
	for _, next := range scholarRequestFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

func parseRequestStatuses(raw string) ([]models.ScholarRequestStatus, error) {
	var out []models.ScholarRequestStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		status := models.ScholarRequestStatus(part)
		switch status {
		case models.ScholarRequestPending, models.ScholarRequestApproved, models.ScholarRequestRejected,
			models.ScholarRequestFulfilled, models.ScholarRequestCancelled:
			out = append(out, status)
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request status %q", part))
		}
	}
	return out, nil
}
