package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type scholarRepository interface {
	scholarStore
	GetByID(ctx context.Context, id string) (*models.Scholar, error)
	List(ctx context.Context, filter models.ScholarFilter) ([]models.Scholar, int, error)
	Update(ctx context.Context, scholar *models.Scholar) error
}

// ScholarService manages deployed scholars.
type ScholarService struct {
	repo      scholarRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScholarService constructs the service.
func NewScholarService(repo scholarRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ScholarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScholarService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns scholars; office users only see their own office.
func (s *ScholarService) List(ctx context.Context, actor *models.JWTClaims, query dto.ScholarQuery) ([]models.Scholar, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid scholar filters")
	}
	office, err := officeScope(actor, strings.TrimSpace(query.Office))
	if err != nil {
		return nil, nil, err
	}
	filter := models.ScholarFilter{
		Office:    office,
		Type:      models.Position(query.Type),
		Status:    models.ScholarStatus(query.Status),
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	scholars, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list scholars")
	}
	return scholars, models.NewPagination(query.Page, query.PageSize, total), nil
}

// Get returns a scholar visible to the actor.
func (s *ScholarService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Scholar, error) {
	scholar, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "scholar not found", "failed to load scholar")
	}
	if !canViewScholar(actor, scholar) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scholar not found")
	}
	return scholar, nil
}

// Mine returns the caller's own scholar record.
func (s *ScholarService) Mine(ctx context.Context, actor *models.JWTClaims) (*models.Scholar, error) {
	scholar, err := s.repo.FindByUserID(ctx, nil, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "you are not a scholar", "failed to load scholar")
	}
	return scholar, nil
}

// Update edits office, type, status or rating.
func (s *ScholarService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateScholarRequest, meta models.RequestMeta) (*models.Scholar, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HR can edit scholars")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid scholar payload")
	}
	scholar, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "scholar not found", "failed to load scholar")
	}
	before := auditJSON(scholar)

	if req.ScholarOffice != nil {
		scholar.ScholarOffice = strings.TrimSpace(*req.ScholarOffice)
	}
	if req.ScholarType != nil {
		scholar.ScholarType = *req.ScholarType
	}
	if req.Status != nil {
		scholar.Status = *req.Status
	}
	if req.PerformanceRating != nil {
		rating := *req.PerformanceRating
		scholar.PerformanceRating = &rating
	}
	if err := s.repo.Update(ctx, scholar); err != nil {
		return nil, lookupError(err, "scholar not found", "failed to update scholar")
	}

	emitAudit(ctx, s.audit, s.logger, "scholar-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionScholarUpdate,
		Resource:   "scholars",
		ResourceID: &scholar.ID,
		OldValues:  before,
		NewValues:  auditJSON(scholar),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return scholar, nil
}

// Deactivate ends the scholar's active service.
func (s *ScholarService) Deactivate(ctx context.Context, actor *models.JWTClaims, id string, meta models.RequestMeta) error {
	if actor == nil || !actor.Role.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only HR can deactivate scholars")
	}
	scholar, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return lookupError(err, "scholar not found", "failed to load scholar")
	}
	if scholar.Status != models.ScholarStatusActive {
		return appErrors.Clone(appErrors.ErrConflict, "scholar is already inactive")
	}
	if _, err := s.repo.Deactivate(ctx, nil, scholar.UserID); err != nil {
		return internalError(err, "failed to deactivate scholar")
	}
	emitAudit(ctx, s.audit, s.logger, "scholar-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionScholarUpdate,
		Resource:   "scholars",
		ResourceID: &scholar.ID,
		OldValues:  []byte(`{"status":"active"}`),
		NewValues:  []byte(`{"status":"inactive"}`),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

func canViewScholar(actor *models.JWTClaims, scholar *models.Scholar) bool {
	if actor == nil {
		return false
	}
	switch {
	case actor.Role.IsStaff():
		return true
	case actor.Role == models.RoleOffice:
		return actor.Office != "" && scholar.ScholarOffice == actor.Office
	default:
		return scholar.UserID == actor.UserID
	}
}
