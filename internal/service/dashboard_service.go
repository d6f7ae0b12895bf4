package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type applicationCounter interface {
	CountByStatus(ctx context.Context, office string) (map[workflow.Status]int, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
}

type scholarCounter interface {
	CountActiveByOffice(ctx context.Context) (map[string]int, error)
	FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Scholar, error)
}

type leaveCounter interface {
	CountPending(ctx context.Context, office string) (int, error)
}

type dtrCounter interface {
	CountByStatus(ctx context.Context, status models.DTRStatus, office string) (int, error)
}

type requestCounter interface {
	CountByStatus(ctx context.Context, status models.ScholarRequestStatus, office string) (int, error)
}

type unreadCounter interface {
	UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error)
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Applications  applicationCounter
	Scholars      scholarCounter
	Leaves        leaveCounter
	DTR           dtrCounter
	Requests      requestCounter
	History       serviceHistoryStore
	Notifications unreadCounter
	Cache         notificationCache
	Metrics       queryObserver
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// DashboardService composes the per-role overview payloads.
type DashboardService struct {
	apps          applicationCounter
	scholars      scholarCounter
	leaves        leaveCounter
	dtr           dtrCounter
	requests      requestCounter
	history       serviceHistoryStore
	notifications unreadCounter
	cache         notificationCache
	metrics       queryObserver
	logger        *zap.Logger
	cfg           DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := params.Cache
	if !cfg.CacheEnabled {
		cache = nil
	}
	return &DashboardService{
		apps:          params.Applications,
		scholars:      params.Scholars,
		leaves:        params.Leaves,
		dtr:           params.DTR,
		requests:      params.Requests,
		history:       params.History,
		notifications: params.Notifications,
		cache:         cache,
		metrics:       params.Metrics,
		logger:        logger,
		cfg:           cfg,
	}
}

// HR returns the institution-wide overview and whether it came from cache.
func (s *DashboardService) HR(ctx context.Context, actor *models.JWTClaims) (*dto.HRDashboardResponse, bool, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "HR dashboard requires an HR account")
	}
	const cacheKey = "dash:hr"
	var cached dto.HRDashboardResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}
	defer s.observe("dashboard_hr", time.Now())

	counts, err := s.apps.CountByStatus(ctx, "")
	if err != nil {
		return nil, false, internalError(err, "failed to count applications")
	}
	byOffice, err := s.scholars.CountActiveByOffice(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to count scholars")
	}
	pendingLeaves, err := s.leaves.CountPending(ctx, "")
	if err != nil {
		return nil, false, internalError(err, "failed to count leaves")
	}
	pendingRequests, err := s.requests.CountByStatus(ctx, models.ScholarRequestPending, "")
	if err != nil {
		return nil, false, internalError(err, "failed to count scholar requests")
	}

	summary := &dto.HRDashboardResponse{
		Pipeline:               summarizePipeline(counts),
		ActiveScholarsByOffice: make([]dto.OfficeCount, 0, len(byOffice)),
		PendingLeaves:          pendingLeaves,
		PendingScholarRequests: pendingRequests,
	}
	for office, count := range byOffice {
		summary.ActiveScholarsByOffice = append(summary.ActiveScholarsByOffice, dto.OfficeCount{Office: office, Count: count})
		summary.ActiveScholars += count
	}
	sort.Slice(summary.ActiveScholarsByOffice, func(i, j int) bool {
		a, b := summary.ActiveScholarsByOffice[i], summary.ActiveScholarsByOffice[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Office < b.Office
	})

	s.writeCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Office returns the overview of one office. HR may pass any office.
func (s *DashboardService) Office(ctx context.Context, actor *models.JWTClaims, requested string) (*dto.OfficeDashboardResponse, bool, error) {
	office, err := officeScope(actor, requested)
	if err != nil {
		return nil, false, err
	}
	if office == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "office is required")
	}
	cacheKey := fmt.Sprintf("dash:office:%s", office)
	var cached dto.OfficeDashboardResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}
	defer s.observe("dashboard_office", time.Now())

	byOffice, err := s.scholars.CountActiveByOffice(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to count scholars")
	}
	summary := &dto.OfficeDashboardResponse{Office: office, ActiveScholars: byOffice[office]}
	if summary.PendingLeaves, err = s.leaves.CountPending(ctx, office); err != nil {
		return nil, false, internalError(err, "failed to count leaves")
	}
	if summary.PendingDTR, err = s.dtr.CountByStatus(ctx, models.DTRStatusSubmitted, office); err != nil {
		return nil, false, internalError(err, "failed to count time records")
	}
	if summary.OpenRequests, err = s.requests.CountByStatus(ctx, models.ScholarRequestPending, office); err != nil {
		return nil, false, internalError(err, "failed to count scholar requests")
	}
	if summary.ApprovedRequest, err = s.requests.CountByStatus(ctx, models.ScholarRequestApproved, office); err != nil {
		return nil, false, internalError(err, "failed to count scholar requests")
	}

	s.writeCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Student returns the caller's application progress, scholar record and unread count.
// The unread count is always read live; only the rest of the payload is cached.
func (s *DashboardService) Student(ctx context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, bool, error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "student dashboard requires a student account")
	}
	cacheKey := fmt.Sprintf("dash:student:%s", actor.UserID)
	var (
		summary dto.StudentDashboardResponse
		hit     = s.readCache(ctx, cacheKey, &summary)
	)
	if !hit {
		composed, err := s.composeStudent(ctx, actor.UserID)
		if err != nil {
			return nil, false, err
		}
		s.writeCache(ctx, cacheKey, composed)
		summary = *composed
	}
	if s.notifications != nil {
		unread, err := s.notifications.UnreadCount(ctx, actor.UserID)
		if err != nil {
			return nil, false, err
		}
		summary.UnreadNotifications = unread.Count
	}
	return &summary, hit, nil
}

func (s *DashboardService) composeStudent(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error) {
	defer s.observe("dashboard_student", time.Now())
	summary := &dto.StudentDashboardResponse{}
	apps, _, err := s.apps.List(ctx, models.ApplicationFilter{UserID: userID, Page: 1, PageSize: 1, SortBy: "submitted_at", SortOrder: "desc"})
	if err != nil {
		return nil, internalError(err, "failed to load application")
	}
	if len(apps) > 0 {
		latest := apps[0]
		progress := workflow.Classify(latest.Status)
		summary.Application = &latest
		summary.Progress = &progress
	}

	scholar, err := s.scholars.FindByUserID(ctx, nil, userID)
	switch {
	case err == nil:
		summary.Scholar = scholar
	case !errors.Is(err, sql.ErrNoRows):
		return nil, internalError(err, "failed to load scholar")
	}

	if s.history != nil {
		data, err := s.history.Get(ctx, nil, userID)
		switch {
		case err == nil:
			summary.ServiceMonths = data.ServiceMonths
		case !errors.Is(err, sql.ErrNoRows):
			return nil, internalError(err, "failed to load service history")
		}
	}
	return summary, nil
}

// summarizePipeline folds raw status counts into the six display steps.
func summarizePipeline(counts map[workflow.Status]int) dto.PipelineSummary {
	steps := workflow.Steps()
	summary := dto.PipelineSummary{Steps: make([]dto.StepCount, len(steps))}
	for i, st := range steps {
		summary.Steps[i] = dto.StepCount{Key: st.Key, Label: st.Label}
	}
	for status, count := range counts {
		summary.Total += count
		progress := workflow.Classify(status)
		switch progress.Mode {
		case workflow.ModeActive:
			summary.Steps[progress.CurrentStep].Count += count
		case workflow.ModeFailed:
			summary.Failed += count
		case workflow.ModeOnHold:
			summary.OnHold += count
		default:
			summary.Unknown += count
		}
	}
	return summary
}

func (s *DashboardService) observe(label string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDBQuery(label, time.Since(start))
}

func (s *DashboardService) readCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
