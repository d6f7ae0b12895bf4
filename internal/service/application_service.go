package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
	"github.com/noah-isme/sasm-ims-api/pkg/events"
)

// Event types published on the applications topic.
const (
	EventApplicationSubmitted     = "application.submitted"
	EventApplicationStatusChanged = "application.status_changed"
	EventApplicationArchived      = "application.archived"
)

type applicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Application, error)
	FindOpenByUser(ctx context.Context, userID string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	ListBySemester(ctx context.Context, semester string) ([]models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to workflow.Status, actorID string, at time.Time) error
	InsertStatusChange(ctx context.Context, exec sqlx.ExtContext, change *models.ApplicationStatusChange) error
	History(ctx context.Context, applicationID string) ([]models.ApplicationStatusChange, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	InsertArchived(ctx context.Context, exec sqlx.ExtContext, archived *models.ArchivedApplication) error
}

type dashboardInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ApplicationServiceConfig carries the tunables of the application workflow.
type ApplicationServiceConfig struct {
	EventTopic          string
	ServicePeriodMonths int
}

// ApplicationEvent is the payload published for application lifecycle events.
type ApplicationEvent struct {
	ApplicationID string          `json:"applicationId"`
	UserID        string          `json:"userId"`
	Position      models.Position `json:"position"`
	Office        string          `json:"office,omitempty"`
	FromStatus    workflow.Status `json:"fromStatus,omitempty"`
	ToStatus      workflow.Status `json:"toStatus"`
	ActorID       string          `json:"actorId"`
	ScholarID     string          `json:"scholarId,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// ApplicationService drives applications through the scholar workflow.
type ApplicationService struct {
	db        txProvider
	apps      applicationStore
	scholars  scholarStore
	schedules scheduleRelabeler
	history   serviceHistoryStore
	users     userLookup
	audit     auditLogger
	notifier  notifier
	events    eventPublisher
	cache     dashboardInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ApplicationServiceConfig
	now       func() time.Time
}

// ApplicationServiceDeps groups the collaborators of ApplicationService.
type ApplicationServiceDeps struct {
	DB        txProvider
	Apps      applicationStore
	Scholars  scholarStore
	Schedules scheduleRelabeler
	History   serviceHistoryStore
	Users     userLookup
	Audit     auditLogger
	Notifier  notifier
	Events    eventPublisher
	Cache     dashboardInvalidator
	Metrics   *MetricsService
}

// NewApplicationService constructs the service.
func NewApplicationService(deps ApplicationServiceDeps, validate *validator.Validate, logger *zap.Logger, cfg ApplicationServiceConfig) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ServicePeriodMonths <= 0 {
		cfg.ServicePeriodMonths = 6
	}
	if cfg.EventTopic == "" {
		cfg.EventTopic = "sasm.applications"
	}
	return &ApplicationService{
		db:        deps.DB,
		apps:      deps.Apps,
		scholars:  deps.Scholars,
		schedules: deps.Schedules,
		history:   deps.History,
		users:     deps.Users,
		audit:     deps.Audit,
		notifier:  deps.Notifier,
		events:    deps.Events,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit files a new application for the student. A student may hold one open application.
func (s *ApplicationService) Submit(ctx context.Context, actor *models.JWTClaims, req dto.SubmitApplicationRequest, meta models.RequestMeta) (*models.Application, error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can apply")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid application payload")
	}

	if open, err := s.apps.FindOpenByUser(ctx, actor.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("an application is already open (status %s)", open.Status))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check open applications")
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load applicant")
	}

	app := &models.Application{
		UserID:        user.ID,
		ApplicantName: user.FullName,
		Position:      req.Position,
		Status:        workflow.StatusPending,
		ScholarOffice: trimmed(req.ScholarOffice),
		Semester:      strings.TrimSpace(req.Semester),
		Notes:         trimmed(req.Notes),
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, internalError(err, "failed to submit application")
	}

	emitAudit(ctx, s.audit, s.logger, "application-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionApplicationSubmit,
		Resource:   "applications",
		ResourceID: &app.ID,
		NewValues:  auditJSON(map[string]interface{}{"position": app.Position, "semester": app.Semester}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	s.publish(ctx, EventApplicationSubmitted, app, "", actor.UserID, "")
	return app, nil
}

// List returns applications visible to the actor.
func (s *ApplicationService) List(ctx context.Context, actor *models.JWTClaims, query dto.ApplicationQuery) ([]models.Application, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid application filters")
	}
	statuses, err := parseStatuses(query.Status)
	if err != nil {
		return nil, nil, err
	}
	filter := models.ApplicationFilter{
		Statuses:  statuses,
		Position:  models.Position(query.Position),
		Priority:  models.Priority(query.Priority),
		Tag:       normalizeTag(query.Tag),
		Semester:  strings.TrimSpace(query.Semester),
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}

	switch {
	case actor == nil:
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	case actor.Role == models.RoleStudent:
		filter.UserID = actor.UserID
	default:
		office, err := officeScope(actor, strings.TrimSpace(query.Office))
		if err != nil {
			return nil, nil, err
		}
		filter.Office = office
	}

	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list applications")
	}
	return apps, models.NewPagination(query.Page, query.PageSize, total), nil
}

// Get returns one application the actor may see.
func (s *ApplicationService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "application not found", "failed to load application")
	}
	if !canViewApplication(actor, app) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	return app, nil
}

// Progress projects the application's status onto the pipeline steps.
func (s *ApplicationService) Progress(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Progress, error) {
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	progress := workflow.Classify(app.Status)
	return &progress, nil
}

// History returns the status changes of the application.
func (s *ApplicationService) History(ctx context.Context, actor *models.JWTClaims, id string) ([]models.ApplicationStatusChange, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	changes, err := s.apps.History(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load application history")
	}
	if changes == nil {
		changes = []models.ApplicationStatusChange{}
	}
	return changes, nil
}

// Update edits the office assignment and notes.
func (s *ApplicationService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateApplicationRequest) (*models.Application, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HR can edit applications")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid application payload")
	}
	app, err := s.apps.GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "application not found", "failed to load application")
	}
	if req.ScholarOffice != nil {
		app.ScholarOffice = trimmed(req.ScholarOffice)
	}
	if req.Notes != nil {
		app.Notes = trimmed(req.Notes)
	}
	if req.Priority != nil {
		app.Priority = *req.Priority
	}
	if err := s.apps.Update(ctx, app); err != nil {
		return nil, lookupError(err, "application not found", "failed to update application")
	}
	return app, nil
}

// UpdateStatus moves the application along the transition table. Acceptance deploys the
// applicant as a scholar in the same transaction.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateApplicationStatusRequest, meta models.RequestMeta) (*models.Application, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HR can change application status")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	to, ok := workflow.Parse(string(req.Status))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	app, err := s.apps.GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "application not found", "failed to load application")
	}
	from := app.Status
	if from.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrTerminalStatus, fmt.Sprintf("application is %s and can no longer change", from))
	}
	if !workflow.CanTransition(from, to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move application from %s to %s", from, to))
	}
	if to == workflow.StatusAccepted && stringValue(app.ScholarOffice) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assign a scholar office before accepting")
	}

	now := s.now()
	var deployed *deployment
	err = inTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.apps.UpdateStatus(ctx, tx, app.ID, from, to, actor.UserID, now); err != nil {
			return err
		}
		if err := s.apps.InsertStatusChange(ctx, tx, &models.ApplicationStatusChange{
			ApplicationID: app.ID,
			FromStatus:    from,
			ToStatus:      to,
			Note:          trimmed(req.Note),
			ChangedBy:     actor.UserID,
			ChangedAt:     now,
		}); err != nil {
			return err
		}
		if to != workflow.StatusAccepted {
			return nil
		}
		deployed, err = deployScholar(ctx, tx, s.scholars, s.schedules, app, actor.UserID, now)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application status changed concurrently, reload and retry")
		}
		return nil, internalError(err, "failed to update application status")
	}

	app.Status = to
	app.LastReviewedBy = &actor.UserID
	app.StatusChangedAt = &now
	app.UpdatedAt = now

	s.metrics.RecordStatusTransition(string(from), string(to))
	emitAudit(ctx, s.audit, s.logger, "application-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionApplicationStatus,
		Resource:   "applications",
		ResourceID: &app.ID,
		OldValues:  auditJSON(map[string]interface{}{"status": from}),
		NewValues:  auditJSON(map[string]interface{}{"status": to, "note": req.Note}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	relatedType := "application"
	notify(ctx, s.notifier, s.logger, &models.Notification{
		RecipientID: app.UserID,
		Type:        models.NotificationTypeApplicationStatus,
		Title:       "Application status updated",
		Message:     workflow.Describe(to),
		RelatedType: &relatedType,
		RelatedID:   &app.ID,
	})

	scholarID := ""
	if deployed != nil {
		scholarID = deployed.Scholar.ID
		if deployed.Created {
			emitAudit(ctx, s.audit, s.logger, "application-service", &models.AuditLog{
				UserID:     &actor.UserID,
				Action:     models.AuditActionScholarDeploy,
				Resource:   "scholars",
				ResourceID: &deployed.Scholar.ID,
				NewValues: auditJSON(map[string]interface{}{
					"userId":             app.UserID,
					"office":             deployed.Scholar.ScholarOffice,
					"schedulesRelabeled": deployed.SchedulesRelabeled,
				}),
				IPAddress: meta.IP,
				UserAgent: meta.UserAgent,
			})
			deploymentType := "scholar"
			notify(ctx, s.notifier, s.logger, &models.Notification{
				RecipientID: app.UserID,
				Type:        models.NotificationTypeDeployment,
				Title:       "You have been deployed",
				Message:     fmt.Sprintf("You are now a scholar assigned to %s.", deployed.Scholar.ScholarOffice),
				RelatedType: &deploymentType,
				RelatedID:   &deployed.Scholar.ID,
			})
		}
	}
	s.publish(ctx, EventApplicationStatusChanged, app, from, actor.UserID, scholarID)
	s.invalidateDashboards(ctx)
	return app, nil
}

// Bulk applies one action to many applications and reports per-id outcomes.
func (s *ApplicationService) Bulk(ctx context.Context, actor *models.JWTClaims, req dto.BulkApplicationAction, meta models.RequestMeta) (*dto.BulkActionResult, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HR can run bulk actions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk action")
	}
	if !req.PayloadMatchesKind() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bulk action %s requires only its own payload", req.Kind))
	}

	result := &dto.BulkActionResult{Succeeded: []string{}, Failed: map[string]string{}}
	for _, id := range dedupe(req.ApplicationIDs) {
		var err error
		switch req.Kind {
		case dto.BulkActionAssign:
			office := req.Assign.ScholarOffice
			_, err = s.Update(ctx, actor, id, dto.UpdateApplicationRequest{ScholarOffice: &office})
		case dto.BulkActionUpdateStatus:
			_, err = s.UpdateStatus(ctx, actor, id, *req.UpdateStatus, meta)
		case dto.BulkActionUpdatePriority:
			priority := req.UpdatePriority.Priority
			_, err = s.Update(ctx, actor, id, dto.UpdateApplicationRequest{Priority: &priority})
		case dto.BulkActionAddTag:
			err = s.addTags(ctx, id, req.AddTag.Tags)
		}
		if err != nil {
			result.Failed[id] = appErrors.FromError(err).Message
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func (s *ApplicationService) addTags(ctx context.Context, id string, tags []string) error {
	app, err := s.apps.GetByID(ctx, nil, id)
	if err != nil {
		return lookupError(err, "application not found", "failed to load application")
	}
	merged := mergeTags(app.Tags, tags)
	if len(merged) > models.MaxApplicationTags {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("an application can carry at most %d tags", models.MaxApplicationTags))
	}
	app.Tags = merged
	if err := s.apps.Update(ctx, app); err != nil {
		return lookupError(err, "application not found", "failed to update application")
	}
	return nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// mergeTags appends the normalized new tags that are not already present.
func mergeTags(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, tag := range append(append([]string{}, existing...), added...) {
		tag = normalizeTag(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Archive closes a semester: every application is moved to the archive, accepted ones get
// one service period and their scholar record is deactivated. Each application is archived in
// its own transaction so a failed run can simply be repeated.
func (s *ApplicationService) Archive(ctx context.Context, actor *models.JWTClaims, req dto.ArchiveSemesterRequest, meta models.RequestMeta) (*dto.ArchiveSemesterResult, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HR can archive applications")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid archive request")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = models.ArchiveReasonEndOfSemester
	}
	semester := strings.TrimSpace(req.Semester)

	apps, err := s.apps.ListBySemester(ctx, semester)
	if err != nil {
		return nil, internalError(err, "failed to list semester applications")
	}

	result := &dto.ArchiveSemesterResult{Semester: semester}
	for i := range apps {
		app := apps[i]
		added, deactivated, err := s.archiveOne(ctx, &app, reason, actor.UserID)
		if err != nil {
			s.logger.Error("failed to archive application", zap.String("application_id", app.ID), zap.Error(err))
			return result, internalError(err, fmt.Sprintf("failed to archive application %s", app.ID))
		}
		result.Archived++
		if added {
			result.ServicePeriodsAdded++
		}
		result.ScholarsDeactivated += int(deactivated)
		s.publish(ctx, EventApplicationArchived, &app, "", actor.UserID, "")
	}

	emitAudit(ctx, s.audit, s.logger, "application-service", &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionApplicationArchive,
		Resource:  "applications",
		NewValues: auditJSON(result),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})
	s.invalidateDashboards(ctx)
	s.logger.Info("semester archived",
		zap.String("semester", semester),
		zap.Int("archived", result.Archived),
		zap.Int("service_periods_added", result.ServicePeriodsAdded))
	return result, nil
}

func (s *ApplicationService) archiveOne(ctx context.Context, app *models.Application, reason, actorID string) (bool, int64, error) {
	now := s.now()
	var (
		added       bool
		deactivated int64
	)
	err := inTx(ctx, s.db, func(tx *sqlx.Tx) error {
		archived := &models.ArchivedApplication{
			ApplicationID: app.ID,
			UserID:        app.UserID,
			Position:      app.Position,
			Status:        app.Status,
			ScholarOffice: app.ScholarOffice,
			Semester:      app.Semester,
			ArchiveReason: reason,
			ArchivedBy:    actorID,
			ArchivedAt:    now,
			Snapshot:      auditJSON(app),
		}
		if err := s.apps.InsertArchived(ctx, tx, archived); err != nil {
			return err
		}
		if err := s.apps.Delete(ctx, tx, app.ID); err != nil {
			return err
		}
		if app.Status != workflow.StatusAccepted {
			return nil
		}

		var deployedAt *time.Time
		if scholar, err := s.scholars.FindByUserID(ctx, tx, app.UserID); err == nil {
			deployedAt = &scholar.DeployedAt
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		var err error
		added, err = recordServicePeriod(ctx, tx, s.history, servicePeriodInput{
			UserID:                app.UserID,
			ArchivedApplicationID: archived.ID,
			ScholarType:           app.Position,
			Start:                 periodStart(deployedAt, now, s.config.ServicePeriodMonths),
			End:                   now,
			Months:                s.config.ServicePeriodMonths,
		}, now)
		if err != nil {
			return err
		}
		deactivated, err = s.scholars.Deactivate(ctx, tx, app.UserID)
		return err
	})
	return added, deactivated, err
}

func (s *ApplicationService) publish(ctx context.Context, eventType string, app *models.Application, from workflow.Status, actorID, scholarID string) {
	if s.events == nil {
		return
	}
	payload := ApplicationEvent{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Position:      app.Position,
		Office:        stringValue(app.ScholarOffice),
		FromStatus:    from,
		ToStatus:      app.Status,
		ActorID:       actorID,
		ScholarID:     scholarID,
		OccurredAt:    s.now(),
	}
	if err := s.events.Publish(ctx, s.config.EventTopic, events.Message{Key: app.ID, Type: eventType, Value: payload}); err != nil {
		s.logger.Warn("failed to publish application event", zap.String("type", eventType), zap.String("application_id", app.ID), zap.Error(err))
	}
}

// invalidateDashboards drops cached dashboard payloads so counts reflect the change.
func (s *ApplicationService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func canViewApplication(actor *models.JWTClaims, app *models.Application) bool {
	if actor == nil {
		return false
	}
	switch {
	case actor.Role.IsStaff():
		return true
	case actor.Role == models.RoleOffice:
		return actor.Office != "" && stringValue(app.ScholarOffice) == actor.Office
	default:
		return app.UserID == actor.UserID
	}
}

// parseStatuses reads a comma separated status filter.
func parseStatuses(raw string) ([]workflow.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []workflow.Status
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, ok := workflow.Parse(part)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", strings.TrimSpace(part)))
		}
		out = append(out, status)
	}
	return out, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	return optionalString(*v)
}
