package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/repository"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type maintenanceSchedules interface {
	scheduleRelabeler
	ListByUserType(ctx context.Context, userType models.ScheduleUserType) ([]models.Schedule, error)
	ListByUser(ctx context.Context, exec sqlx.ExtContext, userID string) ([]models.Schedule, error)
}

type maintenanceApplications interface {
	FindAcceptedByUser(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Application, error)
	ListArchived(ctx context.Context, reason string, status workflow.Status) ([]models.ArchivedApplication, error)
}

type maintenanceScholars interface {
	scholarStore
	ListActive(ctx context.Context) ([]models.Scholar, error)
	List(ctx context.Context, filter models.ScholarFilter) ([]models.Scholar, int, error)
	DistinctOffices(ctx context.Context) ([]string, error)
}

type maintenanceHistory interface {
	serviceHistoryStore
	ListMissingEffectivity(ctx context.Context) ([]repository.MissingEffectivity, error)
	SetEffectivityDate(ctx context.Context, exec sqlx.ExtContext, userID string, date time.Time) (int64, error)
}

type userByEmail interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// MaintenanceOptions are the flags shared by every maintenance command.
type MaintenanceOptions struct {
	DryRun bool
	Actor  string
}

// MaintenanceReport summarises one command run.
type MaintenanceReport struct {
	Command  string   `json:"command"`
	DryRun   bool     `json:"dryRun"`
	Examined int      `json:"examined"`
	Changed  int      `json:"changed"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Lines    []string `json:"lines"`
}

func (r *MaintenanceReport) logf(format string, args ...interface{}) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

// Summary is the one-line outcome printed at the end of a run.
func (r *MaintenanceReport) Summary() string {
	verb := "changed"
	if r.DryRun {
		verb = "would change"
	}
	return fmt.Sprintf("%s: examined %d, %s %d, skipped %d, failed %d", r.Command, r.Examined, verb, r.Changed, r.Skipped, r.Failed)
}

// ConfirmFunc asks the operator to approve a bulk write of n records.
type ConfirmFunc func(n int) (bool, error)

// MaintenanceDeps groups the stores the repair commands touch.
type MaintenanceDeps struct {
	DB           txProvider
	Schedules    maintenanceSchedules
	Applications maintenanceApplications
	Scholars     maintenanceScholars
	History      maintenanceHistory
	Users        userByEmail
	Audit        auditLogger
}

// MaintenanceService implements the manual data repair commands.
type MaintenanceService struct {
	deps         MaintenanceDeps
	periodMonths int
	logger       *zap.Logger
	now          func() time.Time
}

// NewMaintenanceService constructs the service. periodMonths is the length of one service term.
func NewMaintenanceService(deps MaintenanceDeps, periodMonths int, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if periodMonths <= 0 {
		periodMonths = 6
	}
	return &MaintenanceService{
		deps:         deps,
		periodMonths: periodMonths,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// FixAllSchedules deploys the missing scholar of every trainee schedule whose owner already has an
// accepted application, then relabels that user's schedules. Each user runs in its own transaction.
func (s *MaintenanceService) FixAllSchedules(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	report := &MaintenanceReport{Command: "fix-all-schedules", DryRun: opts.DryRun}
	schedules, err := s.deps.Schedules.ListByUserType(ctx, models.ScheduleUserTrainee)
	if err != nil {
		return report, fmt.Errorf("list trainee schedules: %w", err)
	}

	for _, userID := range distinctUsers(schedules) {
		report.Examined++
		app, err := s.deps.Applications.FindAcceptedByUser(ctx, nil, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				report.Skipped++
				continue
			}
			return report, fmt.Errorf("find accepted application for %s: %w", userID, err)
		}
		deployedBy := stringValue(app.LastReviewedBy)
		if deployedBy == "" {
			deployedBy = opts.Actor
		}
		if deployedBy == "" {
			report.Failed++
			report.logf("%s: application %s has no reviewer; pass --actor", userID, app.ID)
			continue
		}
		if opts.DryRun {
			report.Changed++
			report.logf("%s: would deploy from application %s (%s)", userID, app.ID, stringValue(app.ScholarOffice))
			continue
		}

		var result *deployment
		err = inTx(ctx, s.deps.DB, func(tx *sqlx.Tx) error {
			var err error
			result, err = deployScholar(ctx, tx, s.deps.Scholars, s.deps.Schedules, app, deployedBy, s.now())
			return err
		})
		if err != nil {
			report.Failed++
			report.logf("%s: %v", userID, err)
			s.logger.Warn("fix-all-schedules failed for user", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		report.Changed++
		if result.Created {
			report.logf("%s: created scholar %s, relabelled %d schedules", userID, result.Scholar.ID, result.SchedulesRelabeled)
		} else {
			report.logf("%s: scholar %s existed, relabelled %d schedules", userID, result.Scholar.ID, result.SchedulesRelabeled)
		}
	}
	s.finish(ctx, report, opts)
	return report, nil
}

// FixScholarSchedules makes every active scholar's schedules point at the scholar record.
func (s *MaintenanceService) FixScholarSchedules(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	report := &MaintenanceReport{Command: "fix-scholar-schedules", DryRun: opts.DryRun}
	scholars, err := s.deps.Scholars.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active scholars: %w", err)
	}
	for _, scholar := range scholars {
		report.Examined++
		schedules, err := s.deps.Schedules.ListByUser(ctx, nil, scholar.UserID)
		if err != nil {
			return report, fmt.Errorf("list schedules for %s: %w", scholar.UserID, err)
		}
		stale := 0
		for _, schedule := range schedules {
			if !labelledFor(schedule, scholar) {
				stale++
			}
		}
		if stale == 0 {
			report.Skipped++
			continue
		}
		if opts.DryRun {
			report.Changed++
			report.logf("%s: %d schedules would be relabelled", scholar.UserID, stale)
			continue
		}
		actor := opts.Actor
		if actor == "" {
			actor = scholar.DeployedBy
		}
		n, err := s.deps.Schedules.RelabelForScholar(ctx, nil, scholar.UserID, scholar.ID, scholar.ApplicationID, actor, s.now())
		if err != nil {
			report.Failed++
			report.logf("%s: %v", scholar.UserID, err)
			continue
		}
		report.Changed++
		report.logf("%s: relabelled %d schedules", scholar.UserID, n)
	}
	s.finish(ctx, report, opts)
	return report, nil
}

// FixServiceDuration gives every accepted application archived at the end of a semester exactly
// one service period. Re-running it is a no-op.
func (s *MaintenanceService) FixServiceDuration(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	report := &MaintenanceReport{Command: "fix-service-duration", DryRun: opts.DryRun}
	archived, err := s.deps.Applications.ListArchived(ctx, models.ArchiveReasonEndOfSemester, workflow.StatusAccepted)
	if err != nil {
		return report, fmt.Errorf("list archived applications: %w", err)
	}

	var history serviceHistoryStore = s.deps.History
	if opts.DryRun {
		history = readOnlyHistory{s.deps.History}
	}
	for _, item := range archived {
		report.Examined++
		var deployedAt *time.Time
		if scholar, err := s.deps.Scholars.FindByUserID(ctx, nil, item.UserID); err == nil {
			deployedAt = &scholar.DeployedAt
		}
		in := servicePeriodInput{
			UserID:                item.UserID,
			ArchivedApplicationID: item.ID,
			ScholarType:           item.Position,
			Start:                 periodStart(deployedAt, item.ArchivedAt, s.periodMonths),
			End:                   item.ArchivedAt,
			Months:                s.periodMonths,
		}

		var added bool
		if opts.DryRun {
			added, err = recordServicePeriod(ctx, nil, history, in, s.now())
		} else {
			err = inTx(ctx, s.deps.DB, func(tx *sqlx.Tx) error {
				var err error
				added, err = recordServicePeriod(ctx, tx, history, in, s.now())
				return err
			})
		}
		switch {
		case err != nil:
			report.Failed++
			report.logf("%s: %v", item.UserID, err)
		case added:
			report.Changed++
			report.logf("%s: +%d months for archive %s", item.UserID, s.periodMonths, item.ID)
		default:
			report.Skipped++
		}
	}
	s.finish(ctx, report, opts)
	return report, nil
}

// SetEffectivityDates backfills missing effectivity dates from the deployment date. confirm is
// consulted before writing unless the run is a dry run.
func (s *MaintenanceService) SetEffectivityDates(ctx context.Context, opts MaintenanceOptions, confirm ConfirmFunc) (*MaintenanceReport, error) {
	report := &MaintenanceReport{Command: "set-effectivity-date", DryRun: opts.DryRun}
	missing, err := s.deps.History.ListMissingEffectivity(ctx)
	if err != nil {
		return report, fmt.Errorf("list missing effectivity dates: %w", err)
	}
	report.Examined = len(missing)
	for _, item := range missing {
		report.logf("%s (%s): effectivity %s", item.FullName, item.UserID, item.DeployedAt.Format(dateLayout))
	}
	if len(missing) == 0 || opts.DryRun {
		report.Changed = len(missing)
		s.finish(ctx, report, opts)
		return report, nil
	}
	if confirm != nil {
		ok, err := confirm(len(missing))
		if err != nil {
			return report, err
		}
		if !ok {
			report.Skipped = len(missing)
			report.logf("aborted by operator")
			return report, nil
		}
	}

	for _, item := range missing {
		date := time.Date(item.DeployedAt.Year(), item.DeployedAt.Month(), item.DeployedAt.Day(), 0, 0, 0, 0, time.UTC)
		n, err := s.deps.History.SetEffectivityDate(ctx, nil, item.UserID, date)
		switch {
		case err != nil:
			report.Failed++
			report.logf("%s: %v", item.UserID, err)
		case n == 0:
			report.Skipped++
		default:
			report.Changed++
		}
	}
	s.finish(ctx, report, opts)
	return report, nil
}

// CheckOfficeFilter explains why an office account's scholar list may come back empty. It never writes.
func (s *MaintenanceService) CheckOfficeFilter(ctx context.Context, email string) (*MaintenanceReport, error) {
	report := &MaintenanceReport{Command: "check-office-filter", DryRun: true}
	user, err := s.deps.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no user with email %s", email))
		}
		return report, fmt.Errorf("find user: %w", err)
	}
	report.Examined = 1
	report.logf("user %s role=%s office=%q", user.Email, user.Role, stringValue(user.Office))
	if user.Role != models.RoleOffice {
		report.logf("only OFFICE accounts are filtered by office")
		return report, nil
	}
	office := stringValue(user.Office)
	if office == "" {
		report.Failed++
		report.logf("office account has no office assigned; every office query is rejected")
		return report, nil
	}

	_, active, err := s.deps.Scholars.List(ctx, models.ScholarFilter{Office: office, Status: models.ScholarStatusActive, Page: 1, PageSize: 1})
	if err != nil {
		return report, fmt.Errorf("count scholars: %w", err)
	}
	_, all, err := s.deps.Scholars.List(ctx, models.ScholarFilter{Office: office, Page: 1, PageSize: 1})
	if err != nil {
		return report, fmt.Errorf("count scholars: %w", err)
	}
	report.logf("scholars with office %q: %d active, %d total", office, active, all)

	offices, err := s.deps.Scholars.DistinctOffices(ctx)
	if err != nil {
		return report, fmt.Errorf("list offices: %w", err)
	}
	var near []string
	for _, candidate := range offices {
		if candidate != office && strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(office)) {
			near = append(near, candidate)
		}
	}
	if len(near) > 0 {
		report.Failed++
		report.logf("scholar offices differing only in case or spacing: %q", near)
	}
	if all == 0 && len(near) == 0 {
		report.logf("no scholar record names this office; known offices: %s", strings.Join(offices, ", "))
	}
	return report, nil
}

func (s *MaintenanceService) finish(ctx context.Context, report *MaintenanceReport, opts MaintenanceOptions) {
	s.logger.Info("maintenance command finished",
		zap.String("command", report.Command),
		zap.Bool("dry_run", report.DryRun),
		zap.Int("examined", report.Examined),
		zap.Int("changed", report.Changed),
		zap.Int("failed", report.Failed))
	if opts.DryRun || report.Changed == 0 {
		return
	}
	var actor *string
	if opts.Actor != "" {
		actor = &opts.Actor
	}
	emitAudit(ctx, s.deps.Audit, s.logger, "maintenance", &models.AuditLog{
		UserID:    actor,
		Action:    models.AuditActionMaintenance,
		Resource:  report.Command,
		NewValues: auditJSON(map[string]int{"examined": report.Examined, "changed": report.Changed, "failed": report.Failed}),
	})
}

func distinctUsers(schedules []models.Schedule) []string {
	seen := make(map[string]struct{}, len(schedules))
	out := make([]string, 0, len(schedules))
	for _, schedule := range schedules {
		if _, ok := seen[schedule.UserID]; ok {
			continue
		}
		seen[schedule.UserID] = struct{}{}
		out = append(out, schedule.UserID)
	}
	sort.Strings(out)
	return out
}

func labelledFor(schedule models.Schedule, scholar models.Scholar) bool {
	return schedule.UserType == models.ScheduleUserScholar &&
		stringValue(schedule.ScholarID) == scholar.ID &&
		stringValue(schedule.ApplicationID) == scholar.ApplicationID
}

// readOnlyHistory discards writes so dry runs can share the recording logic.
type readOnlyHistory struct {
	serviceHistoryStore
}

func (readOnlyHistory) Upsert(context.Context, sqlx.ExtContext, *models.UserData) error { return nil }
