package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/repository"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
)

type maintenanceSchedulesStub struct {
	stubRelabeler
	byUser map[string][]models.Schedule
}

func (m *maintenanceSchedulesStub) ListByUserType(_ context.Context, userType models.ScheduleUserType) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, list := range m.byUser {
		for _, schedule := range list {
			if schedule.UserType == userType {
				out = append(out, schedule)
			}
		}
	}
	return out, nil
}

func (m *maintenanceSchedulesStub) ListByUser(_ context.Context, _ sqlx.ExtContext, userID string) ([]models.Schedule, error) {
	return m.byUser[userID], nil
}

type maintenanceAppsStub struct {
	accepted map[string]*models.Application
	archived []models.ArchivedApplication
}

func (m *maintenanceAppsStub) FindAcceptedByUser(_ context.Context, _ sqlx.ExtContext, userID string) (*models.Application, error) {
	if app, ok := m.accepted[userID]; ok {
		return app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *maintenanceAppsStub) ListArchived(context.Context, string, workflow.Status) ([]models.ArchivedApplication, error) {
	return m.archived, nil
}

type maintenanceScholarsStub struct {
	stubScholarStore
	offices []string
	counts  map[string]int
}

func (m *maintenanceScholarsStub) ListActive(context.Context) ([]models.Scholar, error) {
	var out []models.Scholar
	for _, scholar := range m.byUser {
		if scholar.Status == models.ScholarStatusActive {
			out = append(out, *scholar)
		}
	}
	return out, nil
}

func (m *maintenanceScholarsStub) List(_ context.Context, filter models.ScholarFilter) ([]models.Scholar, int, error) {
	return nil, m.counts[filter.Office+"|"+string(filter.Status)], nil
}

func (m *maintenanceScholarsStub) DistinctOffices(context.Context) ([]string, error) {
	return m.offices, nil
}

type maintenanceHistoryStub struct {
	stubHistoryStore
	missing []repository.MissingEffectivity
	set     map[string]time.Time
}

func (m *maintenanceHistoryStub) ListMissingEffectivity(context.Context) ([]repository.MissingEffectivity, error) {
	return m.missing, nil
}

func (m *maintenanceHistoryStub) SetEffectivityDate(_ context.Context, _ sqlx.ExtContext, userID string, date time.Time) (int64, error) {
	if _, ok := m.set[userID]; ok {
		return 0, nil
	}
	m.set[userID] = date
	return 1, nil
}

type usersByEmailStub map[string]*models.User

func (u usersByEmailStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := u[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type maintenanceFixture struct {
	svc       *MaintenanceService
	mock      sqlmock.Sqlmock
	schedules *maintenanceSchedulesStub
	apps      *maintenanceAppsStub
	scholars  *maintenanceScholarsStub
	history   *maintenanceHistoryStub
	audit     *recordingAudit
}

func newMaintenanceFixture(t *testing.T) *maintenanceFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &maintenanceFixture{
		mock:      mock,
		schedules: &maintenanceSchedulesStub{byUser: map[string][]models.Schedule{}},
		apps:      &maintenanceAppsStub{accepted: map[string]*models.Application{}},
		scholars:  &maintenanceScholarsStub{stubScholarStore: stubScholarStore{byUser: map[string]*models.Scholar{}}, counts: map[string]int{}},
		history:   &maintenanceHistoryStub{stubHistoryStore: stubHistoryStore{data: map[string]*models.UserData{}}, set: map[string]time.Time{}},
		audit:     &recordingAudit{},
	}
	f.svc = NewMaintenanceService(MaintenanceDeps{
		DB:           sqlx.NewDb(db, "sqlmock"),
		Schedules:    f.schedules,
		Applications: f.apps,
		Scholars:     f.scholars,
		History:      f.history,
		Users: usersByEmailStub{
			"office@uni.edu": {ID: "o1", Email: "office@uni.edu", Role: models.RoleOffice, Office: strPtr("Library")},
		},
		Audit: f.audit,
	}, 6, nil)
	f.svc.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

func TestFixAllSchedulesDeploysAcceptedTrainees(t *testing.T) {
	f := newMaintenanceFixture(t)
	f.schedules.byUser["u1"] = []models.Schedule{{ID: "sch-a", UserID: "u1", UserType: models.ScheduleUserTrainee}}
	f.schedules.byUser["u2"] = []models.Schedule{{ID: "sch-b", UserID: "u2", UserType: models.ScheduleUserTrainee}}
	f.schedules.byUser["u3"] = []models.Schedule{{ID: "sch-c", UserID: "u3", UserType: models.ScheduleUserTrainee}}
	f.apps.accepted["u1"] = &models.Application{ID: "app-1", UserID: "u1", Position: models.PositionStudentAssistant, ScholarOffice: strPtr("Library"), LastReviewedBy: strPtr("hr-1")}
	f.apps.accepted["u2"] = &models.Application{ID: "app-2", UserID: "u2", Position: models.PositionStudentAssistant}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	report, err := f.svc.FixAllSchedules(context.Background(), MaintenanceOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Examined)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, f.scholars.created, 1)
	assert.Equal(t, "hr-1", f.scholars.created[0].DeployedBy)
	require.Len(t, f.schedules.calls, 1)
	assert.Equal(t, "app-1", f.schedules.calls[0].ApplicationID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestFixAllSchedulesDryRunWritesNothing(t *testing.T) {
	f := newMaintenanceFixture(t)
	f.schedules.byUser["u2"] = []models.Schedule{{UserID: "u2", UserType: models.ScheduleUserTrainee}}
	f.apps.accepted["u2"] = &models.Application{ID: "app-2", UserID: "u2"}

	report, err := f.svc.FixAllSchedules(context.Background(), MaintenanceOptions{DryRun: true, Actor: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Changed)
	assert.Empty(t, f.scholars.created)
	assert.Empty(t, f.audit.logs)
	assert.Contains(t, report.Summary(), "would change 1")
}

func TestFixScholarSchedulesRelabelsStaleRows(t *testing.T) {
	f := newMaintenanceFixture(t)
	f.scholars.byUser["u1"] = &models.Scholar{ID: "s1", UserID: "u1", ApplicationID: "app-1", Status: models.ScholarStatusActive, DeployedBy: "hr-1"}
	f.scholars.byUser["u2"] = &models.Scholar{ID: "s2", UserID: "u2", ApplicationID: "app-2", Status: models.ScholarStatusActive}
	f.schedules.byUser["u1"] = []models.Schedule{{UserID: "u1", UserType: models.ScheduleUserTrainee}}
	f.schedules.byUser["u2"] = []models.Schedule{{UserID: "u2", UserType: models.ScheduleUserScholar, ScholarID: strPtr("s2"), ApplicationID: strPtr("app-2")}}

	report, err := f.svc.FixScholarSchedules(context.Background(), MaintenanceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Examined)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, f.schedules.calls, 1)
	assert.Equal(t, "hr-1", f.schedules.calls[0].ActorID)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionMaintenance, f.audit.logs[0].Action)
}

func TestFixServiceDurationIsIdempotent(t *testing.T) {
	f := newMaintenanceFixture(t)
	archivedAt := time.Date(2026, 5, 30, 10, 0, 0, 0, time.UTC)
	f.apps.archived = []models.ArchivedApplication{{ID: "arch-1", UserID: "u1", Position: models.PositionStudentAssistant, ArchivedAt: archivedAt}}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	first, err := f.svc.FixServiceDuration(context.Background(), MaintenanceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Changed)
	assert.Equal(t, 6, f.history.data["u1"].ServiceMonths)
	assert.Equal(t, archivedAt.AddDate(0, -6, 0), f.history.data["u1"].ServicePeriods[0].StartDate)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	second, err := f.svc.FixServiceDuration(context.Background(), MaintenanceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Changed)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 6, f.history.data["u1"].ServiceMonths)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestFixServiceDurationDryRun(t *testing.T) {
	f := newMaintenanceFixture(t)
	f.apps.archived = []models.ArchivedApplication{{ID: "arch-1", UserID: "u1", ArchivedAt: time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)}}

	report, err := f.svc.FixServiceDuration(context.Background(), MaintenanceOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Changed)
	assert.Empty(t, f.history.data)
}

func TestSetEffectivityDatesHonoursConfirmation(t *testing.T) {
	f := newMaintenanceFixture(t)
	f.history.missing = []repository.MissingEffectivity{
		{UserID: "u1", FullName: "Ana", DeployedAt: time.Date(2026, 1, 15, 13, 30, 0, 0, time.UTC)},
	}

	declined, err := f.svc.SetEffectivityDates(context.Background(), MaintenanceOptions{}, func(int) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, declined.Skipped)
	assert.Empty(t, f.history.set)

	var asked int
	report, err := f.svc.SetEffectivityDates(context.Background(), MaintenanceOptions{}, func(n int) (bool, error) {
		asked = n
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, asked)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), f.history.set["u1"])
}

func TestCheckOfficeFilterFindsCaseMismatch(t *testing.T) {
	f := newMaintenanceFixture(t)
	f.scholars.offices = []string{"library ", "Registrar"}

	report, err := f.svc.CheckOfficeFilter(context.Background(), " Office@uni.edu ")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Lines[len(report.Lines)-1], "library ")
	assert.Empty(t, f.audit.logs)

	_, err = f.svc.CheckOfficeFilter(context.Background(), "nobody@uni.edu")
	require.Error(t, err)
}
