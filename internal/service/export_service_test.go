package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/storage"
)

type dtrSourceStub struct {
	entries    []models.DTREntry
	lastFilter models.DTRFilter
}

func (d *dtrSourceStub) ListAll(_ context.Context, filter models.DTRFilter) ([]models.DTREntry, error) {
	d.lastFilter = filter
	return d.entries, nil
}

type rosterSourceStub struct {
	scholars []models.Scholar
}

func (r rosterSourceStub) ListActive(context.Context) ([]models.Scholar, error) {
	return r.scholars, nil
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *dtrSourceStub) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	dtr := &dtrSourceStub{entries: []models.DTREntry{
		{UserID: "u1", Office: "Library", WorkDate: day, TimeIn: day.Add(8 * time.Hour), TimeOut: ptrTime(day.Add(12 * time.Hour)), Hours: 4, Status: models.DTRStatusApproved},
		{UserID: "u1", Office: "Library", WorkDate: day.AddDate(0, 0, 1), TimeIn: day.Add(32 * time.Hour), Hours: 0, Status: models.DTRStatusOpen},
	}}
	rating := 4.25
	sources := ExportSources{
		DTR: dtr,
		Roster: rosterSourceStub{scholars: []models.Scholar{
			{UserID: "u2", FullName: "Ben", ScholarOffice: "Registrar", ScholarType: models.PositionStudentMarshal, DeployedAt: day},
			{UserID: "u1", FullName: "Ana", ScholarOffice: "Library", ScholarType: models.PositionStudentAssistant, DeployedAt: day, PerformanceRating: &rating},
		}},
		History: &stubHistoryStore{data: map[string]*models.UserData{
			"u1": {UserID: "u1", ServiceMonths: 6, ServicePeriods: models.ServicePeriods{{StartDate: day, EndDate: day.AddDate(0, 6, 0), Months: 6, ScholarType: models.PositionStudentAssistant}}},
		}},
	}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(sources, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop(), nil, nil)
	return svc, store, dtr
}

func readExport(t *testing.T, store *storage.LocalStorage, rel string) string {
	t.Helper()
	data, err := os.ReadFile(store.Path(rel))
	require.NoError(t, err)
	return string(data)
}

func TestExportServiceDTRCSV(t *testing.T) {
	svc, store, dtr := newExportServiceForTest(t)
	job := &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeDTR,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV, UserID: "u1", From: "2026-02-01", To: "2026-02-28"},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/download/"))
	assert.Equal(t, "u1", dtr.lastFilter.UserID)
	require.NotNil(t, dtr.lastFilter.From)

	body := readExport(t, store, result.RelativePath)
	assert.Contains(t, body, "Date,User ID,Office,Time In,Time Out,Hours,Status")
	assert.Contains(t, body, "2026-02-03,u1,Library,08:00,12:00,4.00,approved")
	assert.Contains(t, body, "Total,,,,,4.00,")

	jobID, rel, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, rel)
}

func TestExportServiceRosterFiltersOffice(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)
	result, err := svc.Generate(context.Background(), &models.ExportJob{
		ID: "job-2", Type: models.ExportTypeRoster, Params: models.ExportJobParams{Format: models.ExportFormatCSV, Office: "Library"},
	})
	require.NoError(t, err)
	body := readExport(t, store, result.RelativePath)
	assert.Contains(t, body, "Ana,Library,student_assistant,2026-02-03,4.25")
	assert.NotContains(t, body, "Ben")
}

func TestExportServiceServiceHistoryPDF(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)
	result, err := svc.Generate(context.Background(), &models.ExportJob{
		ID: "job-3", Type: models.ExportTypeService, Params: models.ExportJobParams{Format: models.ExportFormatPDF},
	})
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(result.RelativePath))
	assert.True(t, strings.HasPrefix(readExport(t, store, result.RelativePath), "%PDF"))
}

func TestExportServiceRejectsUnknownType(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)
	_, err := svc.Generate(context.Background(), &models.ExportJob{ID: "job-4", Type: "grades", Params: models.ExportJobParams{Format: models.ExportFormatCSV}})
	require.Error(t, err)
}
