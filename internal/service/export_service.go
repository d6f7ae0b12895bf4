package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/export"
	"github.com/noah-isme/sasm-ims-api/pkg/storage"
)

type dtrSource interface {
	ListAll(ctx context.Context, filter models.DTRFilter) ([]models.DTREntry, error)
}

type rosterSource interface {
	ListActive(ctx context.Context) ([]models.Scholar, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportSources groups the read models an export can draw from.
type ExportSources struct {
	DTR     dtrSource
	Roster  rosterSource
	History serviceHistoryStore
}

// ExportService builds datasets for DTR, roster and service history exports and stores the rendered files.
type ExportService struct {
	sources ExportSources
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(sources ExportSources, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sources: sources,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the job's dataset and stores it behind a signed token.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("export job is nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.filename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("export rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, falling back to the configured result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) filename(job *models.ExportJob) string {
	scope := job.Params.Office
	if job.Params.UserID != "" {
		scope = job.Params.UserID
	}
	return fmt.Sprintf("%s/%s_%s_%s.%s",
		s.now().Format("200601"),
		strings.ToLower(string(job.Type)),
		sanitizeFilename(scope),
		s.now().Format("20060102_150405"),
		job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 80 {
		return result[:80]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeDTR:
		return s.dtrDataset(ctx, job.Params)
	case models.ExportTypeRoster:
		return s.rosterDataset(ctx, job.Params)
	case models.ExportTypeService:
		return s.serviceDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) dtrDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	from, err := parseDate(params.From)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("invalid from date: %w", err)
	}
	to, err := parseDate(params.To)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("invalid to date: %w", err)
	}
	entries, err := s.sources.DTR.ListAll(ctx, models.DTRFilter{UserID: params.UserID, Office: params.Office, From: from, To: to})
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Date", "User ID", "Office", "Time In", "Time Out", "Hours", "Status"}
	rows := make([]map[string]string, 0, len(entries))
	var total float64
	for _, entry := range entries {
		timeOut := ""
		if entry.TimeOut != nil {
			timeOut = entry.TimeOut.Format("15:04")
		}
		total += entry.Hours
		rows = append(rows, map[string]string{
			"Date":     entry.WorkDate.Format(dateLayout),
			"User ID":  entry.UserID,
			"Office":   entry.Office,
			"Time In":  entry.TimeIn.Format("15:04"),
			"Time Out": timeOut,
			"Hours":    fmt.Sprintf("%.2f", entry.Hours),
			"Status":   string(entry.Status),
		})
	}
	if len(rows) > 0 {
		rows = append(rows, map[string]string{"Date": "Total", "Hours": fmt.Sprintf("%.2f", total)})
	}

	title := "Daily Time Record"
	if params.From != "" || params.To != "" {
		title = fmt.Sprintf("%s %s to %s", title, params.From, params.To)
	}
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func (s *ExportService) activeScholars(ctx context.Context, params models.ExportJobParams) ([]models.Scholar, error) {
	all, err := s.sources.Roster.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Scholar, 0, len(all))
	for _, scholar := range all {
		if params.Office != "" && scholar.ScholarOffice != params.Office {
			continue
		}
		if params.UserID != "" && scholar.UserID != params.UserID {
			continue
		}
		out = append(out, scholar)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScholarOffice != out[j].ScholarOffice {
			return out[i].ScholarOffice < out[j].ScholarOffice
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

func (s *ExportService) rosterDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	scholars, err := s.activeScholars(ctx, params)
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Name", "Office", "Type", "Deployed", "Rating"}
	rows := make([]map[string]string, 0, len(scholars))
	for _, scholar := range scholars {
		rating := ""
		if scholar.PerformanceRating != nil {
			rating = fmt.Sprintf("%.2f", *scholar.PerformanceRating)
		}
		rows = append(rows, map[string]string{
			"Name":     scholar.FullName,
			"Office":   scholar.ScholarOffice,
			"Type":     string(scholar.ScholarType),
			"Deployed": scholar.DeployedAt.Format(dateLayout),
			"Rating":   rating,
		})
	}
	title := "Scholar Roster"
	if params.Office != "" {
		title = fmt.Sprintf("%s %s", title, params.Office)
	}
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func (s *ExportService) serviceDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	scholars, err := s.activeScholars(ctx, params)
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Name", "Type", "Start", "End", "Months", "Total Months"}
	var rows []map[string]string
	for _, scholar := range scholars {
		data, err := s.sources.History.Get(ctx, nil, scholar.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return export.Dataset{}, "", err
		}
		for _, period := range data.ServicePeriods {
			rows = append(rows, map[string]string{
				"Name":         scholar.FullName,
				"Type":         string(period.ScholarType),
				"Start":        period.StartDate.Format(dateLayout),
				"End":          period.EndDate.Format(dateLayout),
				"Months":       fmt.Sprintf("%d", period.Months),
				"Total Months": fmt.Sprintf("%d", data.ServiceMonths),
			})
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Service History", nil
}
