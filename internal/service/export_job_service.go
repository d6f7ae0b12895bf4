package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/repository"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
	"github.com/noah-isme/sasm-ims-api/pkg/jobs"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.ExportJobUpdate) error
	ListByStatus(ctx context.Context, status models.ExportStatus, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

type exportRecorder interface {
	RecordExportJob(jobType, status string)
}

// ExportJobConfig governs queue recovery and cleanup.
type ExportJobConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportJobService manages the lifecycle of export jobs.
type ExportJobService struct {
	repo      exportJobStore
	queue     jobDispatcher
	exporter  *ExportService
	metrics   exportRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportJobConfig
}

// NewExportJobService constructs the export job service.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, exporter *ExportService, metrics exportRecorder, validate *validator.Validate, logger *zap.Logger, cfg ExportJobConfig) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ExportJobService{
		repo:      repo,
		queue:     queue,
		exporter:  exporter,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob validates the request, scopes it to what the actor may see, persists and enqueues it.
func (s *ExportJobService) CreateJob(ctx context.Context, actor *models.JWTClaims, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid export request")
	}
	params, err := s.scopeParams(actor, req)
	if err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		Type:      req.Type,
		Params:    params,
		Status:    models.ExportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, internalError(err, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.ExportJobUpdate{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		s.record(job.Type, status)
		return nil, internalError(err, "failed to enqueue export job")
	}
	s.record(job.Type, job.Status)
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

func (s *ExportJobService) scopeParams(actor *models.JWTClaims, req dto.ExportRequest) (models.ExportJobParams, error) {
	params := models.ExportJobParams{
		Format: req.Format,
		Office: strings.TrimSpace(req.Office),
		UserID: strings.TrimSpace(req.UserID),
		From:   req.From,
		To:     req.To,
	}
	if actor == nil {
		return params, appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	if req.From != "" && req.To != "" && req.From > req.To {
		return params, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if actor.Role == models.RoleStudent {
		if req.Type != models.ExportTypeDTR {
			return params, appErrors.Clone(appErrors.ErrForbidden, "students may only export their own time records")
		}
		params.UserID = actor.UserID
		params.Office = ""
		return params, nil
	}
	office, err := officeScope(actor, params.Office)
	if err != nil {
		return params, err
	}
	params.Office = office
	return params, nil
}

// GetStatus exposes job metadata to the job's creator and to staff.
func (s *ExportJobService) GetStatus(ctx context.Context, actor *models.JWTClaims, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "export job not found", "failed to load export job")
	}
	if actor == nil || (job.CreatedBy != actor.UserID && !actor.Role.IsStaff()) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	resp := &dto.ExportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, internalError(err, "failed to load export job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, internalError(err, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs, and jobs a crashed worker left processing, after a restart.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	for _, status := range []models.ExportStatus{models.ExportStatusQueued, models.ExportStatusProcessing} {
		pending, err := s.repo.ListByStatus(ctx, status, 50)
		if err != nil {
			s.logger.Sugar().Warnw("failed to recover export jobs", "status", status, "error", err)
			continue
		}
		for _, job := range pending {
			if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
				s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
			}
		}
	}
}

// StartCleanup purges expired exports every CleanupInterval until ctx ends.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Sugar().Warnw("export cleanup list failed", "error", err)
		return
	}
	for _, job := range expired {
		if job.ResultURL == nil {
			continue
		}
		token := lastSegment(*job.ResultURL)
		_, relPath, _, err := s.exporter.ParseToken(token, true)
		if err != nil {
			continue
		}
		if err := s.exporter.Delete(relPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Sugar().Warnw("export cleanup delete failed", "job_id", job.ID, "error", err)
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("export filesystem cleanup failed", "error", err)
	}
}

func (s *ExportJobService) record(jobType models.ExportType, status models.ExportStatus) {
	if s.metrics != nil {
		s.metrics.RecordExportJob(string(jobType), string(status))
	}
}

func lastSegment(url string) string {
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ExportWorker bridges queue jobs to the ExportService.
type ExportWorker struct {
	repo       exportJobStore
	exporter   exportGenerator
	metrics    exportRecorder
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics exportRecorder, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes one queued export.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.ExportJobUpdate{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.ExportJobUpdate{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark export failed", "job_id", job.ID, "error", updateErr)
			}
			w.record(record.Type, failed)
		} else {
			queued := models.ExportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.ExportJobUpdate{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark export queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}

	finished := models.ExportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.ExportJobUpdate{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark export finished", "job_id", job.ID, "error", err)
		return err
	}
	w.record(record.Type, finished)
	return nil
}

func (w *ExportWorker) record(jobType models.ExportType, status models.ExportStatus) {
	if w.metrics != nil {
		w.metrics.RecordExportJob(string(jobType), string(status))
	}
}
