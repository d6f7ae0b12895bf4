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
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type evaluationRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, eval *models.Evaluation) error
	GetByID(ctx context.Context, id string) (*models.Evaluation, error)
	Update(ctx context.Context, exec sqlx.ExtContext, eval *models.Evaluation) error
	List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error)
	AverageForScholar(ctx context.Context, exec sqlx.ExtContext, scholarID string) (*float64, error)
}

type ratedScholars interface {
	GetByID(ctx context.Context, id string) (*models.Scholar, error)
	FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Scholar, error)
	SetPerformanceRating(ctx context.Context, exec sqlx.ExtContext, id string, rating *float64) error
}

// EvaluationService records office evaluations and keeps scholar ratings current.
type EvaluationService struct {
	db        txProvider
	repo      evaluationRepository
	scholars  ratedScholars
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEvaluationService constructs the service.
func NewEvaluationService(db txProvider, repo evaluationRepository, scholars ratedScholars, n notifier, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EvaluationService{
		db:        db,
		repo:      repo,
		scholars:  scholars,
		notifier:  n,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new evaluation, submitting it straight away when requested.
func (s *EvaluationService) Create(ctx context.Context, actor *models.JWTClaims, req dto.EvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid evaluation payload")
	}
	scholar, err := s.scholars.GetByID(ctx, req.ScholarID)
	if err != nil {
		return nil, lookupError(err, "scholar not found", "failed to load scholar")
	}
	if err := s.authorize(actor, scholar.ScholarOffice); err != nil {
		return nil, err
	}

	eval := &models.Evaluation{
		ScholarID:   scholar.ID,
		Office:      scholar.ScholarOffice,
		EvaluatorID: actor.UserID,
		Period:      strings.TrimSpace(req.Period),
		Status:      models.EvaluationStatusDraft,
	}
	s.apply(eval, req)

	err = inTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, eval); err != nil {
			return err
		}
		return s.refreshRating(ctx, tx, eval)
	})
	if err != nil {
		return nil, internalError(err, "failed to save evaluation")
	}
	s.notifySubmitted(ctx, scholar, eval)
	return eval, nil
}

// Update edits a draft evaluation. Submitted evaluations are final.
func (s *EvaluationService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.EvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid evaluation payload")
	}
	eval, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "evaluation not found", "failed to load evaluation")
	}
	if err := s.authorize(actor, eval.Office); err != nil {
		return nil, err
	}
	if eval.Status != models.EvaluationStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "evaluation is already submitted")
	}
	if req.ScholarID != eval.ScholarID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scholarId cannot change")
	}
	eval.Period = strings.TrimSpace(req.Period)
	s.apply(eval, req)

	err = inTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.Update(ctx, tx, eval); err != nil {
			return err
		}
		return s.refreshRating(ctx, tx, eval)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "evaluation is already submitted")
		}
		return nil, internalError(err, "failed to save evaluation")
	}
	if eval.Status == models.EvaluationStatusSubmitted {
		if scholar, err := s.scholars.GetByID(ctx, eval.ScholarID); err == nil {
			s.notifySubmitted(ctx, scholar, eval)
		}
	}
	return eval, nil
}

// Get returns an evaluation visible to the actor.
func (s *EvaluationService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Evaluation, error) {
	eval, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "evaluation not found", "failed to load evaluation")
	}
	if actor != nil && actor.Role == models.RoleStudent {
		scholar, err := s.scholars.FindByUserID(ctx, nil, actor.UserID)
		if err != nil || scholar.ID != eval.ScholarID || eval.Status != models.EvaluationStatusSubmitted {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return eval, nil
	}
	if err := s.authorize(actor, eval.Office); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
	}
	return eval, nil
}

// List returns evaluations. Students see only their own submitted evaluations.
func (s *EvaluationService) List(ctx context.Context, actor *models.JWTClaims, query dto.EvaluationQuery) ([]models.Evaluation, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid evaluation filters")
	}
	filter := models.EvaluationFilter{
		ScholarID: strings.TrimSpace(query.ScholarID),
		Period:    strings.TrimSpace(query.Period),
		Status:    models.EvaluationStatus(query.Status),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if actor != nil && actor.Role == models.RoleStudent {
		scholar, err := s.scholars.FindByUserID(ctx, nil, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []models.Evaluation{}, models.NewPagination(query.Page, query.PageSize, 0), nil
			}
			return nil, nil, internalError(err, "failed to load scholar")
		}
		filter.ScholarID = scholar.ID
		filter.Status = models.EvaluationStatusSubmitted
	} else {
		office, err := officeScope(actor, strings.TrimSpace(query.Office))
		if err != nil {
			return nil, nil, err
		}
		filter.Office = office
	}
	evals, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list evaluations")
	}
	return evals, models.NewPagination(query.Page, query.PageSize, total), nil
}

func (s *EvaluationService) authorize(actor *models.JWTClaims, office string) error {
	scoped, err := officeScope(actor, office)
	if err != nil {
		return err
	}
	if scoped != office {
		return appErrors.Clone(appErrors.ErrForbidden, "scholar belongs to another office")
	}
	return nil
}

func (s *EvaluationService) apply(eval *models.Evaluation, req dto.EvaluationRequest) {
	eval.Ratings = models.CriterionRatings(req.Ratings)
	eval.Average = eval.Ratings.Average()
	eval.Comments = trimmed(req.Comments)
	if req.Submit {
		now := s.now()
		eval.Status = models.EvaluationStatusSubmitted
		eval.SubmittedAt = &now
	}
}

// refreshRating recomputes the scholar's rating from submitted evaluations.
func (s *EvaluationService) refreshRating(ctx context.Context, tx sqlx.ExtContext, eval *models.Evaluation) error {
	if eval.Status != models.EvaluationStatusSubmitted {
		return nil
	}
	avg, err := s.repo.AverageForScholar(ctx, tx, eval.ScholarID)
	if err != nil {
		return err
	}
	return s.scholars.SetPerformanceRating(ctx, tx, eval.ScholarID, avg)
}

func (s *EvaluationService) notifySubmitted(ctx context.Context, scholar *models.Scholar, eval *models.Evaluation) {
	if eval.Status != models.EvaluationStatusSubmitted {
		return
	}
	relatedType := "evaluation"
	notify(ctx, s.notifier, s.logger, &models.Notification{
		RecipientID: scholar.UserID,
		Type:        models.NotificationTypeEvaluation,
		Title:       "New evaluation",
		Message:     fmt.Sprintf("Your %s evaluation was submitted with an average of %.2f.", eval.Period, eval.Average),
		RelatedType: &relatedType,
		RelatedID:   &eval.ID,
	})
}
