package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	MarkManyRead(ctx context.Context, ids []string, recipientID string, at time.Time) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
	DeleteMany(ctx context.Context, ids []string, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

type notificationCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// NotificationService manages the per-user notification inbox.
type NotificationService struct {
	repo      notificationRepository
	cache     notificationCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs the service. cache may be nil.
func NewNotificationService(repo notificationRepository, cache notificationCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &NotificationService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func unreadCacheKey(userID string) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, query dto.NotificationQuery) ([]models.Notification, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid notification query")
	}
	filter := models.NotificationFilter{RecipientID: userID, Limit: defaultNotificationLimit}
	if query.IsRead != "" {
		isRead := query.IsRead == "true"
		filter.IsRead = &isRead
	}
	if query.Limit != "" {
		limit, err := strconv.Atoi(query.Limit)
		if err != nil {
			return nil, validationError(err, "limit must be a number")
		}
		if limit > 0 {
			filter.Limit = limit
		}
	}
	if filter.Limit > maxNotificationLimit {
		filter.Limit = maxNotificationLimit
	}
	if query.Skip != "" {
		skip, err := strconv.Atoi(query.Skip)
		if err != nil {
			return nil, validationError(err, "skip must be a number")
		}
		filter.Skip = skip
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one notification as read. Marking an already read notification keeps its read time.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, userID, s.now())
	if err != nil {
		return nil, lookupError(err, "notification not found", "failed to mark notification as read")
	}
	s.invalidate(ctx, userID)
	return n, nil
}

// MarkAllRead flags every unread notification of the user. A repeated call reports zero.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (*dto.ModifiedCountResponse, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return nil, internalError(err, "failed to mark notifications as read")
	}
	if count > 0 {
		s.invalidate(ctx, userID)
	}
	return &dto.ModifiedCountResponse{ModifiedCount: count}, nil
}

// MarkManyRead flags the listed notifications; ids owned by someone else are ignored.
func (s *NotificationService) MarkManyRead(ctx context.Context, userID string, req dto.NotificationIDsRequest) (*dto.ModifiedCountResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "notificationIDs must be a non-empty list")
	}
	count, err := s.repo.MarkManyRead(ctx, dedupe(req.NotificationIDs), userID, s.now())
	if err != nil {
		return nil, internalError(err, "failed to mark notifications as read")
	}
	if count > 0 {
		s.invalidate(ctx, userID)
	}
	return &dto.ModifiedCountResponse{ModifiedCount: count}, nil
}

// Delete removes one notification.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return lookupError(err, "notification not found", "failed to delete notification")
	}
	s.invalidate(ctx, userID)
	return nil
}

// DeleteMany removes the listed notifications owned by the user.
func (s *NotificationService) DeleteMany(ctx context.Context, userID string, req dto.NotificationIDsRequest) (*dto.DeletedCountResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "notificationIDs must be a non-empty list")
	}
	count, err := s.repo.DeleteMany(ctx, dedupe(req.NotificationIDs), userID)
	if err != nil {
		return nil, internalError(err, "failed to delete notifications")
	}
	if count > 0 {
		s.invalidate(ctx, userID)
	}
	return &dto.DeletedCountResponse{DeletedCount: count}, nil
}

// UnreadCount returns the number of unread notifications, served from cache when possible.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error) {
	key := unreadCacheKey(userID)
	if s.cache != nil {
		var cached dto.UnreadCountResponse
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to count unread notifications")
	}
	resp := &dto.UnreadCountResponse{Count: count}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, resp, s.cacheTTL)
	}
	return resp, nil
}

// Notify stores a new notification for its recipient.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n == nil || n.RecipientID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "notification recipient is required")
	}
	n.IsRead = false
	n.ReadAt = nil
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification for %s: %w", n.RecipientID, err)
	}
	s.invalidate(ctx, n.RecipientID)
	return nil
}

func (s *NotificationService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, unreadCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate unread count", zap.String("user_id", userID), zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
