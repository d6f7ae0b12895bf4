package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

const notificationColumns = `id, recipient_id, type, title, message, related_type, related_id, is_read, read_at, created_at`

// NotificationRepository persists per-user notifications. Every query is scoped by recipient.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, recipient_id, type, title, message, related_type, related_id, is_read, read_at, created_at)
VALUES (:id, :recipient_id, :type, :title, :message, :related_type, :related_id, :is_read, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns the recipient's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	where := whereBuilder{}
	where.add("recipient_id = $%d", filter.RecipientID)
	if filter.IsRead != nil {
		where.add("is_read = $%d", *filter.IsRead)
	}
	query := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		notificationColumns, where.clause(), filter.Limit, filter.Skip)

	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags one notification as read and returns it. Already-read rows keep their read_at.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*models.Notification, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
WHERE id = $1 AND recipient_id = $2 RETURNING ` + notificationColumns
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id, recipientID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}

// MarkAllRead flags every unread notification of the recipient and returns the number changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE recipient_id = $1 AND is_read = FALSE`
	res, err := r.db.ExecContext(ctx, query, recipientID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

// MarkManyRead flags the listed unread notifications owned by the recipient.
func (r *NotificationRepository) MarkManyRead(ctx context.Context, ids []string, recipientID string, at time.Time) (int64, error) {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = $3 WHERE id = ANY($1) AND recipient_id = $2 AND is_read = FALSE`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids), recipientID, at)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes one notification owned by the recipient.
func (r *NotificationRepository) Delete(ctx context.Context, id, recipientID string) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete notification rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMany removes the listed notifications owned by the recipient.
func (r *NotificationRepository) DeleteMany(ctx context.Context, ids []string, recipientID string) (int64, error) {
	const query = `DELETE FROM notifications WHERE id = ANY($1) AND recipient_id = $2`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids), recipientID)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.RowsAffected()
}

// CountUnread returns the number of unread notifications for the recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`, recipientID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}
