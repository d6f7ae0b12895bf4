package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/events"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, msg events.Message) error
}

// emitAudit stores an audit record; failures are logged and never surface to callers.
func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, source string, log *models.AuditLog) {
	if audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = source
	}
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

// notify delivers a notification; failures are logged and never surface to callers.
func notify(ctx context.Context, n notifier, logger *zap.Logger, notification *models.Notification) {
	if n == nil || notification == nil || notification.RecipientID == "" {
		return
	}
	if err := n.Notify(ctx, notification); err != nil {
		logger.Warn("failed to deliver notification",
			zap.String("recipient", notification.RecipientID),
			zap.String("type", notification.Type),
			zap.Error(err))
	}
}

func auditJSON(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// internalError wraps a storage failure. A cancelled or timed out request
// context surfaces as 503 instead of 500.
func internalError(err error, message string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// lookupError maps sql.ErrNoRows to a 404 and anything else to a 500.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, failure)
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func parseDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// officeScope returns the office an actor is restricted to. Staff may pass any office,
// including none; office users are pinned to their own; students get no office access.
func officeScope(actor *models.JWTClaims, requested string) (string, error) {
	if actor == nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	switch {
	case actor.Role.IsStaff():
		return requested, nil
	case actor.Role == models.RoleOffice:
		if actor.Office == "" {
			return "", appErrors.Clone(appErrors.ErrForbidden, "office account has no office assigned")
		}
		return actor.Office, nil
	default:
		return "", appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
	}
}

// inTx runs fn inside a transaction, committing on success.
func inTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
