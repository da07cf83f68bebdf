package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ifsertao/permuta-api/internal/models"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

type notificationStore interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService exposes the caller's in-app notification inbox.
type NotificationService struct {
	repo        notificationStore
	logger      *zap.Logger
	defaultLink string
}

// NewNotificationService constructs the service. defaultLink is returned
// by MarkRead when the notification carries no redirect target.
func NewNotificationService(repo notificationStore, logger *zap.Logger, defaultLink string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLink == "" {
		defaultLink = "/"
	}
	return &NotificationService{repo: repo, logger: logger, defaultLink: defaultLink}
}

// List returns the caller's notifications, unread first then newest.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	notifications, err := s.repo.List(ctx, models.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns how many unread notifications the caller has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks a notification as read and returns the link to follow.
// Notifications belonging to other users read as not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (string, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if notification.UserID != userID {
		return "", appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}

	if err := s.repo.MarkRead(ctx, id, userID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}

	if notification.Link == "" {
		return s.defaultLink, nil
	}
	return notification.Link, nil
}
