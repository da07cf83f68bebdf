package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ifsertao/permuta-api/internal/models"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

type notificationStoreStub struct {
	notifications map[string]*models.Notification
	filter        models.NotificationFilter
	marked        []string
}

func newNotificationStoreStub() *notificationStoreStub {
	return &notificationStoreStub{notifications: make(map[string]*models.Notification)}
}

func (s *notificationStoreStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	s.filter = filter
	result := make([]models.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		result = append(result, *n)
	}
	return result, nil
}

func (s *notificationStoreStub) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *notificationStoreStub) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	n, ok := s.notifications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *n
	return &copied, nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, userID string) error {
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return sql.ErrNoRows
	}
	n.Read = true
	s.marked = append(s.marked, id)
	return nil
}

func TestNotificationServiceList(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.notifications["n1"] = &models.Notification{ID: "n1", UserID: "user-a", Message: "uma"}
	repo.notifications["n2"] = &models.Notification{ID: "n2", UserID: "user-a", Message: "duas", Read: true}
	repo.notifications["n3"] = &models.Notification{ID: "n3", UserID: "user-b", Message: "alheia"}
	svc := NewNotificationService(repo, nil, "")

	all, err := svc.List(context.Background(), "user-a", false, 20, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	unread, err := svc.List(context.Background(), "user-a", true, 20, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "n1", unread[0].ID)
}

func TestNotificationServiceUnreadCount(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.notifications["n1"] = &models.Notification{ID: "n1", UserID: "user-a"}
	repo.notifications["n2"] = &models.Notification{ID: "n2", UserID: "user-a", Read: true}
	svc := NewNotificationService(repo, nil, "")

	count, err := svc.UnreadCount(context.Background(), "user-a")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.notifications["n1"] = &models.Notification{ID: "n1", UserID: "user-a", Link: "/permutas/swap-1"}
	svc := NewNotificationService(repo, nil, "/inicio")

	link, err := svc.MarkRead(context.Background(), "n1", "user-a")
	require.NoError(t, err)
	require.Equal(t, "/permutas/swap-1", link)
	require.True(t, repo.notifications["n1"].Read)
}

func TestNotificationServiceMarkReadFallsBackToDefaultLink(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.notifications["n1"] = &models.Notification{ID: "n1", UserID: "user-a"}
	svc := NewNotificationService(repo, nil, "/inicio")

	link, err := svc.MarkRead(context.Background(), "n1", "user-a")
	require.NoError(t, err)
	require.Equal(t, "/inicio", link)
}

func TestNotificationServiceMarkReadHidesForeignRows(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.notifications["n1"] = &models.Notification{ID: "n1", UserID: "user-a"}
	svc := NewNotificationService(repo, nil, "")

	_, err := svc.MarkRead(context.Background(), "n1", "user-b")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.False(t, repo.notifications["n1"].Read)
}

func TestNotificationServiceMarkReadMissing(t *testing.T) {
	repo := newNotificationStoreStub()
	svc := NewNotificationService(repo, nil, "")

	_, err := svc.MarkRead(context.Background(), "nope", "user-a")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
