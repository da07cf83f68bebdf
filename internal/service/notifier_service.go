package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ifsertao/permuta-api/internal/models"
	"github.com/ifsertao/permuta-api/pkg/jobs"
	"github.com/ifsertao/permuta-api/pkg/mailer"
)

const brDateLayout = "02/01/2006"

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type coordinatorDirectory interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type professorContacts interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
}

type mailQueue interface {
	Enqueue(job jobs.Job) error
}

// NotifierConfig tunes how notifications address their recipients.
type NotifierConfig struct {
	FrontendBaseURL string
	MailEnabled     bool
}

// NotifierService consumes swap lifecycle events and fans them out as
// in-app notifications plus queued email. A failed in-app write fails the
// dispatch; email problems are logged and never block the operation.
type NotifierService struct {
	notifications notificationWriter
	users         coordinatorDirectory
	professors    professorContacts
	queue         mailQueue
	metrics       *MetricsService
	logger        *zap.Logger
	config        NotifierConfig
}

// NewNotifierService constructs the notifier. The queue may be nil when
// email is disabled.
func NewNotifierService(notifications notificationWriter, users coordinatorDirectory, professors professorContacts, queue mailQueue, metrics *MetricsService, logger *zap.Logger, config NotifierConfig) *NotifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifierService{
		notifications: notifications,
		users:         users,
		professors:    professors,
		queue:         queue,
		metrics:       metrics,
		logger:        logger,
		config:        config,
	}
}

// HandleSwapEvent implements SwapEventConsumer.
func (s *NotifierService) HandleSwapEvent(ctx context.Context, event SwapEvent) error {
	swap := event.Swap
	if swap == nil {
		return nil
	}

	requester, err := s.professors.FindByID(ctx, swap.RequesterID)
	if err != nil {
		return fmt.Errorf("resolve requester %s: %w", swap.RequesterID, err)
	}
	substitute, err := s.professors.FindByID(ctx, swap.SubstituteID)
	if err != nil {
		return fmt.Errorf("resolve substitute %s: %w", swap.SubstituteID, err)
	}

	link := s.swapLink(swap.ID)
	classDate := swap.ClassDate.Format(brDateLayout)
	subject := fmt.Sprintf("Permuta de %s (%s)", swap.DisciplineName, classDate)

	switch event.Type {
	case EventSwapRequested:
		message := fmt.Sprintf("%s solicitou uma permuta com você para %s (%s) em %s.",
			requester.FullName, swap.DisciplineName, swap.ClassCode, classDate)
		if err := s.notify(ctx, event.Type, substitute.UserID, message, link); err != nil {
			return err
		}
		s.sendMail(swap.ID, substitute.FullName, substitute.Email, subject, message)

		coordMessage := fmt.Sprintf("Nova permuta solicitada: %s pediu a %s para cobrir %s (%s) em %s.",
			requester.FullName, substitute.FullName, swap.DisciplineName, swap.ClassCode, classDate)
		return s.notifyCoordinators(ctx, event.Type, swap.ID, coordMessage, link, subject, requester.UserID, substitute.UserID)

	case EventMakeUpRegistered:
		if !swap.HasMakeUp() {
			return nil
		}
		message := fmt.Sprintf("%s registrou a reposição da permuta de %s: %s.",
			requester.FullName, swap.DisciplineName, swap.MakeUp.Date.Format(brDateLayout))
		return s.notify(ctx, event.Type, substitute.UserID, message, link)

	case EventSwapApproved:
		coordMessage := fmt.Sprintf("%s confirmou a permuta solicitada por %s para %s (%s) em %s.",
			substitute.FullName, requester.FullName, swap.DisciplineName, swap.ClassCode, classDate)
		if err := s.notifyCoordinators(ctx, event.Type, swap.ID, coordMessage, link, subject, requester.UserID, substitute.UserID); err != nil {
			return err
		}
		requesterBody := fmt.Sprintf("Sua permuta de %s (%s) em %s foi confirmada por %s.",
			swap.DisciplineName, swap.ClassCode, classDate, substitute.FullName)
		s.sendMail(swap.ID, requester.FullName, requester.Email, subject, requesterBody)
		return nil

	case EventSwapCancelled:
		message := fmt.Sprintf("%s cancelou a permuta de %s (%s) em %s.",
			requester.FullName, swap.DisciplineName, swap.ClassCode, classDate)
		if err := s.notify(ctx, event.Type, substitute.UserID, message, link); err != nil {
			return err
		}
		s.sendMail(swap.ID, substitute.FullName, substitute.Email, subject, message)
		return s.notifyCoordinators(ctx, event.Type, swap.ID, message, link, subject, requester.UserID, substitute.UserID)

	default:
		s.logger.Warn("unknown swap event", zap.String("event", string(event.Type)))
		return nil
	}
}

func (s *NotifierService) notify(ctx context.Context, event SwapEventType, userID, message, link string) error {
	err := s.notifications.Create(ctx, &models.Notification{
		UserID:  userID,
		Message: message,
		Link:    link,
	})
	if err != nil {
		return fmt.Errorf("create notification for %s: %w", userID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(string(event))
	}
	return nil
}

// notifyCoordinators writes in-app rows and queues email for every active
// coordinator, skipping the two professors involved in the swap.
func (s *NotifierService) notifyCoordinators(ctx context.Context, event SwapEventType, swapID, message, link, subject string, excludeUserIDs ...string) error {
	coordinators, err := s.users.ListByRole(ctx, models.RoleCoordinator)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("list coordinators: %w", err)
	}

	excluded := make(map[string]struct{}, len(excludeUserIDs))
	for _, id := range excludeUserIDs {
		excluded[id] = struct{}{}
	}

	for _, coordinator := range coordinators {
		if _, skip := excluded[coordinator.ID]; skip {
			continue
		}
		if err := s.notify(ctx, event, coordinator.ID, message, link); err != nil {
			return err
		}
		s.sendMail(swapID, coordinator.FullName, coordinator.Email, subject, message)
	}
	return nil
}

func (s *NotifierService) sendMail(reference, toName, toEmail, subject, body string) {
	if !s.config.MailEnabled || s.queue == nil || strings.TrimSpace(toEmail) == "" {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "notification_email",
		Payload: mailer.Message{
			ToName:    toName,
			ToEmail:   toEmail,
			Subject:   subject,
			TextBody:  body,
			Reference: reference,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification email",
			zap.String("to", toEmail),
			zap.String("reference", reference),
			zap.Error(err),
		)
	}
}

func (s *NotifierService) swapLink(swapID string) string {
	base := strings.TrimRight(s.config.FrontendBaseURL, "/")
	if base == "" {
		return "/permutas/" + swapID
	}
	return base + "/permutas/" + swapID
}

// MailJobHandler adapts a Mailer into a jobs.Handler for the notification
// email queue. Delivery outcome is recorded on metrics either way.
func MailJobHandler(m mailer.Mailer, metrics *MetricsService, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		message, ok := job.Payload.(mailer.Message)
		if !ok {
			logger.Error("mail job carries unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		if err := m.Send(ctx, message); err != nil {
			if metrics != nil {
				metrics.RecordMailDelivery(false)
			}
			return fmt.Errorf("send mail to %s: %w", message.ToEmail, err)
		}
		if metrics != nil {
			metrics.RecordMailDelivery(true)
		}
		return nil
	}
}
