package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/curalink/curalink/internal/background"
	"github.com/curalink/curalink/internal/models"
)

// NotificationRepository defines notification storage
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// TaskEnqueuer schedules work outside the request
type TaskEnqueuer interface {
	Enqueue(name string, fn background.TaskFunc) error
}

const notificationsLimit = 50

// NotificationService stores in-app notifications and, when email is
// configured, mirrors them by email from the task queue
type NotificationService struct {
	repo   NotificationRepository
	users  UserRepository
	email  EmailSender
	tasks  TaskEnqueuer
	logger *slog.Logger
}

// NewNotificationService wires notifications; a nil email sender disables email
func NewNotificationService(repo NotificationRepository, users UserRepository, email EmailSender, tasks TaskEnqueuer, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		users:  users,
		email:  email,
		tasks:  tasks,
		logger: logger,
	}
}

// Notify stores a notification for userID
func (s *NotificationService) Notify(ctx context.Context, userID, notificationType, title, content string, link *string) error {
	n := &models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Content: content,
		Link:    link,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification",
			slog.String("user_id", userID),
			slog.String("type", notificationType),
			slog.Any("error", err))
		return err
	}

	if s.email != nil && s.tasks != nil {
		err := s.tasks.Enqueue("notification_email", func(ctx context.Context) error {
			return s.sendEmail(ctx, n)
		})
		if err != nil {
			s.logger.Warn("failed to queue notification email", slog.Any("error", err))
		}
	}
	return nil
}

func (s *NotificationService) sendEmail(ctx context.Context, n *models.Notification) error {
	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to load notification recipient: %w", err)
	}
	return s.email.SendNotificationEmail(ctx, user.Email, n)
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, notificationsLimit)
}

// MarkRead marks one of the user's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
