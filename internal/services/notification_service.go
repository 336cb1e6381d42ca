package services

import (
	"context"
	"fmt"
	"time"

	"tripmingle/internal/models"
	"tripmingle/internal/observability"
	"tripmingle/internal/repositories/interfaces"
	"tripmingle/internal/utils"
	"tripmingle/pkg/logger"
	"tripmingle/pkg/push"
	"tripmingle/pkg/sms"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService interface {
	// Notify persists a notification for userID and dispatches a push
	// message to the user's device when one is registered. Users who
	// opted in to SMS get a text mirror of the same notification.
	Notify(ctx context.Context, userID primitive.ObjectID, notificationType models.NotificationType, title, message string, tripID *primitive.ObjectID) error

	GetUserNotifications(ctx context.Context, userID primitive.ObjectID, includeRead bool, params *utils.PaginationParams) ([]*models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error

	SendSMS(ctx context.Context, phone, message string) error
}

type notificationService struct {
	notificationRepo interfaces.NotificationRepository
	userRepo         interfaces.UserRepository
	pushProvider     push.PushProvider
	pushProviderName string
	smsProvider      sms.SMSProvider
	logger           *logger.Logger
}

func NewNotificationService(
	notificationRepo interfaces.NotificationRepository,
	userRepo interfaces.UserRepository,
	pushProvider push.PushProvider,
	pushProviderName string,
	smsProvider sms.SMSProvider,
	logger *logger.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pushProvider:     pushProvider,
		pushProviderName: pushProviderName,
		smsProvider:      smsProvider,
		logger:           logger,
	}
}

func (s *notificationService) Notify(ctx context.Context, userID primitive.ObjectID, notificationType models.NotificationType, title, message string, tripID *primitive.ObjectID) error {
	notification := &models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		TripID:  tripID,
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return err
	}

	observability.NotificationsSentTotal.WithLabelValues(string(notificationType)).Inc()

	// Delivery is best effort. The persisted record is the source of
	// truth; a failed push or SMS must not fail the trip mutation behind it.
	go s.dispatch(notification)

	return nil
}

func (s *notificationService) dispatch(notification *models.Notification) {
	if s.pushProvider == nil && s.smsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, notification.UserID)
	if err != nil {
		s.logger.WithError(err).WithUserID(notification.UserID).Warn("Failed to load user for notification delivery")
		return
	}

	s.dispatchPush(ctx, user, notification)
	s.dispatchSMS(ctx, user, notification)
}

func (s *notificationService) dispatchPush(ctx context.Context, user *models.User, notification *models.Notification) {
	if s.pushProvider == nil || user.PushToken == "" {
		return
	}

	data := map[string]string{
		"type": string(notification.Type),
	}
	if notification.TripID != nil {
		data["trip_id"] = notification.TripID.Hex()
	}

	_, err := s.pushProvider.SendNotification(ctx, &push.NotificationRequest{
		Token: user.PushToken,
		Title: notification.Title,
		Body:  notification.Message,
		Data:  data,
	})
	if err != nil {
		observability.PushDeliveriesTotal.WithLabelValues(s.pushProviderName, "failed").Inc()
		s.logger.WithError(err).WithUserID(notification.UserID).Warn("Push delivery failed")
		return
	}

	observability.PushDeliveriesTotal.WithLabelValues(s.pushProviderName, "sent").Inc()
}

func (s *notificationService) dispatchSMS(ctx context.Context, user *models.User, notification *models.Notification) {
	if s.smsProvider == nil || !user.SMSOptIn || user.Phone == "" {
		return
	}

	err := s.SendSMS(ctx, user.Phone, notification.Title+": "+notification.Message)
	if err != nil {
		observability.SMSDeliveriesTotal.WithLabelValues("failed").Inc()
		s.logger.WithError(err).WithUserID(notification.UserID).Warn("SMS delivery failed")
		return
	}

	observability.SMSDeliveriesTotal.WithLabelValues("sent").Inc()
}

func (s *notificationService) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, includeRead bool, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	return s.notificationRepo.GetByUserID(ctx, userID, includeRead, params)
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notificationRepo.GetUnreadCount(ctx, userID)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.notificationRepo.MarkAsRead(ctx, id, userID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.notificationRepo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) SendSMS(ctx context.Context, phone, message string) error {
	if s.smsProvider == nil {
		return nil
	}

	phone = utils.NormalizePhone(phone)
	if !utils.IsValidPhone(phone) {
		return fmt.Errorf("invalid phone number %s", utils.MaskPhone(phone))
	}

	_, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{
		To:      phone,
		Message: message,
	})
	return err
}
