package service

import (
	"context"
	"fmt"

	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/internal/pkg/mailer"
	"campus-chat-be/internal/repository/specification"
	"campus-chat-be/internal/repository/unitofwork"
	"campus-chat-be/pkg/chatevents"
	"campus-chat-be/pkg/events"
)

const notificationDurable = "chat-notification-worker"

// NotificationService emails users when they are added to a room.
type NotificationService struct {
	factory    unitofwork.RepositoryFactory
	subscriber events.Subscriber
	mailer     mailer.IEmailService
	logger     logger.ILogger
}

func NewNotificationService(factory unitofwork.RepositoryFactory, sub events.Subscriber, mail mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		factory:    factory,
		subscriber: sub,
		mailer:     mail,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() error {
	subject := events.SubjectFor(chatevents.ParticipantAdded)
	if err := s.subscriber.Subscribe(subject, notificationDurable, s.handleEvent); err != nil {
		s.logger.Error("Notifications", "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("Notifications", "Notification service started", map[string]interface{}{"subject": subject})
	return nil
}

// handleEvent never returns delivery errors: a failed email is logged and the
// event is acknowledged.
func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	if event.EventType() != chatevents.ParticipantAdded {
		return nil
	}

	payload := event.Payload()
	userId, _ := payload["user_id"].(string)
	roomName, _ := payload["room_name"].(string)
	if userId == "" {
		s.logger.Warn("Notifications", "PARTICIPANT_ADDED without user_id", nil)
		return nil
	}

	uow := s.factory.NewUnitOfWork(ctx)
	user, err := uow.ChatUserRepository().FindOne(ctx, specification.ByUserID{UserID: userId})
	if err != nil {
		// Storage errors are worth a redelivery.
		return fmt.Errorf("failed to load user %s: %w", userId, err)
	}
	if user == nil || user.Email == "" {
		s.logger.Debug("Notifications", "User has no email, skipping invitation", map[string]interface{}{"user_id": userId})
		return nil
	}

	if err := s.mailer.SendRoomInvitation(user.Email, user.Name, roomName); err != nil {
		s.logger.Error("Notifications", "Failed to send room invitation", map[string]interface{}{
			"user_id": userId,
			"room":    roomName,
			"error":   err.Error(),
		})
		return nil
	}

	s.logger.Info("Notifications", "Room invitation sent", map[string]interface{}{
		"user_id": userId,
		"room":    roomName,
	})
	return nil
}
