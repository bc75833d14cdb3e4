package chatevents

import (
	"context"
	"time"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"
	pkgEvents "campus-chat-be/pkg/events"
)

const (
	RoomCreated      = "ROOM_CREATED"
	RoomDeleted      = "ROOM_DELETED"
	ParticipantAdded = "PARTICIPANT_ADDED"
	MessageSent      = "CHAT_MESSAGE_SENT"
)

// BusPublisher announces chat domain events on the event bus. Publishing is
// best effort: failures are logged and never reach the caller.
type BusPublisher struct {
	publisher pkgEvents.Publisher
	logger    logger.ILogger
	now       func() time.Time
}

// NewBusPublisher creates a publisher. A nil bus publisher makes every call a no-op.
func NewBusPublisher(publisher pkgEvents.Publisher, logger logger.ILogger) *BusPublisher {
	return &BusPublisher{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *BusPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.publisher == nil {
		return
	}

	now := p.now().UTC()
	data["occurred_at"] = now
	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: now,
	}

	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("ChatEvents", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

// PublishRoomCreated emits ROOM_CREATED
func (p *BusPublisher) PublishRoomCreated(ctx context.Context, room *entity.Room) {
	p.publish(ctx, RoomCreated, map[string]interface{}{
		"room_id":     room.RoomId,
		"room_name":   room.RoomName,
		"entity_type": "room",
		"entity_id":   room.RoomId,
	})
}

// PublishRoomDeleted emits ROOM_DELETED
func (p *BusPublisher) PublishRoomDeleted(ctx context.Context, roomId string) {
	p.publish(ctx, RoomDeleted, map[string]interface{}{
		"room_id":     roomId,
		"entity_type": "room",
		"entity_id":   roomId,
	})
}

// PublishParticipantAdded emits PARTICIPANT_ADDED
func (p *BusPublisher) PublishParticipantAdded(ctx context.Context, room *entity.Room, participant entity.Participant) {
	p.publish(ctx, ParticipantAdded, map[string]interface{}{
		"room_id":     room.RoomId,
		"room_name":   room.RoomName,
		"user_id":     participant.UserId,
		"name":        participant.Name,
		"entity_type": "room",
		"entity_id":   room.RoomId,
	})
}

// PublishMessageSent emits CHAT_MESSAGE_SENT. Only metadata travels on the
// bus; the message body stays in the database.
func (p *BusPublisher) PublishMessageSent(ctx context.Context, msg *entity.RoomMessage) {
	p.publish(ctx, MessageSent, map[string]interface{}{
		"room_id":     msg.RoomId,
		"user_id":     msg.UserId,
		"sender":      msg.Sender,
		"type":        msg.Type,
		"sent_at":     msg.Timestamp,
		"entity_type": "room_message",
		"entity_id":   msg.RoomId,
	})
}
