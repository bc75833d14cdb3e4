package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ChannelBus is an in-process bus backed by a watermill go channel. It is
// used when no NATS server is configured. Subjects match exactly.
type ChannelBus struct {
	pubSub *gochannel.GoChannel
	ctx    context.Context
	onErr  func(subject string, err error)
}

func NewChannelBus(ctx context.Context, onErr func(subject string, err error)) *ChannelBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NopLogger{},
	)
	if onErr == nil {
		onErr = func(string, error) {}
	}
	return &ChannelBus{pubSub: pubSub, ctx: ctx, onErr: onErr}
}

func (b *ChannelBus) Publish(_ context.Context, event Event) error {
	payload, err := Marshal(event)
	if err != nil {
		return err
	}

	subject := SubjectFor(event.EventType())
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(subject, msg); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe consumes subject until the bus context ends. Handler errors are
// reported and the message is acked so one bad event cannot block the topic.
func (b *ChannelBus) Subscribe(subject string, _ string, handler EventHandler) error {
	messages, err := b.pubSub.Subscribe(b.ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	go func() {
		for msg := range messages {
			event, err := Unmarshal(msg.Payload)
			if err != nil {
				b.onErr(subject, err)
				msg.Ack()
				continue
			}
			if err := handler(msg.Context(), event); err != nil {
				b.onErr(subject, err)
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *ChannelBus) Close() error {
	return b.pubSub.Close()
}
