package nats

import (
	"context"
	"fmt"

	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	ctx      context.Context
	js       jetstream.JetStream
	logger   logger.ILogger
	consumed []jetstream.ConsumeContext
}

// NewSubscriber creates a subscriber on an existing connection. Consumers
// stop when ctx is cancelled or Stop is called.
func NewSubscriber(ctx context.Context, nc *nats.Conn, log logger.ILogger) (*Subscriber, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &Subscriber{ctx: ctx, js: js, logger: log}, nil
}

// Subscribe registers a handler for a subject pattern on a durable consumer.
// Malformed events are terminated, handler failures are redelivered.
func (s *Subscriber) Subscribe(subject string, durableName string, handler events.EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(s.ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := events.Unmarshal(msg.Data())
		if err != nil {
			s.logger.Error("NatsSubscriber", "Dropping malformed event", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			msg.Term()
			return
		}

		if err := handler(s.ctx, event); err != nil {
			s.logger.Warn("NatsSubscriber", "Handler failed, event will be redelivered", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			msg.Nak()
			return
		}

		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.consumed = append(s.consumed, cc)

	s.logger.Info("NatsSubscriber", "Subscribed", map[string]interface{}{
		"subject": subject,
		"durable": durableName,
	})
	return nil
}

// Stop ends every consumer started by Subscribe.
func (s *Subscriber) Stop() {
	for _, cc := range s.consumed {
		cc.Stop()
	}
	s.consumed = nil
}
