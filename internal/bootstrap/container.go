package bootstrap

import (
	"context"
	"time"

	"campus-chat-be/internal/chat"
	"campus-chat-be/internal/config"
	"campus-chat-be/internal/controller"
	"campus-chat-be/internal/handler"
	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/internal/pkg/mailer"
	"campus-chat-be/internal/pkg/ratelimit"
	"campus-chat-be/internal/repository/unitofwork"
	"campus-chat-be/internal/service"
	"campus-chat-be/internal/websocket"
	"campus-chat-be/pkg/attachment"
	"campus-chat-be/pkg/chatevents"
	"campus-chat-be/pkg/events"
	pktNats "campus-chat-be/pkg/nats"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RoomController       controller.IRoomController
	AttachmentController controller.IAttachmentController // nil without an attachment store

	// WebSockets
	ChatHandler  *handler.ChatHandler
	WebSocketHub *websocket.Hub
	Protocol     *chat.Protocol

	Logger logger.ILogger

	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	chatLogger := logger.NewIsolatedLogger(cfg.App.ChatLogFilePath)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus & Attachment Store
	var (
		publisher   events.Publisher
		subscriber  events.Subscriber
		attachments *attachment.Service
	)

	nc := connectNats(cfg, sysLogger)
	if nc != nil {
		c.closers = append(c.closers, nc.Close)

		if natsPub, err := pktNats.NewPublisher(nc, sysLogger); err != nil {
			sysLogger.Warn("Bootstrap", "NATS publisher unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = natsPub
		}

		if natsSub, err := pktNats.NewSubscriber(ctx, nc, sysLogger); err != nil {
			sysLogger.Warn("Bootstrap", "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			subscriber = natsSub
			c.closers = append(c.closers, natsSub.Stop)
		}

		attachments = newAttachmentService(ctx, nc, cfg, sysLogger)
	}

	if publisher == nil || subscriber == nil {
		bus := events.NewChannelBus(ctx, func(subject string, err error) {
			sysLogger.Error("EventBus", "Event handler failed", map[string]interface{}{"subject": subject, "error": err.Error()})
		})
		c.closers = append(c.closers, func() { bus.Close() })
		publisher, subscriber = bus, bus
		sysLogger.Info("Bootstrap", "Using in-process event bus", nil)
	}

	// 3. Chat Core
	wsHub := websocket.NewHub(chatLogger)
	go wsHub.Run(ctx)

	deps := chat.Dependencies{
		Factory:     uowFactory,
		Broadcaster: wsHub,
		Events:      chatevents.NewBusPublisher(publisher, sysLogger),
		Sessions:    chat.NewSessions(cfg.Chat.SessionTTL),
		Logger:      chatLogger,
	}
	if attachments != nil {
		deps.Attachments = attachments
	}
	if limiter := newSendLimiter(ctx, cfg, sysLogger, c); limiter != nil {
		deps.Limiter = limiter
	}

	protocol := chat.NewProtocol(ctx, deps, chat.Options{
		BacklogSize:     cfg.Chat.BacklogSize,
		DefaultFolder:   cfg.Chat.DefaultFolder,
		StrictSend:      cfg.Chat.StrictSend,
		RoomIdleTimeout: cfg.Chat.RoomIdleTimeout,
	})
	c.closers = append(c.closers, protocol.Shutdown)

	// 4. Notifications
	if cfg.SMTP.Host != "" {
		emailService := mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.SenderName,
			cfg.App.BaseURL,
		)
		notifService := service.NewNotificationService(uowFactory, subscriber, emailService, sysLogger)
		if err := notifService.Start(); err != nil {
			sysLogger.Warn("Bootstrap", "Room invitation emails disabled", map[string]interface{}{"error": err.Error()})
		}
	} else {
		sysLogger.Info("Bootstrap", "SMTP not configured, room invitation emails disabled", nil)
	}

	// 5. Controllers & Handlers
	roomService := service.NewRoomService(protocol, sysLogger)
	c.RoomController = controller.NewRoomController(roomService)
	if attachments != nil {
		c.AttachmentController = controller.NewAttachmentController(attachments)
	}
	c.ChatHandler = handler.NewChatHandler(wsHub, protocol, int64(cfg.Chat.MaxFrameBytes), chatLogger)
	c.WebSocketHub = wsHub
	c.Protocol = protocol

	return c
}

// Close releases background resources in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.Logger.Sync()
}

func connectNats(cfg *config.Config, log logger.ILogger) *nats.Conn {
	if cfg.App.NatsURL == "" {
		log.Info("Bootstrap", "NATS_URL not set, attachments disabled", nil)
		return nil
	}
	nc, err := pktNats.Connect(cfg.App.NatsURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to connect to NATS", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return nc
}

func newAttachmentService(ctx context.Context, nc *nats.Conn, cfg *config.Config, log logger.ILogger) *attachment.Service {
	js, err := jetstream.New(nc)
	if err != nil {
		log.Warn("Bootstrap", "JetStream unavailable, attachments disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	blob, err := attachment.NewJetStreamBlob(initCtx, js, cfg.Chat.AttachmentBucket)
	if err != nil {
		log.Warn("Attachments", "Object store unavailable, attachments disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return attachment.NewService(blob, cfg.App.BaseURL)
}

func newSendLimiter(ctx context.Context, cfg *config.Config, log logger.ILogger, c *Container) *ratelimit.Limiter {
	if cfg.Chat.SendRateLimit <= 0 || cfg.App.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Bootstrap", "Redis unreachable, send rate limit disabled", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}

	c.closers = append(c.closers, func() { rdb.Close() })
	return ratelimit.NewLimiter(rdb, "ratelimit:", cfg.Chat.SendRateLimit, cfg.Chat.SendRateWindow)
}
