package handler

import (
	"time"

	"campus-chat-be/internal/pkg/logger"
	internalWS "campus-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ChatHandler struct {
	hub           *internalWS.Hub
	dispatcher    internalWS.Dispatcher
	maxFrameBytes int64
	logger        logger.ILogger
}

func NewChatHandler(hub *internalWS.Hub, dispatcher internalWS.Dispatcher, maxFrameBytes int64, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		hub:           hub,
		dispatcher:    dispatcher,
		maxFrameBytes: maxFrameBytes,
		logger:        log,
	}
}

func (h *ChatHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

// ServeWs upgrades the request and runs the chat session on it. Identity is
// claimed by the client through the identify event.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	remote := c.IP()
	return websocket.New(func(conn *websocket.Conn) {
		started := time.Now()
		h.logger.Info("ChatHandler", "Starting WebSocket session", map[string]interface{}{"remote": remote})
		internalWS.ServeWs(h.hub, h.dispatcher, conn, h.maxFrameBytes)
		h.logger.Info("ChatHandler", "WebSocket session ended", map[string]interface{}{
			"remote":   remote,
			"duration": time.Since(started).String(),
		})
	}, websocket.Config{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	})(c)
}
