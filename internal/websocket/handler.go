package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs runs one websocket session until the peer goes away.
func ServeWs(hub *Hub, dispatcher Dispatcher, c *websocket.Conn, maxFrameBytes int64) {
	client := newClient(hub, c, uuid.NewString())
	if !hub.registerClient(client) {
		c.Close()
		return
	}
	dispatcher.Connect(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		dispatcher.Disconnect(client)
		hub.unregisterClient(client)
	}()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump(ctx, dispatcher, maxFrameBytes) // Run readPump in current goroutine (handler)
}
