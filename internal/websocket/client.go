package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"campus-chat-be/internal/chat"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var errClientClosed = errors.New("client closed")

// Dispatcher receives the lifecycle and inbound frames of a connection.
type Dispatcher interface {
	Connect(conn chat.Conn)
	Dispatch(ctx context.Context, conn chat.Conn, frame []byte)
	Disconnect(conn chat.Conn)
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Transport-local connection id.
	id string

	// Buffered channel of outbound frames.
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, id string) *Client {
	return &Client{
		Hub:  hub,
		Conn: conn,
		id:   id,
		Send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Emit queues one event for this connection only.
func (c *Client) Emit(kind chat.EventKind, payload interface{}) error {
	frame, err := chat.EncodeFrame(kind, payload)
	if err != nil {
		return err
	}
	if !c.enqueue(frame) {
		return errClientClosed
	}
	return nil
}

// enqueue never blocks. A full buffer means the peer is too slow and the
// client gets dropped.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		c.closeLocked()
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// readPump pumps frames from the websocket connection to the dispatcher.
func (c *Client) readPump(ctx context.Context, dispatcher Dispatcher, maxFrameBytes int64) {
	defer func() {
		c.Hub.logger.Debug("Hub", "readPump exiting", map[string]interface{}{"conn_id": c.id})
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxFrameBytes)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.Hub.logger.Warn("Hub", "Unexpected close", map[string]interface{}{
					"conn_id": c.id,
					"error":   err.Error(),
				})
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		dispatcher.Dispatch(ctx, c, frame)
	}
}

// writePump pumps frames from the Send channel to the websocket connection.
// Each frame is written as its own websocket message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Hub.logger.Warn("Hub", "Write failed", map[string]interface{}{
					"conn_id": c.id,
					"error":   err.Error(),
				})
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
