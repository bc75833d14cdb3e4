package chat

import "context"

// Conn is one live transport connection.
type Conn interface {
	ID() string
	Emit(kind EventKind, payload interface{}) error
}

// Broadcaster owns the per-room broadcast groups. Broadcast is fire-and-forget.
type Broadcaster interface {
	Subscribe(roomId string, conn Conn)
	// UnsubscribeAll removes conn from every group and returns the rooms it was in.
	UnsubscribeAll(conn Conn) []string
	// CloseRoom drops the whole group.
	CloseRoom(roomId string)
	Broadcast(roomId string, kind EventKind, payload interface{})
}

// SendLimiter decides whether a user may send another message now.
type SendLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
