package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/internal/repository/unitofwork"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const unknownSender = "Unknown"

// State is the lifecycle position of one transport connection.
type State int

const (
	StateConnected State = iota
	StateJoining
	StateJoined
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateJoining:
		return "JOINING"
	case StateJoined:
		return "JOINED"
	case StateDisconnected:
		return "DISCONNECTED"
	}
	return "UNKNOWN"
}

// EventPublisher announces domain events. Implementations must not block
// and must swallow their own failures.
type EventPublisher interface {
	PublishRoomCreated(ctx context.Context, room *entity.Room)
	PublishRoomDeleted(ctx context.Context, roomId string)
	PublishParticipantAdded(ctx context.Context, room *entity.Room, participant entity.Participant)
	PublishMessageSent(ctx context.Context, msg *entity.RoomMessage)
}

type Options struct {
	BacklogSize   int
	DefaultFolder string
	// StrictSend reports dropped sends back to the sender instead of
	// silently discarding them.
	StrictSend bool
	// RoomIdleTimeout retires a room's worker after this long without work.
	RoomIdleTimeout time.Duration
}

type Dependencies struct {
	Factory     unitofwork.RepositoryFactory
	Broadcaster Broadcaster
	Attachments AttachmentStore
	Profiles    ProfileLookup
	Limiter     SendLimiter
	Events      EventPublisher
	Sessions    *Sessions
	Logger      logger.ILogger
}

// connState is owned by the connection's read loop. state is also read by
// StateOf and is guarded by Protocol.mu.
type connState struct {
	conn   Conn
	state  State
	userId string
	rooms  map[string]struct{}
}

type handlerFunc func(ctx context.Context, cs *connState, data json.RawMessage)

// Protocol owns all in-memory room state and drives the per-connection
// lifecycle: connect, identify, join, send and disconnect.
type Protocol struct {
	factory     unitofwork.RepositoryFactory
	directory   *Directory
	members     *Membership
	sessions    *Sessions
	enricher    *Enricher
	sequencer   *Sequencer
	broadcaster Broadcaster
	attachments AttachmentStore
	limiter     SendLimiter
	events      EventPublisher
	logger      logger.ILogger
	tracer      trace.Tracer
	validate    *validator.Validate
	opts        Options
	now         func() time.Time

	handlers map[EventKind]handlerFunc

	mu    sync.Mutex
	conns map[string]*connState
}

func NewProtocol(ctx context.Context, deps Dependencies, opts Options) *Protocol {
	if opts.BacklogSize <= 0 {
		opts.BacklogSize = 50
	}
	if opts.DefaultFolder == "" {
		opts.DefaultFolder = "chat"
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Events == nil {
		deps.Events = nopPublisher{}
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessions(0)
	}
	if deps.Profiles == nil {
		deps.Profiles = NewStoredProfiles(deps.Factory)
	}

	p := &Protocol{
		factory:     deps.Factory,
		directory:   NewDirectory(deps.Factory, deps.Logger),
		members:     NewMembership(),
		sessions:    deps.Sessions,
		enricher:    NewEnricher(deps.Profiles, deps.Attachments, deps.Logger),
		sequencer:   NewSequencer(ctx, deps.Logger),
		broadcaster: deps.Broadcaster,
		attachments: deps.Attachments,
		limiter:     deps.Limiter,
		events:      deps.Events,
		logger:      deps.Logger,
		tracer:      otel.Tracer("campus-chat-be/chat"),
		validate:    validator.New(),
		opts:        opts,
		now:         time.Now,
		conns:       make(map[string]*connState),
	}

	if opts.RoomIdleTimeout > 0 {
		p.sequencer.idleTimeout = opts.RoomIdleTimeout
	}

	p.handlers = map[EventKind]handlerFunc{
		KindIdentify:    p.handleIdentify,
		KindCreateRoom:  p.handleCreateRoom,
		KindJoinRoom:    p.handleJoinRoom,
		KindSendMessage: p.handleSendMessage,
	}
	return p
}

func (p *Protocol) Directory() *Directory   { return p.directory }
func (p *Protocol) Membership() *Membership { return p.members }
func (p *Protocol) Sessions() *Sessions     { return p.sessions }

// ActiveRooms counts rooms with a running worker.
func (p *Protocol) ActiveRooms() int { return p.sequencer.Active() }

// Connect registers a freshly opened transport connection.
func (p *Protocol) Connect(conn Conn) {
	p.mu.Lock()
	p.conns[conn.ID()] = &connState{
		conn:  conn,
		state: StateConnected,
		rooms: make(map[string]struct{}),
	}
	p.mu.Unlock()

	p.logger.Debug("ChatProtocol", "Connection opened", map[string]interface{}{"conn_id": conn.ID()})
}

// StateOf reports the lifecycle state of a connection.
func (p *Protocol) StateOf(connId string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cs, ok := p.conns[connId]; ok {
		return cs.state
	}
	return StateDisconnected
}

func (p *Protocol) setState(cs *connState, state State) {
	p.mu.Lock()
	cs.state = state
	p.mu.Unlock()
}

// Dispatch decodes one inbound frame and runs its handler. Errors and panics
// are contained here so they never reach the transport loop.
func (p *Protocol) Dispatch(ctx context.Context, conn Conn, frame []byte) {
	kind, data, err := DecodeFrame(frame)
	if err != nil {
		p.logProtocolError(conn, err)
		return
	}
	p.Handle(ctx, conn, kind, data)
}

func (p *Protocol) Handle(ctx context.Context, conn Conn, kind EventKind, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ChatProtocol", "Handler panicked", map[string]interface{}{
				"conn_id": conn.ID(),
				"event":   kind.String(),
				"panic":   fmt.Sprint(r),
			})
		}
	}()

	handler, ok := p.handlers[kind]
	if !ok {
		p.logProtocolError(conn, fmt.Errorf("%w: %s is not a client event", ErrProtocol, kind))
		return
	}

	p.mu.Lock()
	cs, ok := p.conns[conn.ID()]
	p.mu.Unlock()
	if !ok {
		p.logProtocolError(conn, fmt.Errorf("%w: connection is not registered", ErrProtocol))
		return
	}

	handler(ctx, cs, data)
}

// Disconnect tears down everything the connection held: broadcast
// subscriptions, membership entries kept alive only by it and its session.
// Rooms whose membership changed get a fresh updateParticipants.
func (p *Protocol) Disconnect(conn Conn) {
	p.mu.Lock()
	cs, ok := p.conns[conn.ID()]
	delete(p.conns, conn.ID())
	p.mu.Unlock()

	if p.broadcaster != nil {
		p.broadcaster.UnsubscribeAll(conn)
	}

	left := p.members.ReleaseConn(conn.ID())
	for _, roomId := range left {
		p.announceParticipants(context.Background(), roomId)
	}

	if ok {
		p.setState(cs, StateDisconnected)
		if cs.userId != "" {
			p.sessions.Forget(cs.userId, conn)
		}
	}

	p.logger.Debug("ChatProtocol", "Connection closed", map[string]interface{}{
		"conn_id":    conn.ID(),
		"rooms_left": left,
	})
}

// Shutdown stops all room workers.
func (p *Protocol) Shutdown() {
	p.sequencer.Shutdown()
}

func (p *Protocol) announceParticipants(ctx context.Context, roomId string) {
	err := p.sequencer.Do(ctx, roomId, func(ctx context.Context, _ *RoomState) error {
		p.broadcast(roomId, KindUpdateParticipants, p.members.List(roomId))
		return nil
	})
	if err != nil {
		p.logger.Warn("ChatProtocol", "Participant update not delivered", map[string]interface{}{
			"room_id": roomId,
			"error":   err.Error(),
		})
	}
}

func (p *Protocol) broadcast(roomId string, kind EventKind, payload interface{}) {
	if p.broadcaster == nil {
		return
	}
	p.broadcaster.Broadcast(roomId, kind, payload)
}

func (p *Protocol) emit(conn Conn, kind EventKind, payload interface{}) {
	if err := conn.Emit(kind, payload); err != nil {
		p.logger.Warn("ChatProtocol", "Emit failed", map[string]interface{}{
			"conn_id": conn.ID(),
			"event":   kind.String(),
			"error":   err.Error(),
		})
	}
}

func (p *Protocol) logProtocolError(conn Conn, err error) {
	p.logger.Warn("ChatProtocol", "Dropped malformed event", map[string]interface{}{
		"conn_id": conn.ID(),
		"error":   err.Error(),
	})
}

type nopPublisher struct{}

func (nopPublisher) PublishRoomCreated(context.Context, *entity.Room)                          {}
func (nopPublisher) PublishRoomDeleted(context.Context, string)                                {}
func (nopPublisher) PublishParticipantAdded(context.Context, *entity.Room, entity.Participant) {}
func (nopPublisher) PublishMessageSent(context.Context, *entity.RoomMessage)                   {}
