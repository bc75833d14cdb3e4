package chat

import (
	"context"
	"sync"
	"testing"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/internal/repository/unitofwork"
	"campus-chat-be/pkg/database"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type emitted struct {
	Kind    EventKind
	Payload interface{}
}

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []emitted
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(kind EventKind, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{Kind: kind, Payload: payload})
	return nil
}

func (c *fakeConn) Of(kind EventKind) []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []interface{}
	for _, e := range c.events {
		if e.Kind == kind {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (c *fakeConn) Kinds() []EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventKind, len(c.events))
	for i, e := range c.events {
		out[i] = e.Kind
	}
	return out
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	groups map[string]map[string]Conn
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{groups: make(map[string]map[string]Conn)}
}

func (b *fakeBroadcaster) Subscribe(roomId string, conn Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.groups[roomId] == nil {
		b.groups[roomId] = make(map[string]Conn)
	}
	b.groups[roomId][conn.ID()] = conn
}

func (b *fakeBroadcaster) UnsubscribeAll(conn Conn) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rooms []string
	for roomId, group := range b.groups {
		if _, ok := group[conn.ID()]; ok {
			delete(group, conn.ID())
			rooms = append(rooms, roomId)
		}
	}
	return rooms
}

func (b *fakeBroadcaster) GroupSize(roomId string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.groups[roomId])
}

func (b *fakeBroadcaster) CloseRoom(roomId string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.groups, roomId)
}

func (b *fakeBroadcaster) Broadcast(roomId string, kind EventKind, payload interface{}) {
	b.mu.Lock()
	conns := make([]Conn, 0, len(b.groups[roomId]))
	for _, c := range b.groups[roomId] {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.Emit(kind, payload)
	}
}

type mockAttachments struct {
	mock.Mock
}

func (m *mockAttachments) Upload(ctx context.Context, folder, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, folder, fileName, data)
	return args.String(0), args.Error(1)
}

func (m *mockAttachments) ResolveLinks(ctx context.Context, fileId string) (entity.FileLinks, error) {
	args := m.Called(ctx, fileId)
	return args.Get(0).(entity.FileLinks), args.Error(1)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) ProfilePicture(ctx context.Context, userId string) (*string, error) {
	args := m.Called(ctx, userId)
	pic, _ := args.Get(0).(*string)
	return pic, args.Error(1)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingPublisher) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingPublisher) PublishRoomCreated(context.Context, *entity.Room) {
	r.record("ROOM_CREATED")
}

func (r *recordingPublisher) PublishRoomDeleted(context.Context, string) {
	r.record("ROOM_DELETED")
}

func (r *recordingPublisher) PublishParticipantAdded(context.Context, *entity.Room, entity.Participant) {
	r.record("PARTICIPANT_ADDED")
}

func (r *recordingPublisher) PublishMessageSent(context.Context, *entity.RoomMessage) {
	r.record("CHAT_MESSAGE_SENT")
}

type fixture struct {
	protocol    *Protocol
	db          *gorm.DB
	factory     unitofwork.RepositoryFactory
	broadcaster *fakeBroadcaster
	attachments *mockAttachments
	profiles    *mockProfiles
	events      *recordingPublisher
}

type fixtureOption func(*Dependencies, *Options)

func withStrictSend() fixtureOption {
	return func(_ *Dependencies, o *Options) { o.StrictSend = true }
}

func withLimiter(l SendLimiter) fixtureOption {
	return func(d *Dependencies, _ *Options) { d.Limiter = l }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	db := database.NewTestDB(t)
	f := &fixture{
		db:          db,
		factory:     unitofwork.NewRepositoryFactory(db),
		broadcaster: newFakeBroadcaster(),
		attachments: &mockAttachments{},
		profiles:    &mockProfiles{},
		events:      &recordingPublisher{},
	}

	deps := Dependencies{
		Factory:     f.factory,
		Broadcaster: f.broadcaster,
		Attachments: f.attachments,
		Profiles:    f.profiles,
		Events:      f.events,
		Logger:      logger.NewNopLogger(),
	}
	options := Options{BacklogSize: 50, DefaultFolder: "chat"}
	for _, opt := range opts {
		opt(&deps, &options)
	}

	f.protocol = NewProtocol(context.Background(), deps, options)
	t.Cleanup(f.protocol.Shutdown)
	return f
}

func (f *fixture) connect(id string) *fakeConn {
	conn := newFakeConn(id)
	f.protocol.Connect(conn)
	return conn
}

func (f *fixture) send(t *testing.T, conn *fakeConn, kind EventKind, payload interface{}) {
	t.Helper()
	frame, err := EncodeFrame(kind, payload)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	f.protocol.Dispatch(context.Background(), conn, frame)
}

func (f *fixture) noPictures() {
	f.profiles.On("ProfilePicture", mock.Anything, mock.Anything).Return(nil, nil)
}
