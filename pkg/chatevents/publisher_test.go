package chatevents

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"
	pkgEvents "campus-chat-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBus struct {
	mock.Mock
}

func (m *mockBus) Publish(ctx context.Context, event pkgEvents.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestBusPublisher_ParticipantAdded(t *testing.T) {
	bus := new(mockBus)
	var captured pkgEvents.Event
	bus.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(pkgEvents.Event) }).
		Return(nil)

	p := NewBusPublisher(bus, logger.NewNopLogger())
	fixed := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.PublishParticipantAdded(context.Background(),
		&entity.Room{RoomId: "room-algebra-1", RoomName: "Algebra"},
		entity.Participant{UserId: "u1", Name: "Ana"})

	require.NotNil(t, captured)
	assert.Equal(t, ParticipantAdded, captured.EventType())
	assert.Equal(t, "u1", captured.Payload()["user_id"])
	assert.Equal(t, "Algebra", captured.Payload()["room_name"])
	assert.Equal(t, fixed, captured.Timestamp())
	bus.AssertExpectations(t)
}

func TestBusPublisher_SwallowsFailures(t *testing.T) {
	bus := new(mockBus)
	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	p := NewBusPublisher(bus, logger.NewNopLogger())
	assert.NotPanics(t, func() {
		p.PublishRoomDeleted(context.Background(), "room-x-1")
		p.PublishMessageSent(context.Background(), &entity.RoomMessage{RoomId: "room-x-1", UserId: "u1"})
	})
	bus.AssertNumberOfCalls(t, "Publish", 2)
}

func TestBusPublisher_NilBus(t *testing.T) {
	p := NewBusPublisher(nil, logger.NewNopLogger())
	assert.NotPanics(t, func() {
		p.PublishRoomCreated(context.Background(), &entity.Room{RoomId: "r"})
	})
}
