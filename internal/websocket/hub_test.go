package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"campus-chat-be/internal/chat"
	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, id string) *Client {
	return newClient(hub, nil, id)
}

func readFrame(t *testing.T, c *Client) chat.Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var env chat.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
	}
	return chat.Envelope{}
}

func TestHubBroadcastReachesRoomOnly(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	a := newTestClient(hub, "a")
	b := newTestClient(hub, "b")
	other := newTestClient(hub, "other")

	hub.Subscribe("r1", a)
	hub.Subscribe("r1", b)
	hub.Subscribe("r2", other)

	hub.Broadcast("r1", chat.KindUpdateParticipants, []entity.Participant{{UserId: "u1", Name: "A"}})

	for _, c := range []*Client{a, b} {
		env := readFrame(t, c)
		assert.Equal(t, "updateParticipants", env.Event)
		assert.JSONEq(t, `[{"userId":"u1","name":"A"}]`, string(env.Data))
	}
	assert.Empty(t, other.Send)
}

func TestHubUnsubscribeAll(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	a := newTestClient(hub, "a")
	hub.Subscribe("r1", a)
	hub.Subscribe("r2", a)

	rooms := hub.UnsubscribeAll(a)

	assert.ElementsMatch(t, []string{"r1", "r2"}, rooms)
	assert.Zero(t, hub.RoomSize("r1"))
	assert.Zero(t, hub.RoomSize("r2"))
}

func TestHubCloseRoom(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	a := newTestClient(hub, "a")
	hub.Subscribe("r1", a)

	hub.CloseRoom("r1")
	hub.Broadcast("r1", chat.KindReceiveMessage, map[string]string{"message": "x"})

	assert.Empty(t, a.Send)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	slow := newTestClient(hub, "slow")
	hub.Subscribe("r1", slow)

	for i := 0; i < sendBuffer+1; i++ {
		hub.Broadcast("r1", chat.KindReceiveMessage, map[string]int{"n": i})
	}

	assert.Zero(t, hub.RoomSize("r1"))
	assert.ErrorIs(t, slow.Emit(chat.KindReceiveMessage, nil), errClientClosed)
}

func TestHubRunRegistersAndUnregisters(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := newTestClient(hub, "c")
	hub.register <- c
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Subscribe("r1", c)
	hub.unregister <- c
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.RoomSize("r1"))

	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestClientEmit(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	c := newTestClient(hub, "c")

	require.NoError(t, c.Emit(chat.KindRoomJoinError, chat.ErrorPayload{Message: "Room does not exist", Reason: chat.ReasonNotFound}))

	env := readFrame(t, c)
	assert.Equal(t, "roomJoinError", env.Event)
	assert.JSONEq(t, `{"message":"Room does not exist","reason":"not_found"}`, string(env.Data))

	c.close()
	assert.ErrorIs(t, c.Emit(chat.KindRoomJoinError, nil), errClientClosed)
}

func TestHubStoppedRejectsRegistration(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	c := newTestClient(hub, "late")
	assert.False(t, hub.registerClient(c))

	hub.unregisterClient(c)
	_, ok := <-c.Send
	assert.False(t, ok)
}
