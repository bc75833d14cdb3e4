package chat

import (
	"context"
	"testing"
	"time"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/internal/repository/unitofwork"
	"campus-chat-be/pkg/database"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T) (*Directory, unitofwork.RepositoryFactory) {
	t.Helper()
	factory := unitofwork.NewRepositoryFactory(database.NewTestDB(t))
	return NewDirectory(factory, logger.NewNopLogger()), factory
}

func TestRoomIDFor(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		roomName string
		want     string
	}{
		{"plain", "general", "room-general-1700000000123"},
		{"spaces and case", "CS 101 Section A", "room-cs101sectiona-1700000000123"},
		{"tabs", "Lab\tGroup", "room-labgroup-1700000000123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomIDFor(tt.roomName, at))
		})
	}
}

func TestResolveOrCreateIsIdempotent(t *testing.T) {
	dir, factory := newTestDirectory(t)
	ctx := context.Background()

	first, created, err := dir.ResolveOrCreate(ctx, "CS101-A")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, first.Participants)
	assert.Nil(t, first.LatestMessage)

	uow := factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.RoomRepository().UpdateParticipants(ctx, first.RoomId, []entity.Participant{{UserId: "s1", Name: "Asha"}}))
	require.NoError(t, uow.RoomRepository().UpdateLatestMessage(ctx, first.RoomId, entity.LatestMessage{
		Sender: "Asha", Message: "hello", Timestamp: time.Now().UTC(),
	}))

	second, created, err := dir.ResolveOrCreate(ctx, "CS101-A")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.RoomId, second.RoomId)
	assert.Equal(t, []entity.Participant{{UserId: "s1", Name: "Asha"}}, second.Participants)
	require.NotNil(t, second.LatestMessage)
	assert.Equal(t, "hello", second.LatestMessage.Message)

	count, err := uow.RoomRepository().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestResolveOrCreateRejectsBlankName(t *testing.T) {
	dir, _ := newTestDirectory(t)

	_, _, err := dir.ResolveOrCreate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecreatedRoomGetsNewID(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	dir.now = func() time.Time { return time.UnixMilli(1000) }
	first, _, err := dir.ResolveOrCreate(ctx, "seminar")
	require.NoError(t, err)
	require.NoError(t, dir.Delete(ctx, first.RoomId))

	dir.now = func() time.Time { return time.UnixMilli(2000) }
	second, created, err := dir.ResolveOrCreate(ctx, "seminar")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.RoomId, second.RoomId)
}

func TestLookupByNameNeverCreates(t *testing.T) {
	dir, factory := newTestDirectory(t)
	ctx := context.Background()

	_, err := dir.LookupByName(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := factory.NewUnitOfWork(ctx).RoomRepository().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteMissingRoom(t *testing.T) {
	dir, _ := newTestDirectory(t)

	err := dir.Delete(context.Background(), "room-nothing-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByIDsKeepsRequestOrder(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	a, _, err := dir.ResolveOrCreate(ctx, "alpha")
	require.NoError(t, err)
	b, _, err := dir.ResolveOrCreate(ctx, "beta")
	require.NoError(t, err)

	rooms, err := dir.GetByIDs(ctx, []string{b.RoomId, "room-missing-1", a.RoomId, b.RoomId})
	require.NoError(t, err)
	assert.Equal(t, []string{b.RoomId, a.RoomId}, lo.Map(rooms, func(r *entity.Room, _ int) string { return r.RoomId }))

	empty, err := dir.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSameSlugNamesInOneMillisecondGetDistinctIDs(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()
	dir.now = func() time.Time { return time.UnixMilli(5000) }

	var ids []string
	for _, name := range []string{"CS101", "cs101", "CS 101"} {
		room, created, err := dir.ResolveOrCreate(ctx, name)
		require.NoError(t, err, name)
		assert.True(t, created, name)
		ids = append(ids, room.RoomId)
	}

	assert.Equal(t, []string{"room-cs101-5000", "room-cs101-5001", "room-cs101-5002"}, ids)
}

func TestResolveOrCreateRetriesOnIDConflict(t *testing.T) {
	dir, factory := newTestDirectory(t)
	ctx := context.Background()

	// a room created elsewhere already holds the id this directory would pick first
	require.NoError(t, factory.NewUnitOfWork(ctx).RoomRepository().Create(ctx, &entity.Room{
		RoomId:       "room-lab-7000",
		RoomName:     "LAB-other",
		Participants: []entity.Participant{},
		CreatedAt:    time.UnixMilli(7000).UTC(),
	}))

	dir.now = func() time.Time { return time.UnixMilli(7000) }
	room, created, err := dir.ResolveOrCreate(ctx, "lab")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "room-lab-7001", room.RoomId)
	assert.Equal(t, "lab", room.RoomName)
}

func TestRoomNamesAreTrimmed(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	first, created, err := dir.ResolveOrCreate(ctx, "  CS101 ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "CS101", first.RoomName)

	second, created, err := dir.ResolveOrCreate(ctx, "CS101")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.RoomId, second.RoomId)

	found, err := dir.LookupByName(ctx, "\tCS101  ")
	require.NoError(t, err)
	assert.Equal(t, first.RoomId, found.RoomId)

	_, err = dir.LookupByName(ctx, "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}
