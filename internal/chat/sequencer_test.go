package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStateNextTimestampIsMonotonic(t *testing.T) {
	st := &RoomState{RoomId: "r1"}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, st.Seeded())
	assert.Equal(t, base, st.NextTimestamp(base))
	assert.True(t, st.Seeded())
	assert.Equal(t, base, st.NextTimestamp(base.Add(-time.Minute)))
	assert.Equal(t, base.Add(time.Second), st.NextTimestamp(base.Add(time.Second)))

	st.Observe(base.Add(time.Hour))
	assert.Equal(t, base.Add(time.Hour), st.NextTimestamp(base))
}

func TestSequencerPreservesSubmissionOrderPerRoom(t *testing.T) {
	s := NewSequencer(context.Background(), logger.NewNopLogger())
	defer s.Shutdown()

	var mu sync.Mutex
	var seen []int
	for i := 0; i < 20; i++ {
		err := s.Do(context.Background(), "r1", func(ctx context.Context, _ *RoomState) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, i)
			return nil
		})
		require.NoError(t, err)
	}

	for i := range seen {
		assert.Equal(t, i, seen[i])
	}
}

func TestSequencerRoomsRunIndependently(t *testing.T) {
	s := NewSequencer(context.Background(), logger.NewNopLogger())
	defer s.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = s.Do(context.Background(), "slow", func(ctx context.Context, _ *RoomState) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		done <- s.Do(context.Background(), "fast", func(ctx context.Context, _ *RoomState) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("a busy room blocked another room")
	}
	close(release)
	assert.Equal(t, 2, s.Active())
}

func TestSequencerRecoversPanics(t *testing.T) {
	s := NewSequencer(context.Background(), logger.NewNopLogger())
	defer s.Shutdown()

	err := s.Do(context.Background(), "r1", func(ctx context.Context, _ *RoomState) error {
		panic("boom")
	})
	assert.ErrorContains(t, err, "panicked")

	assert.NoError(t, s.Do(context.Background(), "r1", func(ctx context.Context, _ *RoomState) error { return nil }))
}

func TestSequencerStopAndShutdown(t *testing.T) {
	s := NewSequencer(context.Background(), logger.NewNopLogger())

	var st1 *RoomState
	require.NoError(t, s.Do(context.Background(), "r1", func(ctx context.Context, st *RoomState) error {
		st1 = st
		st.NextTimestamp(time.Now())
		return nil
	}))

	s.Stop("r1")
	assert.Zero(t, s.Active())

	require.NoError(t, s.Do(context.Background(), "r1", func(ctx context.Context, st *RoomState) error {
		assert.NotSame(t, st1, st)
		assert.False(t, st.Seeded())
		return nil
	}))

	s.Shutdown()
	assert.ErrorIs(t, s.Do(context.Background(), "r1", func(ctx context.Context, _ *RoomState) error { return nil }), ErrRoomClosed)
}

func TestSequencerHonorsCallerContext(t *testing.T) {
	s := NewSequencer(context.Background(), logger.NewNopLogger())
	defer s.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Do(ctx, "r1", func(ctx context.Context, _ *RoomState) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSequencerRetiresIdleWorkers(t *testing.T) {
	s := NewSequencer(context.Background(), logger.NewNopLogger())
	s.idleTimeout = 20 * time.Millisecond
	defer s.Shutdown()

	require.NoError(t, s.Do(context.Background(), "r1", func(ctx context.Context, st *RoomState) error {
		st.NextTimestamp(time.Now())
		return nil
	}))
	assert.Equal(t, 1, s.Active())

	assert.Eventually(t, func() bool { return s.Active() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Do(context.Background(), "r1", func(ctx context.Context, st *RoomState) error {
		assert.False(t, st.Seeded())
		return nil
	}))
}

func TestSequencerKeepsOrderAcrossRetirements(t *testing.T) {
	s := NewSequencer(context.Background(), logger.NewNopLogger())
	s.idleTimeout = time.Millisecond
	defer s.Shutdown()

	var mu sync.Mutex
	var seen []int
	for i := 0; i < 100; i++ {
		if i%10 == 0 {
			time.Sleep(3 * time.Millisecond)
		}
		err := s.Do(context.Background(), "r1", func(ctx context.Context, _ *RoomState) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, i)
			return nil
		})
		require.NoError(t, err)
	}

	require.Len(t, seen, 100)
	for i := range seen {
		assert.Equal(t, i, seen[i])
	}
}
