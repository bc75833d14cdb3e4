package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsLastWriterWins(t *testing.T) {
	s := NewSessions(time.Hour)
	first := newFakeConn("c1")
	second := newFakeConn("c2")

	s.Identify("u1", first)
	s.Identify("u1", second)

	conn, ok := s.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "c2", conn.ID())
	assert.Equal(t, 1, s.Count())
}

func TestSessionsForgetOnlyMatchingConn(t *testing.T) {
	s := NewSessions(time.Hour)
	first := newFakeConn("c1")
	second := newFakeConn("c2")

	s.Identify("u1", first)
	s.Identify("u1", second)

	s.Forget("u1", first)
	_, ok := s.Lookup("u1")
	assert.True(t, ok)

	s.Forget("u1", second)
	_, ok = s.Lookup("u1")
	assert.False(t, ok)
}

func TestSessionsExpire(t *testing.T) {
	s := NewSessions(20 * time.Millisecond)
	s.Identify("u1", newFakeConn("c1"))

	assert.Eventually(t, func() bool {
		_, ok := s.Lookup("u1")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
