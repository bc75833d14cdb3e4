package chat

import (
	"testing"

	"campus-chat-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestMembershipAddIfAbsent(t *testing.T) {
	m := NewMembership()

	assert.True(t, m.AddIfAbsent("r1", "u1", "Asha", "c1"))
	assert.False(t, m.AddIfAbsent("r1", "u1", "Asha K", "c2"))
	assert.True(t, m.AddIfAbsent("r1", "u2", "Ben", "c3"))

	assert.Equal(t, []entity.Participant{
		{UserId: "u1", Name: "Asha"},
		{UserId: "u2", Name: "Ben"},
	}, m.List("r1"))
	assert.Empty(t, m.List("r2"))
}

func TestMembershipDetach(t *testing.T) {
	m := NewMembership()
	m.AddIfAbsent("r1", "u1", "Asha", "c1")
	m.AddIfAbsent("r1", "u1", "Asha", "c2")

	assert.True(t, m.Attached("r1", "u1", "c2"))
	assert.False(t, m.Detach("r1", "u1", "c1"))
	assert.Len(t, m.List("r1"), 1)

	assert.True(t, m.Detach("r1", "u1", "c2"))
	assert.Empty(t, m.List("r1"))
	assert.False(t, m.Detach("r1", "u1", "c2"))
}

func TestMembershipReleaseConn(t *testing.T) {
	m := NewMembership()
	m.AddIfAbsent("r1", "u1", "Asha", "c1")
	m.AddIfAbsent("r2", "u1", "Asha", "c1")
	m.AddIfAbsent("r2", "u2", "Ben", "c2")
	m.AddIfAbsent("r3", "u1", "Asha", "c1")
	m.AddIfAbsent("r3", "u1", "Asha", "c9")

	changed := m.ReleaseConn("c1")

	assert.ElementsMatch(t, []string{"r1", "r2"}, changed)
	assert.Empty(t, m.List("r1"))
	assert.Equal(t, []entity.Participant{{UserId: "u2", Name: "Ben"}}, m.List("r2"))
	assert.Len(t, m.List("r3"), 1)
}

func TestMembershipLookup(t *testing.T) {
	m := NewMembership()
	m.AddIfAbsent("r1", "u1", "Asha", "c1")

	p, ok := m.Lookup("r1", "u1")
	assert.True(t, ok)
	assert.Equal(t, "Asha", p.Name)

	_, ok = m.Lookup("r1", "u2")
	assert.False(t, ok)

	m.DropRoom("r1")
	_, ok = m.Lookup("r1", "u1")
	assert.False(t, ok)
}
