package chat

import (
	"sync"

	"campus-chat-be/internal/entity"

	"github.com/samber/lo"
)

type memberEntry struct {
	participant entity.Participant
	conns       map[string]struct{}
}

type roomMembers struct {
	order   []string
	entries map[string]*memberEntry
}

// Membership is the in-memory record of who is connected to which room.
// An entry lives while at least one of the user's connections is in the room.
type Membership struct {
	mu    sync.RWMutex
	rooms map[string]*roomMembers
}

func NewMembership() *Membership {
	return &Membership{rooms: make(map[string]*roomMembers)}
}

// AddIfAbsent attaches connId to the user's entry in the room, creating the
// entry when the user is not present yet. The display name of an existing
// entry is left untouched. It reports whether a new entry was created.
func (m *Membership) AddIfAbsent(roomId, userId, name, connId string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomId]
	if !ok {
		room = &roomMembers{entries: make(map[string]*memberEntry)}
		m.rooms[roomId] = room
	}

	if entry, ok := room.entries[userId]; ok {
		entry.conns[connId] = struct{}{}
		return false
	}

	room.entries[userId] = &memberEntry{
		participant: entity.Participant{UserId: userId, Name: name},
		conns:       map[string]struct{}{connId: {}},
	}
	room.order = append(room.order, userId)
	return true
}

// Detach removes one connection from a user's entry and drops the entry when
// it was the last one. It reports whether the entry was dropped.
func (m *Membership) Detach(roomId, userId, connId string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detachLocked(roomId, userId, connId)
}

func (m *Membership) detachLocked(roomId, userId, connId string) bool {
	room, ok := m.rooms[roomId]
	if !ok {
		return false
	}
	entry, ok := room.entries[userId]
	if !ok {
		return false
	}

	delete(entry.conns, connId)
	if len(entry.conns) > 0 {
		return false
	}

	delete(room.entries, userId)
	room.order = lo.Without(room.order, userId)
	if len(room.entries) == 0 {
		delete(m.rooms, roomId)
	}
	return true
}

// ReleaseConn detaches connId everywhere and returns the rooms in which a
// user left as a result.
func (m *Membership) ReleaseConn(connId string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed []string
	for roomId, room := range m.rooms {
		for _, userId := range append([]string(nil), room.order...) {
			if _, ok := room.entries[userId].conns[connId]; !ok {
				continue
			}
			if m.detachLocked(roomId, userId, connId) {
				changed = append(changed, roomId)
			}
		}
	}
	return lo.Uniq(changed)
}

func (m *Membership) List(roomId string) []entity.Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return []entity.Participant{}
	}
	return lo.Map(room.order, func(userId string, _ int) entity.Participant {
		return room.entries[userId].participant
	})
}

func (m *Membership) Lookup(roomId, userId string) (entity.Participant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return entity.Participant{}, false
	}
	entry, ok := room.entries[userId]
	if !ok {
		return entity.Participant{}, false
	}
	return entry.participant, true
}

// Attached reports whether connId already backs the user's entry in the room.
func (m *Membership) Attached(roomId, userId, connId string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return false
	}
	entry, ok := room.entries[userId]
	if !ok {
		return false
	}
	_, ok = entry.conns[connId]
	return ok
}

func (m *Membership) DropRoom(roomId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomId)
}
