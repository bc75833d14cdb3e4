package chat

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Sessions maps a user id to the last connection that identified as that user.
// Entries are advisory and expire after the configured TTL.
type Sessions struct {
	cache *cache.Cache
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{cache: cache.New(ttl, 10*time.Minute)}
}

// Identify records conn as the live handle for userId, replacing any previous one.
func (s *Sessions) Identify(userId string, conn Conn) {
	s.cache.Set(userId, conn, cache.DefaultExpiration)
}

func (s *Sessions) Lookup(userId string) (Conn, bool) {
	if x, found := s.cache.Get(userId); found {
		return x.(Conn), true
	}
	return nil, false
}

// Forget removes the entry only while it still points at conn.
func (s *Sessions) Forget(userId string, conn Conn) {
	if current, ok := s.Lookup(userId); ok && current.ID() == conn.ID() {
		s.cache.Delete(userId)
	}
}

func (s *Sessions) Count() int {
	return s.cache.ItemCount()
}
