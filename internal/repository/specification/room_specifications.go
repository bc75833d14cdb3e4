package specification

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ByRoomID struct {
	RoomID string
}

func (s ByRoomID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("room_id = ?", s.RoomID)
}

type ByRoomIDs struct {
	RoomIDs []string
}

func (s ByRoomIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("room_id IN ?", s.RoomIDs)
}

type ByRoomName struct {
	RoomName string
}

func (s ByRoomName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("room_name = ?", s.RoomName)
}

type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// NewestMessagesFirst orders room messages by timestamp, using the insertion
// id as the tie-breaker.
type NewestMessagesFirst struct{}

func (s NewestMessagesFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
}
