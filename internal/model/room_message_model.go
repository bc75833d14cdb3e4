package model

import (
	"time"

	"gorm.io/datatypes"
)

type RoomMessageFile struct {
	Name           string  `json:"name,omitempty"`
	Type           string  `json:"type,omitempty"`
	ThumbnailLink  *string `json:"thumbnailLink,omitempty"`
	WebContentLink *string `json:"webContentLink,omitempty"`
	WebViewLink    *string `json:"webViewLink,omitempty"`
}

// RoomMessage is a child row of Room. Id is monotonic and breaks timestamp ties.
type RoomMessage struct {
	Id        uint64                              `gorm:"primaryKey;autoIncrement"`
	RoomId    string                              `gorm:"type:varchar(191);not null;index:idx_room_messages_room_ts,priority:1"`
	Sender    string                              `gorm:"type:varchar(191);not null"`
	Message   string                              `gorm:"type:text;not null"`
	Type      string                              `gorm:"type:varchar(10);not null"`
	FileUrl   *string                             `gorm:"type:varchar(191)"`
	UserId    string                              `gorm:"type:varchar(191);not null;index"`
	Timestamp time.Time                           `gorm:"not null;index:idx_room_messages_room_ts,priority:2"`
	File      datatypes.JSONType[RoomMessageFile] `gorm:"not null"`
}

func (RoomMessage) TableName() string {
	return "room_messages"
}
