package model

import (
	"time"

	"gorm.io/datatypes"
)

type RoomParticipant struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
}

// RoomLatestMessage is stored as an object; a zero Timestamp means no message yet.
type RoomLatestMessage struct {
	Sender    string     `json:"sender,omitempty"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type Room struct {
	RoomId        string                                `gorm:"type:varchar(191);primaryKey"`
	RoomName      string                                `gorm:"type:varchar(191);not null;uniqueIndex:idx_rooms_room_name"`
	Participants  datatypes.JSONSlice[RoomParticipant]  `gorm:"not null"`
	LatestMessage datatypes.JSONType[RoomLatestMessage] `gorm:"not null"`
	CreatedAt     time.Time                             `gorm:"autoCreateTime"`
	UpdatedAt     time.Time                             `gorm:"autoUpdateTime"`
}

func (Room) TableName() string {
	return "rooms"
}
