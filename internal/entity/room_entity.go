package entity

import "time"

type Participant struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
}

type LatestMessage struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Room is a named channel. Participants is the persisted, only-growing
// history of who joined; live presence is tracked in memory.
type Room struct {
	RoomId        string
	RoomName      string
	Participants  []Participant
	LatestMessage *LatestMessage
	CreatedAt     time.Time
}
