package chat

import (
	"time"

	"campus-chat-be/internal/entity"
)

type IdentifyRequest struct {
	UserId string `json:"userId" validate:"required"`
}

type CreateRoomRequest struct {
	RoomName string `json:"roomName" validate:"required"`
}

type JoinRoomRequest struct {
	RoomName string `json:"roomName" validate:"required"`
	UserId   string `json:"userId" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

// SendMessageRequest carries either text, an inline base64 attachment, a
// previously uploaded file id, or a combination.
type SendMessageRequest struct {
	RoomId     string `json:"roomId"`
	UserId     string `json:"userId"`
	Message    string `json:"message,omitempty"`
	Type       string `json:"type,omitempty"`
	FileBuffer string `json:"fileBuffer,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	FileType   string `json:"fileType,omitempty"`
	MainFolder string `json:"mainFolder,omitempty"`
	FileUrl    string `json:"fileUrl,omitempty"`
}

func (r *SendMessageRequest) hasAttachment() bool {
	return r.FileBuffer != "" || r.FileUrl != ""
}

type RoomCreatedPayload struct {
	RoomId       string               `json:"roomId"`
	RoomName     string               `json:"roomName"`
	Participants []entity.Participant `json:"participants"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Reason  Reason `json:"reason,omitempty"`
}

type JoinedRoomPayload struct {
	RoomId       string               `json:"roomId"`
	RoomName     string               `json:"roomName"`
	Name         string               `json:"name"`
	Participants []entity.Participant `json:"participants"`
	Messages     []MessageView        `json:"messages"`
}

// MessageView is a message as delivered to clients, with the sender's
// current profile picture attached.
type MessageView struct {
	Sender        string           `json:"sender"`
	Message       string           `json:"message"`
	Type          string           `json:"type"`
	FileUrl       *string          `json:"fileUrl"`
	UserId        string           `json:"userId"`
	Timestamp     time.Time        `json:"timestamp"`
	File          *entity.FileMeta `json:"file,omitempty"`
	SenderPicture *string          `json:"senderpicture"`
}

func newMessageView(msg *entity.RoomMessage, picture *string) MessageView {
	return MessageView{
		Sender:        msg.Sender,
		Message:       msg.Message,
		Type:          msg.Type,
		FileUrl:       msg.FileUrl,
		UserId:        msg.UserId,
		Timestamp:     msg.Timestamp,
		File:          msg.File,
		SenderPicture: picture,
	}
}
