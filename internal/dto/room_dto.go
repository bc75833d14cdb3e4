package dto

import "time"

type CreateRoomRequest struct {
	RoomName string `json:"roomName" validate:"required"`
}

type ParticipantResponse struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
}

type LatestMessageResponse struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type RoomResponse struct {
	RoomId        string                 `json:"roomId"`
	RoomName      string                 `json:"roomName"`
	Participants  []ParticipantResponse  `json:"participants"`
	LatestMessage *LatestMessageResponse `json:"latestMessage"`
	CreatedAt     time.Time              `json:"createdAt"`
}

type AddParticipantRequest struct {
	RoomId string `json:"-"`
	UserId string `json:"userId" validate:"required"`
	Name   string `json:"name" validate:"required"`
}

type AddParticipantResponse struct {
	Added bool `json:"added"`
}

// GetGroupsRequest lists the rooms a client wants to render in its sidebar.
type GetGroupsRequest struct {
	Rooms []string `json:"rooms" validate:"required,max=200,dive,required"`
}

type FileLinksResponse struct {
	WebViewLink    *string `json:"webViewLink"`
	WebContentLink *string `json:"webContentLink"`
	ThumbnailLink  *string `json:"thumbnailLink"`
}

type AttachmentInfoResponse struct {
	Id          string            `json:"id"`
	FileName    string            `json:"fileName"`
	ContentType string            `json:"contentType"`
	Folder      string            `json:"folder"`
	Size        uint64            `json:"size"`
	UploadedAt  time.Time         `json:"uploadedAt"`
	Links       FileLinksResponse `json:"links"`
}
