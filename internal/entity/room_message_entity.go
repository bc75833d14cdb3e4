package entity

import "time"

const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// FileLinks are the derived links of a stored attachment. Any of them may be
// nil when the attachment store cannot provide it (e.g. no thumbnail).
type FileLinks struct {
	ThumbnailLink  *string `json:"thumbnailLink"`
	WebContentLink *string `json:"webContentLink"`
	WebViewLink    *string `json:"webViewLink"`
}

type FileMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
	FileLinks
}

type RoomMessage struct {
	Id        uint64
	RoomId    string
	Sender    string
	Message   string
	Type      string
	FileUrl   *string
	UserId    string
	Timestamp time.Time
	File      *FileMeta
}

// HasContent reports whether the message carries text or a resolved attachment.
func (m *RoomMessage) HasContent() bool {
	return m.Message != "" || (m.FileUrl != nil && *m.FileUrl != "")
}
