package mapper

import (
	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/model"

	"github.com/samber/lo"
	"gorm.io/datatypes"
)

type RoomMapper struct{}

func NewRoomMapper() *RoomMapper {
	return &RoomMapper{}
}

// Room Mappers

func (m *RoomMapper) RoomToEntity(r *model.Room) *entity.Room {
	if r == nil {
		return nil
	}

	participants := lo.Map(r.Participants, func(p model.RoomParticipant, _ int) entity.Participant {
		return entity.Participant{UserId: p.UserId, Name: p.Name}
	})

	var latest *entity.LatestMessage
	if lm := r.LatestMessage.Data(); lm.Timestamp != nil {
		latest = &entity.LatestMessage{
			Sender:    lm.Sender,
			Message:   lm.Message,
			Timestamp: *lm.Timestamp,
		}
	}

	return &entity.Room{
		RoomId:        r.RoomId,
		RoomName:      r.RoomName,
		Participants:  participants,
		LatestMessage: latest,
		CreatedAt:     r.CreatedAt,
	}
}

func (m *RoomMapper) RoomToModel(r *entity.Room) *model.Room {
	if r == nil {
		return nil
	}

	return &model.Room{
		RoomId:        r.RoomId,
		RoomName:      r.RoomName,
		Participants:  m.ParticipantsToModel(r.Participants),
		LatestMessage: datatypes.NewJSONType(m.LatestMessageToModel(r.LatestMessage)),
		CreatedAt:     r.CreatedAt,
	}
}

func (m *RoomMapper) ParticipantsToModel(participants []entity.Participant) datatypes.JSONSlice[model.RoomParticipant] {
	out := make([]model.RoomParticipant, 0, len(participants))
	for _, p := range participants {
		out = append(out, model.RoomParticipant{UserId: p.UserId, Name: p.Name})
	}
	return datatypes.NewJSONSlice(out)
}

func (m *RoomMapper) LatestMessageToModel(lm *entity.LatestMessage) model.RoomLatestMessage {
	if lm == nil {
		return model.RoomLatestMessage{}
	}
	return model.RoomLatestMessage{
		Sender:    lm.Sender,
		Message:   lm.Message,
		Timestamp: lo.ToPtr(lm.Timestamp),
	}
}

// Message Mappers

func (m *RoomMapper) RoomMessageToEntity(msg *model.RoomMessage) *entity.RoomMessage {
	if msg == nil {
		return nil
	}

	var file *entity.FileMeta
	if msg.FileUrl != nil {
		f := msg.File.Data()
		file = &entity.FileMeta{
			Name: f.Name,
			Type: f.Type,
			FileLinks: entity.FileLinks{
				ThumbnailLink:  f.ThumbnailLink,
				WebContentLink: f.WebContentLink,
				WebViewLink:    f.WebViewLink,
			},
		}
	}

	return &entity.RoomMessage{
		Id:        msg.Id,
		RoomId:    msg.RoomId,
		Sender:    msg.Sender,
		Message:   msg.Message,
		Type:      msg.Type,
		FileUrl:   msg.FileUrl,
		UserId:    msg.UserId,
		Timestamp: msg.Timestamp,
		File:      file,
	}
}

func (m *RoomMapper) RoomMessageToModel(msg *entity.RoomMessage) *model.RoomMessage {
	if msg == nil {
		return nil
	}

	var file model.RoomMessageFile
	if msg.File != nil {
		file = model.RoomMessageFile{
			Name:           msg.File.Name,
			Type:           msg.File.Type,
			ThumbnailLink:  msg.File.ThumbnailLink,
			WebContentLink: msg.File.WebContentLink,
			WebViewLink:    msg.File.WebViewLink,
		}
	}

	return &model.RoomMessage{
		Id:        msg.Id,
		RoomId:    msg.RoomId,
		Sender:    msg.Sender,
		Message:   msg.Message,
		Type:      msg.Type,
		FileUrl:   msg.FileUrl,
		UserId:    msg.UserId,
		Timestamp: msg.Timestamp,
		File:      datatypes.NewJSONType(file),
	}
}

// User Mappers

func (m *RoomMapper) ChatUserToEntity(u *model.ChatUser) *entity.ChatUser {
	if u == nil {
		return nil
	}
	return &entity.ChatUser{
		UserId:     u.UserId,
		Name:       u.Name,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Rooms:      []string(u.Rooms),
	}
}

func (m *RoomMapper) ChatUserToModel(u *entity.ChatUser) *model.ChatUser {
	if u == nil {
		return nil
	}
	rooms := u.Rooms
	if rooms == nil {
		rooms = []string{}
	}
	return &model.ChatUser{
		UserId:     u.UserId,
		Name:       u.Name,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Rooms:      datatypes.NewJSONSlice(rooms),
	}
}
