package service

import (
	"context"
	"strings"

	"campus-chat-be/internal/dto"
	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"

	"github.com/samber/lo"
)

// ChatRooms is the administrative surface of the chat protocol.
type ChatRooms interface {
	CreateRoom(ctx context.Context, roomName string) (*entity.Room, error)
	DeleteRoom(ctx context.Context, roomId string) error
	AddParticipant(ctx context.Context, roomId string, participant entity.Participant) (bool, error)
	RoomsByIDs(ctx context.Context, ids []string) ([]*entity.Room, error)
	Room(ctx context.Context, roomId string) (*entity.Room, error)
	Members(roomId string) []entity.Participant
}

type IRoomService interface {
	Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	Delete(ctx context.Context, roomId string) error
	AddParticipant(ctx context.Context, req *dto.AddParticipantRequest) (*dto.AddParticipantResponse, error)
	GetGroups(ctx context.Context, req *dto.GetGroupsRequest) ([]dto.RoomResponse, error)
	Members(ctx context.Context, roomId string) ([]dto.ParticipantResponse, error)
}

type roomService struct {
	rooms  ChatRooms
	logger logger.ILogger
}

func NewRoomService(rooms ChatRooms, log logger.ILogger) IRoomService {
	return &roomService{rooms: rooms, logger: log}
}

func (s *roomService) Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	room, err := s.rooms.CreateRoom(ctx, req.RoomName)
	if err != nil {
		return nil, err
	}
	s.logger.Info("RoomService", "Room ensured", map[string]interface{}{"room_id": room.RoomId})
	res := toRoomResponse(room)
	return &res, nil
}

func (s *roomService) Delete(ctx context.Context, roomId string) error {
	if err := s.rooms.DeleteRoom(ctx, roomId); err != nil {
		return err
	}
	s.logger.Info("RoomService", "Room deleted", map[string]interface{}{"room_id": roomId})
	return nil
}

func (s *roomService) AddParticipant(ctx context.Context, req *dto.AddParticipantRequest) (*dto.AddParticipantResponse, error) {
	added, err := s.rooms.AddParticipant(ctx, req.RoomId, entity.Participant{
		UserId: strings.TrimSpace(req.UserId),
		Name:   strings.TrimSpace(req.Name),
	})
	if err != nil {
		return nil, err
	}
	return &dto.AddParticipantResponse{Added: added}, nil
}

func (s *roomService) GetGroups(ctx context.Context, req *dto.GetGroupsRequest) ([]dto.RoomResponse, error) {
	rooms, err := s.rooms.RoomsByIDs(ctx, lo.Uniq(req.Rooms))
	if err != nil {
		return nil, err
	}
	return lo.Map(rooms, func(room *entity.Room, _ int) dto.RoomResponse {
		return toRoomResponse(room)
	}), nil
}

// Members lists the live members of an existing room.
func (s *roomService) Members(ctx context.Context, roomId string) ([]dto.ParticipantResponse, error) {
	if _, err := s.rooms.Room(ctx, roomId); err != nil {
		return nil, err
	}
	return toParticipantResponses(s.rooms.Members(roomId)), nil
}

func toParticipantResponses(participants []entity.Participant) []dto.ParticipantResponse {
	res := make([]dto.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		res = append(res, dto.ParticipantResponse{UserId: p.UserId, Name: p.Name})
	}
	return res
}

func toRoomResponse(room *entity.Room) dto.RoomResponse {
	res := dto.RoomResponse{
		RoomId:       room.RoomId,
		RoomName:     room.RoomName,
		Participants: toParticipantResponses(room.Participants),
		CreatedAt:    room.CreatedAt,
	}
	if room.LatestMessage != nil {
		res.LatestMessage = &dto.LatestMessageResponse{
			Sender:    room.LatestMessage.Sender,
			Message:   room.LatestMessage.Message,
			Timestamp: room.LatestMessage.Timestamp,
		}
	}
	return res
}
