package contract

import (
	"context"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/repository/specification"
)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	Delete(ctx context.Context, roomId string) error
	UpdateParticipants(ctx context.Context, roomId string, participants []entity.Participant) error
	UpdateLatestMessage(ctx context.Context, roomId string, latest entity.LatestMessage) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Room, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Room, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
