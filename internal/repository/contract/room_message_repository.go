package contract

import (
	"context"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/repository/specification"
)

type RoomMessageRepository interface {
	Create(ctx context.Context, message *entity.RoomMessage) error
	DeleteByRoomId(ctx context.Context, roomId string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RoomMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RoomMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
