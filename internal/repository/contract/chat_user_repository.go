package contract

import (
	"context"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/repository/specification"
)

type ChatUserRepository interface {
	// UpsertName creates the user or merges the display name into the existing record.
	UpsertName(ctx context.Context, userId, name string) error
	// AddRoom appends roomId to the user's room list unless already present.
	AddRoom(ctx context.Context, userId, roomId string) error
	Create(ctx context.Context, user *entity.ChatUser) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatUser, error)
}
