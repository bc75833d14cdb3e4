package unitofwork

import (
	"context"

	"campus-chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RoomRepository() contract.RoomRepository
	RoomMessageRepository() contract.RoomMessageRepository
	ChatUserRepository() contract.ChatUserRepository
}
