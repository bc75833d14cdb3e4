package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/repository/specification"

	"github.com/samber/lo"
)

// CreateRoom is the deliberate creation flow used when an owning entity
// such as a class is created. It is idempotent by name.
func (p *Protocol) CreateRoom(ctx context.Context, roomName string) (*entity.Room, error) {
	room, created, err := p.directory.ResolveOrCreate(ctx, roomName)
	if err != nil {
		return nil, err
	}
	if created {
		p.events.PublishRoomCreated(ctx, room)
	}
	return room, nil
}

// DeleteRoom removes the room with its history and drops all live state for it.
func (p *Protocol) DeleteRoom(ctx context.Context, roomId string) error {
	err := p.sequencer.Do(ctx, roomId, func(ctx context.Context, _ *RoomState) error {
		return p.directory.Delete(ctx, roomId)
	})
	p.sequencer.Stop(roomId)
	if err != nil {
		return err
	}

	p.members.DropRoom(roomId)
	if p.broadcaster != nil {
		p.broadcaster.CloseRoom(roomId)
	}
	p.events.PublishRoomDeleted(ctx, roomId)
	return nil
}

// AddParticipant records a user on a room without a live connection: the
// user's name and room list are updated and the participant is appended to
// the persisted list when absent. It reports whether the participant was new.
func (p *Protocol) AddParticipant(ctx context.Context, roomId string, participant entity.Participant) (bool, error) {
	if strings.TrimSpace(participant.UserId) == "" || strings.TrimSpace(participant.Name) == "" {
		return false, fmt.Errorf("%w: userId and name are required", ErrValidation)
	}

	var (
		room  *entity.Room
		added bool
	)
	err := p.sequencer.Do(ctx, roomId, func(ctx context.Context, _ *RoomState) error {
		uow := p.factory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrCollaborator, err)
		}
		defer uow.Rollback()

		var err error
		room, err = uow.RoomRepository().FindOne(ctx, specification.ByRoomID{RoomID: roomId})
		if err != nil {
			return fmt.Errorf("%w: room lookup: %v", ErrCollaborator, err)
		}
		if room == nil {
			return fmt.Errorf("room %q: %w", roomId, ErrNotFound)
		}

		if err := uow.ChatUserRepository().UpsertName(ctx, participant.UserId, participant.Name); err != nil {
			return fmt.Errorf("%w: upsert user: %v", ErrCollaborator, err)
		}
		if err := uow.ChatUserRepository().AddRoom(ctx, participant.UserId, roomId); err != nil {
			return fmt.Errorf("%w: add room to user: %v", ErrCollaborator, err)
		}

		_, exists := lo.Find(room.Participants, func(existing entity.Participant) bool {
			return existing.UserId == participant.UserId
		})
		if !exists {
			room.Participants = append(room.Participants, participant)
			if err := uow.RoomRepository().UpdateParticipants(ctx, roomId, room.Participants); err != nil {
				return fmt.Errorf("%w: update participants: %v", ErrCollaborator, err)
			}
			added = true
		}
		return uow.Commit()
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			p.sequencer.Stop(roomId)
		}
		return false, err
	}

	if added {
		p.events.PublishParticipantAdded(ctx, room, participant)
	}
	return added, nil
}

func (p *Protocol) RoomsByIDs(ctx context.Context, ids []string) ([]*entity.Room, error) {
	return p.directory.GetByIDs(ctx, ids)
}

// Members lists who is connected to the room right now.
func (p *Protocol) Members(roomId string) []entity.Participant {
	return p.members.List(roomId)
}

func (p *Protocol) Room(ctx context.Context, roomId string) (*entity.Room, error) {
	return p.directory.Get(ctx, roomId)
}
