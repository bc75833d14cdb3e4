package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/internal/repository/specification"
	"campus-chat-be/internal/repository/unitofwork"

	"gorm.io/gorm"
)

// Directory resolves room names to persisted rooms.
type Directory struct {
	factory unitofwork.RepositoryFactory
	logger  logger.ILogger
	now     func() time.Time

	// serializes check-then-create so a name is created at most once per process
	mu sync.Mutex
	// last id salt issued, guarded by mu
	lastSalt int64
}

const maxCreateAttempts = 3

func NewDirectory(factory unitofwork.RepositoryFactory, log logger.ILogger) *Directory {
	return &Directory{
		factory: factory,
		logger:  log,
		now:     time.Now,
	}
}

// NormalizeRoomName trims surrounding whitespace. Every name crossing the
// directory goes through it.
func NormalizeRoomName(roomName string) string {
	return strings.TrimSpace(roomName)
}

// RoomIDFor derives the identifier of a room created at the given instant.
func RoomIDFor(roomName string, at time.Time) string {
	return roomIDWithSalt(roomName, at.UnixMilli())
}

func roomIDWithSalt(roomName string, salt int64) string {
	slug := strings.ToLower(strings.Join(strings.Fields(roomName), ""))
	return fmt.Sprintf("room-%s-%d", slug, salt)
}

// nextSalt returns the creation millisecond, bumped past the previous salt so
// names that share a slug never share an id within this process. Caller holds mu.
func (d *Directory) nextSalt(at time.Time) int64 {
	salt := at.UnixMilli()
	if salt <= d.lastSalt {
		salt = d.lastSalt + 1
	}
	d.lastSalt = salt
	return salt
}

// ResolveOrCreate returns the room named roomName, creating it with no
// participants and no latest message if it does not exist. An existing room
// is never modified. created reports whether this call created it.
func (d *Directory) ResolveOrCreate(ctx context.Context, roomName string) (room *entity.Room, created bool, err error) {
	roomName = NormalizeRoomName(roomName)
	if roomName == "" {
		return nil, false, fmt.Errorf("%w: roomName is required", ErrValidation)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.find(ctx, specification.ByRoomName{RoomName: roomName})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := d.now().UTC()
	uow := d.factory.NewUnitOfWork(ctx)

	var createErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		room = &entity.Room{
			RoomId:       roomIDWithSalt(roomName, d.nextSalt(now)),
			RoomName:     roomName,
			Participants: []entity.Participant{},
			CreatedAt:    now,
		}
		createErr = uow.RoomRepository().Create(ctx, room)
		if createErr == nil {
			d.logger.Info("RoomDirectory", "Room created", map[string]interface{}{
				"room_id":   room.RoomId,
				"room_name": roomName,
			})
			return room, true, nil
		}

		// Another process may have won the unique name index.
		again, findErr := d.find(ctx, specification.ByRoomName{RoomName: roomName})
		if findErr != nil {
			break
		}
		if again != nil {
			return again, false, nil
		}
		// The name is still free, so the id collided; retry with the next salt.
	}

	d.logger.Error("RoomDirectory", "Failed to create room", map[string]interface{}{
		"room_name": roomName,
		"error":     createErr.Error(),
	})
	return nil, false, fmt.Errorf("%w: create room %q: %v", ErrCollaborator, roomName, createErr)
}

// LookupByName never creates. A missing room yields ErrNotFound.
func (d *Directory) LookupByName(ctx context.Context, roomName string) (*entity.Room, error) {
	roomName = NormalizeRoomName(roomName)
	if roomName == "" {
		return nil, fmt.Errorf("room name is empty: %w", ErrNotFound)
	}
	room, err := d.find(ctx, specification.ByRoomName{RoomName: roomName})
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room %q: %w", roomName, ErrNotFound)
	}
	return room, nil
}

func (d *Directory) Get(ctx context.Context, roomId string) (*entity.Room, error) {
	room, err := d.find(ctx, specification.ByRoomID{RoomID: roomId})
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room %q: %w", roomId, ErrNotFound)
	}
	return room, nil
}

// GetByIDs returns the rooms that exist among ids, in the order of ids.
func (d *Directory) GetByIDs(ctx context.Context, ids []string) ([]*entity.Room, error) {
	if len(ids) == 0 {
		return []*entity.Room{}, nil
	}

	uow := d.factory.NewUnitOfWork(ctx)
	rooms, err := uow.RoomRepository().FindAll(ctx, specification.ByRoomIDs{RoomIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("%w: list rooms: %v", ErrCollaborator, err)
	}

	byId := make(map[string]*entity.Room, len(rooms))
	for _, r := range rooms {
		byId[r.RoomId] = r
	}
	ordered := make([]*entity.Room, 0, len(rooms))
	for _, id := range ids {
		if r, ok := byId[id]; ok {
			ordered = append(ordered, r)
			delete(byId, id)
		}
	}
	return ordered, nil
}

// Delete removes the room and its message history in one transaction.
func (d *Directory) Delete(ctx context.Context, roomId string) error {
	uow := d.factory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCollaborator, err)
	}
	defer uow.Rollback()

	if err := uow.RoomRepository().Delete(ctx, roomId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("room %q: %w", roomId, ErrNotFound)
		}
		return fmt.Errorf("%w: delete room: %v", ErrCollaborator, err)
	}
	if err := uow.RoomMessageRepository().DeleteByRoomId(ctx, roomId); err != nil {
		return fmt.Errorf("%w: delete room messages: %v", ErrCollaborator, err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCollaborator, err)
	}

	d.logger.Info("RoomDirectory", "Room deleted", map[string]interface{}{"room_id": roomId})
	return nil
}

func (d *Directory) find(ctx context.Context, specs ...specification.Specification) (*entity.Room, error) {
	uow := d.factory.NewUnitOfWork(ctx)
	room, err := uow.RoomRepository().FindOne(ctx, specs...)
	if err != nil {
		d.logger.Error("RoomDirectory", "Room lookup failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: room lookup: %v", ErrCollaborator, err)
	}
	return room, nil
}
