package implementation

import (
	"context"
	"errors"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/mapper"
	"campus-chat-be/internal/model"
	"campus-chat-be/internal/repository/contract"
	"campus-chat-be/internal/repository/specification"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatUserRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RoomMapper
}

func NewChatUserRepository(db *gorm.DB) contract.ChatUserRepository {
	return &ChatUserRepositoryImpl{
		db:     db,
		mapper: mapper.NewRoomMapper(),
	}
}

func (r *ChatUserRepositoryImpl) UpsertName(ctx context.Context, userId, name string) error {
	u := &model.ChatUser{
		UserId: userId,
		Name:   name,
		Rooms:  datatypes.NewJSONSlice([]string{}),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(u).Error
}

func (r *ChatUserRepositoryImpl) AddRoom(ctx context.Context, userId, roomId string) error {
	var u model.ChatUser
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&u).Error; err != nil {
		return err
	}
	if lo.Contains(u.Rooms, roomId) {
		return nil
	}
	rooms := append([]string(u.Rooms), roomId)
	return r.db.WithContext(ctx).
		Model(&model.ChatUser{}).
		Where("user_id = ?", userId).
		Update("rooms", datatypes.NewJSONSlice(rooms)).Error
}

func (r *ChatUserRepositoryImpl) Create(ctx context.Context, user *entity.ChatUser) error {
	m := r.mapper.ChatUserToModel(user)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*user = *r.mapper.ChatUserToEntity(m)
	return nil
}

func (r *ChatUserRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatUser, error) {
	var m model.ChatUser
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatUserToEntity(&m), nil
}
