package implementation

import (
	"context"
	"errors"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/mapper"
	"campus-chat-be/internal/model"
	"campus-chat-be/internal/repository/contract"
	"campus-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type RoomMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RoomMapper
}

func NewRoomMessageRepository(db *gorm.DB) contract.RoomMessageRepository {
	return &RoomMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewRoomMapper(),
	}
}

func (r *RoomMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RoomMessageRepositoryImpl) Create(ctx context.Context, message *entity.RoomMessage) error {
	m := r.mapper.RoomMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.RoomMessageToEntity(m)
	return nil
}

func (r *RoomMessageRepositoryImpl) DeleteByRoomId(ctx context.Context, roomId string) error {
	return r.db.WithContext(ctx).Where("room_id = ?", roomId).Delete(&model.RoomMessage{}).Error
}

func (r *RoomMessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RoomMessage, error) {
	var m model.RoomMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RoomMessageToEntity(&m), nil
}

func (r *RoomMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RoomMessage, error) {
	var models []*model.RoomMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RoomMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.RoomMessageToEntity(m)
	}
	return entities, nil
}

func (r *RoomMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.RoomMessage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
