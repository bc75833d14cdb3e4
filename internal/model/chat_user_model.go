package model

import (
	"time"

	"gorm.io/datatypes"
)

// ChatUser is the subset of the shared users collection the chat service reads and writes.
type ChatUser struct {
	UserId     string                      `gorm:"type:varchar(191);primaryKey"`
	Name       string                      `gorm:"type:varchar(191);not null"`
	Email      string                      `gorm:"type:varchar(191)"`
	ProfilePic *string                     `gorm:"type:text"`
	Rooms      datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt  time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt  time.Time                   `gorm:"autoUpdateTime"`
}

func (ChatUser) TableName() string {
	return "users"
}
