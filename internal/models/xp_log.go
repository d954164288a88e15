package models

import (
	"time"
)

// XPLog 经验值流水，只追加不修改
type XPLog struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"userId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Amount    int       `gorm:"not null" json:"amount"`
	Action    string    `gorm:"size:50;not null;index" json:"action"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
