package models

import (
	"time"
)

// UserProgress 单次答题记录，只追加
type UserProgress struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string    `gorm:"type:uuid;not null;index" json:"userId"`
	User             User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	QuestionID       string    `gorm:"size:100;not null;index" json:"questionId"`
	IsCorrect        bool      `gorm:"not null" json:"isCorrect"`
	TimeSpentSeconds *int      `json:"timeSpentSeconds"`
	AnsweredAt       time.Time `gorm:"not null;index" json:"answeredAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
