package models

import (
	"time"
)

// Bookmark 题目收藏，同一用户同一题目只保留一条（应用层保证）
type Bookmark struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index:idx_bookmark_user_question" json:"userId"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	QuestionID string    `gorm:"size:100;not null;index:idx_bookmark_user_question" json:"questionId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FlashcardBookmark 闪卡收藏
type FlashcardBookmark struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index:idx_bookmark_user_flashcard" json:"userId"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	FlashcardID string    `gorm:"size:100;not null;index:idx_bookmark_user_flashcard" json:"flashcardId"`
	CreatedAt   time.Time `json:"createdAt"`
}
