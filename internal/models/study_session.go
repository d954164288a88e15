package models

import (
	"time"
)

type StudySession struct {
	ID                string      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            string      `gorm:"type:uuid;not null;index" json:"userId"`
	User              User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	SessionType       SessionType `gorm:"size:20;not null" json:"sessionType"`
	CategorySlug      *string     `gorm:"size:100" json:"categorySlug"`
	StartedAt         time.Time   `gorm:"not null" json:"startedAt"`
	EndedAt           *time.Time  `json:"endedAt"` // 为空表示会话仍在进行
	QuestionsAnswered *int        `json:"questionsAnswered"`
	QuestionsCorrect  *int        `json:"questionsCorrect"`
	XPEarned          int         `gorm:"not null;default:0" json:"xpEarned"`
}
