package models

import (
	"time"
)

// QuizResult 测验成绩，最好/最近成绩在查询时计算
type QuizResult struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string    `gorm:"type:uuid;not null;index" json:"userId"`
	User           User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CategorySlug   string    `gorm:"size:100;not null;index" json:"categorySlug"`
	Difficulty     *string   `gorm:"size:20" json:"difficulty"`
	Score          int       `gorm:"not null" json:"score"`
	TotalQuestions int       `gorm:"not null" json:"totalQuestions"`
	BestStreak     int       `gorm:"not null;default:0" json:"bestStreak"`
	CompletedAt    time.Time `gorm:"not null" json:"completedAt"`
}

// Percentage 正确率，整数百分比
func (r QuizResult) Percentage() int {
	if r.TotalQuestions <= 0 {
		return 0
	}
	return r.Score * 100 / r.TotalQuestions
}
