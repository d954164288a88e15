package repository

import (
	"context"

	"gorm.io/gorm"

	"voltprep/internal/models"
)

type QuizResultRepo struct {
	db *gorm.DB
}

func NewQuizResultRepo(db *gorm.DB) *QuizResultRepo {
	return &QuizResultRepo{db: db}
}

func (r *QuizResultRepo) Create(ctx context.Context, q *models.QuizResult) error {
	return translate("create quiz result", r.db.WithContext(ctx).Create(q).Error)
}

func (r *QuizResultRepo) ListByUser(ctx context.Context, userID string) ([]models.QuizResult, error) {
	var results []models.QuizResult
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Find(&results).Error
	return results, translate("list quiz results", err)
}
