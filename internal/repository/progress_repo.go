package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

type ProgressRepo struct {
	db *gorm.DB
}

func NewProgressRepo(db *gorm.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

func (r *ProgressRepo) Create(ctx context.Context, p *models.UserProgress) error {
	return translate("create attempt", r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProgressRepo) Stats(ctx context.Context, userID string, since time.Time) (services.AttemptStats, error) {
	var row struct {
		Total             int64
		Correct           int64
		DistinctQuestions int64
		Today             int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct,
			COUNT(DISTINCT question_id) AS distinct_questions,
			COALESCE(SUM(CASE WHEN answered_at >= ? THEN 1 ELSE 0 END), 0) AS today`, since).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return services.AttemptStats{}, translate("attempt stats", err)
	}
	return services.AttemptStats{
		Total:         row.Total,
		Correct:       row.Correct,
		Distinct:      row.DistinctQuestions,
		AnsweredToday: row.Today,
	}, nil
}

func (r *ProgressRepo) CountCorrect(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("user_id = ? AND is_correct = ?", userID, true).
		Count(&count).Error
	return count, translate("count correct", err)
}
