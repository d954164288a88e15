package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

type XPLogRepo struct {
	db *gorm.DB
}

func NewXPLogRepo(db *gorm.DB) *XPLogRepo {
	return &XPLogRepo{db: db}
}

func (r *XPLogRepo) SumExcluding(ctx context.Context, userID string, actions ...string) (int64, error) {
	var sum int64
	q := r.db.WithContext(ctx).
		Model(&models.XPLog{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID)
	if len(actions) > 0 {
		q = q.Where("action NOT IN ?", actions)
	}
	err := q.Scan(&sum).Error
	return sum, translate("sum xp logs", err)
}

// DailySince 按服务器本地日期分组
func (r *XPLogRepo) DailySince(ctx context.Context, userID string, since time.Time) ([]services.DailyXP, error) {
	var logs []models.XPLog
	err := r.db.WithContext(ctx).
		Select("amount", "created_at").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at").
		Find(&logs).Error
	if err != nil {
		return nil, translate("daily xp", err)
	}

	out := make([]services.DailyXP, 0)
	index := make(map[string]int)
	for _, l := range logs {
		day := l.CreatedAt.In(since.Location()).Format(time.DateOnly)
		if i, ok := index[day]; ok {
			out[i].Amount += l.Amount
			continue
		}
		index[day] = len(out)
		out = append(out, services.DailyXP{Day: day, Amount: l.Amount})
	}
	return out, nil
}
