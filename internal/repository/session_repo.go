package repository

import (
	"context"

	"gorm.io/gorm"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	return translate("create session", r.db.WithContext(ctx).Create(s).Error)
}

// Close 只结束属于该用户且尚未结束的会话
func (r *SessionRepo) Close(ctx context.Context, userID, sessionID string, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StudySession{}).
		Where("id = ? AND user_id = ? AND ended_at IS NULL", sessionID, userID).
		Updates(fields)
	return res.RowsAffected, translate("close session", res.Error)
}

func (r *SessionRepo) Totals(ctx context.Context, userID string) (services.SessionTotals, error) {
	var rows []struct {
		SessionType models.SessionType
		Completed   int64
		XPEarned    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.StudySession{}).
		Select("session_type, COUNT(*) AS completed, COALESCE(SUM(xp_earned), 0) AS xp_earned").
		Where("user_id = ? AND ended_at IS NOT NULL", userID).
		Group("session_type").
		Scan(&rows).Error
	if err != nil {
		return services.SessionTotals{}, translate("session totals", err)
	}

	totals := services.SessionTotals{ByType: make(map[models.SessionType]int64, len(rows))}
	for _, row := range rows {
		totals.Completed += row.Completed
		totals.XPEarned += row.XPEarned
		totals.ByType[row.SessionType] = row.Completed
	}
	return totals, nil
}
