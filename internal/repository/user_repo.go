package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) findBy(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findBy(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(ctx, "email = ?", email)
}

func (r *UserRepo) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.findBy(ctx, "google_id = ?", googleID)
}

func (r *UserRepo) FindByStripeCustomer(ctx context.Context, customerID string) (*models.User, error) {
	return r.findBy(ctx, "stripe_customer_id = ?", customerID)
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return translate("create user", r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

// WithLock 在同一事务中锁定用户行、写入 inserts、应用修改、写回并追加流水，
// 并发的答题、会话结束和对账不会互相覆盖经验值
func (r *UserRepo) WithLock(ctx context.Context, id string, fn services.UserMutation, inserts ...interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&user).Error; err != nil {
			return translate("lock user", err)
		}

		for _, row := range inserts {
			if err := tx.Create(row).Error; err != nil {
				return translate("insert locked row", err)
			}
		}

		logs, err := fn(&user)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"xp":              user.XP,
				"level":           user.Level,
				"study_streak":    user.StudyStreak,
				"last_study_date": user.LastStudyDate,
				"updated_at":      time.Now(),
			}).Error; err != nil {
			return translate("save user xp", err)
		}

		if len(logs) > 0 {
			if err := tx.Create(&logs).Error; err != nil {
				return translate("append xp log", err)
			}
		}
		return nil
	})
}

func (r *UserRepo) ActiveSince(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("answered_at >= ?", since).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, translate("list active users", err)
}
