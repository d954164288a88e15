package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

type TokenRepo struct {
	db *gorm.DB
}

func NewTokenRepo(db *gorm.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func tokenModel(purpose services.TokenPurpose) (interface{}, error) {
	switch purpose {
	case services.PurposeVerifyEmail:
		return &models.VerificationToken{}, nil
	case services.PurposeResetPassword:
		return &models.PasswordResetToken{}, nil
	}
	return nil, fmt.Errorf("unknown token purpose %d", purpose)
}

// Replace 删除旧令牌和写入新令牌在同一事务中完成
func (r *TokenRepo) Replace(ctx context.Context, purpose services.TokenPurpose, rec services.TokenRecord) error {
	model, err := tokenModel(purpose)
	if err != nil {
		return err
	}

	var row interface{}
	if purpose == services.PurposeVerifyEmail {
		row = &models.VerificationToken{ID: rec.ID, UserID: rec.UserID, Token: rec.Token, ExpiresAt: rec.ExpiresAt}
	} else {
		row = &models.PasswordResetToken{ID: rec.ID, UserID: rec.UserID, Token: rec.Token, ExpiresAt: rec.ExpiresAt}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", rec.UserID).Delete(model).Error; err != nil {
			return translate("delete old tokens", err)
		}
		return translate("create token", tx.Create(row).Error)
	})
}

func (r *TokenRepo) Find(ctx context.Context, purpose services.TokenPurpose, token string) (*services.TokenRecord, error) {
	model, err := tokenModel(purpose)
	if err != nil {
		return nil, err
	}
	var rec services.TokenRecord
	res := r.db.WithContext(ctx).
		Model(model).
		Select("id, user_id, token, expires_at").
		Where("token = ?", token).
		Limit(1).
		Scan(&rec)
	if res.Error != nil {
		return nil, translate("find token", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, services.ErrNotFound
	}
	return &rec, nil
}

func (r *TokenRepo) Delete(ctx context.Context, purpose services.TokenPurpose, id string) error {
	model, err := tokenModel(purpose)
	if err != nil {
		return err
	}
	return translate("delete token", r.db.WithContext(ctx).Where("id = ?", id).Delete(model).Error)
}
