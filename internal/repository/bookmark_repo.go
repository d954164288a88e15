package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

// BookmarkRepo 题目收藏和闪卡收藏共用，按 kind 选表
type BookmarkRepo struct {
	db *gorm.DB
}

func NewBookmarkRepo(db *gorm.DB) *BookmarkRepo {
	return &BookmarkRepo{db: db}
}

func bookmarkTable(kind models.BookmarkKind) (model interface{}, itemColumn string, err error) {
	switch kind {
	case models.BookmarkQuestion:
		return &models.Bookmark{}, "question_id", nil
	case models.BookmarkFlashcard:
		return &models.FlashcardBookmark{}, "flashcard_id", nil
	}
	return nil, "", fmt.Errorf("unknown bookmark kind %q", kind)
}

func (r *BookmarkRepo) Find(ctx context.Context, kind models.BookmarkKind, userID, itemID string) (string, error) {
	model, column, err := bookmarkTable(kind)
	if err != nil {
		return "", err
	}
	var ids []string
	err = r.db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND "+column+" = ?", userID, itemID).
		Order("created_at").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", translate("find bookmark", err)
	}
	if len(ids) == 0 {
		return "", services.ErrNotFound
	}
	return ids[0], nil
}

func (r *BookmarkRepo) Create(ctx context.Context, kind models.BookmarkKind, id, userID, itemID string, at time.Time) error {
	var row interface{}
	switch kind {
	case models.BookmarkQuestion:
		row = &models.Bookmark{ID: id, UserID: userID, QuestionID: itemID, CreatedAt: at}
	case models.BookmarkFlashcard:
		row = &models.FlashcardBookmark{ID: id, UserID: userID, FlashcardID: itemID, CreatedAt: at}
	default:
		return fmt.Errorf("unknown bookmark kind %q", kind)
	}
	return translate("create bookmark", r.db.WithContext(ctx).Create(row).Error)
}

func (r *BookmarkRepo) Delete(ctx context.Context, kind models.BookmarkKind, userID, id string) (int64, error) {
	model, _, err := bookmarkTable(kind)
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(model)
	return res.RowsAffected, translate("delete bookmark", res.Error)
}

func (r *BookmarkRepo) List(ctx context.Context, kind models.BookmarkKind, userID string) ([]services.BookmarkView, error) {
	model, column, err := bookmarkTable(kind)
	if err != nil {
		return nil, err
	}
	var views []services.BookmarkView
	err = r.db.WithContext(ctx).
		Model(model).
		Select("id, "+column+" AS item_id, created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(&views).Error
	return views, translate("list bookmarks", err)
}
