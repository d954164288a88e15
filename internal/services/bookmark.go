package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"voltprep/internal/models"
)

// BookmarkView 两种收藏共用的返回结构
type BookmarkView struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	CreatedAt time.Time `json:"createdAt"`
}

type BookmarkService struct {
	store BookmarkStore
	now   Clock
}

func NewBookmarkService(store BookmarkStore) *BookmarkService {
	return &BookmarkService{store: store, now: time.Now}
}

// Add 已收藏时返回已有记录的 id，created 为 false
func (s *BookmarkService) Add(ctx context.Context, kind models.BookmarkKind, userID, itemID string) (id string, created bool, err error) {
	if !kind.Valid() {
		return "", false, invalid("kind", "unknown bookmark kind")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return "", false, invalid("itemId", "%s is required", itemField(kind))
	}

	existing, err := s.store.Find(ctx, kind, userID, itemID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", false, fmt.Errorf("find bookmark: %w", err)
	}

	id = uuid.NewString()
	if err := s.store.Create(ctx, kind, id, userID, itemID, s.now()); err != nil {
		return "", false, fmt.Errorf("create bookmark: %w", err)
	}
	return id, true, nil
}

func (s *BookmarkService) Remove(ctx context.Context, kind models.BookmarkKind, userID, id string) error {
	n, err := s.store.Delete(ctx, kind, userID, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BookmarkService) List(ctx context.Context, kind models.BookmarkKind, userID string) ([]BookmarkView, error) {
	items, err := s.store.List(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	if items == nil {
		items = []BookmarkView{}
	}
	return items, nil
}

func itemField(kind models.BookmarkKind) string {
	if kind == models.BookmarkFlashcard {
		return "flashcardId"
	}
	return "questionId"
}
