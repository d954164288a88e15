package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"voltprep/internal/services"
)

// translate 把 gorm 错误转换为服务层错误
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return services.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return services.ErrConflict
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

var (
	_ services.UserStore       = (*UserRepo)(nil)
	_ services.ProgressStore   = (*ProgressRepo)(nil)
	_ services.SessionStore    = (*SessionRepo)(nil)
	_ services.XPLogStore      = (*XPLogRepo)(nil)
	_ services.BookmarkStore   = (*BookmarkRepo)(nil)
	_ services.QuizResultStore = (*QuizResultRepo)(nil)
	_ services.TokenStore      = (*TokenRepo)(nil)
)
