package services

import (
	"context"
	"time"

	"voltprep/internal/models"
)

// UserMutation 在行锁内修改用户，返回需要同时写入的经验流水
type UserMutation func(u *models.User) ([]models.XPLog, error)

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	FindByStripeCustomer(ctx context.Context, customerID string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	// WithLock 在事务中 SELECT ... FOR UPDATE 读取用户，先写入 inserts，执行 fn 后写回游戏化字段和流水
	WithLock(ctx context.Context, id string, fn UserMutation, inserts ...interface{}) error
	// ActiveSince 返回在 since 之后有答题记录的用户
	ActiveSince(ctx context.Context, since time.Time) ([]string, error)
}

// AttemptStats 答题记录聚合
type AttemptStats struct {
	Total         int64
	Correct       int64
	Distinct      int64
	AnsweredToday int64
}

type ProgressStore interface {
	Create(ctx context.Context, p *models.UserProgress) error
	Stats(ctx context.Context, userID string, since time.Time) (AttemptStats, error)
	CountCorrect(ctx context.Context, userID string) (int64, error)
}

// SessionTotals 已结束会话的聚合
type SessionTotals struct {
	Completed int64
	XPEarned  int64
	ByType    map[models.SessionType]int64
}

type SessionStore interface {
	Create(ctx context.Context, s *models.StudySession) error
	// Close 按 id 和 userID 同时匹配且只处理未结束的会话，返回受影响行数
	Close(ctx context.Context, userID, sessionID string, fields map[string]interface{}) (int64, error)
	Totals(ctx context.Context, userID string) (SessionTotals, error)
}

// DailyXP 某天获得的经验
type DailyXP struct {
	Day    string `json:"day"`
	Amount int    `json:"amount"`
}

type XPLogStore interface {
	// SumExcluding 汇总除指定动作以外的流水
	SumExcluding(ctx context.Context, userID string, actions ...string) (int64, error)
	DailySince(ctx context.Context, userID string, since time.Time) ([]DailyXP, error)
}

type BookmarkStore interface {
	Find(ctx context.Context, kind models.BookmarkKind, userID, itemID string) (string, error)
	Create(ctx context.Context, kind models.BookmarkKind, id, userID, itemID string, at time.Time) error
	Delete(ctx context.Context, kind models.BookmarkKind, userID, id string) (int64, error)
	List(ctx context.Context, kind models.BookmarkKind, userID string) ([]BookmarkView, error)
}

type QuizResultStore interface {
	Create(ctx context.Context, r *models.QuizResult) error
	ListByUser(ctx context.Context, userID string) ([]models.QuizResult, error)
}

// TokenPurpose 区分两类一次性令牌
type TokenPurpose int

const (
	PurposeVerifyEmail TokenPurpose = iota
	PurposeResetPassword
)

// TokenRecord 令牌存储无关的视图
type TokenRecord struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}

type TokenStore interface {
	// Replace 删除用户该用途下的旧令牌后写入新令牌
	Replace(ctx context.Context, purpose TokenPurpose, rec TokenRecord) error
	Find(ctx context.Context, purpose TokenPurpose, token string) (*TokenRecord, error)
	Delete(ctx context.Context, purpose TokenPurpose, id string) error
}

// Clock 便于测试注入时间
type Clock func() time.Time
