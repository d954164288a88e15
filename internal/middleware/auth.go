package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

const (
	CheckUserKey  = "user"
	IdentityKey   = "identity"
	SessionUserID = "user_id"
)

// Identity 每个请求可见的身份摘要
type Identity struct {
	UserID                string                    `json:"userId"`
	EmailVerified         bool                      `json:"emailVerified"`
	ProfileComplete       bool                      `json:"profileComplete"`
	SubscriptionStatus    models.SubscriptionStatus `json:"subscriptionStatus"`
	TrialEndsAt           *time.Time                `json:"trialEndsAt"`
	SubscriptionPeriodEnd *time.Time                `json:"subscriptionPeriodEnd"`
	HasAccess             bool                      `json:"hasAccess"`
}

func NewIdentity(u *models.User, now time.Time) *Identity {
	return &Identity{
		UserID:                u.ID,
		EmailVerified:         u.EmailVerified,
		ProfileComplete:       u.ProfileComplete(),
		SubscriptionStatus:    u.SubscriptionStatus,
		TrialEndsAt:           u.TrialEndsAt,
		SubscriptionPeriodEnd: u.SubscriptionPeriodEnd,
		HasAccess:             u.HasAccess(now),
	}
}

// UserFinder LoadUser 只需要按 id 查用户
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// LoadUser 从 session 读取用户并放入 context，用户已不存在时清理 session
func LoadUser(users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(SessionUserID).(string)
		if ok && userID != "" {
			user, err := users.FindByID(c.Request.Context(), userID)
			switch {
			case err == nil:
				c.Set(CheckUserKey, user)
				c.Set(IdentityKey, NewIdentity(user, time.Now()))
			case errors.Is(err, services.ErrNotFound):
				session.Delete(SessionUserID)
				session.Save()
			default:
				log.Printf("load session user %s: %v", userID, err)
			}
		}
		c.Next()
	}
}

// AuthRequired 未登录返回 401 JSON
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(IdentityKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// CurrentIdentity 仅在 AuthRequired 之后调用
func CurrentIdentity(c *gin.Context) *Identity {
	return c.MustGet(IdentityKey).(*Identity)
}

func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(CheckUserKey).(*models.User)
}

// Login 写入 session
func Login(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Set(SessionUserID, userID)
	return session.Save()
}

func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
