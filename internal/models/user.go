package models

import (
	"time"
)

type User struct {
	ID            string       `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string       `gorm:"uniqueIndex;not null" json:"email"` // 统一小写
	Name          string       `gorm:"size:100;not null" json:"name"`
	Username      *string      `gorm:"size:30;uniqueIndex" json:"username"`
	PasswordHash  *string      `json:"-"` // OAuth 账号为空
	AuthProvider  AuthProvider `gorm:"size:20;not null;default:'email'" json:"authProvider"`
	GoogleID      *string      `gorm:"uniqueIndex" json:"-"`
	EmailVerified bool         `gorm:"default:false" json:"emailVerified"`

	City           string     `gorm:"size:100" json:"city"`
	State          string     `gorm:"size:50" json:"state"`
	DateOfBirth    *time.Time `gorm:"type:date" json:"dateOfBirth"`
	TargetExamDate *time.Time `gorm:"type:date" json:"targetExamDate"`
	Newsletter     bool       `gorm:"default:false" json:"newsletter"`

	// 等级必须始终等于 LevelFromXP(XP)
	XP            int        `gorm:"not null;default:0" json:"xp"`
	Level         int        `gorm:"not null;default:1" json:"level"`
	StudyStreak   int        `gorm:"not null;default:0" json:"studyStreak"`
	LastStudyDate *time.Time `json:"lastStudyDate"`

	SubscriptionStatus    SubscriptionStatus `gorm:"size:20;not null;default:'trialing'" json:"subscriptionStatus"`
	TrialEndsAt           *time.Time         `json:"trialEndsAt"`
	StripeCustomerID      *string            `gorm:"uniqueIndex" json:"-"`
	StripeSubscriptionID  *string            `json:"-"`
	SubscriptionPeriodEnd *time.Time         `json:"subscriptionPeriodEnd"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileComplete 用户名、城市、州都填写后才算完整
func (u *User) ProfileComplete() bool {
	return u.Username != nil && *u.Username != "" && u.City != "" && u.State != ""
}

// HasAccess 判断订阅是否仍可使用付费内容
func (u *User) HasAccess(now time.Time) bool {
	switch u.SubscriptionStatus {
	case StatusActive:
		return true
	case StatusTrialing:
		return u.TrialEndsAt != nil && u.TrialEndsAt.After(now)
	case StatusPastDue, StatusCanceled:
		return u.SubscriptionPeriodEnd != nil && u.SubscriptionPeriodEnd.After(now)
	default:
		return false
	}
}
