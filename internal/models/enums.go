package models

import "fmt"

// SessionType 学习会话类型
type SessionType string

const (
	SessionQuiz           SessionType = "quiz"
	SessionFlashcard      SessionType = "flashcard"
	SessionMockExam       SessionType = "mock_exam"
	SessionDailyChallenge SessionType = "daily_challenge"
)

var sessionTypes = []SessionType{SessionQuiz, SessionFlashcard, SessionMockExam, SessionDailyChallenge}

// AuthProvider 账号来源
type AuthProvider string

const (
	ProviderGoogle   AuthProvider = "google"
	ProviderFacebook AuthProvider = "facebook"
	ProviderApple    AuthProvider = "apple"
	ProviderEmail    AuthProvider = "email"
)

var authProviders = []AuthProvider{ProviderGoogle, ProviderFacebook, ProviderApple, ProviderEmail}

// SubscriptionStatus 本地订阅状态
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusExpired  SubscriptionStatus = "expired"
)

var subscriptionStatuses = []SubscriptionStatus{StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusExpired}

// BookmarkKind 收藏对象
type BookmarkKind string

const (
	BookmarkQuestion  BookmarkKind = "question"
	BookmarkFlashcard BookmarkKind = "flashcard"
)

var bookmarkKinds = []BookmarkKind{BookmarkQuestion, BookmarkFlashcard}

func (t SessionType) Valid() bool        { return contains(sessionTypes, t) }
func (p AuthProvider) Valid() bool       { return contains(authProviders, p) }
func (s SubscriptionStatus) Valid() bool { return contains(subscriptionStatuses, s) }
func (k BookmarkKind) Valid() bool       { return contains(bookmarkKinds, k) }

// ParseSessionType 是所有入口校验会话类型的唯一位置
func ParseSessionType(s string) (SessionType, error) {
	return parseEnum(s, sessionTypes, "session type")
}

func ParseAuthProvider(s string) (AuthProvider, error) {
	return parseEnum(s, authProviders, "auth provider")
}

func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	return parseEnum(s, subscriptionStatuses, "subscription status")
}

func ParseBookmarkKind(s string) (BookmarkKind, error) {
	return parseEnum(s, bookmarkKinds, "bookmark kind")
}

func contains[T ~string](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func parseEnum[T ~string](s string, values []T, name string) (T, error) {
	v := T(s)
	if !contains(values, v) {
		return "", fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
