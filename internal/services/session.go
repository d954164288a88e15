package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"voltprep/internal/models"
)

type OpenInput struct {
	SessionType  string  `json:"sessionType"`
	CategorySlug *string `json:"categorySlug"`
}

type CloseInput struct {
	SessionID         string `json:"sessionId"`
	XPEarned          *int   `json:"xpEarned"`
	QuestionsAnswered *int   `json:"questionsAnswered"`
	QuestionsCorrect  *int   `json:"questionsCorrect"`
}

type CloseResult struct {
	CompletionBonus int `json:"completionBonus"`
	NewStreak       int `json:"newStreak"`
}

// SessionLifecycle 学习会话的开启与结束
type SessionLifecycle struct {
	users    UserStore
	sessions SessionStore
	now      Clock
}

func NewSessionLifecycle(users UserStore, sessions SessionStore) *SessionLifecycle {
	return &SessionLifecycle{users: users, sessions: sessions, now: time.Now}
}

func (s *SessionLifecycle) Open(ctx context.Context, userID string, in OpenInput) (string, error) {
	sessionType, err := models.ParseSessionType(in.SessionType)
	if err != nil {
		return "", invalid("sessionType", "sessionType must be one of quiz, flashcard, mock_exam, daily_challenge")
	}

	var category *string
	if in.CategorySlug != nil {
		if slug := strings.TrimSpace(*in.CategorySlug); slug != "" {
			category = &slug
		}
	}

	session := models.StudySession{
		ID:           uuid.NewString(),
		UserID:       userID,
		SessionType:  sessionType,
		CategorySlug: category,
		StartedAt:    s.now(),
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return session.ID, nil
}

// Close 结束会话并发放完成奖励。
// 同一天多次结束会话每次都有奖励，但连续天数不会重复增加。
func (s *SessionLifecycle) Close(ctx context.Context, userID string, in CloseInput) (*CloseResult, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		return nil, invalid("sessionId", "sessionId is required")
	}
	for field, v := range map[string]*int{
		"xpEarned":          in.XPEarned,
		"questionsAnswered": in.QuestionsAnswered,
		"questionsCorrect":  in.QuestionsCorrect,
	} {
		if v != nil && *v < 0 {
			return nil, invalid(field, "%s must not be negative", field)
		}
	}

	now := s.now()
	xpEarned := 0
	if in.XPEarned != nil {
		xpEarned = *in.XPEarned
	}

	// 不属于当前用户的会话影响 0 行，不视为错误
	_, err := s.sessions.Close(ctx, userID, in.SessionID, map[string]interface{}{
		"ended_at":           now,
		"xp_earned":          xpEarned,
		"questions_answered": in.QuestionsAnswered,
		"questions_correct":  in.QuestionsCorrect,
	})
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}

	result := &CloseResult{CompletionBonus: XPSessionComplete}
	err = s.users.WithLock(ctx, userID, func(u *models.User) ([]models.XPLog, error) {
		ApplyXP(u, XPSessionComplete)
		u.StudyStreak = NextStreak(u.LastStudyDate, u.StudyStreak, now)
		u.LastStudyDate = &now
		result.NewStreak = u.StudyStreak
		return []models.XPLog{newXPLog(userID, XPSessionComplete, ActionSessionBonus)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply session bonus: %w", err)
	}
	return result, nil
}
