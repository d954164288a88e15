package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"voltprep/internal/models"
)

// AnswerInput 一次答题提交；IsCorrect 为指针以区分缺失和 false
type AnswerInput struct {
	QuestionID       string `json:"questionId"`
	IsCorrect        *bool  `json:"isCorrect"`
	TimeSpentSeconds *int   `json:"timeSpentSeconds"`
}

type AnswerResult struct {
	ProgressID string   `json:"progressId"`
	XPEarned   int      `json:"xpEarned"`
	PreviousXP int      `json:"previousXP"`
	TotalXP    int      `json:"totalXp"`
	Level      int      `json:"level"`
	LevelUp    *LevelUp `json:"levelUp"`
}

// ReconcileScheduler 经验发放失败后登记待对账用户
type ReconcileScheduler interface {
	ScheduleUser(userID string)
}

type ProgressRecorder struct {
	users      UserStore
	attempts   ProgressStore
	reconciler ReconcileScheduler
	now        Clock
}

func NewProgressRecorder(users UserStore, attempts ProgressStore, reconciler ReconcileScheduler) *ProgressRecorder {
	return &ProgressRecorder{users: users, attempts: attempts, reconciler: reconciler, now: time.Now}
}

func (r *ProgressRecorder) Record(ctx context.Context, userID string, in AnswerInput) (*AnswerResult, error) {
	in.QuestionID = strings.TrimSpace(in.QuestionID)
	if in.QuestionID == "" {
		return nil, invalid("questionId", "questionId is required")
	}
	if in.IsCorrect == nil {
		return nil, invalid("isCorrect", "isCorrect must be a boolean")
	}
	if in.TimeSpentSeconds != nil && *in.TimeSpentSeconds < 0 {
		return nil, invalid("timeSpentSeconds", "timeSpentSeconds must not be negative")
	}

	previousXP := 0
	user, err := r.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		previousXP = user.XP
	case errors.Is(err, ErrNotFound):
		log.Printf("progress: user %s missing, treating xp as 0", userID)
	default:
		return nil, fmt.Errorf("load user: %w", err)
	}

	attempt := models.UserProgress{
		ID:               uuid.NewString(),
		UserID:           userID,
		QuestionID:       in.QuestionID,
		IsCorrect:        *in.IsCorrect,
		TimeSpentSeconds: in.TimeSpentSeconds,
		AnsweredAt:       r.now(),
	}
	result := &AnswerResult{
		ProgressID: attempt.ID,
		PreviousXP: previousXP,
		TotalXP:    previousXP,
		Level:      LevelFromXP(previousXP),
	}

	if !*in.IsCorrect || user == nil {
		if err := r.attempts.Create(ctx, &attempt); err != nil {
			return nil, fmt.Errorf("record attempt: %w", err)
		}
		if *in.IsCorrect {
			result.XPEarned = XPCorrectAnswer
			result.TotalXP = previousXP + XPCorrectAnswer
			result.Level = LevelFromXP(result.TotalXP)
			result.LevelUp = CheckLevelUp(previousXP, result.TotalXP)
		}
		return result, nil
	}

	// 答题记录和经验在同一个行锁事务里写入，对账任务看不到只有记录没有经验的中间状态
	err = r.users.WithLock(ctx, userID, func(u *models.User) ([]models.XPLog, error) {
		result.PreviousXP = u.XP
		ApplyXP(u, XPCorrectAnswer)
		result.TotalXP = u.XP
		result.Level = u.Level
		return []models.XPLog{newXPLog(userID, XPCorrectAnswer, ActionCorrectAnswer)}, nil
	}, &attempt)
	if err != nil {
		// 事务已回滚：单独保存答题记录，经验由对账任务补发
		if cerr := r.attempts.Create(ctx, &attempt); cerr != nil && !errors.Is(cerr, ErrConflict) {
			return nil, fmt.Errorf("record attempt: %w", cerr)
		}
		if r.reconciler != nil {
			r.reconciler.ScheduleUser(userID)
		}
		return nil, fmt.Errorf("award xp: %w", err)
	}

	result.XPEarned = XPCorrectAnswer
	result.LevelUp = CheckLevelUp(result.PreviousXP, result.TotalXP)
	return result, nil
}
