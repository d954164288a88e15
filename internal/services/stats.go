package services

import (
	"context"
	"fmt"
	"time"

	"voltprep/internal/models"
)

type AnswerStats struct {
	TotalAnswered     int64 `json:"totalAnswered"`
	TotalCorrect      int64 `json:"totalCorrect"`
	Accuracy          int   `json:"accuracy"`
	QuestionsAnswered int64 `json:"uniqueQuestions"`
	AnsweredToday     int64 `json:"answeredToday"`
}

type SessionStats struct {
	Completed int64                        `json:"completed"`
	XPEarned  int64                        `json:"xpEarned"`
	ByType    map[models.SessionType]int64 `json:"byType"`
}

type Stats struct {
	Answers    AnswerStats       `json:"answers"`
	Sessions   SessionStats      `json:"sessions"`
	Categories []CategorySummary `json:"categories"`
	XPHistory  []DailyXP         `json:"xpHistory"`
}

const xpHistoryDays = 7

type StatsService struct {
	attempts ProgressStore
	sessions SessionStore
	quizzes  QuizResultStore
	xpLogs   XPLogStore
	now      Clock
}

func NewStatsService(attempts ProgressStore, sessions SessionStore, quizzes QuizResultStore, xpLogs XPLogStore) *StatsService {
	return &StatsService{attempts: attempts, sessions: sessions, quizzes: quizzes, xpLogs: xpLogs, now: time.Now}
}

func (s *StatsService) ForUser(ctx context.Context, userID string) (*Stats, error) {
	today := startOfDay(s.now())

	attempts, err := s.attempts.Stats(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	totals, err := s.sessions.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session totals: %w", err)
	}
	results, err := s.quizzes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quiz results: %w", err)
	}
	history, err := s.xpLogs.DailySince(ctx, userID, today.AddDate(0, 0, -(xpHistoryDays-1)))
	if err != nil {
		return nil, fmt.Errorf("xp history: %w", err)
	}

	byType := totals.ByType
	if byType == nil {
		byType = map[models.SessionType]int64{}
	}

	return &Stats{
		Answers: AnswerStats{
			TotalAnswered:     attempts.Total,
			TotalCorrect:      attempts.Correct,
			Accuracy:          accuracy(attempts.Correct, attempts.Total),
			QuestionsAnswered: attempts.Distinct,
			AnsweredToday:     attempts.AnsweredToday,
		},
		Sessions: SessionStats{
			Completed: totals.Completed,
			XPEarned:  totals.XPEarned,
			ByType:    byType,
		},
		Categories: SummarizeQuizResults(results),
		XPHistory:  fillXPHistory(history, today, xpHistoryDays),
	}, nil
}

func accuracy(correct, total int64) int {
	if total == 0 {
		return 0
	}
	return int((correct*100 + total/2) / total)
}

// fillXPHistory 补齐没有记录的日期，按日期升序
func fillXPHistory(rows []DailyXP, today time.Time, days int) []DailyXP {
	byDay := make(map[string]int, len(rows))
	for _, r := range rows {
		byDay[r.Day] += r.Amount
	}

	out := make([]DailyXP, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(time.DateOnly)
		out = append(out, DailyXP{Day: day, Amount: byDay[day]})
	}
	return out
}
