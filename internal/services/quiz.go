package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"voltprep/internal/models"
)

type QuizResultInput struct {
	CategorySlug   string  `json:"categorySlug"`
	Difficulty     *string `json:"difficulty"`
	Score          *int    `json:"score"`
	TotalQuestions *int    `json:"totalQuestions"`
	BestStreak     int     `json:"bestStreak"`
}

// CategorySummary 每个分类的最好成绩与最近成绩
type CategorySummary struct {
	CategorySlug      string    `json:"categorySlug"`
	Attempts          int       `json:"attempts"`
	BestPercentage    int       `json:"bestPercentage"`
	LatestPercentage  int       `json:"latestPercentage"`
	LatestCompletedAt time.Time `json:"latestCompletedAt"`
}

type QuizResultService struct {
	results QuizResultStore
	now     Clock
}

func NewQuizResultService(results QuizResultStore) *QuizResultService {
	return &QuizResultService{results: results, now: time.Now}
}

func (s *QuizResultService) Record(ctx context.Context, userID string, in QuizResultInput) (*models.QuizResult, error) {
	slug := strings.TrimSpace(in.CategorySlug)
	if slug == "" {
		return nil, invalid("categorySlug", "categorySlug is required")
	}
	if in.TotalQuestions == nil || *in.TotalQuestions <= 0 {
		return nil, invalid("totalQuestions", "totalQuestions must be a positive integer")
	}
	if in.Score == nil || *in.Score < 0 || *in.Score > *in.TotalQuestions {
		return nil, invalid("score", "score must be between 0 and totalQuestions")
	}
	if in.BestStreak < 0 || in.BestStreak > *in.TotalQuestions {
		return nil, invalid("bestStreak", "bestStreak must be between 0 and totalQuestions")
	}

	result := models.QuizResult{
		ID:             uuid.NewString(),
		UserID:         userID,
		CategorySlug:   slug,
		Difficulty:     in.Difficulty,
		Score:          *in.Score,
		TotalQuestions: *in.TotalQuestions,
		BestStreak:     in.BestStreak,
		CompletedAt:    s.now(),
	}
	if err := s.results.Create(ctx, &result); err != nil {
		return nil, fmt.Errorf("save quiz result: %w", err)
	}
	return &result, nil
}

type QuizHistory struct {
	Results    []models.QuizResult `json:"results"`
	Categories []CategorySummary   `json:"categories"`
}

func (s *QuizResultService) History(ctx context.Context, userID string) (*QuizHistory, error) {
	results, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	if results == nil {
		results = []models.QuizResult{}
	}
	return &QuizHistory{Results: results, Categories: SummarizeQuizResults(results)}, nil
}

// SummarizeQuizResults 在内存中按分类求最好和最近成绩，结果按分类名排序
func SummarizeQuizResults(results []models.QuizResult) []CategorySummary {
	byCategory := make(map[string]*CategorySummary)
	for _, r := range results {
		pct := r.Percentage()
		sum, ok := byCategory[r.CategorySlug]
		if !ok {
			byCategory[r.CategorySlug] = &CategorySummary{
				CategorySlug:      r.CategorySlug,
				Attempts:          1,
				BestPercentage:    pct,
				LatestPercentage:  pct,
				LatestCompletedAt: r.CompletedAt,
			}
			continue
		}
		sum.Attempts++
		if pct > sum.BestPercentage {
			sum.BestPercentage = pct
		}
		if r.CompletedAt.After(sum.LatestCompletedAt) {
			sum.LatestPercentage = pct
			sum.LatestCompletedAt = r.CompletedAt
		}
	}

	out := make([]CategorySummary, 0, len(byCategory))
	for _, sum := range byCategory {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategorySlug < out[j].CategorySlug })
	return out
}
