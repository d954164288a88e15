package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"voltprep/internal/models"
)

const (
	reconcileBatchSize = 50
	reconcileQueueSize = 1000
	reconcileLookback  = 7 * 24 * time.Hour
)

// Reconciler 根据答题记录和经验流水重新计算用户经验，修正漏发或重复发放
type Reconciler struct {
	users    UserStore
	attempts ProgressStore
	xpLogs   XPLogStore

	queue   chan string
	pending map[string]bool
	mu      sync.Mutex
	now     Clock
}

func NewReconciler(users UserStore, attempts ProgressStore, xpLogs XPLogStore) *Reconciler {
	return &Reconciler{
		users:    users,
		attempts: attempts,
		xpLogs:   xpLogs,
		queue:    make(chan string, reconcileQueueSize),
		pending:  make(map[string]bool),
		now:      time.Now,
	}
}

// Start 启动后台 worker 和每日凌晨 3 点的全量对账，ctx 取消后退出
func (r *Reconciler) Start(ctx context.Context) {
	go r.worker(ctx)
	go r.daily(ctx)
}

// ScheduleUser 将用户加入对账队列，已在队列中的跳过
func (r *Reconciler) ScheduleUser(userID string) {
	r.mu.Lock()
	if r.pending[userID] {
		r.mu.Unlock()
		return
	}
	r.pending[userID] = true
	r.mu.Unlock()

	select {
	case r.queue <- userID:
	default:
		r.mu.Lock()
		delete(r.pending, userID)
		r.mu.Unlock()
		log.Printf("reconcile queue full, skipping user %s", userID)
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	batch := make([]string, 0, reconcileBatchSize)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case userID := <-r.queue:
			batch = append(batch, userID)
			if len(batch) >= reconcileBatchSize {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Reconciler) processBatch(ctx context.Context, userIDs []string) {
	for _, userID := range userIDs {
		if _, err := r.ReconcileUser(ctx, userID); err != nil {
			log.Printf("reconcile user %s failed: %v", userID, err)
		}

		r.mu.Lock()
		delete(r.pending, userID)
		r.mu.Unlock()
	}
}

func (r *Reconciler) daily(ctx context.Context) {
	for {
		now := r.now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		log.Println("starting scheduled xp reconciliation...")
		n, err := r.ReconcileRecent(ctx)
		if err != nil {
			log.Printf("scheduled xp reconciliation failed: %v", err)
			continue
		}
		log.Printf("scheduled xp reconciliation done, %d users corrected", n)
	}
}

// ReconcileRecent 对最近 7 天有答题记录的用户对账，返回被修正的用户数
func (r *Reconciler) ReconcileRecent(ctx context.Context) (int, error) {
	userIDs, err := r.users.ActiveSince(ctx, r.now().Add(-reconcileLookback))
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}
	corrected := 0
	for _, userID := range userIDs {
		changed, err := r.ReconcileUser(ctx, userID)
		if err != nil {
			log.Printf("reconcile user %s failed: %v", userID, err)
			continue
		}
		if changed {
			corrected++
		}
	}
	return corrected, nil
}

// ExpectedXP 答对题数 * 25 + 其他来源的流水（会话奖励等）
func (r *Reconciler) ExpectedXP(ctx context.Context, userID string) (int, error) {
	correct, err := r.attempts.CountCorrect(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count correct answers: %w", err)
	}
	other, err := r.xpLogs.SumExcluding(ctx, userID, ActionCorrectAnswer, ActionReconcile)
	if err != nil {
		return 0, fmt.Errorf("sum xp ledger: %w", err)
	}
	expected := int(correct)*XPCorrectAnswer + int(other)
	if expected < 0 {
		expected = 0
	}
	return expected, nil
}

// ReconcileUser 经验或等级不一致时在行锁内修正，并写入 reconcile 流水
func (r *Reconciler) ReconcileUser(ctx context.Context, userID string) (bool, error) {
	changed := false
	err := r.users.WithLock(ctx, userID, func(u *models.User) ([]models.XPLog, error) {
		expected, err := r.ExpectedXP(ctx, userID)
		if err != nil {
			return nil, err
		}
		delta := expected - u.XP
		if delta == 0 && u.Level == LevelFromXP(u.XP) {
			return nil, nil
		}

		changed = true
		ApplyXP(u, delta)
		log.Printf("reconciled user %s: xp adjusted by %d to %d (level %d)", userID, delta, u.XP, u.Level)
		if delta == 0 {
			return nil, nil
		}
		return []models.XPLog{newXPLog(userID, delta, ActionReconcile)}, nil
	})
	return changed, err
}
