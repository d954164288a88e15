package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ContactLimit      = 3
	ContactWindow     = time.Hour
	sweepThreshold    = 10000
	redisContactScope = "contact"
)

// Decision 一次限流判断的结果
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// ResetInSeconds 向上取整，拒绝时至少为 1
func (d Decision) ResetInSeconds() int {
	secs := int(math.Ceil(d.ResetIn.Seconds()))
	if secs < 1 && !d.Allowed {
		return 1
	}
	return secs
}

// Limiter 固定窗口计数器
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter 进程内实现，重启后清零，多实例之间不共享
type MemoryLimiter struct {
	mu         sync.Mutex
	entries    map[string]*fixedWindow
	limit      int
	window     time.Duration
	maxEntries int
	now        Clock
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		entries:    make(map[string]*fixedWindow),
		limit:      limit,
		window:     window,
		maxEntries: sweepThreshold,
		now:        time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) > l.maxEntries {
		l.sweep(now)
	}

	w, ok := l.entries[key]
	if !ok || !now.Before(w.resetAt) {
		l.entries[key] = &fixedWindow{count: 1, resetAt: now.Add(l.window)}
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - 1, ResetIn: l.window}, nil
	}

	resetIn := w.resetAt.Sub(now)
	if w.count < l.limit {
		w.count++
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count, ResetIn: resetIn}, nil
	}
	return Decision{Allowed: false, Limit: l.limit, Remaining: 0, ResetIn: resetIn}, nil
}

// sweep 清理已过期的窗口，调用方持有锁
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.entries {
		if !now.Before(w.resetAt) {
			delete(l.entries, k)
		}
	}
}

// Len 当前保存的 key 数量
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// RedisLimiter 多实例共享计数。窗口从第一次请求开始，EXPIRE NX 保证不会被后续请求延长。
type RedisLimiter struct {
	client *redis.Client
	scope  string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, scope: redisContactScope, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.scope, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	return l.decide(incr.Val(), ttl.Val()), nil
}

// decide TTL 为负（key 没有过期时间或已不存在）时按完整窗口计算
func (l *RedisLimiter) decide(count int64, ttl time.Duration) Decision {
	resetIn := ttl
	if resetIn < 0 {
		resetIn = l.window
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(count) <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}

// NewRedisClient 解析 REDIS_URL 并检查连通性
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
