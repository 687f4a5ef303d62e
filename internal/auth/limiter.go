package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

// AttemptLimiter はIP単位のログイン試行回数制限を提供します。
type AttemptLimiter interface {
	// RetryAfter はロック中の残り時間を返します。0ならログイン試行可能です。
	RetryAfter(ctx context.Context, ip string) time.Duration
	// RecordFailure は失敗を記録し、残り試行回数を返します。
	RecordFailure(ctx context.Context, ip string) int
	// Reset は成功時に試行履歴を消去します。
	Reset(ctx context.Context, ip string)
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// MemoryLimiter はプロセス内メモリで試行回数を数える AttemptLimiter です。
// 単一インスタンス構成向けのデフォルト実装です。
type MemoryLimiter struct {
	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewMemoryLimiter は MemoryLimiter を作成します。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{attempts: make(map[string]*attemptState)}
}

func (l *MemoryLimiter) RetryAfter(_ context.Context, ip string) time.Duration {
	l.lock.Lock()
	defer l.lock.Unlock()

	state, ok := l.attempts[ip]
	if !ok {
		return 0
	}
	now := time.Now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return time.Until(state.lockedUntil)
}

func (l *MemoryLimiter) RecordFailure(_ context.Context, ip string) int {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := time.Now()
	state, ok := l.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		l.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (l *MemoryLimiter) Reset(_ context.Context, ip string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.attempts, ip)
}

const (
	failKeyPrefix = "login:fail:"
	lockKeyPrefix = "login:lock:"
)

// RedisLimiter は試行回数をRedisで共有する AttemptLimiter です。
// 複数インスタンスで同じ制限を適用したい場合に使います。
// Redisに到達できない場合は制限なしとして扱います（ログインを止めない）。
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter は RedisLimiter を作成します。
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) RetryAfter(ctx context.Context, ip string) time.Duration {
	ttl, err := l.rdb.TTL(ctx, lockKeyPrefix+ip).Result()
	if err != nil || ttl <= 0 {
		return 0
	}
	return ttl
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, ip string) int {
	key := failKeyPrefix + ip
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return maxLoginAttempts - 1
	}
	if count == 1 {
		l.rdb.Expire(ctx, key, loginWindow)
	}
	if count >= int64(maxLoginAttempts) {
		l.rdb.Set(ctx, lockKeyPrefix+ip, "1", lockDuration)
	}

	remaining := maxLoginAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (l *RedisLimiter) Reset(ctx context.Context, ip string) {
	l.rdb.Del(ctx, failKeyPrefix+ip, lockKeyPrefix+ip)
}
