package service

import (
	"answer_eval_backend/internal/util"
	"answer_eval_backend/pkg/logger"
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const runLockKey = "evaluation:run_lock"

// RunLocker guards against two batch runs mutating answer statuses at once.
type RunLocker interface {
	// Acquire takes the lock or returns util.ErrRunInProgress if it is held.
	Acquire(ctx context.Context) error
	// Refresh extends the lock's lifetime mid-run.
	Refresh(ctx context.Context)
	Release(ctx context.Context)
}

// RedisRunLock is a SETNX lock with a TTL so a crashed run cannot wedge the
// pipeline forever. The holder refreshes the TTL once per question, so the TTL
// only needs to outlive a single question, not the whole batch.
type RedisRunLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRunLock(rdb *redis.Client, ttl time.Duration) *RedisRunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisRunLock{rdb: rdb, ttl: ttl}
}

func (l *RedisRunLock) Acquire(ctx context.Context) error {
	ok, err := l.rdb.SetNX(ctx, runLockKey, time.Now().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return util.ErrRunInProgress
	}
	return nil
}

func (l *RedisRunLock) Refresh(ctx context.Context) {
	if err := l.rdb.Expire(ctx, runLockKey, l.ttl).Err(); err != nil {
		logger.Log.Error("failed to refresh run lock", zap.Error(err))
	}
}

func (l *RedisRunLock) Release(ctx context.Context) {
	if err := l.rdb.Del(ctx, runLockKey).Err(); err != nil {
		logger.Log.Error("failed to release run lock", zap.Error(err))
	}
}
