package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
)

var ErrRunNotFound = errors.New("runner: 排赛任务不存在")

// RedisProgressStore 在 redis 中保存任务进度和取消标记
type RedisProgressStore struct {
	client     *redis.Client
	expiration time.Duration
}

func NewRedisProgressStore(client *redis.Client, expiration time.Duration) *RedisProgressStore {
	return &RedisProgressStore{
		client:     client,
		expiration: expiration,
	}
}

func progressKey(runID string) string {
	return fmt.Sprintf("run_%s_progress", runID)
}

func cancelKey(runID string) string {
	return fmt.Sprintf("run_%s_cancel", runID)
}

func (s *RedisProgressStore) SaveProgress(ctx context.Context, progress *domain.RunProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, progressKey(progress.ID), data, s.expiration).Err()
}

func (s *RedisProgressStore) GetProgress(ctx context.Context, runID string) (*domain.RunProgress, error) {
	data, err := s.client.Get(ctx, progressKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	progress := &domain.RunProgress{}
	if err := json.Unmarshal(data, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *RedisProgressStore) RequestCancel(ctx context.Context, runID string) error {
	return s.client.Set(ctx, cancelKey(runID), "1", s.expiration).Err()
}

func (s *RedisProgressStore) IsCancelRequested(ctx context.Context, runID string) (bool, error) {
	n, err := s.client.Exists(ctx, cancelKey(runID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
