package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{
		client: client,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("key not found")
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// Cache key generators
func ScheduleCacheKey(season int) string {
	return fmt.Sprintf("schedule:%d", season)
}

func TeamScheduleCacheKey(season int, abbr string) string {
	return fmt.Sprintf("schedule:%d:%s", season, abbr)
}

func SimulationCacheKey(season, week int, entryID uint, nSims int) string {
	return fmt.Sprintf("simulation:%d:%d:%d:%d", season, week, entryID, nSims)
}

func RecommendationCacheKey(season, week int) string {
	return fmt.Sprintf("recommend:%d:%d", season, week)
}

// InvalidateSeason drops all cached schedule and optimizer output for a
// season, used after a results refresh rewrites win probabilities.
func (s *CacheService) InvalidateSeason(ctx context.Context, season int) {
	patterns := []string{
		fmt.Sprintf("schedule:%d*", season),
		fmt.Sprintf("simulation:%d:*", season),
		fmt.Sprintf("recommend:%d:*", season),
	}
	for _, pattern := range patterns {
		keys, err := s.client.Keys(ctx, pattern).Result()
		if err != nil {
			logrus.Warnf("Cache scan failed for %s: %v", pattern, err)
			continue
		}
		if len(keys) > 0 {
			if err := s.Delete(ctx, keys...); err != nil {
				logrus.Warnf("Cache invalidation failed for %s: %v", pattern, err)
			}
		}
	}
}

// SetWithRetry retries transient cache write failures with linear backoff.
func (s *CacheService) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = s.Set(ctx, key, value, expiration); err == nil {
			return nil
		}
		logrus.Warnf("Cache set failed (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Millisecond * 100 * time.Duration(i+1))
	}
	return err
}
