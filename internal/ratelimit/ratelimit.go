package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(redisURL string) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	return &RateLimiter{client: client}, nil
}

// Allow counts one hit for subject in the current hour window.
func (rl *RateLimiter) Allow(ctx context.Context, subject string, limit int) (bool, error) {
	key := WindowKey(subject, time.Now())

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		rl.client.Expire(ctx, key, time.Hour)
	}

	return count <= int64(limit), nil
}

func WindowKey(subject string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s", subject, now.UTC().Format("2006-01-02-15"))
}

func (rl *RateLimiter) Close() error {
	return rl.client.Close()
}
