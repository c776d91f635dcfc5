package counter

import (
	"context"
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Counter is the admission-control primitive for seat capacity. It lives
// outside the relational store so unrelated participants are not serialized
// behind pool-wide row locks. Both operations are atomic on the counter
// service side.
type Counter interface {
	Increment(ctx context.Context, key string, by int64) (int64, error)
	Decrement(ctx context.Context, key string, by int64) (int64, error)
}

type redisCounter struct {
	logger *logrus.Logger
	rc     *redis.Client
}

func NewRedisCounter(logger *logrus.Logger, rc *redis.Client) Counter {
	return &redisCounter{
		logger: logger,
		rc:     rc,
	}
}

// Increment implements Counter.
func (c *redisCounter) Increment(ctx context.Context, key string, by int64) (int64, error) {
	value, err := c.rc.IncrBy(ctx, key, by).Result()
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusServiceUnavailable, status.SERVICE_UNAVAILABLE, "counter service is unavailable")
	}

	return value, nil
}

// Decrement implements Counter.
func (c *redisCounter) Decrement(ctx context.Context, key string, by int64) (int64, error) {
	value, err := c.rc.DecrBy(ctx, key, by).Result()
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusServiceUnavailable, status.SERVICE_UNAVAILABLE, "counter service is unavailable")
	}

	return value, nil
}
