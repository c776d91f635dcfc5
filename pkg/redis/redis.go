package redis

import (
	"sync"

	"github.com/membertown/mt-allocation/config"
	"github.com/redis/go-redis/v9"
)

var (
	once   sync.Once
	client *redis.Client
)

// GetClient returns the process-wide redis client.
func GetClient() *redis.Client {
	once.Do(func() {
		c := config.Get()

		client = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Address,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
	})

	return client
}
