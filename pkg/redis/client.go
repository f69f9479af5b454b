package redis

import (
	"github.com/redis/go-redis/v9"

	"planboard/pkg/config"
)

// New builds the redis client used for role-snapshot caching.
func New(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
