package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the match event broker and pings it once.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}

	log.Printf("[Database] connected to Redis at %s, match events on %q", cfg.GetAddr(), cfg.MatchChannel)
	return client, nil
}
