package config

import (
	"context"
	"fmt"
	"time"

	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/redis/go-redis/v9"
)

// OpenRedis connects to url and pings it before returning.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	utils.InfoLogger.Infof("Connected to Redis at %s", opts.Addr)
	return client, nil
}
