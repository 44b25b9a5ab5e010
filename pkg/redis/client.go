// Package redis connects the job queue's Redis backend.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// Client is a verified Redis connection.
type Client struct {
	*redis.Client
}

// NewClient dials Redis and pings it before handing the client out, so a
// missing broker fails at startup rather than on the first enqueue.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", addr, err)
	}

	if logger != nil {
		logger.Info("redis connected", zap.String("addr", addr), zap.Int("db", db))
	}
	return &Client{Client: rdb}, nil
}
