package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unweightedai/kol-trust-service/internal/chain"
	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/models"
)

// Client wraps the Redis client with tracker-specific caching
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Token snapshot caching; keeps repeated scoring of the same token
// inside one scan pass off the RPC node.

// SetTokenData caches on-chain token metrics with TTL
func (c *Client) SetTokenData(ctx context.Context, data *chain.TokenData, ttl time.Duration) error {
	key := fmt.Sprintf("token:%s:data", data.Address)
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetTokenData retrieves cached token metrics
func (c *Client) GetTokenData(ctx context.Context, address string) (*chain.TokenData, error) {
	key := fmt.Sprintf("token:%s:data", address)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var data chain.TokenData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}
	return &data, nil
}

// Report caching

// SetReport caches a built report with TTL
func (c *Client) SetReport(ctx context.Context, report *models.Report, ttl time.Duration) error {
	key := fmt.Sprintf("kol:%s:report", report.Handle)
	jsonData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetReport retrieves a cached report
func (c *Client) GetReport(ctx context.Context, handle string) (*models.Report, error) {
	key := fmt.Sprintf("kol:%s:report", handle)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var report models.Report
	if err := json.Unmarshal(jsonData, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// InvalidateReport removes a cached report after a trust adjustment
func (c *Client) InvalidateReport(ctx context.Context, handle string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("kol:%s:report", handle)).Err()
}

// IsCacheMiss reports whether an error is a cache miss rather than a
// Redis failure.
func IsCacheMiss(err error) bool {
	return err == redis.Nil
}
