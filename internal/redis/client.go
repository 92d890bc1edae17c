package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client manages Redis connections and operations
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// StoreCastLocation caches a resolved deployment record for a cast file
func (c *Client) StoreCastLocation(ctx context.Context, castFile string, loc *types.CastLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to marshal cast location: %w", err)
	}

	key := fmt.Sprintf("location:%s", castFile)
	return c.client.Set(ctx, key, data, 24*time.Hour).Err()
}

// GetCastLocation retrieves a cached deployment record, nil when absent
func (c *Client) GetCastLocation(ctx context.Context, castFile string) (*types.CastLocation, error) {
	key := fmt.Sprintf("location:%s", castFile)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cast location: %w", err)
	}

	var loc types.CastLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cast location: %w", err)
	}
	return &loc, nil
}

// DeleteCastLocation removes a cached deployment record
func (c *Client) DeleteCastLocation(ctx context.Context, castFile string) error {
	key := fmt.Sprintf("location:%s", castFile)
	return c.client.Del(ctx, key).Err()
}
