package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the go-redis client used by Redis.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Redis stores artifacts as string values under "<prefix>:<namespace>:<name>".
type Redis struct {
	client    RedisClient
	prefix    string
	namespace string
}

// DefaultRedisPrefix is the key prefix used by NewRedis.
const DefaultRedisPrefix = "pseudokit"

// NewRedis returns a backend over client.
func NewRedis(client RedisClient, namespace string) *Redis {
	return &Redis{client: client, prefix: DefaultRedisPrefix, namespace: namespace}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, namespace string) (*Redis, func() error, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedis(client, namespace), client.Close, nil
}

func (r *Redis) key(name string) string {
	return r.prefix + ":" + r.namespace + ":" + name
}

// Read implements Storage.
func (r *Redis) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", r.Location(name), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.Location(name), err)
	}
	return data, nil
}

// Write implements Storage. Artifacts never expire.
func (r *Redis) Write(ctx context.Context, name string, data []byte) error {
	if err := r.client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.Location(name), err)
	}
	return nil
}

// Location implements Storage.
func (r *Redis) Location(name string) string {
	return "redis://" + r.key(name)
}
