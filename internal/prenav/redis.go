package prenav

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis-backed store
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	TTL          time.Duration
	PollInterval time.Duration
	DialTimeout  time.Duration
}

// RedisStore shares captures between the capture step and the sandbox when
// they run in different processes. Values are stored as JSON.
type RedisStore struct {
	client       *redis.Client
	prefix       string
	ttl          time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("prenav: redis ping %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreFromClient(client, cfg, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "prenav"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:       client,
		prefix:       cfg.KeyPrefix,
		ttl:          cfg.TTL,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}
}

func (r *RedisStore) redisKey(key Key) string {
	return fmt.Sprintf("%s:%s:%s:%s", r.prefix, key.JobID, key.RequestID, key.Name)
}

func (r *RedisStore) Put(ctx context.Context, key Key, value interface{}) error {
	if !key.valid() {
		return ErrInvalidKey
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("prenav: encode %s: %w", key.Name, err)
	}
	if err := r.client.Set(ctx, r.redisKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("prenav: put %s: %w", key.Name, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key Key) (interface{}, bool, error) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("prenav: get %s: %w", key.Name, err)
	}
	var v interface{}
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("prenav: decode %s: %w", key.Name, err)
	}
	return v, true, nil
}

func (r *RedisStore) Has(ctx context.Context, key Key) (bool, error) {
	n, err := r.client.Exists(ctx, r.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("prenav: exists %s: %w", key.Name, err)
	}
	return n > 0, nil
}

// Wait polls Redis until the key appears.
func (r *RedisStore) Wait(ctx context.Context, key Key, timeout time.Duration) (interface{}, bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		v, ok, err := r.Get(ctx, key)
		if err != nil || ok {
			return v, ok, err
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			r.logger.Debug("Pre-navigation wait timed out",
				zap.String("job_id", key.JobID),
				zap.String("request_id", key.RequestID),
				zap.String("key", key.Name),
				zap.Duration("timeout", timeout))
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// Ping reports whether Redis is reachable
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
