// Package session provides per-user conversation session storage.
//
// This file implements the Redis-backed store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Luks-code/luna-sub000/internal/models"
)

const keyPrefix = "luna:session:"

// Opts holds configuration options for the Redis session store.
type Opts struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Option defines a configuration option for the Redis session store.
type Option func(*Opts)

// WithAddr sets the Redis server address (host:port).
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithPassword sets the Redis password.
func WithPassword(password string) Option {
	return func(o *Opts) { o.Password = password }
}

// WithDB selects the Redis logical database.
func WithDB(db int) Option {
	return func(o *Opts) { o.DB = db }
}

// WithTTL sets the session expiry applied on every write.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// RedisStore implements Store over a Redis key-value server with TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store and verifies
// connectivity with a ping.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("session.NewRedisStore: creating store", "addr_set", cfg.Addr != "", "ttl", cfg.TTL)

	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address not set")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("session.NewRedisStore: ping failed", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	slog.Info("session.NewRedisStore: connected", "addr", cfg.Addr, "ttl", cfg.TTL)
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// Get retrieves the session blob for a user, or nil when absent/expired.
func (s *RedisStore) Get(ctx context.Context, userID string) (*models.SessionBlob, error) {
	payload, err := s.client.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		slog.Debug("RedisStore.Get: session not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore.Get: failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get session for %s: %w", userID, err)
	}
	blob, err := decodeBlob(payload)
	if err != nil {
		slog.Error("RedisStore.Get: decode failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to decode session for %s: %w", userID, err)
	}
	return blob, nil
}

// Put stores the session blob for a user, refreshing its TTL.
func (s *RedisStore) Put(ctx context.Context, userID string, blob *models.SessionBlob) error {
	payload, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to marshal session for %s: %w", userID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+userID, payload, s.ttl).Err(); err != nil {
		slog.Error("RedisStore.Put: failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to store session for %s: %w", userID, err)
	}
	slog.Debug("RedisStore.Put: session stored", "userID", userID, "historyLen", len(blob.MessageHistory))
	return nil
}

// Delete removes the session for a user. Deleting an absent session is not
// an error.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		slog.Error("RedisStore.Delete: failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete session for %s: %w", userID, err)
	}
	slog.Debug("RedisStore.Delete: session deleted", "userID", userID)
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
