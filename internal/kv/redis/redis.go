// Package redis stores key-value blobs in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis"

	"finbot/internal/kv"
	"finbot/internal/log"
)

// commands is the subset of *goredis.Client the store uses.
type commands interface {
	Get(key string) *goredis.StringCmd
	Set(key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Ping() *goredis.StatusCmd
	Close() error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key, e.g. "finbot:".
	Prefix string
}

type Store struct {
	client commands
	prefix string
	logger *log.Logger
}

var _ kv.Store = (*Store)(nil)

// New connects to Redis and checks the connection.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return newStore(client, cfg.Prefix), nil
}

func newStore(c commands, prefix string) *Store {
	return &Store{client: c, prefix: prefix, logger: log.NewLogger(log.ComponentStorage)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := s.client.Get(s.prefix + key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Set(s.prefix+key, value, 0).Err(); err != nil {
		s.logger.ErrorContext(ctx, "Unable to set key", "key", key, log.FieldError, err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.Ping().Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
