// Package rediskv stores the store's keys in Redis.
package rediskv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/saber-pedagogico/saber/core/store"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key, eg. "saber:".
	Prefix string
	// Timeout bounds every command. Defaults to 3s.
	Timeout time.Duration
}

type Storage struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// Open connects to Redis and checks the connection.
func Open(opts Options) (*Storage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	s := New(client, opts.Prefix, opts.Timeout)

	ctx, cancel := s.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}
	return s, nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string, timeout time.Duration) *Storage {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Storage{client: client, prefix: prefix, timeout: timeout}
}

func (s *Storage) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Storage) Save(key, value string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "setting %s", key)
	}
	return nil
}

func (s *Storage) Load(key string) (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "getting %s", key)
	}
	return value, nil
}

func (s *Storage) Remove(key string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "deleting %s", key)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
