// ABOUTME: Current-user state slice shared by the composer and front-ends
// ABOUTME: Memory store for single-process use, Redis store to share it between processes
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/models"
	"github.com/redis/go-redis/v9"
)

// ErrNoUser is returned when no user is signed in.
var ErrNoUser = errors.New("no current user")

type Store interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	SetUser(ctx context.Context, u *models.User) error
	ClearUser(ctx context.Context) error
}

// Memory keeps the current user in process.
type Memory struct {
	mu   sync.RWMutex
	user *models.User
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) CurrentUser(ctx context.Context) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil, ErrNoUser
	}
	u := *m.user
	return &u, nil
}

func (m *Memory) SetUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return m.ClearUser(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.user = &cp
	return nil
}

func (m *Memory) ClearUser(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

// RedisStore keeps the current user as JSON under one key.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL, profile string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, profile, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: "crmdeck:user:" + profile, ttl: ttl}
}

func (s *RedisStore) CurrentUser(ctx context.Context) (*models.User, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoUser
	}
	if err != nil {
		return nil, fmt.Errorf("lookup current user: %w", err)
	}

	var u models.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("unmarshal current user: %w", err)
	}
	return &u, nil
}

func (s *RedisStore) SetUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return s.ClearUser(ctx)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal current user: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save current user: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearUser(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// IsAuthenticated reports whether store has a current user.
func IsAuthenticated(ctx context.Context, store Store) bool {
	_, err := store.CurrentUser(ctx)
	return err == nil
}
