package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/harperreed/crmdeck/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), "test", time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.CurrentUser(ctx)
	assert.True(t, errors.Is(err, ErrNoUser))
	assert.False(t, IsAuthenticated(ctx, store))

	require.NoError(t, store.SetUser(ctx, &models.User{ID: "u1", Name: "Grace", Email: "grace@example.com"}))
	u, err := store.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Grace", u.Name)
	assert.True(t, IsAuthenticated(ctx, store))

	require.NoError(t, store.SetUser(ctx, nil))
	_, err = store.CurrentUser(ctx)
	assert.True(t, errors.Is(err, ErrNoUser))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreCopies(t *testing.T) {
	m := NewMemory()
	u := &models.User{Name: "Grace"}
	require.NoError(t, m.SetUser(context.Background(), u))
	u.Name = "changed"
	got, _ := m.CurrentUser(context.Background())
	assert.Equal(t, "Grace", got.Name)
}

func TestRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	exerciseStore(t, store)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.SetUser(ctx, &models.User{Name: "Grace"}))
	assert.True(t, s.Exists("crmdeck:user:test"))

	s.FastForward(2 * time.Hour)
	_, err := store.CurrentUser(ctx)
	assert.True(t, errors.Is(err, ErrNoUser))
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore("not-a-url", "", 0)
	assert.Error(t, err)
}
