package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"
	"github.com/cwrk-planet/chat-service/internal/store/memory"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDirectory считает обращения к нижнему справочнику
type countingDirectory struct {
	store.UserDirectory
	gets atomic.Int32

	// afterRead вызывается между чтением строки и возвратом из GetUser
	afterRead func()
}

func (d *countingDirectory) GetUser(ctx context.Context, id string) (*domain.User, error) {
	d.gets.Add(1)
	u, err := d.UserDirectory.GetUser(ctx, id)
	if hook := d.afterRead; hook != nil {
		d.afterRead = nil
		hook()
	}
	return u, err
}

func newDirectory(t *testing.T) *countingDirectory {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.UpsertUser(context.Background(), domain.User{ID: "u1", Username: "alice", Name: "Alice"}))
	return &countingDirectory{UserDirectory: st}
}

// тестам нужен redis на localhost:6379, без него они пропускаются
func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis is not available: %v", err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUsers_ReadThrough(t *testing.T) {
	rdb := getTestRedisClient(t)
	ctx := context.Background()
	dir := newDirectory(t)
	c := NewUsers(dir, rdb, time.Minute)

	u, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	u, err = c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.EqualValues(t, 1, dir.gets.Load(), "second read is served from redis")

	ttl, err := rdb.TTL(ctx, userKey("u1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	byName, err := c.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)
	assert.EqualValues(t, 1, dir.gets.Load())
}

func TestUsers_WritesInvalidate(t *testing.T) {
	rdb := getTestRedisClient(t)
	ctx := context.Background()
	dir := newDirectory(t)
	c := NewUsers(dir, rdb, time.Minute)

	_, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, c.SetHidePresence(ctx, "u1", true))
	require.NoError(t, c.SetStatus(ctx, "u1", domain.StatusBusy))

	u, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.HidePresence)
	assert.Equal(t, domain.StatusBusy, u.Status)
	assert.EqualValues(t, 2, dir.gets.Load())
}

func TestUsers_InvalidationDuringReadIsNotOverwritten(t *testing.T) {
	rdb := getTestRedisClient(t)
	ctx := context.Background()
	dir := newDirectory(t)
	c := NewUsers(dir, rdb, time.Minute)

	// запись профиля проходит, пока чтение держит старую строку
	dir.afterRead = func() {
		require.NoError(t, c.SetHidePresence(ctx, "u1", true))
	}
	stale, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, stale.HidePresence)

	n, err := rdb.Exists(ctx, userKey("u1")).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "stale row must not be cached")

	u, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.HidePresence)

	u, err = c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.HidePresence)
	assert.EqualValues(t, 2, dir.gets.Load())
}

func TestUsers_NotFoundIsNotCached(t *testing.T) {
	rdb := getTestRedisClient(t)
	c := NewUsers(newDirectory(t), rdb, time.Minute)

	_, err := c.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := rdb.Exists(context.Background(), userKey("ghost")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUsers_FallsBackWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	dir := newDirectory(t)
	c := NewUsers(dir, rdb, 0)

	u, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	u, err = c.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	require.NoError(t, c.SetStatus(ctx, "u1", domain.StatusAway))
	assert.ErrorIs(t, c.SetStatus(ctx, "ghost", domain.StatusAway), store.ErrNotFound)
}
