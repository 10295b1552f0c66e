package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix     = "chat:user:"
	usernameKeyPrefix = "chat:user:name:"
	genKeyPrefix      = "chat:user:gen:"

	defaultTTL = 5 * time.Minute
	minGenTTL  = time.Hour
)

func userKey(id string) string           { return userKeyPrefix + id }
func usernameKey(username string) string { return usernameKeyPrefix + username }
func genKey(id string) string            { return genKeyPrefix + id }

// saveScript пишет профиль, только если с момента чтения из справочника
// не было инвалидации (поколение не изменилось).
var saveScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
redis.call('SET', KEYS[3], ARGV[3], 'PX', ARGV[4])
return 1
`)

// Users: кэш профилей поверх справочника пользователей.
// Чтения идут через redis, любая запись в профиль сбрасывает ключ и поднимает
// поколение пользователя, так что запоздавшее чтение не вернёт старую строку в кэш.
// Ошибки redis не ломают запрос: читаем напрямую из справочника.
type Users struct {
	store.UserDirectory

	rdb redis.Cmdable
	ttl time.Duration
}

var _ store.UserDirectory = (*Users)(nil)

func NewUsers(inner store.UserDirectory, rdb redis.Cmdable, ttl time.Duration) *Users {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Users{UserDirectory: inner, rdb: rdb, ttl: ttl}
}

func (c *Users) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := c.load(ctx, userKey(id)); ok {
		return u, nil
	}

	gen, genOK := c.generation(ctx, id)
	u, err := c.UserDirectory.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if genOK {
		c.save(ctx, u, gen)
	}
	return u, nil
}

// GetUserByUsername кэширует только индекс username -> id, профиль читается через GetUser.
func (c *Users) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, err := c.rdb.Get(ctx, usernameKey(username)).Result()
	switch {
	case err == nil:
		if u, err := c.GetUser(ctx, id); err == nil && u.Username == username {
			return u, nil
		}
	case !errors.Is(err, redis.Nil):
		slog.Warn("cache: username lookup failed", "username", username, "err", err)
	}

	u, err := c.UserDirectory.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, usernameKey(username), u.ID, c.ttl).Err(); err != nil {
		slog.Warn("cache: set username index failed", "username", username, "err", err)
	}
	return u, nil
}

func (c *Users) SetStatus(ctx context.Context, id string, status domain.UserStatus) error {
	if err := c.UserDirectory.SetStatus(ctx, id, status); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

func (c *Users) SetHidePresence(ctx context.Context, id string, hidden bool) error {
	if err := c.UserDirectory.SetHidePresence(ctx, id, hidden); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate удаляет профиль из кэша и поднимает поколение. Индекс по username сверяется при чтении.
func (c *Users) Invalidate(ctx context.Context, id string) {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(id))
		p.PExpire(ctx, genKey(id), c.genTTL())
		p.Del(ctx, userKey(id))
		return nil
	})
	if err != nil {
		slog.Warn("cache: invalidate failed", "user", id, "err", err)
	}
}

func (c *Users) genTTL() time.Duration { return max(4*c.ttl, minGenTTL) }

// generation читает поколение до похода в справочник; false: redis недоступен, не кэшируем.
func (c *Users) generation(ctx context.Context, id string) (string, bool) {
	gen, err := c.rdb.Get(ctx, genKey(id)).Result()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return "0", true
	default:
		slog.Warn("cache: get generation failed", "user", id, "err", err)
		return "", false
	}
}

func (c *Users) load(ctx context.Context, key string) (*domain.User, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("cache: get failed", "key", key, "err", err)
		}
		return nil, false
	}

	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		slog.Warn("cache: corrupted entry", "key", key, "err", err)
		return nil, false
	}
	return &u, true
}

func (c *Users) save(ctx context.Context, u *domain.User, gen string) {
	data, err := marshalUser(u)
	if err != nil {
		slog.Warn("cache: marshal failed", "user", u.ID, "err", err)
		return
	}

	keys := []string{genKey(u.ID), userKey(u.ID), usernameKey(u.Username)}
	saved, err := saveScript.Run(ctx, c.rdb, keys, gen, data, u.ID, c.ttl.Milliseconds()).Int()
	switch {
	case err != nil:
		slog.Warn("cache: set failed", "user", u.ID, "err", err)
	case saved == 0:
		slog.Debug("cache: stale read skipped", "user", u.ID)
	}
}

func marshalUser(u *domain.User) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return data, nil
}

// NewClient создаёт клиент и проверяет соединение.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
