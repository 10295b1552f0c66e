package presence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/registry"
	"github.com/cwrk-planet/chat-service/internal/store"
)

// Executor выполняет фоновые записи статуса, см. workerpool.Pool.
type Executor interface {
	TrySubmit(task func()) bool
}

type Tracker struct {
	reg     *registry.Registry
	users   store.UserDirectory
	exec    Executor
	metrics *metrics.Metrics

	persistTimeout time.Duration
}

func NewTracker(reg *registry.Registry, users store.UserDirectory, exec Executor, m *metrics.Metrics, persistTimeout time.Duration) *Tracker {
	if persistTimeout <= 0 {
		persistTimeout = 5 * time.Second
	}
	return &Tracker{
		reg:            reg,
		users:          users,
		exec:           exec,
		metrics:        m,
		persistTimeout: persistTimeout,
	}
}

// Connect регистрирует соединение. Первое соединение видимого пользователя
// переводит его в online и рассылает presence:update всем. Скрытый пользователь
// получает presence:self только в новое соединение.
func (t *Tracker) Connect(ctx context.Context, c registry.Conn) {
	uid := c.UserID()
	first := t.reg.Register(c)

	if t.isHidden(ctx, uid) {
		t.reg.EmitToConnection(uid, c.ID(), events.PresenceSelf(uid, domain.StatusOnline))
		return
	}
	if !first {
		return
	}

	t.persistAsync(uid)
	t.reg.Broadcast(events.PresenceUpdate(uid, domain.StatusOnline))
	t.metrics.PresenceChanged(string(domain.StatusOnline))
	slog.Debug("presence: online", "user", uid, "conn", c.ID())
}

// Disconnect снимает соединение. На последнем соединении видимый пользователь уходит в offline.
func (t *Tracker) Disconnect(ctx context.Context, c registry.Conn) {
	uid := c.UserID()
	if !t.reg.Unregister(c) {
		return
	}

	hidden := t.isHidden(ctx, uid)

	// пока ходили в справочник, пользователь мог переподключиться
	if t.reg.IsOnline(uid) {
		slog.Debug("presence: reconnected before offline", "user", uid)
		return
	}

	if hidden {
		t.reg.EmitToUser(uid, events.PresenceSelf(uid, domain.StatusOffline))
		return
	}

	t.persistAsync(uid)
	t.reg.Broadcast(events.PresenceUpdate(uid, domain.StatusOffline))
	t.metrics.PresenceChanged(string(domain.StatusOffline))
	slog.Debug("presence: offline", "user", uid, "conn", c.ID())
}

// SetStatus: явная смена статуса пользователем, пишется синхронно.
func (t *Tracker) SetStatus(ctx context.Context, userID string, status domain.UserStatus) (*domain.User, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if err := t.users.SetStatus(ctx, userID, status); err != nil {
		return nil, userErr(err)
	}

	u, err := t.users.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}

	t.announce(u)
	return u, nil
}

// SetHidden включает или выключает скрытие присутствия.
func (t *Tracker) SetHidden(ctx context.Context, userID string, hidden bool) (*domain.User, error) {
	before, err := t.users.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}
	if err := t.users.SetHidePresence(ctx, userID, hidden); err != nil {
		return nil, userErr(err)
	}
	u := *before
	u.HidePresence = hidden

	if before.HidePresence != hidden && t.reg.IsOnline(userID) {
		if hidden {
			// для остальных пользователь пропадает
			t.reg.Broadcast(events.PresenceUpdate(userID, domain.StatusOffline))
			t.metrics.PresenceChanged(string(domain.StatusOffline))
		} else if u.Status == domain.StatusOffline {
			// скрытое подключение online не сохраняло, away/busy оставляем как есть
			if err := t.users.SetStatus(ctx, userID, domain.StatusOnline); err != nil {
				return nil, userErr(err)
			}
			u.Status = domain.StatusOnline
		}
		t.announce(&u)
	}
	return &u, nil
}

func (t *Tracker) IsOnline(userID string) bool { return t.reg.IsOnline(userID) }

func (t *Tracker) announce(u *domain.User) {
	if u.HidePresence {
		t.reg.EmitToUser(u.ID, events.PresenceSelf(u.ID, u.Status))
		return
	}
	t.reg.Broadcast(events.PresenceUpdate(u.ID, u.Status))
	t.metrics.PresenceChanged(string(u.Status))
}

// при ошибке справочника считаем пользователя видимым
func (t *Tracker) isHidden(ctx context.Context, userID string) bool {
	u, err := t.users.GetUser(ctx, userID)
	if err != nil {
		slog.Warn("presence: user lookup failed, treating as visible", "user", userID, "err", err)
		return false
	}
	return u.HidePresence
}

// persistAsync пишет статус, который следует из реестра на момент выполнения задачи:
// задачи connect/disconnect могут выполниться в любом порядке, итог один.
func (t *Tracker) persistAsync(userID string) {
	task := func() {
		status := domain.StatusOffline
		if t.reg.IsOnline(userID) {
			status = domain.StatusOnline
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.persistTimeout)
		defer cancel()

		if err := t.users.SetStatus(ctx, userID, status); err != nil {
			slog.Warn("presence: persist status failed", "user", userID, "status", status, "err", err)
		}
	}

	if t.exec == nil {
		go task()
		return
	}
	if !t.exec.TrySubmit(task) {
		t.metrics.PresenceWriteDropped()
		slog.Warn("presence: persist queue full, status write dropped", "user", userID)
	}
}

func userErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrUserNotFound
	}
	return err
}
