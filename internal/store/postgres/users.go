package postgres

import (
	"context"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"
	"github.com/cwrk-planet/chat-service/internal/store/postgres/queries"

	"github.com/google/uuid"
)

// UpsertUser создаёт пользователя или обновляет профиль. Статус и hidePresence существующего не трогаются.
func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = domain.StatusOffline
	}
	_, err := s.q.Exec(
		ctx,
		queries.QueryUpsertUser,
		u.ID,
		strings.TrimSpace(u.Username),
		u.Name,
		nullString(u.AvatarURL),
		string(u.Status),
		u.HidePresence,
	)
	return mapPgError(err)
}

// ResetStatuses переводит всех в offline. Вызывается при старте: соединения прошлого процесса уже мертвы.
func (s *Store) ResetStatuses(ctx context.Context) (int64, error) {
	tag, err := s.q.Exec(ctx, queries.QueryResetStatuses)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.q.QueryRow(ctx, queries.QueryGetUserByID, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(s.q.QueryRow(ctx, queries.QueryGetUserByUsername, username))
	if err != nil {
		return nil, mapPgError(err)
	}
	return u, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return s.queryUsers(ctx, queries.QueryGetUsersByIDs, ids)
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	return s.queryUsers(ctx, queries.QueryListUsers, limit)
}

func (s *Store) SearchUsers(ctx context.Context, q string, exclude []string, limit int) ([]domain.User, error) {
	if exclude == nil {
		exclude = []string{}
	}
	return s.queryUsers(ctx, queries.QuerySearchUsers, likePattern(q), exclude, limit)
}

func (s *Store) SetStatus(ctx context.Context, id string, status domain.UserStatus) error {
	return s.updateUser(ctx, queries.QuerySetUserStatus, id, string(status))
}

func (s *Store) SetHidePresence(ctx context.Context, id string, hidden bool) error {
	return s.updateUser(ctx, queries.QuerySetHidePresence, id, hidden)
}

func (s *Store) ListVisiblePresence(ctx context.Context) ([]domain.Presence, error) {
	rows, err := s.q.Query(ctx, queries.QueryListVisiblePresence)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := make([]domain.Presence, 0)
	for rows.Next() {
		var p domain.Presence
		var status string
		if err := rows.Scan(&p.UserID, &status); err != nil {
			return nil, err
		}
		p.Status = domain.UserStatus(status)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (s *Store) queryUsers(ctx context.Context, sql string, args ...any) ([]domain.User, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	return collect(rows, scanUser)
}

func (s *Store) updateUser(ctx context.Context, sql string, id string, value any) error {
	tag, err := s.q.Exec(ctx, sql, id, value)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
