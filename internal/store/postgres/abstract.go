package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"
	"github.com/cwrk-planet/chat-service/internal/store/postgres/queries"

	"github.com/jackc/pgx/v5"
	pgconn "github.com/jackc/pgx/v5/pgconn"
)

/*
общий интерфейс *pgxpool.Pool и pgx.Tx,
чтобы хранилище работало и в транзакции, и без неё
*/
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique violation
			return store.ErrAlreadyExists
		case "23503": // foreign key violation
			return store.ErrNotFound
		}
	}
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		avatarURL *string
		status    string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &avatarURL, &status, &u.HidePresence); err != nil {
		return nil, err
	}
	if avatarURL != nil {
		u.AvatarURL = *avatarURL
	}
	u.Status = domain.UserStatus(status)
	return &u, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m      domain.Message
		kind   string
		status string
		readBy []string
	)
	err := row.Scan(
		&m.ID,
		&m.SenderID,
		&kind,
		&m.Target.ID,
		&m.Text,
		&m.Attachment,
		&status,
		&readBy,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Target.Kind = domain.TargetKind(kind)
	m.Status = domain.MessageStatus(status)
	m.ReadBy = domain.NewReadSet(readBy...)
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// collect читает все строки и закрывает rows
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

// likePattern экранирует спецсимволы ILIKE и оборачивает запрос в %...%
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}

func nullString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// groupExists нужен, чтобы отличить «нечего менять» от «группы нет»
func (s *Store) groupExists(ctx context.Context, id string) error {
	var one int
	if err := s.q.QueryRow(ctx, queries.QueryGroupExists, id).Scan(&one); err != nil {
		return mapPgError(err)
	}
	return nil
}
