package postgres

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"
	"github.com/cwrk-planet/chat-service/internal/store/postgres/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = domain.MessageSent
	}

	_, err := s.q.Exec(
		ctx,
		queries.QueryCreateMessage,
		m.ID,
		m.SenderID,
		string(m.Target.Kind),
		m.Target.ID,
		m.Text,
		m.Attachment,
		string(m.Status),
		m.ReadBy.IDs(),
		m.CreatedAt,
	)
	return mapPgError(err)
}

func (s *Store) GetMessages(ctx context.Context, ids []string) ([]domain.Message, error) {
	if len(ids) == 0 {
		return []domain.Message{}, nil
	}
	return s.queryMessages(ctx, queries.QueryGetMessagesByIDs, ids)
}

func (s *Store) AddReader(ctx context.Context, readerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx, queries.QueryAddReader, readerID, ids)
	return mapPgError(err)
}

func (s *Store) ListMessages(ctx context.Context, q store.MessageQuery) ([]domain.Message, error) {
	before := nullTime(q.Before)
	if q.GroupID != "" {
		return s.queryMessages(ctx, queries.QueryListGroupMessages, q.GroupID, before, q.Limit)
	}
	return s.queryMessages(ctx, queries.QueryListDirectMessages, q.UserA, q.UserB, before, q.Limit)
}

func (s *Store) CountUnread(ctx context.Context, q store.UnreadQuery) (int, error) {
	var (
		sql string
		arg string
	)
	switch {
	case q.GroupID != "":
		sql, arg = queries.QueryCountUnreadGroup, q.GroupID
	case q.FromUserID != "":
		sql, arg = queries.QueryCountUnreadDirect, q.FromUserID
	default:
		return 0, nil
	}

	var n int
	if err := s.q.QueryRow(ctx, sql, q.ReaderID, arg).Scan(&n); err != nil {
		return 0, mapPgError(err)
	}
	return n, nil
}

func (s *Store) CountUnreadByGroup(ctx context.Context, readerID string, groupIDs []string) ([]domain.UnreadCount, error) {
	if len(groupIDs) == 0 {
		return []domain.UnreadCount{}, nil
	}
	return s.queryCounts(ctx, queries.QueryCountUnreadByGroup, readerID, groupIDs)
}

func (s *Store) CountUnreadDirect(ctx context.Context, readerID string) ([]domain.UnreadCount, error) {
	return s.queryCounts(ctx, queries.QueryCountUnreadDirectBySender, readerID)
}

func (s *Store) DirectPartners(ctx context.Context, userID string, limit int) ([]store.Partner, error) {
	rows, err := s.q.Query(ctx, queries.QueryDirectPartners, userID, limit)
	if err != nil {
		return nil, mapPgError(err)
	}
	partners, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Partner, error) {
		var p store.Partner
		err := row.Scan(&p.UserID, &p.LastMessageAt, &p.MessageCount)
		p.LastMessageAt = p.LastMessageAt.UTC()
		return p, err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return partners, nil
}

func (s *Store) queryMessages(ctx context.Context, sql string, args ...any) ([]domain.Message, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	return collect(rows, scanMessage)
}

func (s *Store) queryCounts(ctx context.Context, sql string, args ...any) ([]domain.UnreadCount, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.UnreadCount, error) {
		var c domain.UnreadCount
		err := row.Scan(&c.ID, &c.Unread)
		return c, err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return counts, nil
}
