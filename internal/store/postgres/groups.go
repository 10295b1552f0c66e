package postgres

import (
	"context"
	"slices"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"
	"github.com/cwrk-planet/chat-service/internal/store/postgres/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

// groupRow: группа без развёрнутого lastMessage
type groupRow struct {
	group         domain.Group
	lastMessageID *string
}

func (s *Store) CreateGroup(ctx context.Context, g *domain.Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	g.Members = lo.Uniq(g.Members)
	g.Admins = lo.Filter(lo.Uniq(g.Admins), func(id string, _ int) bool { return slices.Contains(g.Members, id) })

	_, err := s.q.Exec(ctx, queries.QueryCreateGroup, g.ID, g.Name, g.CreatedBy, now, g.Members, g.Admins)
	return mapPgError(err)
}

func (s *Store) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	row, err := scanGroup(s.q.QueryRow(ctx, queries.QueryGetGroup, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	groups, err := s.withLastMessages(ctx, []groupRow{*row})
	if err != nil {
		return nil, err
	}
	return &groups[0], nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	rows, err := s.q.Query(ctx, queries.QueryListGroupsForUser, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	list, err := collect(rows, scanGroup)
	if err != nil {
		return nil, err
	}
	return s.withLastMessages(ctx, list)
}

func (s *Store) GroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.q.Query(ctx, queries.QueryGroupIDsForUser, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapPgError(err)
	}
	return ids, nil
}

func (s *Store) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	return s.changeMembership(ctx, queries.QueryAddMember, groupID, userID)
}

func (s *Store) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	return s.changeMembership(ctx, queries.QueryRemoveMember, groupID, userID)
}

// AddAdmin назначает админом только действующего участника.
func (s *Store) AddAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	return s.changeMembership(ctx, queries.QueryAddAdmin, groupID, userID)
}

func (s *Store) RenameGroup(ctx context.Context, groupID, name string) error {
	return s.updateGroup(ctx, queries.QueryRenameGroup, groupID, name)
}

func (s *Store) SetLastMessage(ctx context.Context, groupID, messageID string) error {
	return s.updateGroup(ctx, queries.QuerySetLastMessage, groupID, messageID)
}

// changeMembership выполняет одну атомарную правку членства.
// Ноль затронутых строк: либо изменение уже применено, либо группы нет.
func (s *Store) changeMembership(ctx context.Context, sql, groupID, userID string) (bool, error) {
	tag, err := s.q.Exec(ctx, sql, groupID, userID)
	if err != nil {
		return false, mapPgError(err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if err := s.groupExists(ctx, groupID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) updateGroup(ctx context.Context, sql, groupID string, value any) error {
	tag, err := s.q.Exec(ctx, sql, groupID, value)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// withLastMessages подтягивает lastMessage всех групп одним запросом
func (s *Store) withLastMessages(ctx context.Context, rows []groupRow) ([]domain.Group, error) {
	ids := lo.FilterMap(rows, func(r groupRow, _ int) (string, bool) {
		if r.lastMessageID == nil {
			return "", false
		}
		return *r.lastMessageID, true
	})

	byID := map[string]domain.Message{}
	if len(ids) > 0 {
		msgs, err := s.GetMessages(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID = lo.KeyBy(msgs, func(m domain.Message) string { return m.ID })
	}

	out := make([]domain.Group, len(rows))
	for i, r := range rows {
		out[i] = r.group
		if r.lastMessageID == nil {
			continue
		}
		if m, ok := byID[*r.lastMessageID]; ok {
			out[i].LastMessage = &m
		}
	}
	return out, nil
}

func scanGroup(row pgx.Row) (*groupRow, error) {
	var r groupRow
	g := &r.group
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.CreatedBy,
		&r.lastMessageID,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.Members,
		&g.Admins,
	)
	if err != nil {
		return nil, err
	}
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return &r, nil
}
