package memory

import (
	"context"
	"slices"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

func (s *Store) CreateGroup(_ context.Context, g *domain.Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := s.now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	g.Members = lo.Uniq(g.Members)
	g.Admins = lo.Uniq(g.Admins)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[g.ID]; ok {
		return store.ErrAlreadyExists
	}
	s.groups[g.ID] = &storedGroup{group: cloneGroup(*g)}
	return nil
}

func (s *Store) GetGroup(_ context.Context, id string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sg, ok := s.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	g := s.view(sg)
	return &g, nil
}

func (s *Store) ListGroupsForUser(_ context.Context, userID string) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Group, 0)
	for _, sg := range s.groups {
		if slices.Contains(sg.group.Members, userID) {
			out = append(out, s.view(sg))
		}
	}
	slices.SortFunc(out, func(a, b domain.Group) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *Store) GroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	groups, err := s.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(groups, func(g domain.Group, _ int) string { return g.ID }), nil
}

func (s *Store) AddMember(_ context.Context, groupID, userID string) (bool, error) {
	return s.mutate(groupID, func(g *domain.Group) bool {
		if slices.Contains(g.Members, userID) {
			return false
		}
		g.Members = append(g.Members, userID)
		return true
	})
}

func (s *Store) RemoveMember(_ context.Context, groupID, userID string) (bool, error) {
	return s.mutate(groupID, func(g *domain.Group) bool {
		if !slices.Contains(g.Members, userID) {
			return false
		}
		g.Members = lo.Without(g.Members, userID)
		g.Admins = lo.Without(g.Admins, userID)
		return true
	})
}

func (s *Store) AddAdmin(_ context.Context, groupID, userID string) (bool, error) {
	return s.mutate(groupID, func(g *domain.Group) bool {
		if slices.Contains(g.Admins, userID) {
			return false
		}
		g.Admins = append(g.Admins, userID)
		return true
	})
}

func (s *Store) RenameGroup(_ context.Context, groupID, name string) error {
	_, err := s.mutate(groupID, func(g *domain.Group) bool {
		g.Name = name
		return true
	})
	return err
}

func (s *Store) SetLastMessage(_ context.Context, groupID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg, ok := s.groups[groupID]
	if !ok {
		return store.ErrNotFound
	}
	sg.lastID = messageID
	return nil
}

func (s *Store) mutate(groupID string, fn func(g *domain.Group) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg, ok := s.groups[groupID]
	if !ok {
		return false, store.ErrNotFound
	}
	changed := fn(&sg.group)
	if changed {
		sg.group.UpdatedAt = s.now().UTC()
	}
	return changed, nil
}

// view: копия группы с подставленным последним сообщением. Вызывать под s.mu.
func (s *Store) view(sg *storedGroup) domain.Group {
	g := cloneGroup(sg.group)
	if sm, ok := s.messages[sg.lastID]; ok {
		m := cloneMessage(sm.msg)
		g.LastMessage = &m
	}
	return g
}

func cloneGroup(g domain.Group) domain.Group {
	g.Members = slices.Clone(g.Members)
	g.Admins = slices.Clone(g.Admins)
	g.LastMessage = nil
	return g
}
