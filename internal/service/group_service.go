package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/delivery"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/samber/lo"
)

type GroupService struct {
	groups store.GroupStore
	users  store.UserDirectory
	router *delivery.Router
}

func NewGroupService(groups store.GroupStore, users store.UserDirectory, router *delivery.Router) *GroupService {
	return &GroupService{groups: groups, users: users, router: router}
}

// Create: создатель всегда участник и админ. group:new уходит всем участникам.
func (s *GroupService) Create(ctx context.Context, creatorID, name string, members []string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrGroupNameRequired
	}

	members = lo.Uniq(lo.Compact(append(lo.Map(members, func(id string, _ int) string {
		return strings.TrimSpace(id)
	}), creatorID)))

	if len(members) > 1 {
		found, err := s.users.GetUsers(ctx, members)
		if err != nil {
			return nil, fmt.Errorf("lookup members: %w", err)
		}
		if len(found) != len(members) {
			return nil, domain.ErrUnknownMembers
		}
	}

	g := &domain.Group{
		Name:      name,
		Members:   members,
		Admins:    []string{creatorID},
		CreatedBy: creatorID,
	}
	if err := s.groups.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	s.router.NotifyUsers(g.Members, events.GroupNew(g))
	return g, nil
}

func (s *GroupService) List(ctx context.Context, userID string) ([]domain.Group, error) {
	return s.groups.ListGroupsForUser(ctx, userID)
}

// Members: профили участников, видимые вызывающему участнику.
func (s *GroupService) Members(ctx context.Context, userID, groupID string) ([]domain.User, error) {
	g, err := s.memberOf(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetUsers(ctx, g.Members)
	if err != nil {
		return nil, fmt.Errorf("lookup members: %w", err)
	}
	return lo.Map(users, func(u domain.User, _ int) domain.User { return u.Public() }), nil
}

// AddMember: добавлять может любой участник. Повторное добавление не ошибка.
func (s *GroupService) AddMember(ctx context.Context, actorID, groupID, userID string) (*domain.Group, error) {
	g, err := s.memberOf(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, userNotFound(err)
	}
	return s.addMember(ctx, g, userID)
}

func (s *GroupService) AddMemberByUsername(ctx context.Context, actorID, groupID, username string) (*domain.Group, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrUsernameRequired
	}
	g, err := s.memberOf(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, userNotFound(err)
	}
	return s.addMember(ctx, g, target.ID)
}

func (s *GroupService) addMember(ctx context.Context, g *domain.Group, userID string) (*domain.Group, error) {
	added, err := s.groups.AddMember(ctx, g.ID, userID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !added {
		return g, nil
	}
	return s.reloadAndNotify(ctx, g.ID)
}

// Leave убирает пользователя из участников и админов.
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) (*domain.Group, error) {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !g.IsMember(userID) {
		return nil, domain.ErrNotMember
	}

	removed, err := s.groups.RemoveMember(ctx, g.ID, userID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !removed {
		// ушёл параллельным запросом
		return nil, domain.ErrNotMember
	}
	return s.reloadAndNotify(ctx, g.ID)
}

// Promote: назначать админов может только админ.
func (s *GroupService) Promote(ctx context.Context, actorID, groupID, userID string) (*domain.Group, error) {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !g.IsAdmin(actorID) {
		return nil, domain.ErrNotGroupAdmin
	}
	if !g.IsMember(userID) {
		return nil, domain.ErrTargetNotMember
	}

	added, err := s.groups.AddAdmin(ctx, g.ID, userID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !added {
		return g, nil
	}
	return s.reloadAndNotify(ctx, g.ID)
}

// Rename: создатель или админ.
func (s *GroupService) Rename(ctx context.Context, actorID, groupID, name string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrGroupNameRequired
	}
	g, err := s.memberOf(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	if !g.CanEdit(actorID) {
		return nil, domain.ErrNotGroupAdmin
	}

	if err := s.groups.RenameGroup(ctx, g.ID, name); err != nil {
		return nil, groupNotFound(err)
	}
	return s.reloadAndNotify(ctx, g.ID)
}

func (s *GroupService) memberOf(ctx context.Context, userID, groupID string) (*domain.Group, error) {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !g.IsMember(userID) {
		return nil, domain.ErrNotGroupMember
	}
	return g, nil
}

// group:updated получают участники после изменения
func (s *GroupService) reloadAndNotify(ctx context.Context, groupID string) (*domain.Group, error) {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	s.router.NotifyUsers(g.Members, events.GroupUpdated(g))
	return g, nil
}
