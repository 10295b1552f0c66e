package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/samber/lo"
)

const (
	usersListLimit     = 400
	searchDefaultLimit = 20
	searchMaxLimit     = 25
)

type UserService struct {
	users    store.UserDirectory
	messages store.MessageStore
	tracker  *presence.Tracker
}

func NewUserService(users store.UserDirectory, messages store.MessageStore, tracker *presence.Tracker) *UserService {
	return &UserService{users: users, messages: messages, tracker: tracker}
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	pub := u.Public()
	return &pub, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx, usersListLimit)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.User { return u.Public() }), nil
}

type SearchResult struct {
	Q       string        `json:"q"`
	Count   int           `json:"count"`
	Results []domain.User `json:"results"`
}

// Search ищет пользователей, с которыми ещё нет личной переписки.
func (s *UserService) Search(ctx context.Context, userID, q string, limit int) (*SearchResult, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return nil, domain.ErrSearchQueryTooShort
	}
	if limit <= 0 {
		limit = searchDefaultLimit
	}
	limit = min(limit, searchMaxLimit)

	partners, err := s.messages.DirectPartners(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("direct partners: %w", err)
	}
	exclude := append(lo.Map(partners, func(p store.Partner, _ int) string { return p.UserID }), userID)

	found, err := s.users.SearchUsers(ctx, q, exclude, limit)
	if err != nil {
		return nil, err
	}
	results := lo.Map(found, func(u domain.User, _ int) domain.User { return u.Public() })
	return &SearchResult{Q: q, Count: len(results), Results: results}, nil
}

// Presence: онлайн-пользователи без скрытого присутствия.
func (s *UserService) Presence(ctx context.Context) ([]domain.Presence, error) {
	return s.users.ListVisiblePresence(ctx)
}

type PresenceUpdate struct {
	Status       *string `json:"status"`
	HidePresence *bool   `json:"hidePresence"`
}

// UpdatePresence меняет поля присутствия текущего пользователя.
func (s *UserService) UpdatePresence(ctx context.Context, userID string, in PresenceUpdate) (*domain.User, error) {
	var status domain.UserStatus
	if in.Status != nil {
		st, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		status = st
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, userNotFound(err)
	}
	if in.HidePresence != nil {
		if u, err = s.tracker.SetHidden(ctx, userID, *in.HidePresence); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		if u, err = s.tracker.SetStatus(ctx, userID, status); err != nil {
			return nil, err
		}
	}
	return u, nil
}
