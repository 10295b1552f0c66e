package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/delivery"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/readstate"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/samber/lo"
)

const partnersLimit = 500

type Content struct {
	Text       string             `json:"text"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type HistoryLimits struct {
	Default int
	Max     int
}

type MessageService struct {
	engine   *readstate.Engine
	router   *delivery.Router
	messages store.MessageStore
	groups   store.GroupStore
	users    store.UserDirectory
	limits   HistoryLimits
}

func NewMessageService(
	engine *readstate.Engine,
	router *delivery.Router,
	messages store.MessageStore,
	groups store.GroupStore,
	users store.UserDirectory,
	limits HistoryLimits,
) *MessageService {
	if limits.Max <= 0 {
		limits.Max = 100
	}
	if limits.Default <= 0 || limits.Default > limits.Max {
		limits.Default = min(50, limits.Max)
	}
	return &MessageService{
		engine:   engine,
		router:   router,
		messages: messages,
		groups:   groups,
		users:    users,
		limits:   limits,
	}
}

// SendDirect: сначала проверка полей и отправки самому себе, потом поиск получателя.
func (s *MessageService) SendDirect(ctx context.Context, senderID, toUserID string, c Content) (*domain.Message, error) {
	msg := &domain.Message{
		SenderID:   senderID,
		Target:     domain.DirectTo(strings.TrimSpace(toUserID)),
		Text:       c.Text,
		Attachment: c.Attachment,
	}
	if err := s.engine.Validate(msg); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, msg.Target.ID); err != nil {
		return nil, userNotFound(err)
	}

	return s.deliver(ctx, msg)
}

func (s *MessageService) SendDirectByUsername(ctx context.Context, senderID, username string, c Content) (*domain.Message, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil, domain.ErrUsernameRequired
	}
	if strings.TrimSpace(c.Text) == "" && c.Attachment == nil {
		return nil, nil, domain.ErrMissingFields
	}

	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, nil, userNotFound(err)
	}

	msg, err := s.SendDirect(ctx, senderID, target.ID, c)
	if err != nil {
		return nil, nil, err
	}
	pub := target.Public()
	return msg, &pub, nil
}

// SendGroup: отправлять может только участник группы.
func (s *MessageService) SendGroup(ctx context.Context, senderID, groupID string, c Content) (*domain.Message, error) {
	msg := &domain.Message{
		SenderID:   senderID,
		Target:     domain.ToGroup(strings.TrimSpace(groupID)),
		Text:       c.Text,
		Attachment: c.Attachment,
	}
	if err := s.engine.Validate(msg); err != nil {
		return nil, err
	}

	g, err := s.groups.GetGroup(ctx, msg.Target.ID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !g.IsMember(senderID) {
		return nil, domain.ErrNotGroupMember
	}

	if _, err := s.deliver(ctx, msg); err != nil {
		return nil, err
	}

	// lastMessage: кэш, его всегда можно пересчитать
	if err := s.groups.SetLastMessage(ctx, g.ID, msg.ID); err != nil {
		slog.Warn("service.SendGroup: set last message failed", "group", g.ID, "msg", msg.ID, "err", err)
	}
	return msg, nil
}

func (s *MessageService) deliver(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if err := s.engine.Send(ctx, msg); err != nil {
		return nil, err
	}
	if _, err := s.router.RouteMessage(ctx, msg); err != nil {
		slog.Warn("service: route message failed", "msg", msg.ID, "err", err)
	}
	return msg, nil
}

func (s *MessageService) MarkRead(ctx context.Context, readerID string, ids []string) (int, error) {
	return s.engine.MarkRead(ctx, readerID, ids)
}

func (s *MessageService) GroupUnreadCounts(ctx context.Context, userID string) ([]domain.UnreadCount, error) {
	return s.engine.GroupUnreadCounts(ctx, userID)
}

func (s *MessageService) DirectUnreadCounts(ctx context.Context, userID string) ([]domain.UnreadCount, error) {
	return s.engine.DirectUnreadCounts(ctx, userID)
}

// DirectHistory: страница личной переписки от старых к новым.
func (s *MessageService) DirectHistory(ctx context.Context, userID, otherID, before string, limit int) ([]domain.Message, error) {
	b, err := parseBefore(before)
	if err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, store.MessageQuery{
		UserA:  userID,
		UserB:  otherID,
		Before: b,
		Limit:  s.clamp(limit),
	})
}

func (s *MessageService) GroupHistory(ctx context.Context, userID, groupID, before string, limit int) ([]domain.Message, error) {
	b, err := parseBefore(before)
	if err != nil {
		return nil, err
	}
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}
	if !g.IsMember(userID) {
		return nil, domain.ErrNotGroupMember
	}
	return s.messages.ListMessages(ctx, store.MessageQuery{
		GroupID: g.ID,
		Before:  b,
		Limit:   s.clamp(limit),
	})
}

type PartnerView struct {
	domain.User
	LastMessageAt time.Time `json:"lastMessageAt"`
	MessageCount  int       `json:"messageCount"`
}

// Partners: собеседники по личке, свежие сверху.
func (s *MessageService) Partners(ctx context.Context, userID string) ([]PartnerView, error) {
	partners, err := s.messages.DirectPartners(ctx, userID, partnersLimit)
	if err != nil {
		return nil, fmt.Errorf("direct partners: %w", err)
	}
	if len(partners) == 0 {
		return []PartnerView{}, nil
	}

	users, err := s.users.GetUsers(ctx, lo.Map(partners, func(p store.Partner, _ int) string { return p.UserID }))
	if err != nil {
		return nil, fmt.Errorf("partner users: %w", err)
	}
	byID := lo.KeyBy(users, func(u domain.User) string { return u.ID })

	out := make([]PartnerView, 0, len(partners))
	for _, p := range partners {
		u, ok := byID[p.UserID]
		if !ok {
			u = domain.User{ID: p.UserID, Status: domain.StatusOffline}
		}
		out = append(out, PartnerView{User: u.Public(), LastMessageAt: p.LastMessageAt, MessageCount: p.MessageCount})
	}
	return out, nil
}

func (s *MessageService) clamp(limit int) int {
	if limit <= 0 {
		return s.limits.Default
	}
	return min(limit, s.limits.Max)
}

// parseBefore принимает RFC3339 или unix-миллисекунды.
func parseBefore(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, domain.ErrInvalidBefore
	}
	return t, nil
}
