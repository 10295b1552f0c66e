package readstate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/delivery"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/samber/lo"
)

// Engine ведёт readBy и считает непрочитанные. Счётчики нигде не хранятся,
// каждый раз считаются из сообщений.
type Engine struct {
	messages store.MessageStore
	groups   store.GroupStore
	router   *delivery.Router
	metrics  *metrics.Metrics

	maxText int
}

func NewEngine(messages store.MessageStore, groups store.GroupStore, router *delivery.Router, m *metrics.Metrics, maxText int) *Engine {
	return &Engine{
		messages: messages,
		groups:   groups,
		router:   router,
		metrics:  m,
		maxText:  maxText,
	}
}

// Validate: проверки содержимого до обращения к хранилищу.
func (e *Engine) Validate(msg *domain.Message) error {
	return msg.Validate(e.maxText)
}

// Send проверяет и сохраняет сообщение с начальным readBy.
func (e *Engine) Send(ctx context.Context, msg *domain.Message) error {
	if err := e.Validate(msg); err != nil {
		return err
	}
	msg.InitReadState()

	if err := e.messages.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	e.metrics.MessageSent(string(msg.Target.Kind))
	return nil
}

// MarkRead добавляет readerID в readBy указанных сообщений и пересчитывает
// непрочитанные только в затронутых переписках. Принадлежность читателя
// к переписке не проверяется. Возвращает число найденных сообщений.
func (e *Engine) MarkRead(ctx context.Context, readerID string, messageIDs []string) (int, error) {
	ids := lo.Uniq(lo.Compact(lo.Map(messageIDs, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))
	if len(ids) == 0 {
		return 0, domain.ErrEmptyMessageIDs
	}

	msgs, err := e.messages.GetMessages(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load messages: %w", err)
	}
	if len(msgs) > 0 {
		found := lo.Map(msgs, func(m domain.Message, _ int) string { return m.ID })
		if err := e.messages.AddReader(ctx, readerID, found); err != nil {
			return 0, fmt.Errorf("add reader: %w", err)
		}
	}
	e.metrics.MarkedRead(len(msgs))

	e.router.NotifyUser(readerID, events.MessagesRead(ids))

	groupIDs, senders := touched(readerID, msgs)
	for _, gid := range groupIDs {
		e.pushUnread(ctx, readerID, domain.ToGroup(gid))
	}
	for _, sid := range senders {
		e.pushUnread(ctx, readerID, domain.DirectTo(sid))
	}

	return len(msgs), nil
}

// UnreadCount: для группы считаются все сообщения без reader в readBy,
// для лички только адресованные reader сообщения от собеседника.
func (e *Engine) UnreadCount(ctx context.Context, readerID string, conv domain.Target) (int, error) {
	q := store.UnreadQuery{ReaderID: readerID}
	switch conv.Kind {
	case domain.TargetGroup:
		q.GroupID = conv.ID
	case domain.TargetDirect:
		q.FromUserID = conv.ID
	default:
		return 0, domain.ErrMissingFields
	}
	return e.messages.CountUnread(ctx, q)
}

func (e *Engine) GroupUnreadCounts(ctx context.Context, userID string) ([]domain.UnreadCount, error) {
	gids, err := e.groups.GroupIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if len(gids) == 0 {
		return []domain.UnreadCount{}, nil
	}
	return e.messages.CountUnreadByGroup(ctx, userID, gids)
}

func (e *Engine) DirectUnreadCounts(ctx context.Context, userID string) ([]domain.UnreadCount, error) {
	return e.messages.CountUnreadDirect(ctx, userID)
}

// ошибки пересчёта не откатывают отметку о прочтении
func (e *Engine) pushUnread(ctx context.Context, readerID string, conv domain.Target) {
	n, err := e.UnreadCount(ctx, readerID, conv)
	if err != nil {
		slog.Warn("readstate: recount unread failed",
			"reader", readerID, "type", conv.Kind, "id", conv.ID, "err", err)
		return
	}
	e.router.NotifyUser(readerID, events.UnreadUpdate(conv.Kind, conv.ID, n))
}

// touched: группы и отправители личных сообщений, адресованных reader.
func touched(readerID string, msgs []domain.Message) (groupIDs, senders []string) {
	for _, m := range msgs {
		switch {
		case m.Target.Kind == domain.TargetGroup:
			groupIDs = append(groupIDs, m.Target.ID)
		case m.IsDirect() && m.Target.ID == readerID:
			senders = append(senders, m.SenderID)
		}
	}
	groupIDs, senders = lo.Uniq(groupIDs), lo.Uniq(senders)
	slices.Sort(groupIDs)
	slices.Sort(senders)
	return groupIDs, senders
}
