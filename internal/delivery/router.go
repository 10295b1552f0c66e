package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/registry"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/samber/lo"
)

// Router вычисляет получателей и раздаёт события по их живым соединениям.
type Router struct {
	reg    *registry.Registry
	groups store.GroupStore
}

func NewRouter(reg *registry.Registry, groups store.GroupStore) *Router {
	return &Router{reg: reg, groups: groups}
}

// Recipients: для лички отправитель и получатель, для группы текущий состав из хранилища.
func (r *Router) Recipients(ctx context.Context, msg *domain.Message) ([]string, error) {
	switch msg.Target.Kind {
	case domain.TargetDirect:
		return lo.Uniq([]string{msg.SenderID, msg.Target.ID}), nil
	case domain.TargetGroup:
		g, err := r.groups.GetGroup(ctx, msg.Target.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domain.ErrGroupNotFound
			}
			return nil, fmt.Errorf("load group members: %w", err)
		}
		return lo.Uniq(g.Members), nil
	default:
		return nil, domain.ErrMissingFields
	}
}

// RouteMessage пушит message:new каждому соединению получателей.
// Возвращает получателей, у которых было хотя бы одно соединение.
func (r *Router) RouteMessage(ctx context.Context, msg *domain.Message) ([]string, error) {
	recipients, err := r.Recipients(ctx, msg)
	if err != nil {
		return nil, err
	}
	return r.NotifyUsers(recipients, events.MessageNew(msg)), nil
}

// NotifyUsers: group:new, group:updated и прочие события для набора пользователей.
func (r *Router) NotifyUsers(userIDs []string, ev events.Event) []string {
	notified := make([]string, 0, len(userIDs))
	for _, uid := range lo.Uniq(userIDs) {
		if r.reg.EmitToUser(uid, ev) > 0 {
			notified = append(notified, uid)
		}
	}
	return notified
}

// NotifyUser: события только для соединений одного пользователя (unread:update, messages:read).
func (r *Router) NotifyUser(userID string, ev events.Event) bool {
	return r.reg.EmitToUser(userID, ev) > 0
}
