package events

import "github.com/cwrk-planet/chat-service/internal/domain"

// Типы событий, которые сервер пушит в realtime-канал
const (
	TypeConnectionAck  = "connection:ack"
	TypePresenceUpdate = "presence:update" // всем, кроме скрытых пользователей
	TypePresenceSelf   = "presence:self"   // только своим соединениям скрытого пользователя
	TypeGroupNew       = "group:new"
	TypeGroupUpdated   = "group:updated"
	TypeMessageNew     = "message:new"
	TypeMessagesRead   = "messages:read"
	TypeUnreadUpdate   = "unread:update"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type ConnectionAckPayload struct {
	UserID string `json:"userId"`
}

type PresencePayload struct {
	UserID string            `json:"userId"`
	Status domain.UserStatus `json:"status"`
	Hidden bool              `json:"hidden,omitempty"`
}

type GroupPayload struct {
	Group *domain.Group `json:"group"`
}

type MessagePayload struct {
	Message *domain.Message `json:"message"`
}

type MessagesReadPayload struct {
	MessageIDs []string `json:"messageIds"`
}

// для client: type = "group" | "direct", id = группа или собеседник
type UnreadPayload struct {
	Type   domain.TargetKind `json:"type"`
	ID     string            `json:"id"`
	Unread int               `json:"unread"`
}

func ConnectionAck(userID string) Event {
	return Event{Type: TypeConnectionAck, Payload: ConnectionAckPayload{UserID: userID}}
}

func PresenceUpdate(userID string, status domain.UserStatus) Event {
	return Event{Type: TypePresenceUpdate, Payload: PresencePayload{UserID: userID, Status: status}}
}

func PresenceSelf(userID string, status domain.UserStatus) Event {
	return Event{Type: TypePresenceSelf, Payload: PresencePayload{UserID: userID, Status: status, Hidden: true}}
}

func GroupNew(g *domain.Group) Event {
	return Event{Type: TypeGroupNew, Payload: GroupPayload{Group: g}}
}

func GroupUpdated(g *domain.Group) Event {
	return Event{Type: TypeGroupUpdated, Payload: GroupPayload{Group: g}}
}

func MessageNew(m *domain.Message) Event {
	return Event{Type: TypeMessageNew, Payload: MessagePayload{Message: m}}
}

func MessagesRead(ids []string) Event {
	return Event{Type: TypeMessagesRead, Payload: MessagesReadPayload{MessageIDs: ids}}
}

func UnreadUpdate(kind domain.TargetKind, id string, unread int) Event {
	return Event{Type: TypeUnreadUpdate, Payload: UnreadPayload{Type: kind, ID: id, Unread: unread}}
}
