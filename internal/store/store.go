package store

import (
	"context"
	"errors"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// MessageQuery: страница переписки. Задаётся либо GroupID, либо пара UserA/UserB.
// Результат упорядочен от старых к новым.
type MessageQuery struct {
	GroupID string
	UserA   string
	UserB   string
	Before  time.Time // zero: без ограничения
	Limit   int
}

// UnreadQuery: непрочитанные для ReaderID в группе GroupID
// либо в личке от FromUserID.
type UnreadQuery struct {
	ReaderID   string
	GroupID    string
	FromUserID string
}

type Partner struct {
	UserID        string    `json:"userId"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	MessageCount  int       `json:"messageCount"`
}

type MessageStore interface {
	CreateMessage(ctx context.Context, m *domain.Message) error
	GetMessages(ctx context.Context, ids []string) ([]domain.Message, error)
	// AddReader добавляет readerID в readBy и ставит status=read. Повторный вызов ничего не меняет.
	AddReader(ctx context.Context, readerID string, ids []string) error
	ListMessages(ctx context.Context, q MessageQuery) ([]domain.Message, error)
	CountUnread(ctx context.Context, q UnreadQuery) (int, error)
	CountUnreadByGroup(ctx context.Context, readerID string, groupIDs []string) ([]domain.UnreadCount, error)
	CountUnreadDirect(ctx context.Context, readerID string) ([]domain.UnreadCount, error)
	DirectPartners(ctx context.Context, userID string, limit int) ([]Partner, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, g *domain.Group) error
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]domain.Group, error)
	GroupIDsForUser(ctx context.Context, userID string) ([]string, error)
	// операции над членством атомарны по одной записи
	AddMember(ctx context.Context, groupID, userID string) (added bool, err error)
	RemoveMember(ctx context.Context, groupID, userID string) (removed bool, err error)
	AddAdmin(ctx context.Context, groupID, userID string) (added bool, err error)
	RenameGroup(ctx context.Context, groupID, name string) error
	SetLastMessage(ctx context.Context, groupID, messageID string) error
}

type ConversationStore interface {
	MessageStore
	GroupStore
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUsers(ctx context.Context, ids []string) ([]domain.User, error)
	ListUsers(ctx context.Context, limit int) ([]domain.User, error)
	SearchUsers(ctx context.Context, q string, exclude []string, limit int) ([]domain.User, error)
	SetStatus(ctx context.Context, id string, status domain.UserStatus) error
	SetHidePresence(ctx context.Context, id string, hidden bool) error
	ListVisiblePresence(ctx context.Context) ([]domain.Presence, error)
}
