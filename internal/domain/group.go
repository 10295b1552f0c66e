package domain

import (
	"slices"
	"time"
)

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Members     []string  `json:"members"`
	Admins      []string  `json:"admins"`
	CreatedBy   string    `json:"createdBy"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (g *Group) IsMember(userID string) bool { return slices.Contains(g.Members, userID) }
func (g *Group) IsAdmin(userID string) bool  { return slices.Contains(g.Admins, userID) }

// CanEdit: переименовывать группу может создатель или админ.
func (g *Group) CanEdit(userID string) bool {
	return g.CreatedBy == userID || g.IsAdmin(userID)
}

// UnreadCount: непрочитанные в одной переписке (группа или собеседник).
type UnreadCount struct {
	ID     string `json:"id"`
	Unread int    `json:"unread"`
}
