package http

import "github.com/cwrk-planet/chat-service/internal/domain"

type SendDirectRequest struct {
	ToUserID   string             `json:"toUserId"`
	Text       string             `json:"text"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type SendDirectByUsernameRequest struct {
	Username   string             `json:"username"`
	Text       string             `json:"text"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type SendDirectByUsernameResponse struct {
	Message *domain.Message `json:"message"`
	User    *domain.User    `json:"user"`
}

type SendGroupRequest struct {
	GroupID    string             `json:"groupId"`
	Text       string             `json:"text"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type MarkReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type MarkReadResponse struct {
	Updated int `json:"updated"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type RenameGroupRequest struct {
	Name string `json:"name"`
}

type UserIDRequest struct {
	UserID string `json:"userId"`
}

type UsernameRequest struct {
	Username string `json:"username"`
}

type GroupMembersResponse struct {
	GroupID string        `json:"groupId"`
	Members []domain.User `json:"members"`
}

type LeaveGroupResponse struct {
	Left  bool          `json:"left"`
	Group *domain.Group `json:"group"`
}
