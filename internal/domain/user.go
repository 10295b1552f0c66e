package domain

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusAway    UserStatus = "away"
	StatusBusy    UserStatus = "busy"
	StatusOffline UserStatus = "offline"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

func ParseStatus(raw string) (UserStatus, error) {
	s := UserStatus(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Name         string     `json:"name,omitempty"`
	AvatarURL    string     `json:"avatarUrl,omitempty"`
	Status       UserStatus `json:"status"`
	HidePresence bool       `json:"hidePresence"`
}

// Public: представление для других пользователей, скрытый статус отдаётся как offline.
func (u User) Public() User {
	if u.HidePresence {
		u.Status = StatusOffline
	}
	u.HidePresence = false
	return u
}

type Presence struct {
	UserID string     `json:"userId"`
	Status UserStatus `json:"status"`
}
