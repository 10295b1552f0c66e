package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type TargetKind string

const (
	TargetDirect TargetKind = "direct"
	TargetGroup  TargetKind = "group"
)

// Target: адресат сообщения. Для direct ID это получатель, для group: id группы.
type Target struct {
	Kind TargetKind `json:"type"`
	ID   string     `json:"id"`
}

func DirectTo(userID string) Target { return Target{Kind: TargetDirect, ID: userID} }
func ToGroup(groupID string) Target { return Target{Kind: TargetGroup, ID: groupID} }

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVideo AttachmentType = "video"
	AttachmentAudio AttachmentType = "audio"
	AttachmentFile  AttachmentType = "file"
)

// Attachment: ссылка на файл, загруженный отдельным сервисом.
type Attachment struct {
	URL      string         `json:"url"`
	Type     AttachmentType `json:"type"`
	Mime     string         `json:"mime,omitempty"`
	Name     string         `json:"name,omitempty"`
	Size     int64          `json:"size,omitempty"`
	Width    int            `json:"width,omitempty"`
	Height   int            `json:"height,omitempty"`
	Duration float64        `json:"duration,omitempty"`
}

func ClassifyMime(mime string) AttachmentType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mime, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(mime, "audio/"):
		return AttachmentAudio
	default:
		return AttachmentFile
	}
}

// Normalize заполняет тип по mime и проверяет поля.
func (a *Attachment) Normalize() error {
	a.URL = strings.TrimSpace(a.URL)
	if a.URL == "" || a.Size < 0 || a.Width < 0 || a.Height < 0 || a.Duration < 0 {
		return ErrInvalidAttachment
	}
	if a.Type == "" {
		a.Type = ClassifyMime(a.Mime)
	}
	switch a.Type {
	case AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentFile:
		return nil
	}
	return ErrInvalidAttachment
}

type Message struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"senderId"`
	Target     Target        `json:"target"`
	Text       string        `json:"text,omitempty"`
	Attachment *Attachment   `json:"attachment,omitempty"`
	Status     MessageStatus `json:"status"`
	ReadBy     ReadSet       `json:"readBy"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Validate проверяет адресата и содержимое. maxText <= 0 отключает ограничение длины.
func (m *Message) Validate(maxText int) error {
	if m.SenderID == "" || m.Target.ID == "" {
		return ErrMissingFields
	}
	if m.Target.Kind != TargetDirect && m.Target.Kind != TargetGroup {
		return ErrMissingFields
	}
	if strings.TrimSpace(m.Text) == "" {
		m.Text = ""
	}
	if m.Text == "" && m.Attachment == nil {
		return ErrMissingFields
	}
	if maxText > 0 && utf8.RuneCountInString(m.Text) > maxText {
		return ErrTextTooLong
	}
	if m.Attachment != nil {
		if err := m.Attachment.Normalize(); err != nil {
			return err
		}
	}
	if m.Target.Kind == TargetDirect && m.Target.ID == m.SenderID {
		return ErrSelfMessage
	}
	return nil
}

// InitReadState выставляет стартовое состояние: в группе отправитель уже прочитал своё сообщение.
func (m *Message) InitReadState() {
	m.Status = MessageSent
	m.ReadBy = ReadSet{}
	if m.Target.Kind == TargetGroup {
		m.ReadBy.Add(m.SenderID)
	}
}

// Counterpart: второй участник личной переписки с точки зрения userID.
func (m *Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.Target.ID
	}
	return m.SenderID
}

func (m *Message) IsDirect() bool { return m.Target.Kind == TargetDirect }
