package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxMessageLength = 1000

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageGIF   MessageType = "gif"
	MessageEmoji MessageType = "emoji"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageGIF, MessageEmoji:
		return true
	}
	return false
}

type Message struct {
	ID        uuid.UUID   `json:"id"`
	MatchID   uuid.UUID   `json:"matchId"`
	SenderID  uuid.UUID   `json:"senderId"`
	Body      string      `json:"message"`
	Type      MessageType `json:"messageType"`
	IsRead    bool        `json:"isRead"`
	ReadAt    *time.Time  `json:"readAt"`
	IsDeleted bool        `json:"-"`
	DeletedAt *time.Time  `json:"-"`
	CreatedAt time.Time   `json:"createdAt"`
	// Seq breaks ties between messages created in the same instant.
	Seq int64 `json:"-"`
}
