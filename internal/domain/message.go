package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry of a room's append-only log.
// Order inside a room is the insertion order, not Timestamp.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	RoomID     string    `json:"chat_id"`
}

// NewMessage creates a message authored by p in roomID
func NewMessage(roomID string, p Participant, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		SenderID:   p.ID,
		SenderName: p.DisplayName,
		Content:    content,
		Timestamp:  time.Now(),
		RoomID:     roomID,
	}
}
