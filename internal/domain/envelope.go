package domain

import "encoding/json"

// EventType is the type tag of a realtime envelope
type EventType string

const (
	EventConnection         EventType = "connection"
	EventMessage            EventType = "message"
	EventNewMessage         EventType = "new_message"
	EventTyping             EventType = "typing"
	EventPlayerDisconnected EventType = "player_disconnected"
)

// Envelope is the JSON frame exchanged over the realtime channel
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// InboundMessage is the data of a client "message" envelope
type InboundMessage struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// NewMessagePayload is the data of a "new_message" envelope.
// Participants is only set for private rooms.
type NewMessagePayload struct {
	Message
	ChatType     RoomKind `json:"chat_type"`
	Participants []string `json:"participants,omitempty"`
}

// TypingPayload is the data of a "typing" envelope
type TypingPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// ConnectionPayload greets a freshly connected client
type ConnectionPayload struct {
	ClientID   string        `json:"client_id"`
	Players    []Participant `json:"players"`
	MainChatID *string       `json:"main_chat_id"`
}

// DisconnectedPayload announces a departed client
type DisconnectedPayload struct {
	ClientID string `json:"client_id"`
}

// Encode marshals an envelope; payloads are plain structs so marshalling cannot fail in practice
func Encode(t EventType, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	out, _ := json.Marshal(Envelope{Type: t, Data: raw})
	return out
}
