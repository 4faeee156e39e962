package domain

import (
	"fmt"
	"slices"
)

// RoomKind is the flavour of a chat room
type RoomKind string

const (
	RoomGroup   RoomKind = "group"
	RoomPrivate RoomKind = "private"
	RoomUnit    RoomKind = "unit"
)

// Valid reports whether k is a known room kind
func (k RoomKind) Valid() bool {
	switch k {
	case RoomGroup, RoomPrivate, RoomUnit:
		return true
	}
	return false
}

// NewRoomID allocates a room id inside the kind's namespace, e.g. "unit_1a2b3c4d"
func NewRoomID(kind RoomKind) string {
	return fmt.Sprintf("%s_%s", kind, shortID(8))
}

// Room is a chat room without its message log.
// Participants keeps join order; Held lists agents taken over by a human.
type Room struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         RoomKind `json:"type"`
	Participants []string `json:"participants"`
	Held         []string `json:"held,omitempty"`
	OwnerID      string   `json:"-"`
	Archived     bool     `json:"is_archived"`
}

// HasParticipant reports whether id belongs to the room's live set
func (r *Room) HasParticipant(id string) bool {
	return slices.Contains(r.Participants, id)
}

// IsHeld reports whether the agent slot has been taken over by a human
func (r *Room) IsHeld(id string) bool {
	return slices.Contains(r.Held, id)
}

// SameParticipants reports whether the room's participant set equals ids, ignoring order
func (r *Room) SameParticipants(ids []string) bool {
	if len(r.Participants) != len(ids) {
		return false
	}
	for _, id := range ids {
		if !r.HasParticipant(id) {
			return false
		}
	}
	return true
}
