package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParticipantKind tells humans and automated agents apart
type ParticipantKind string

const (
	ParticipantHuman ParticipantKind = "human"
	ParticipantAgent ParticipantKind = "ai"
)

// Participant is a member of one or more chat rooms
type Participant struct {
	ID           string          `json:"id"`
	DisplayName  string          `json:"name"`
	Kind         ParticipantKind `json:"type"`
	Alive        bool            `json:"is_alive"`
	PersonaNotes string          `json:"-"`
	CharacterID  string          `json:"character_id,omitempty"`
}

// IsAgent reports whether the participant is driven by generated text
func (p Participant) IsAgent() bool {
	return p.Kind == ParticipantAgent
}

// NewHuman creates a live human participant with a fresh id
func NewHuman(name string) Participant {
	return Participant{
		ID:          fmt.Sprintf("human_%s", shortID(8)),
		DisplayName: name,
		Kind:        ParticipantHuman,
		Alive:       true,
	}
}

// NewAgent creates an agent participant with a fresh id
func NewAgent(name, characterID, personaNotes string) Participant {
	return Participant{
		ID:           fmt.Sprintf("ai_%s", shortID(8)),
		DisplayName:  name,
		Kind:         ParticipantAgent,
		Alive:        true,
		PersonaNotes: personaNotes,
		CharacterID:  characterID,
	}
}

// shortID returns the first n hex characters of a random UUID
func shortID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}
