package chat

import (
	"context"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

// RoomSpec describes a room to create. ID is allocated from Kind when empty.
type RoomSpec struct {
	ID           string
	Name         string
	Kind         domain.RoomKind
	OwnerID      string
	Participants []domain.Participant
}

// Store is the room and message log contract shared by the volatile and
// durable backends. The turn orchestrator only ever sees this interface.
type Store interface {
	// CreateRoom registers a room and its participants
	CreateRoom(ctx context.Context, spec RoomSpec) (*domain.Room, error)

	// Room returns a snapshot of the room, or NotFound
	Room(ctx context.Context, roomID string) (*domain.Room, error)

	// Participants returns the room's members in join order
	Participants(ctx context.Context, roomID string) ([]domain.Participant, error)

	// Append adds msg to its room's log. The sender must be a participant.
	Append(ctx context.Context, msg domain.Message) error

	// Recent returns the last n messages in insertion order
	Recent(ctx context.Context, roomID string, n int) ([]domain.Message, error)

	// Hold marks an agent slot as taken over by a human for the life of the room
	Hold(ctx context.Context, roomID, agentID string) error
}

func validateSpec(spec RoomSpec) error {
	if !spec.Kind.Valid() {
		return domain.BadRequest("unknown room kind %q", spec.Kind)
	}
	if len(spec.Participants) == 0 {
		return domain.BadRequest("room needs at least one participant")
	}
	return nil
}

func tail(msgs []domain.Message, n int) []domain.Message {
	if n <= 0 {
		return []domain.Message{}
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}
