package chat

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

type memRoom struct {
	mu   sync.RWMutex
	room domain.Room
	log  []domain.Message
}

// MemoryStore keeps rooms in an append-only arena indexed by room id.
// Players are shared across rooms, like a lobby.
type MemoryStore struct {
	mu      sync.RWMutex
	rooms   []*memRoom
	index   map[string]int
	players map[string]domain.Participant
}

// NewMemoryStore creates an empty volatile store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index:   make(map[string]int),
		players: make(map[string]domain.Participant),
	}
}

func (s *MemoryStore) CreateRoom(_ context.Context, spec RoomSpec) (*domain.Room, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := spec.ID
	if id == "" {
		id = domain.NewRoomID(spec.Kind)
		for _, exists := s.index[id]; exists; _, exists = s.index[id] {
			id = domain.NewRoomID(spec.Kind)
		}
	} else if _, exists := s.index[id]; exists {
		return nil, domain.BadRequest("room %s already exists", id)
	}

	for _, p := range spec.Participants {
		s.players[p.ID] = p
	}

	r := &memRoom{room: domain.Room{
		ID:           id,
		Name:         spec.Name,
		Kind:         spec.Kind,
		OwnerID:      spec.OwnerID,
		Participants: lo.Uniq(lo.Map(spec.Participants, func(p domain.Participant, _ int) string { return p.ID })),
	}}
	s.index[id] = len(s.rooms)
	s.rooms = append(s.rooms, r)

	snap := cloneRoom(r.room)
	return &snap, nil
}

func (s *MemoryStore) lookup(roomID string) (*memRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[roomID]
	if !ok {
		return nil, domain.NotFound("chat %s not found", roomID)
	}
	return s.rooms[i], nil
}

func (s *MemoryStore) Room(_ context.Context, roomID string) (*domain.Room, error) {
	r, err := s.lookup(roomID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := cloneRoom(r.room)
	return &snap, nil
}

func (s *MemoryStore) Participants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0, len(room.Participants))
	for _, id := range room.Participants {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, msg domain.Message) error {
	r, err := s.lookup(msg.RoomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.room.HasParticipant(msg.SenderID) {
		return domain.Forbidden("%s is not in chat %s", msg.SenderID, msg.RoomID)
	}
	r.log = append(r.log, msg)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, roomID string, n int) ([]domain.Message, error) {
	r, err := s.lookup(roomID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return tail(r.log, n), nil
}

func (s *MemoryStore) Hold(_ context.Context, roomID, agentID string) error {
	r, err := s.lookup(roomID)
	if err != nil {
		return err
	}

	s.mu.RLock()
	p, known := s.players[agentID]
	s.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !known || !r.room.HasParticipant(agentID) {
		return domain.NotFound("agent %s not in chat %s", agentID, roomID)
	}
	if !p.IsAgent() {
		return domain.BadRequest("%s is not an agent", agentID)
	}
	if !r.room.IsHeld(agentID) {
		r.room.Held = append(r.room.Held, agentID)
	}
	return nil
}

// Player returns a registered player
func (s *MemoryStore) Player(id string) (domain.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	return p, ok
}

// PutPlayer registers or replaces a player
func (s *MemoryStore) PutPlayer(p domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
}

// Players lists every registered player ordered by id
func (s *MemoryStore) Players() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Values(s.players)
	slices.SortFunc(out, func(a, b domain.Participant) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Rooms lists room snapshots in creation order
func (s *MemoryStore) Rooms() []domain.Room {
	s.mu.RLock()
	rooms := slices.Clone(s.rooms)
	s.mu.RUnlock()

	out := make([]domain.Room, 0, len(rooms))
	for _, r := range rooms {
		r.mu.RLock()
		out = append(out, cloneRoom(r.room))
		r.mu.RUnlock()
	}
	return out
}

// FindPrivate returns the private room whose participant set equals ids
func (s *MemoryStore) FindPrivate(ids []string) (*domain.Room, bool) {
	for _, r := range s.Rooms() {
		if r.Kind == domain.RoomPrivate && r.SameParticipants(ids) {
			return &r, true
		}
	}
	return nil, false
}

func cloneRoom(r domain.Room) domain.Room {
	r.Participants = slices.Clone(r.Participants)
	r.Held = slices.Clone(r.Held)
	return r
}
