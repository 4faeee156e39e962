package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/mmuslimabdulj/persona-chat/internal/chat"
	"github.com/mmuslimabdulj/persona-chat/internal/domain"
	"github.com/mmuslimabdulj/persona-chat/internal/ledger"
	"github.com/mmuslimabdulj/persona-chat/internal/persona"
)

// Caller is whoever issued a request
type Caller struct {
	UserID   string
	UserName string
	AnonID   string
}

// Identity returns the ledger identity of the caller
func (c Caller) Identity() domain.Identity {
	if c.UserID != "" {
		return domain.Identity{UserID: c.UserID}
	}
	return domain.Identity{AnonID: c.AnonID}
}

// Authenticated reports whether a verified user issued the request
func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

// Windows are the history sizes used by the request/response flows
type Windows struct {
	Echo      int
	Rehydrate int
}

// CreatedChat is the result of creating a chat
type CreatedChat struct {
	ChatID     string           `json:"chat_id"`
	HumanID    string           `json:"human_player_id,omitempty"`
	AgentID    string           `json:"ai_player_id,omitempty"`
	AgentName  string           `json:"ai_name"`
	AgentNames []string         `json:"ai_names,omitempty"`
	Messages   []domain.Message `json:"messages"`
}

// SendInput is a synchronous chat message
type SendInput struct {
	ChatID      string
	Content     string
	SenderID    string
	CharacterID string
}

// SendResult is the reply to a synchronous chat message.
// Messages is only set for ephemeral chats.
type SendResult struct {
	UserMessage      domain.Message   `json:"user_message"`
	AgentMessage     *domain.Message  `json:"ai_message"`
	Messages         []domain.Message `json:"messages,omitempty"`
	CreditsRemaining int              `json:"credits_remaining"`
}

// RoomView is a room with its full log
type RoomView struct {
	domain.Room
	Messages []domain.Message `json:"messages"`
}

// ChatService runs chat creation, synchronous sends and live inbound messages
type ChatService struct {
	memory  *chat.MemoryStore
	durable *chat.SQLStore
	catalog *persona.Catalog
	ledger  *ledger.Ledger
	orch    *Orchestrator
	names   *GuestNamer
	windows Windows
	log     *slog.Logger
}

// NewChatService wires the chat flows
func NewChatService(memory *chat.MemoryStore, durable *chat.SQLStore, catalog *persona.Catalog,
	l *ledger.Ledger, orch *Orchestrator, names *GuestNamer, windows Windows, log *slog.Logger) *ChatService {
	return &ChatService{
		memory:  memory,
		durable: durable,
		catalog: catalog,
		ledger:  l,
		orch:    orch,
		names:   names,
		windows: windows,
		log:     log,
	}
}

// Catalog exposes the character catalog
func (s *ChatService) Catalog() *persona.Catalog {
	return s.catalog
}

// ==== Creation ====

// CreateChat opens an ephemeral one-on-one chat with a caller-described character
func (s *ChatService) CreateChat(ctx context.Context, userName, characterName, personaNotes string) (*CreatedChat, error) {
	if strings.TrimSpace(characterName) == "" {
		return nil, domain.BadRequest("character_name required")
	}
	human := domain.NewHuman(s.names.NameOr(userName))
	agent := domain.NewAgent(characterName, "", personaNotes)
	room, err := s.memory.CreateRoom(ctx, chat.RoomSpec{
		Name:         characterName + " Chat",
		Kind:         domain.RoomUnit,
		Participants: []domain.Participant{human, agent},
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("chat created", "chat_id", room.ID, "durable", false)
	return &CreatedChat{
		ChatID:    room.ID,
		HumanID:   human.ID,
		AgentID:   agent.ID,
		AgentName: agent.DisplayName,
		Messages:  []domain.Message{},
	}, nil
}

// CreateByID opens a chat with a catalog character. Authenticated callers
// get a durable chat; everyone else an ephemeral one. The character's
// greeting becomes the first agent message.
func (s *ChatService) CreateByID(ctx context.Context, caller Caller, userName, characterRef string) (*CreatedChat, error) {
	ch, ok := s.catalog.Lookup(characterRef)
	if !ok {
		return nil, domain.NotFound("character %s not found", characterRef)
	}
	notes := persona.ProfileNotes(ch)

	var (
		store chat.Store
		spec  chat.RoomSpec
		human domain.Participant
		agent domain.Participant
	)
	if caller.Authenticated() {
		id := domain.NewRoomID(domain.RoomUnit)
		human = durableHuman(caller)
		agent = domain.Participant{
			ID:           "ai_" + id,
			DisplayName:  ch.Name,
			Kind:         domain.ParticipantAgent,
			Alive:        true,
			PersonaNotes: notes,
			CharacterID:  ch.ID,
		}
		store = s.durable
		spec = chat.RoomSpec{ID: id, OwnerID: caller.UserID}
	} else {
		human = domain.NewHuman(s.names.NameOr(userName))
		agent = domain.NewAgent(ch.Name, ch.ID, notes)
		store = s.memory
	}
	spec.Name = ch.Name + " Chat"
	spec.Kind = domain.RoomUnit
	spec.Participants = []domain.Participant{human, agent}

	room, err := store.CreateRoom(ctx, spec)
	if err != nil {
		return nil, err
	}

	messages := []domain.Message{}
	if ch.Greeting != "" {
		greeting := domain.NewMessage(room.ID, agent, ch.Greeting)
		if err := store.Append(ctx, greeting); err != nil {
			return nil, err
		}
		messages = append(messages, greeting)
	}
	s.log.Info("chat created", "chat_id", room.ID, "character_id", ch.ID, "durable", caller.Authenticated())

	out := &CreatedChat{ChatID: room.ID, AgentName: agent.DisplayName, Messages: messages}
	if !caller.Authenticated() {
		out.HumanID = human.ID
		out.AgentID = agent.ID
	}
	return out, nil
}

// CreateGroup opens an ephemeral live room with one human and several catalog characters
func (s *ChatService) CreateGroup(ctx context.Context, userName string, characterRefs []string, name string) (*CreatedChat, error) {
	refs := lo.Uniq(lo.Compact(characterRefs))
	if len(refs) == 0 {
		return nil, domain.BadRequest("character_ids required")
	}

	human := domain.NewHuman(s.names.NameOr(userName))
	participants := []domain.Participant{human}
	for _, ref := range refs {
		ch, ok := s.catalog.Lookup(ref)
		if !ok {
			return nil, domain.NotFound("character %s not found", ref)
		}
		participants = append(participants, domain.NewAgent(ch.Name, ch.ID, persona.ProfileNotes(ch)))
	}
	agents := participants[1:]
	names := lo.Map(agents, func(p domain.Participant, _ int) string { return p.DisplayName })
	if name == "" {
		name = strings.Join(names, ", ")
	}

	room, err := s.memory.CreateRoom(ctx, chat.RoomSpec{Name: name, Kind: domain.RoomGroup, Participants: participants})
	if err != nil {
		return nil, err
	}
	s.log.Info("group chat created", "chat_id", room.ID, "agents", len(agents))
	return &CreatedChat{
		ChatID:     room.ID,
		HumanID:    human.ID,
		AgentName:  names[0],
		AgentNames: names,
		Messages:   []domain.Message{},
	}, nil
}

// CreatePrivate returns the private room of exactly these two players, creating it if needed
func (s *ChatService) CreatePrivate(ctx context.Context, requesterID, targetID string) (*RoomView, error) {
	ids := lo.Uniq([]string{requesterID, targetID})
	if existing, ok := s.memory.FindPrivate(ids); ok {
		return s.view(ctx, *existing)
	}

	participants := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		p, ok := s.memory.Player(id)
		if !ok {
			return nil, domain.NotFound("player %s not found", id)
		}
		participants = append(participants, p)
	}
	room, err := s.memory.CreateRoom(ctx, chat.RoomSpec{Name: "Private Chat", Kind: domain.RoomPrivate, Participants: participants})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, *room)
}

// Hold lets a human participant take over an agent slot for the life of the room
func (s *ChatService) Hold(ctx context.Context, roomID, playerID, agentID string) error {
	room, err := s.memory.Room(ctx, roomID)
	if err != nil {
		return err
	}
	player, ok := s.memory.Player(playerID)
	if !ok || player.IsAgent() || !room.HasParticipant(playerID) {
		return domain.Forbidden("%s cannot take over agents in chat %s", playerID, roomID)
	}
	if err := s.memory.Hold(ctx, roomID, agentID); err != nil {
		return err
	}
	s.log.Info("agent held", "chat_id", roomID, "agent_id", agentID, "player_id", playerID)
	return nil
}

// ==== Synchronous send ====

// Send handles a request/response chat message. Authenticated callers use
// their durable chats; everyone else uses ephemeral ones. Exactly one
// credit is charged before any generation and the reply is never empty.
func (s *ChatService) Send(ctx context.Context, caller Caller, in SendInput) (*SendResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, domain.BadRequest("content required")
	}
	if caller.Authenticated() {
		return s.sendDurable(ctx, caller, in)
	}
	return s.sendEphemeral(ctx, caller, in)
}

func (s *ChatService) sendDurable(ctx context.Context, caller Caller, in SendInput) (*SendResult, error) {
	room, err := s.durable.OwnedRoom(ctx, in.ChatID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if room.Archived {
		return nil, domain.NotFound("chat %s not found", in.ChatID)
	}
	participants, err := s.durable.Participants(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	human, ok := lo.Find(participants, func(p domain.Participant) bool { return !p.IsAgent() })
	if !ok {
		return nil, fmt.Errorf("chat %s has no human participant", room.ID)
	}
	agent, ok := lo.Find(participants, func(p domain.Participant) bool { return p.IsAgent() })
	if !ok {
		return nil, fmt.Errorf("chat %s has no agent participant", room.ID)
	}

	acc, err := s.charge(ctx, caller.Identity())
	if err != nil {
		return nil, err
	}

	userMsg := domain.NewMessage(room.ID, human, in.Content)
	if err := s.durable.Append(ctx, userMsg); err != nil {
		return nil, err
	}
	history, err := s.durable.Recent(ctx, room.ID, s.windows.Rehydrate)
	if err != nil {
		return nil, err
	}

	agentMsg := domain.NewMessage(room.ID, agent, s.orch.ReplySync(ctx, agent, participants, history))
	if err := s.durable.Append(ctx, agentMsg); err != nil {
		return nil, err
	}
	return &SendResult{UserMessage: userMsg, AgentMessage: &agentMsg, CreditsRemaining: acc.CreditsRemaining}, nil
}

func (s *ChatService) sendEphemeral(ctx context.Context, caller Caller, in SendInput) (*SendResult, error) {
	room, err := s.memory.Room(ctx, in.ChatID)
	if errors.Is(err, domain.ErrNotFound) && in.CharacterID != "" {
		room, err = s.rebuild(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	if in.SenderID == "" {
		return nil, domain.BadRequest("sender_id required for unauthenticated usage")
	}
	if !room.HasParticipant(in.SenderID) {
		return nil, domain.Forbidden("not in chat")
	}
	sender, ok := s.memory.Player(in.SenderID)
	if !ok {
		return nil, domain.NotFound("sender %s not found", in.SenderID)
	}
	if caller.AnonID == "" {
		return nil, domain.BadRequest("anon_id required for unauthenticated usage")
	}

	acc, err := s.charge(ctx, caller.Identity())
	if err != nil {
		return nil, err
	}

	userMsg := domain.NewMessage(room.ID, sender, in.Content)
	if err := s.memory.Append(ctx, userMsg); err != nil {
		return nil, err
	}

	participants, err := s.memory.Participants(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	var agentMsg *domain.Message
	if candidates := Eligible(room, participants); len(candidates) > 0 {
		agent := candidates[s.orch.Pick(len(candidates))]
		history, err := s.memory.Recent(ctx, room.ID, s.windows.Echo)
		if err != nil {
			return nil, err
		}
		msg := domain.NewMessage(room.ID, agent, s.orch.ReplySync(ctx, agent, participants, history))
		if err := s.memory.Append(ctx, msg); err != nil {
			return nil, err
		}
		agentMsg = &msg
	}

	echo, err := s.memory.Recent(ctx, room.ID, s.windows.Echo)
	if err != nil {
		return nil, err
	}
	return &SendResult{
		UserMessage:      userMsg,
		AgentMessage:     agentMsg,
		Messages:         echo,
		CreditsRemaining: acc.CreditsRemaining,
	}, nil
}

// rebuild recreates an ephemeral chat lost on restart, keeping the client's chat id
func (s *ChatService) rebuild(ctx context.Context, in SendInput) (*domain.Room, error) {
	ch, ok := s.catalog.Lookup(in.CharacterID)
	if !ok {
		return nil, domain.NotFound("character %s not found", in.CharacterID)
	}

	human, known := s.memory.Player(in.SenderID)
	if !known {
		human = domain.NewHuman(s.names.Generate())
		if in.SenderID != "" {
			human.ID = in.SenderID
		}
	}
	agent := domain.NewAgent(ch.Name, ch.ID, persona.ProfileNotes(ch))

	room, err := s.memory.CreateRoom(ctx, chat.RoomSpec{
		ID:           in.ChatID,
		Name:         ch.Name + " Chat",
		Kind:         domain.RoomUnit,
		Participants: []domain.Participant{human, agent},
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("ephemeral chat rebuilt", "chat_id", room.ID, "character_id", ch.ID)
	return room, nil
}

func (s *ChatService) charge(ctx context.Context, id domain.Identity) (*ledger.Account, error) {
	acc, _, err := s.ledger.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.ConsumeOne(ctx, acc.ID)
}

// ==== Durable chat listing ====

// MyChats lists the caller's durable chats
func (s *ChatService) MyChats(ctx context.Context, caller Caller) ([]chat.Summary, error) {
	if !caller.Authenticated() {
		return nil, domain.Forbidden("authentication required")
	}
	return s.durable.ListOwned(ctx, caller.UserID)
}

// ChatMessages returns the full log of one of the caller's durable chats
func (s *ChatService) ChatMessages(ctx context.Context, caller Caller, chatID string) ([]domain.Message, error) {
	if !caller.Authenticated() {
		return nil, domain.Forbidden("authentication required")
	}
	if _, err := s.durable.OwnedRoom(ctx, chatID, caller.UserID); err != nil {
		return nil, err
	}
	return s.durable.All(ctx, chatID)
}

// Leave archives one of the caller's durable chats and reports "ok" or "already_left"
func (s *ChatService) Leave(ctx context.Context, caller Caller, chatID string) (string, error) {
	if !caller.Authenticated() {
		return "", domain.Forbidden("authentication required")
	}
	already, err := s.durable.Archive(ctx, chatID, caller.UserID)
	if err != nil {
		return "", err
	}
	if already {
		return "already_left", nil
	}
	return "ok", nil
}

// ==== Live rooms ====

// Players lists every known player of the live rooms
func (s *ChatService) Players() []domain.Participant {
	return s.memory.Players()
}

// Chats lists every live room with its log
func (s *ChatService) Chats(ctx context.Context) ([]RoomView, error) {
	rooms := s.memory.Rooms()
	out := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		v, err := s.view(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *ChatService) view(ctx context.Context, r domain.Room) (*RoomView, error) {
	msgs, err := s.memory.Recent(ctx, r.ID, math.MaxInt)
	if err != nil {
		return nil, err
	}
	return &RoomView{Room: r, Messages: msgs}, nil
}

// Greeting is the first envelope a connecting client receives
func (s *ChatService) Greeting(clientID string) []byte {
	return domain.Encode(domain.EventConnection, domain.ConnectionPayload{
		ClientID: clientID,
		Players:  s.memory.Players(),
	})
}

// HandleInbound processes a live "message" envelope from clientID.
// Messages for unknown rooms or from non-participants are dropped.
func (s *ChatService) HandleInbound(ctx context.Context, clientID string, in domain.InboundMessage) {
	room, err := s.memory.Room(ctx, in.ChatID)
	if err != nil {
		s.log.Debug("inbound message dropped", "client_id", clientID, "chat_id", in.ChatID, "reason", "unknown chat")
		return
	}
	sender, ok := s.memory.Player(clientID)
	if !ok || !room.HasParticipant(clientID) {
		s.log.Debug("inbound message dropped", "client_id", clientID, "chat_id", in.ChatID, "reason", "not a participant")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		return
	}
	if _, err := s.orch.HandleLive(ctx, s.memory, room, sender, in.Content); err != nil {
		s.log.Warn("live message failed", "client_id", clientID, "chat_id", in.ChatID, "error", err)
	}
}

func durableHuman(c Caller) domain.Participant {
	name := c.UserName
	if name == "" {
		name = "User " + c.UserID
	}
	return domain.Participant{
		ID:          "human_" + c.UserID,
		DisplayName: name,
		Kind:        domain.ParticipantHuman,
		Alive:       true,
	}
}
