package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/mmuslimabdulj/persona-chat/internal/chat"
	"github.com/mmuslimabdulj/persona-chat/internal/domain"
	"github.com/mmuslimabdulj/persona-chat/internal/generation"
	"github.com/mmuslimabdulj/persona-chat/internal/persona"
)

// Broadcaster delivers encoded envelopes to connected clients.
// Unknown recipients are ignored.
type Broadcaster interface {
	SendTo(clientID string, msg []byte)
	BroadcastToSet(msg []byte, clientIDs []string)
	BroadcastExcept(msg []byte, excludeID string)
}

// Rand is the randomness used by the turn protocol
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Sleeper pauses for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Timing holds the pacing of live rounds
type Timing struct {
	ReplyProbability float64
	ReplyDelayMin    time.Duration
	ReplyDelayMax    time.Duration
	TypingPerChar    time.Duration
	TypingMax        time.Duration
	AgentGapMin      time.Duration
	AgentGapMax      time.Duration
	ContextWindow    int
}

// DefaultTiming returns the standard pacing
func DefaultTiming() Timing {
	return Timing{
		ReplyProbability: domain.ReplyProbability,
		ReplyDelayMin:    domain.ReplyDelayMin,
		ReplyDelayMax:    domain.ReplyDelayMax,
		TypingPerChar:    domain.TypingPerChar,
		TypingMax:        domain.TypingMax,
		AgentGapMin:      domain.AgentGapMin,
		AgentGapMax:      domain.AgentGapMax,
		ContextWindow:    domain.ContextWindow,
	}
}

// Orchestrator decides when agents speak and produces their replies
type Orchestrator struct {
	gen     generation.Generator
	catalog *persona.Catalog
	out     Broadcaster
	timing  Timing
	log     *slog.Logger

	rndMu sync.Mutex
	rnd   Rand
	sleep Sleeper

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// rounds outlive the request that scheduled them
	baseCtx context.Context
	wg      sync.WaitGroup
}

// Option customises an Orchestrator
type Option func(*Orchestrator)

// WithRand replaces the random source
func WithRand(r Rand) Option {
	return func(o *Orchestrator) { o.rnd = r }
}

// WithSleeper replaces the pacing clock
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

// WithContext sets the context live rounds run under
func WithContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.baseCtx = ctx }
}

// NewOrchestrator creates a turn orchestrator
func NewOrchestrator(gen generation.Generator, catalog *persona.Catalog, out Broadcaster, timing Timing, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:     gen,
		catalog: catalog,
		out:     out,
		timing:  timing,
		log:     log,
		rnd:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep:   sleepCtx,
		locks:   make(map[string]*sync.Mutex),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Generate asks the generator for agent's next message given the room history.
// Only the last ContextWindow messages are used.
func (o *Orchestrator) Generate(ctx context.Context, agent domain.Participant, participants []domain.Participant, history []domain.Message) (string, error) {
	if o.timing.ContextWindow > 0 && len(history) > o.timing.ContextWindow {
		history = history[len(history)-o.timing.ContextWindow:]
	}
	if len(history) == 0 {
		return "", domain.GenerationFailed(errors.New("empty history"))
	}

	others := lo.Filter(participants, func(p domain.Participant, _ int) bool { return p.ID != agent.ID })
	userName := "User"
	if human, ok := lo.Find(others, func(p domain.Participant) bool { return !p.IsAgent() }); ok {
		userName = human.DisplayName
	} else if len(others) > 0 {
		userName = others[0].DisplayName
	}

	system := persona.SystemPrompt(persona.PromptInput{
		Profile:  o.catalog.ProfileFor(agent),
		UserName: userName,
		Others:   lo.Map(others, func(p domain.Participant, _ int) string { return p.DisplayName }),
	})
	return o.gen.Generate(ctx, generation.Request{System: system, Turns: BuildContext(history, agent.ID)})
}

// BuildContext role-tags history from the speaking agent's point of view:
// its own messages are assistant turns, everything else is a user turn
// prefixed with the sender's display name, other agents included.
func BuildContext(history []domain.Message, agentID string) []generation.Turn {
	return lo.Map(history, func(m domain.Message, _ int) generation.Turn {
		if m.SenderID == agentID {
			return generation.Turn{Role: generation.RoleAssistant, Content: m.Content}
		}
		return generation.Turn{Role: generation.RoleUser, Content: "[" + m.SenderName + "]: " + m.Content}
	})
}

// ReplySync always returns content: generator failures are replaced by the
// deterministic fallback built from the last message not sent by agent.
func (o *Orchestrator) ReplySync(ctx context.Context, agent domain.Participant, participants []domain.Participant, history []domain.Message) string {
	text, err := o.Generate(ctx, agent, participants, history)
	if err == nil && text != "" {
		return text
	}
	o.log.Warn("generation failed, using fallback reply", "agent_id", agent.ID, "error", err)

	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SenderID != agent.ID {
			last = history[i].Content
			break
		}
	}
	return generation.Fallback(agent.DisplayName, last)
}

// HandleLive appends a human message to a live room, broadcasts it and
// schedules an agent round. It never waits for the round.
func (o *Orchestrator) HandleLive(ctx context.Context, store chat.Store, room *domain.Room, sender domain.Participant, content string) (domain.Message, error) {
	msg := domain.NewMessage(room.ID, sender, content)
	if err := store.Append(ctx, msg); err != nil {
		return domain.Message{}, err
	}
	o.out.BroadcastToSet(NewMessageEnvelope(room, msg), room.Participants)
	o.ScheduleRound(store, room.ID)
	return msg, nil
}

// ScheduleRound starts an agent round for the room in the background
func (o *Orchestrator) ScheduleRound(store chat.Store, roomID string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runRound(o.baseCtx, store, roomID)
	}()
}

// Wait blocks until every scheduled round has finished
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) roomLock(roomID string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	l, ok := o.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[roomID] = l
	}
	return l
}

// runRound is one evaluation round. Agents are handled one at a time under
// the room lock; a failed generation silently skips that agent.
func (o *Orchestrator) runRound(ctx context.Context, store chat.Store, roomID string) {
	if err := o.sleep(ctx, o.uniform(o.timing.ReplyDelayMin, o.timing.ReplyDelayMax)); err != nil {
		return
	}

	lock := o.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := store.Room(ctx, roomID)
	if err != nil {
		o.log.Debug("round skipped", "room_id", roomID, "error", err)
		return
	}
	participants, err := store.Participants(ctx, roomID)
	if err != nil {
		o.log.Warn("round skipped", "room_id", roomID, "error", err)
		return
	}

	for _, agent := range Eligible(room, participants) {
		if !o.coin(o.timing.ReplyProbability) {
			continue
		}

		o.out.BroadcastToSet(domain.Encode(domain.EventTyping, domain.TypingPayload{
			PlayerID:   agent.ID,
			PlayerName: agent.DisplayName,
		}), room.Participants)

		history, err := store.Recent(ctx, roomID, o.timing.ContextWindow)
		if err != nil {
			o.log.Warn("failed to load history", "room_id", roomID, "error", err)
			continue
		}
		text, err := o.Generate(ctx, agent, participants, history)
		if err != nil || text == "" {
			o.log.Debug("agent turn skipped", "room_id", roomID, "agent_id", agent.ID, "error", err)
			continue
		}

		typing := min(time.Duration(utf8.RuneCountInString(text))*o.timing.TypingPerChar, o.timing.TypingMax)
		if err := o.sleep(ctx, typing); err != nil {
			return
		}

		msg := domain.NewMessage(roomID, agent, text)
		if err := store.Append(ctx, msg); err != nil {
			o.log.Warn("failed to append agent reply", "room_id", roomID, "agent_id", agent.ID, "error", err)
			continue
		}
		o.out.BroadcastToSet(NewMessageEnvelope(room, msg), room.Participants)

		if err := o.sleep(ctx, o.uniform(o.timing.AgentGapMin, o.timing.AgentGapMax)); err != nil {
			return
		}
	}
}

// Eligible returns the room's agents that are alive and not held by a human
func Eligible(room *domain.Room, participants []domain.Participant) []domain.Participant {
	return lo.Filter(participants, func(p domain.Participant, _ int) bool {
		return p.IsAgent() && p.Alive && room.HasParticipant(p.ID) && !room.IsHeld(p.ID)
	})
}

// NewMessageEnvelope encodes msg for the room's members.
// Private rooms also carry their participant set.
func NewMessageEnvelope(room *domain.Room, msg domain.Message) []byte {
	payload := domain.NewMessagePayload{Message: msg, ChatType: room.Kind}
	if room.Kind == domain.RoomPrivate {
		payload.Participants = room.Participants
	}
	return domain.Encode(domain.EventNewMessage, payload)
}

func (o *Orchestrator) coin(p float64) bool {
	o.rndMu.Lock()
	defer o.rndMu.Unlock()
	return o.rnd.Float64() < p
}

// Pick returns a uniformly chosen index in [0, n)
func (o *Orchestrator) Pick(n int) int {
	o.rndMu.Lock()
	defer o.rndMu.Unlock()
	return o.rnd.IntN(n)
}

func (o *Orchestrator) uniform(from, to time.Duration) time.Duration {
	if to <= from {
		return from
	}
	o.rndMu.Lock()
	defer o.rndMu.Unlock()
	return from + time.Duration(o.rnd.Float64()*float64(to-from))
}
