package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmuslimabdulj/persona-chat/internal/chat"
	"github.com/mmuslimabdulj/persona-chat/internal/domain"
	"github.com/mmuslimabdulj/persona-chat/internal/generation"
	"github.com/mmuslimabdulj/persona-chat/internal/ledger"
	"github.com/mmuslimabdulj/persona-chat/internal/logging"
	"github.com/mmuslimabdulj/persona-chat/internal/storage"
)

type serviceFixture struct {
	svc    *ChatService
	memory *chat.MemoryStore
	ledger *ledger.Ledger
	rec    *recorder
	orch   *Orchestrator
}

func newServiceFixture(t *testing.T, gen generation.Generator) *serviceFixture {
	t.Helper()

	db, err := storage.Open(storage.MemoryPath, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	require.NoError(t, chat.Migrate(db))
	require.NoError(t, ledger.Migrate(db))

	memory := chat.NewMemoryStore()
	l := ledger.New(db, ledger.Credits{InitialFree: 5, SignupBonus: 10, AdMinWatchSeconds: 13}, logging.Discard())
	rec := &recorder{store: memory}
	orch := newTestOrchestrator(gen, rec, &sleepLog{})

	svc := NewChatService(memory, chat.NewSQLStore(db), testCatalog(), l, orch, NewGuestNamer(),
		Windows{Echo: domain.EchoWindow, Rehydrate: domain.RehydrateWindow}, logging.Discard())
	return &serviceFixture{svc: svc, memory: memory, ledger: l, rec: rec, orch: orch}
}

func replyWith(text string) generation.Generator {
	return generation.GeneratorFunc(func(context.Context, generation.Request) (string, error) {
		return text, nil
	})
}

func TestCreateByID_Anonymous(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))

	created, err := f.svc.CreateByID(context.Background(), Caller{AnonID: "anon_1"}, "Alice", "riftan")
	require.NoError(t, err)
	require.NotEmpty(t, created.HumanID)
	require.NotEmpty(t, created.AgentID)
	require.Equal(t, "Riftan Calypse", created.AgentName)
	require.Len(t, created.Messages, 1)
	require.Equal(t, created.AgentID, created.Messages[0].SenderID)

	room, err := f.memory.Room(context.Background(), created.ChatID)
	require.NoError(t, err)
	require.Equal(t, domain.RoomUnit, room.Kind)
}

func TestCreateByID_UnknownCharacter(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))

	_, err := f.svc.CreateByID(context.Background(), Caller{AnonID: "anon_1"}, "Alice", "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDurableChat_Lifecycle(t *testing.T) {
	f := newServiceFixture(t, replyWith("welcome back"))
	ctx := context.Background()
	caller := Caller{UserID: "42", UserName: "Alice"}

	created, err := f.svc.CreateByID(ctx, caller, "", "riftan-calypse")
	require.NoError(t, err)
	require.Empty(t, created.HumanID)

	// registered accounts start empty
	_, err = f.svc.Send(ctx, caller, SendInput{ChatID: created.ChatID, Content: "hi"})
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	require.Equal(t, domain.NextActionRegisterOrWatchAd, de.Hint.NextAction)

	_, granted, err := f.ledger.GrantSignupBonus(ctx, "42")
	require.NoError(t, err)
	require.True(t, granted)

	res, err := f.svc.Send(ctx, caller, SendInput{ChatID: created.ChatID, Content: "hi"})
	require.NoError(t, err)
	require.Equal(t, 9, res.CreditsRemaining)
	require.Equal(t, "hi", res.UserMessage.Content)
	require.Equal(t, "human_42", res.UserMessage.SenderID)
	require.Equal(t, "welcome back", res.AgentMessage.Content)
	require.Nil(t, res.Messages)

	msgs, err := f.svc.ChatMessages(ctx, caller, created.ChatID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	chats, err := f.svc.MyChats(ctx, caller)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, "Riftan Calypse", chats[0].AgentName)
	require.Equal(t, "welcome back", *chats[0].LastMessage)

	_, err = f.svc.ChatMessages(ctx, Caller{UserID: "other"}, created.ChatID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	status, err := f.svc.Leave(ctx, caller, created.ChatID)
	require.NoError(t, err)
	require.Equal(t, "ok", status)
	status, err = f.svc.Leave(ctx, caller, created.ChatID)
	require.NoError(t, err)
	require.Equal(t, "already_left", status)

	_, err = f.svc.Send(ctx, caller, SendInput{ChatID: created.ChatID, Content: "still there?"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendEphemeral_Validation(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()
	anon := Caller{AnonID: "anon_1"}

	created, err := f.svc.CreateByID(ctx, anon, "Alice", "tiwakan")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, anon, SendInput{ChatID: created.ChatID, Content: "hi"})
	require.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = f.svc.Send(ctx, anon, SendInput{ChatID: created.ChatID, Content: "hi", SenderID: "human_stranger"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Send(ctx, Caller{}, SendInput{ChatID: created.ChatID, Content: "hi", SenderID: created.HumanID})
	require.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = f.svc.Send(ctx, anon, SendInput{ChatID: "unit_missing", Content: "hi", SenderID: created.HumanID})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Send(ctx, anon, SendInput{ChatID: created.ChatID, Content: "  ", SenderID: created.HumanID})
	require.ErrorIs(t, err, domain.ErrBadRequest)

	// nothing was charged
	acc, _, err := f.ledger.GetOrCreate(ctx, anon.Identity())
	require.NoError(t, err)
	require.Equal(t, 5, acc.CreditsRemaining)
}

func TestSendEphemeral_ChargesAndEchoes(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()
	anon := Caller{AnonID: "anon_1"}

	created, err := f.svc.CreateByID(ctx, anon, "Alice", "tiwakan")
	require.NoError(t, err)

	in := SendInput{ChatID: created.ChatID, Content: "hi", SenderID: created.HumanID}
	for want := 4; want >= 0; want-- {
		res, err := f.svc.Send(ctx, anon, in)
		require.NoError(t, err)
		require.Equal(t, want, res.CreditsRemaining)
		require.NotNil(t, res.AgentMessage)
		require.Equal(t, created.AgentID, res.AgentMessage.SenderID)
	}

	before, err := f.memory.Recent(ctx, created.ChatID, 100)
	require.NoError(t, err)
	require.Len(t, before, 11)

	_, err = f.svc.Send(ctx, anon, in)
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)

	after, err := f.memory.Recent(ctx, created.ChatID, 100)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSendEphemeral_EchoIsBounded(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()
	anon := Caller{AnonID: "anon_1"}

	created, err := f.svc.CreateByID(ctx, anon, "Alice", "tiwakan")
	require.NoError(t, err)
	acc, _, err := f.ledger.GetOrCreate(ctx, anon.Identity())
	require.NoError(t, err)
	_, err = f.ledger.Grant(ctx, acc.ID, 20)
	require.NoError(t, err)

	var res *SendResult
	for range 12 {
		res, err = f.svc.Send(ctx, anon, SendInput{ChatID: created.ChatID, Content: "hi", SenderID: created.HumanID})
		require.NoError(t, err)
	}
	require.Len(t, res.Messages, domain.EchoWindow)
	require.Equal(t, res.AgentMessage.ID, res.Messages[len(res.Messages)-1].ID)
}

func TestSendEphemeral_FallbackOnGeneratorFailure(t *testing.T) {
	f := newServiceFixture(t, generation.GeneratorFunc(func(context.Context, generation.Request) (string, error) {
		return "", domain.GenerationFailed(errors.New("boom"))
	}))
	ctx := context.Background()
	anon := Caller{AnonID: "anon_1"}

	created, err := f.svc.CreateByID(ctx, anon, "Alice", "tiwakan")
	require.NoError(t, err)

	res, err := f.svc.Send(ctx, anon, SendInput{ChatID: created.ChatID, Content: "where are we?", SenderID: created.HumanID})
	require.NoError(t, err)
	require.Equal(t, 4, res.CreditsRemaining)
	require.Contains(t, res.AgentMessage.Content, "'where are we?'")
}

func TestSendEphemeral_RebuildsLostChat(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()

	res, err := f.svc.Send(ctx, Caller{AnonID: "anon_1"}, SendInput{
		ChatID:      "unit_lost",
		Content:     "hi again",
		SenderID:    "human_returning",
		CharacterID: "riftan",
	})
	require.NoError(t, err)
	require.Equal(t, "unit_lost", res.UserMessage.RoomID)
	require.Equal(t, "human_returning", res.UserMessage.SenderID)
	require.NotNil(t, res.AgentMessage)
	require.Equal(t, "Riftan Calypse", res.AgentMessage.SenderName)
}

func TestCreateGroup(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()

	created, err := f.svc.CreateGroup(ctx, "Alice", []string{"riftan", "tiwakan", "riftan"}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"Riftan Calypse", "Tiwakan"}, created.AgentNames)

	room, err := f.memory.Room(ctx, created.ChatID)
	require.NoError(t, err)
	require.Equal(t, domain.RoomGroup, room.Kind)
	require.Len(t, room.Participants, 3)
	require.Equal(t, "Riftan Calypse, Tiwakan", room.Name)

	_, err = f.svc.CreateGroup(ctx, "Alice", []string{"nobody"}, "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.CreateGroup(ctx, "Alice", nil, "")
	require.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreatePrivate_ReusesRoom(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()

	g1, err := f.svc.CreateGroup(ctx, "Alice", []string{"riftan"}, "")
	require.NoError(t, err)
	g2, err := f.svc.CreateGroup(ctx, "Bob", []string{"tiwakan"}, "")
	require.NoError(t, err)

	first, err := f.svc.CreatePrivate(ctx, g1.HumanID, g2.HumanID)
	require.NoError(t, err)
	require.Equal(t, domain.RoomPrivate, first.Kind)

	again, err := f.svc.CreatePrivate(ctx, g2.HumanID, g1.HumanID)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	_, err = f.svc.CreatePrivate(ctx, g1.HumanID, "human_ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHold(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, "Alice", []string{"riftan", "tiwakan"}, "")
	require.NoError(t, err)
	room, err := f.memory.Room(ctx, g.ChatID)
	require.NoError(t, err)
	agentID := room.Participants[1]

	err = f.svc.Hold(ctx, g.ChatID, agentID, room.Participants[2])
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.Hold(ctx, g.ChatID, g.HumanID, agentID))
	room, err = f.memory.Room(ctx, g.ChatID)
	require.NoError(t, err)
	require.True(t, room.IsHeld(agentID))
}

func TestHandleInbound(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, "Alice", []string{"riftan"}, "")
	require.NoError(t, err)

	f.svc.HandleInbound(ctx, "human_stranger", domain.InboundMessage{ChatID: g.ChatID, Content: "hi"})
	f.svc.HandleInbound(ctx, g.HumanID, domain.InboundMessage{ChatID: "group_missing", Content: "hi"})
	f.orch.Wait()
	require.Empty(t, f.rec.Events())

	f.svc.HandleInbound(ctx, g.HumanID, domain.InboundMessage{ChatID: g.ChatID, Content: "hi"})
	f.orch.Wait()

	msgs, err := f.memory.Recent(ctx, g.ChatID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, g.HumanID, msgs[0].SenderID)
}

func TestGreetingListsPlayers(t *testing.T) {
	f := newServiceFixture(t, replyWith("ok"))

	g, err := f.svc.CreateGroup(context.Background(), "Alice", []string{"riftan"}, "")
	require.NoError(t, err)

	raw := f.svc.Greeting(g.HumanID)
	require.Contains(t, string(raw), `"type":"connection"`)
	require.Contains(t, string(raw), g.HumanID)
	require.Len(t, f.svc.Players(), 2)
}
