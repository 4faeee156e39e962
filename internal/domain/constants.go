package domain

import "time"

// ==== History Windows ====

const (
	// ContextWindow is the number of recent messages handed to the generator
	ContextWindow = 15

	// EchoWindow is the number of recent messages echoed back by the legacy send API
	EchoWindow = 20

	// RehydrateWindow is the number of stored messages loaded to rebuild a durable chat
	RehydrateWindow = 50
)

// ==== Turn Timing ====

const (
	// ReplyDelayMin and ReplyDelayMax bound the pause before a live round is evaluated
	ReplyDelayMin = 1 * time.Second
	ReplyDelayMax = 3 * time.Second

	// TypingPerChar is the simulated typing time per reply character
	TypingPerChar = 50 * time.Millisecond

	// TypingMax caps the simulated typing time
	TypingMax = 3 * time.Second

	// AgentGapMin and AgentGapMax bound the pause between two agents in one round
	AgentGapMin = 500 * time.Millisecond
	AgentGapMax = 2 * time.Second

	// ReplyProbability is the chance an eligible agent speaks in a live round
	ReplyProbability = 0.6
)

// ==== Credits ====

const (
	InitialFreeCredits = 5
	SignupBonusCredits = 10
	AdBonusCredits     = 10
	AdMinWatchSeconds  = 13

	// AdRevenueMinCents and AdRevenueMaxCents bound the simulated revenue of one ad view
	AdRevenueMinCents = 1
	AdRevenueMaxCents = 5

	// NextActionRegisterOrWatchAd is the remediation hint sent with InsufficientCredits
	NextActionRegisterOrWatchAd = "register_or_watch_ad"
)

// MaxMessageSize is the maximum allowed WebSocket message size in bytes
const MaxMessageSize = 4096
