package generation

import "context"

// Role tags one turn of the generation context
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the generation context
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is everything the generator sees for one reply
type Request struct {
	System string
	Turns  []Turn
}

// Generator produces a reply for an agent. Errors are never shown to users.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
