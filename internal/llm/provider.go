// Package llm contains the provider adapters, the rolling conversation
// context and the failover generation engine.
package llm

import "context"

// Message is a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is a minimal interface to generate a single response for an
// ordered message list. Each adapter owns its own transport and auth;
// callers treat all adapters uniformly.
type Provider interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (string, error)
}
