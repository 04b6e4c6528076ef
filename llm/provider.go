// Package llm defines the narrow LLM completion contract consumed by the
// dynamic operation generator, plus concrete provider adapters.
package llm

import "context"

// MessageRole is the role of a single chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn in a completion request.
type Message struct {
	Role    MessageRole
	Content string
}

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// Provider is the narrow waist every LLM backend implements. Providers
// that cannot natively represent system messages, or that require strict
// user/assistant alternation, normalize internally (see normalize.go).
type Provider interface {
	Initialize(ctx context.Context) error
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
	Dispose() error
	Name() string
	Model() string
}
