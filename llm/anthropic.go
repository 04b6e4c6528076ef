package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider adapts the Anthropic Messages API to Provider. Anthropic
// has a native system-message slot and enforces strict user/assistant
// alternation, so every call goes through Normalize first.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	apiKey string
}

// NewAnthropicProvider builds a provider bound to model, authenticating with
// apiKey. Initialize still needs to be called before use.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{apiKey: apiKey, model: model}
}

func (p *AnthropicProvider) Initialize(ctx context.Context) error {
	if p.apiKey == "" {
		return errors.New("anthropic: missing API key")
	}
	p.client = anthropic.NewClient(option.WithAPIKey(p.apiKey))
	return nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	normalized := Normalize(messages)

	var system string
	msgs := make([]anthropic.MessageParam, 0, len(normalized))
	for _, m := range normalized {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var out string
	for _, block := range resp.Content {
		if text := block.Text; text != "" {
			out += text
		}
	}
	return out, nil
}

func (p *AnthropicProvider) Dispose() error {
	return nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) Model() string {
	return p.model
}
