package genai

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-agent/pkg/anthropic"
	"github.com/sells-group/opportunity-agent/pkg/bedrock"
)

// Completion is a single prompt sent to a Backend.
type Completion struct {
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature float64
}

// CompletionResult is the raw text returned by a Backend.
type CompletionResult struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Backend performs one completion against a model provider.
type Backend interface {
	Name() string
	Complete(ctx context.Context, c Completion) (*CompletionResult, error)
}

// AnthropicBackend calls the Anthropic Messages API.
type AnthropicBackend struct {
	client anthropic.Client
	model  string
}

// NewAnthropicBackend creates a Backend over an anthropic.Client.
func NewAnthropicBackend(client anthropic.Client, model string) *AnthropicBackend {
	return &AnthropicBackend{client: client, model: model}
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) Complete(ctx context.Context, c Completion) (*CompletionResult, error) {
	temp := c.Temperature
	req := anthropic.MessageRequest{
		Model:       b.model,
		MaxTokens:   c.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: c.Prompt}},
		Temperature: &temp,
	}
	if c.System != "" {
		req.System = []anthropic.SystemBlock{{Text: c.System}}
	}

	resp, err := b.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "genai: anthropic completion")
	}
	return &CompletionResult{
		Text:         resp.Text(),
		Model:        b.model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// BedrockBackend calls an Anthropic model on AWS Bedrock.
type BedrockBackend struct {
	client  bedrock.Client
	modelID string
}

// NewBedrockBackend creates a Backend over a bedrock.Client.
func NewBedrockBackend(client bedrock.Client, modelID string) *BedrockBackend {
	return &BedrockBackend{client: client, modelID: modelID}
}

func (b *BedrockBackend) Name() string { return "bedrock" }

func (b *BedrockBackend) Complete(ctx context.Context, c Completion) (*CompletionResult, error) {
	resp, err := b.client.InvokeMessage(ctx, bedrock.Request{
		System:      c.System,
		Messages:    []bedrock.Message{bedrock.UserMessage(c.Prompt)},
		MaxTokens:   int(c.MaxTokens),
		Temperature: c.Temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "genai: bedrock completion")
	}
	return &CompletionResult{
		Text:         resp.Text(),
		Model:        b.modelID,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
