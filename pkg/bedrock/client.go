// Package bedrock invokes Anthropic models hosted on AWS Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rotisserie/eris"
)

const anthropicVersion = "bedrock-2023-05-31"

// DefaultModelID is used when Config.ModelID is empty.
const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

// Client defines the Bedrock operations used by the recommendation service.
type Client interface {
	InvokeMessage(ctx context.Context, req Request) (*Response, error)
}

// Config configures the Bedrock runtime client.
type Config struct {
	Region          string
	ModelID         string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service endpoint (tests, VPC endpoints).
	Endpoint string
}

// Request is a single Anthropic messages call.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Message is one conversational turn.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a text block of a message.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage holds token counts reported by the model.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the decoded Anthropic messages response.
type Response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Text concatenates the text blocks of the response.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// UserMessage builds a single-block user message.
func UserMessage(text string) Message {
	return Message{Role: "user", Content: []ContentBlock{{Type: "text", Text: text}}}
}

type invokeBody struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
}

// runtimeAPI is the subset of *bedrockruntime.Client used here.
type runtimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type client struct {
	api     runtimeAPI
	modelID string
}

// NewClient loads AWS configuration and returns a Bedrock client. Static
// credentials are used when both keys are set; otherwise the default chain
// applies. SDK retries are disabled.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "bedrock: load aws config")
	}

	api := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		o.RetryMaxAttempts = 1
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	modelID := cfg.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &client{api: api, modelID: modelID}, nil
}

// ModelID returns the model invoked by c, or "" for foreign implementations.
func ModelID(c Client) string {
	if cc, ok := c.(*client); ok {
		return cc.modelID
	}
	return ""
}

func (c *client) InvokeMessage(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body, err := json.Marshal(invokeBody{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           req.System,
		Messages:         req.Messages,
		Temperature:      req.Temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "bedrock: marshal request")
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "bedrock: invoke model %s", c.modelID)
	}

	var resp Response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, eris.Wrap(err, "bedrock: decode response")
	}
	return &resp, nil
}
