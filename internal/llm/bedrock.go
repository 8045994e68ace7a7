package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
)

// bedrockClient talks to Anthropic models on AWS Bedrock via InvokeModel.
type bedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
	timeout time.Duration
}

var _ Client = (*bedrockClient)(nil)

func newBedrockClient(cfg config.Config) (*bedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &bedrockClient{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		modelID: cfg.BedrockModelID,
		timeout: cfg.RequestTimeout,
	}, nil
}

// anthropicRequest is the Bedrock Anthropic messages payload.
type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

func (c *bedrockClient) invoke(ctx context.Context, req anthropicRequest) (string, error) {
	ctx, cancel := callTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: invoke bedrock model: %v", ErrCompletionService, err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode bedrock response: %v", ErrCompletionService, err)
	}

	var sb strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty bedrock response", ErrCompletionService)
	}
	return sb.String(), nil
}

// buildAnthropicRequest maps a transcript onto the Bedrock messages payload.
// The leading system turn maps to the request's system field; Bedrock
// requires user/assistant alternation to start with a user message, which
// the transcript guarantees.
func buildAnthropicRequest(messages []Message, opts Options) anthropicRequest {
	req := anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
	}

	for _, m := range messages {
		if m.Role == RoleSystem {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    string(m.Role),
			Content: []anthropicContent{{Type: "text", Text: m.Content}},
		})
	}

	return req
}

// Chat sends the transcript as Anthropic messages.
func (c *bedrockClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	return c.invoke(ctx, buildAnthropicRequest(messages, opts))
}

// Complete wraps the prompt in a single user message.
func (c *bedrockClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	req := anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: []anthropicContent{{Type: "text", Text: prompt}}},
		},
	}
	return c.invoke(ctx, req)
}

// Model returns the Bedrock model identifier.
func (c *bedrockClient) Model() string {
	return c.modelID
}
