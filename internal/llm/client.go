// Package llm wraps chat completions for the enrichment stages. All
// pipeline prompts go through here so model selection, retries and
// structured output handling live in one place.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Nat1anWasTaken/paperly/internal/config"
)

// Client is a chat completion client bound to one model.
type Client struct {
	api   openai.Client
	model string
}

// New creates a completion client. A custom base URL points the client at
// any OpenAI-compatible endpoint.
func New(cfg config.OpenAIConfig) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(3),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
	}
}

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

func (c *Client) params(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	return params
}

// Complete runs a plain text completion.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStructured runs a completion constrained to a JSON schema and
// decodes the result into out. The raw model output is also validated
// locally against the schema, since OpenAI-compatible endpoints differ in
// how strictly they enforce response formats.
func (c *Client) CompleteStructured(ctx context.Context, req Request, schemaName string, schema map[string]any, out any) error {
	params := c.params(req)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   schemaName,
				Schema: schema,
				Strict: openai.Bool(true),
			},
		},
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("structured completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("structured completion returned no choices")
	}
	content := resp.Choices[0].Message.Content

	parsed, err := parseStructuredJSON(content)
	if err != nil {
		return fmt.Errorf("failed to parse structured output: %w", err)
	}

	schemaRaw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to serialize schema: %w", err)
	}
	if err := validateStructuredJSON(schemaRaw, parsed); err != nil {
		return err
	}

	if err := json.Unmarshal(parsed, out); err != nil {
		return fmt.Errorf("failed to decode structured output: %w", err)
	}
	return nil
}
