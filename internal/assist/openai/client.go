// Package openai implements the assist.Suggester port against the OpenAI
// chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"trrhub/internal/assist"
	pkgerrors "trrhub/pkg/errors"
)

const systemPrompt = `You assist authors of technical review requests. Given the
suggestion type and the current form fields, propose up to five concise
candidate values for that field.

Return ONLY a valid JSON object, no other text:
{"suggestions": ["..."], "confidence": 0.0, "rationale": "..."}`

const defaultModel = "gpt-4o-mini"

// Client calls OpenAI to produce field suggestions.
type Client struct {
	api   completionAPI
	model string
}

// completionAPI is the slice of *openai.Client the suggester uses.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// withAPI swaps the transport, for tests.
func withAPI(api completionAPI) Option {
	return func(c *Client) { c.api = api }
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}
	if c.api == nil {
		if apiKey == "" {
			return nil, pkgerrors.New(pkgerrors.CodeAuthRequired, "openai api key is required")
		}
		c.api = openai.NewClient(apiKey)
	}
	return c, nil
}

// Suggest asks the model for candidate values for one form field.
func (c *Client) Suggest(ctx context.Context, req assist.Request) (assist.Response, error) {
	form, err := json.Marshal(req.FormData)
	if err != nil {
		return assist.Response{}, pkgerrors.Wrap(err, pkgerrors.CodeInvalidRequest, "encode form data")
	}

	prompt := fmt.Sprintf("Suggestion type: %s\nWorkflow stage: %s\nCurrent form:\n%s",
		req.Type, req.Context.WorkflowStage, form)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return assist.Response{}, classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return assist.Response{}, pkgerrors.New(pkgerrors.CodeUnavailable, "empty completion response")
	}

	var parsed struct {
		Suggestions []string `json:"suggestions"`
		Confidence  float64  `json:"confidence"`
		Rationale   string   `json:"rationale"`
	}
	content := cleanJSONResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return assist.Response{}, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "parse completion response")
	}

	return assist.Response{
		Suggestions: parsed.Suggestions,
		Confidence:  parsed.Confidence,
		Rationale:   parsed.Rationale,
		Model:       resp.Model,
		TokensUsed:  resp.Usage.TotalTokens,
	}, nil
}

// classifyAPIError maps OpenAI failures onto the portal error set.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return pkgerrors.Wrap(err, pkgerrors.CodeAuthRequired, "openai authentication")
		case http.StatusForbidden:
			return pkgerrors.Wrap(err, pkgerrors.CodePermissionDenied, "openai authorization")
		case http.StatusTooManyRequests:
			return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "openai quota exceeded")
		}
	}
	return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "openai request")
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON output.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
