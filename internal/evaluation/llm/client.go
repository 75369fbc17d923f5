package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
)

// ChatClient issues one chat completion per prompt
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIChatClient calls the OpenAI chat completions API. Retry policy lives
// in Service, so the underlying SDK client should be built with retries
// disabled.
type OpenAIChatClient struct {
	client              openai.Client
	model               string
	temperature         float64
	maxCompletionTokens int64
}

// NewOpenAIChatClient creates a new OpenAIChatClient
func NewOpenAIChatClient(client openai.Client, model string, temperature float64, maxCompletionTokens int64) *OpenAIChatClient {
	return &OpenAIChatClient{
		client:              client,
		model:               model,
		temperature:         temperature,
		maxCompletionTokens: maxCompletionTokens,
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content
func (c *OpenAIChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(c.maxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
