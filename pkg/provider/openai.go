package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompleter implements Completer using the OpenAI chat completions API.
type OpenAICompleter struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAICompleter creates an OpenAI completion client. An empty model
// selects gpt-4o-mini.
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	m := openai.ChatModel(model)
	if model == "" {
		m = openai.ChatModelGPT4oMini
	}
	return &OpenAICompleter{client: &client, model: m}
}

// ModelName implements Completer.
func (c *OpenAICompleter) ModelName() string { return string(c.model) }

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
