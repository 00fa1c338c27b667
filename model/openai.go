package model

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIModel adapts OpenAI's chat completions API to the chat-model
// contract.
type OpenAIModel struct {
	apiKey    string
	modelName string
}

// NewOpenAIModel creates an adapter. An empty modelName selects
// gpt-4o.
func NewOpenAIModel(apiKey, modelName string) *OpenAIModel {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &OpenAIModel{apiKey: apiKey, modelName: modelName}
}

// Name implements the chat-model contract.
func (m *OpenAIModel) Name() string { return m.modelName }

// Complete sends one user message and returns the first choice's
// content.
func (m *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	if m.apiKey == "" {
		return "", errors.New("OpenAI API key is required")
	}
	client := openaisdk.NewClient(option.WithAPIKey(m.apiKey))

	resp, err := client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(m.modelName),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
