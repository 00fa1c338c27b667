package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicModel adapts Anthropic's Claude API to the chat-model
// contract.
type AnthropicModel struct {
	apiKey    string
	modelName string
	maxTokens int64
}

// NewAnthropicModel creates an adapter. An empty modelName selects a
// current Claude model.
func NewAnthropicModel(apiKey, modelName string) *AnthropicModel {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &AnthropicModel{apiKey: apiKey, modelName: modelName, maxTokens: 4096}
}

// Name implements the chat-model contract.
func (m *AnthropicModel) Name() string { return m.modelName }

// Complete sends one user message and concatenates the text blocks of
// the response.
func (m *AnthropicModel) Complete(ctx context.Context, prompt string) (string, error) {
	if m.apiKey == "" {
		return "", errors.New("anthropic API key is required")
	}
	client := anthropicsdk.NewClient(option.WithAPIKey(m.apiKey))

	resp, err := client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(m.modelName),
		MaxTokens: m.maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}
