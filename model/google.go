package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleModel adapts Google's Gemini API to the chat-model contract.
type GoogleModel struct {
	apiKey    string
	modelName string
}

// NewGoogleModel creates an adapter. An empty modelName selects
// gemini-1.5-pro.
func NewGoogleModel(apiKey, modelName string) *GoogleModel {
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}
	return &GoogleModel{apiKey: apiKey, modelName: modelName}
}

// Name implements the chat-model contract.
func (m *GoogleModel) Name() string { return m.modelName }

// Complete sends one prompt and concatenates the text parts of the
// first candidate.
func (m *GoogleModel) Complete(ctx context.Context, prompt string) (string, error) {
	if m.apiKey == "" {
		return "", errors.New("google API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(m.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.GenerativeModel(m.modelName).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("google API returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
