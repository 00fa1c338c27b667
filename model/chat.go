// Package model provides chat-model collaborators for AI nodes:
// adapters over the Anthropic, OpenAI, and Google Gemini SDKs plus a
// mock for tests. Every adapter exposes the same two methods — Name
// and Complete — so it satisfies the node package's ChatModel
// interface structurally.
package model

import (
	"context"
	"sync"
)

// Mock is a canned-response model for tests and offline runs.
type Mock struct {
	mu        sync.Mutex
	ModelName string
	Response  string
	Err       error
	Prompts   []string
}

// NewMock returns a mock that answers every prompt with response.
func NewMock(response string) *Mock {
	return &Mock{ModelName: "mock", Response: response}
}

// Name implements the chat-model contract.
func (m *Mock) Name() string { return m.ModelName }

// Complete records the prompt and returns the canned response.
func (m *Mock) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
