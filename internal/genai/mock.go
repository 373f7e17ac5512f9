package genai

import (
	"context"
	"fmt"
	"sync"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// MockClient implements ClientInterface for tests. Responses are served
// from the Replies queue in order; when the queue is exhausted, Fallback
// is returned. Set Err to force every call to fail.
type MockClient struct {
	mu       sync.Mutex
	Replies  []string
	Fallback string
	Err      error
	// Calls records every prompt passed in, in order.
	Calls []string
	// Histories records the history slice of each GenerateWithHistory call.
	Histories [][]models.ConversationMessage
}

// NewMockClient creates a mock completion client with the given canned
// replies.
func NewMockClient(replies ...string) *MockClient {
	return &MockClient{Replies: replies, Fallback: "respuesta simulada"}
}

func (m *MockClient) next(prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) > 0 {
		reply := m.Replies[0]
		m.Replies = m.Replies[1:]
		return reply, nil
	}
	if m.Fallback != "" {
		return m.Fallback, nil
	}
	return "", fmt.Errorf("mock client has no replies")
}

// Generate implements ClientInterface.
func (m *MockClient) Generate(ctx context.Context, system, user string) (string, error) {
	return m.next(user)
}

// GenerateWithHistory implements ClientInterface.
func (m *MockClient) GenerateWithHistory(ctx context.Context, system string, history []models.ConversationMessage, user string) (string, error) {
	m.mu.Lock()
	m.Histories = append(m.Histories, history)
	m.mu.Unlock()
	return m.next(user)
}

// GenerateJSON implements ClientInterface.
func (m *MockClient) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	return m.next(user)
}
