package mock

import (
	"context"
	"fmt"
	"sync"
)

// MockResponder is a test double for ai.Responder.
type MockResponder struct {
	// ReplyFunc is called by Reply if set.
	// If nil, the reply echoes the message.
	ReplyFunc func(ctx context.Context, sessionID, message string) (string, error)

	mu    sync.Mutex
	calls []ResponderCall
}

// ResponderCall records one Reply invocation.
type ResponderCall struct {
	SessionID string
	Message   string
}

// NewMockResponder creates a responder that echoes every message.
func NewMockResponder() *MockResponder {
	return &MockResponder{}
}

// Reply records the call and returns the injected or echoed reply.
func (m *MockResponder) Reply(ctx context.Context, sessionID, message string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ResponderCall{SessionID: sessionID, Message: message})
	m.mu.Unlock()

	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, sessionID, message)
	}
	return fmt.Sprintf("echo: %s", message), nil
}

// Calls returns the recorded invocations in order.
func (m *MockResponder) Calls() []ResponderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ResponderCall, len(m.calls))
	copy(out, m.calls)
	return out
}
