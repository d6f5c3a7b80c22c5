// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package assistant implements the customer help chat on top of a langchaingo
// language model.
//
// Each session keeps a bounded history of its recent turns so follow-up
// questions have context. Sessions are held in memory only; the least
// recently used are evicted once the session limit is reached.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/llms"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

const (
	// DefaultHistoryTurns is how many question/answer pairs a session remembers.
	DefaultHistoryTurns = 6

	// DefaultMaxSessions bounds the number of conversations held in memory.
	DefaultMaxSessions = 1000
)

type session struct {
	history []llms.MessageContent
}

// Assistant answers customer messages. It is safe for concurrent use.
type Assistant struct {
	model        llms.Model
	systemPrompt string
	historyTurns int
	maxSessions  int
	temperature  float64
	logger       *slog.Logger

	// mu serializes history edits; sessions orders them by last use.
	mu       sync.Mutex
	sessions *lru.Cache[string, *session]
}

var _ ai.Responder = (*Assistant)(nil)

// Option configures an Assistant.
type Option func(*Assistant)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Assistant) {
		a.systemPrompt = prompt
	}
}

// WithHistoryTurns sets how many earlier turns are sent with each message.
// Zero disables history.
func WithHistoryTurns(turns int) Option {
	return func(a *Assistant) {
		a.historyTurns = max(turns, 0)
	}
}

// WithMaxSessions bounds how many sessions are remembered.
func WithMaxSessions(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxSessions = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Assistant) {
		a.temperature = t
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an assistant backed by model.
func New(model llms.Model, opts ...Option) (*Assistant, error) {
	if model == nil {
		return nil, ErrModelRequired
	}
	a := &Assistant{
		model:        model,
		systemPrompt: DefaultSystemPrompt,
		historyTurns: DefaultHistoryTurns,
		maxSessions:  DefaultMaxSessions,
		temperature:  0.3,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "assistant")

	sessions, err := lru.NewWithEvict(a.maxSessions, func(id string, _ *session) {
		a.logger.Debug("session dropped", "session", id)
	})
	if err != nil {
		return nil, err
	}
	a.sessions = sessions
	return a, nil
}

// NewSessionID returns an identifier for a new conversation.
func NewSessionID() string {
	return uuid.NewString()
}

// Reply answers message within the session. An empty sessionID gets a
// one-off conversation with no history.
func (a *Assistant) Reply(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	human := llms.TextParts(llms.ChatMessageTypeHuman, message)
	content := make([]llms.MessageContent, 0, 2*a.historyTurns+2)
	if a.systemPrompt != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, a.systemPrompt))
	}
	content = append(content, a.history(sessionID)...)
	content = append(content, human)

	response, err := a.model.GenerateContent(ctx, content, llms.WithTemperature(a.temperature))
	if err != nil {
		a.logger.Error("failed to generate reply", "session", sessionID, "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrNoReply
	}
	reply := strings.TrimSpace(response.Choices[0].Content)

	a.remember(sessionID, human, llms.TextParts(llms.ChatMessageTypeAI, reply))
	return reply, nil
}

// Forget drops a session's history.
func (a *Assistant) Forget(sessionID string) {
	a.sessions.Remove(sessionID)
}

// Sessions returns the number of conversations currently remembered.
func (a *Assistant) Sessions() int {
	return a.sessions.Len()
}

func (a *Assistant) history(sessionID string) []llms.MessageContent {
	if sessionID == "" || a.historyTurns == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions.Peek(sessionID)
	if !ok {
		return nil
	}
	out := make([]llms.MessageContent, len(s.history))
	copy(out, s.history)
	return out
}

func (a *Assistant) remember(sessionID string, turn ...llms.MessageContent) {
	if sessionID == "" || a.historyTurns == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	// Get marks the session as used; Add evicts the least recently used one when full.
	s, ok := a.sessions.Get(sessionID)
	if !ok {
		s = &session{}
		a.sessions.Add(sessionID, s)
	}
	s.history = append(s.history, turn...)
	if limit := 2 * a.historyTurns; len(s.history) > limit {
		s.history = append([]llms.MessageContent(nil), s.history[len(s.history)-limit:]...)
	}
}
