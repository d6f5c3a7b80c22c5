package openai

import (
	"errors"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

// ErrChatModelRequired is returned when no chat model is configured.
var ErrChatModelRequired = errors.New("ai config: ChatModel is required")

// NewChatModel creates the langchaingo chat model used by the customer assistant.
func NewChatModel(config *ai.Config) (llms.Model, error) {
	config.Normalize()
	if config.ChatHost == "" || config.ChatModel == "" {
		return nil, ErrChatModelRequired
	}

	token := config.APIKey
	if token == "" {
		token = "none"
	}
	return openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(token),
		openai.WithModel(config.ChatModel),
		openai.WithHTTPClient(httpClient(config)),
	)
}
