package assistant

import "errors"

var (
	// ErrModelRequired is returned when no language model is provided.
	ErrModelRequired = errors.New("language model required")

	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrNoReply is returned when the model produced no choices.
	ErrNoReply = errors.New("model returned no reply")
)
