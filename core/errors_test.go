package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, true},
		{"ErrMissingConfiguration", ErrMissingConfiguration, true},
		{"ErrAPIKeyMissing", ErrAPIKeyMissing, true},
		{"wrapped config error", fmt.Errorf("startup: %w", ErrAPIKeyMissing), true},
		{"transport error", ErrConnectionFailed, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsConfigurationError(tt.err))
		})
	}
}

func TestIsTransportError(t *testing.T) {
	assert.True(t, IsTransportError(ErrRateLimited))
	assert.True(t, IsTransportError(fmt.Errorf("chat: %w", ErrUnauthorized)))
	assert.True(t, IsTransportError(ErrTimeout))
	assert.False(t, IsTransportError(ErrEventNotFound))
}

func TestAssistantErrorFormatting(t *testing.T) {
	base := errors.New("boom")

	err := &AssistantError{Op: "orchestration.HandleUserMessage", Kind: "provider", Err: base}
	assert.Equal(t, "orchestration.HandleUserMessage: boom", err.Error())

	err = &AssistantError{Op: "store.DeleteConversation", Kind: "store", ID: "c-42", Err: base}
	assert.Equal(t, "store.DeleteConversation [c-42]: boom", err.Error())

	err = &AssistantError{Kind: "geocode", Message: "could not resolve location"}
	assert.Equal(t, "could not resolve location", err.Error())

	err = &AssistantError{Kind: "geocode"}
	assert.Equal(t, "geocode error", err.Error())
}

func TestAssistantErrorUnwrap(t *testing.T) {
	err := NewAssistantError("llm.Chat", "provider", ErrRateLimited)
	assert.True(t, errors.Is(err, ErrRateLimited))
}
