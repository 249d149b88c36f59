package openai

import (
	"os"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
)

func init() {
	llm.MustRegister(&Factory{})
}

// Factory creates chat-completions clients
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return "openai"
}

// Description returns provider description
func (f *Factory) Description() string {
	return "OpenAI-compatible chat-completions protocol with native tool calling"
}

// Create creates a new client from configuration
func (f *Factory) Create(config *llm.Config, logger core.Logger, telemetry core.Telemetry) llm.Provider {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	client := NewClient(apiKey, baseURL, config.Timeout, logger, telemetry)
	if config.Model != "" {
		client.DefaultModel = config.Model
	}
	return client
}

// DetectEnvironment checks if the provider is configured and returns priority
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return 80, true
	}
	return 0, false
}
