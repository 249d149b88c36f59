package gemini

import (
	"os"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
)

func init() {
	llm.MustRegister(&Factory{})
}

// Factory creates generateContent clients
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return "gemini"
}

// Description returns provider description
func (f *Factory) Description() string {
	return "Google Gemini models with native GenerateContent API"
}

// Create creates a new client from configuration
func (f *Factory) Create(config *llm.Config, logger core.Logger, telemetry core.Telemetry) llm.Provider {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			// Also check for GOOGLE_API_KEY as an alternative
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("GEMINI_BASE_URL")
	}

	client := NewClient(apiKey, baseURL, config.Timeout, logger, telemetry)
	if config.Model != "" {
		client.DefaultModel = config.Model
	}
	return client
}

// DetectEnvironment checks if the provider is configured and returns priority
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		return 70, true
	}
	return 0, false
}
