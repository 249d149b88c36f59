package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/verdantlabs/arbor/core"
)

// ProviderFactory defines the interface for chat provider factories
type ProviderFactory interface {
	// Create creates a new provider instance with the given configuration
	Create(config *Config, logger core.Logger, telemetry core.Telemetry) Provider

	// DetectEnvironment checks if this provider can be used with current
	// environment. Returns priority (higher = preferred) and availability.
	DetectEnvironment() (priority int, available bool)

	// Name returns the provider's name
	Name() string

	// Description returns a human-readable description
	Description() string
}

// ProviderRegistry manages registered chat providers
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// Global registry instance
var registry = &ProviderRegistry{
	providers: make(map[string]ProviderFactory),
}

// Register registers a new provider factory
// This is typically called from init() functions in provider packages
func Register(factory ProviderFactory) error {
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	name := factory.Name()
	if name == "" {
		return fmt.Errorf("factory.Name() cannot be empty")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.providers[name]; exists {
		return fmt.Errorf("provider '%s' already registered", name)
	}

	registry.providers[name] = factory
	return nil
}

// MustRegister registers a provider and panics on error
// Use this in init() functions where errors cannot be handled
func MustRegister(factory ProviderFactory) {
	if err := Register(factory); err != nil {
		panic(fmt.Sprintf("failed to register provider: %v", err))
	}
}

// GetFactory retrieves a registered provider factory by name
func GetFactory(name string) (ProviderFactory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	factory, exists := registry.providers[name]
	return factory, exists
}

// ListProviders returns all registered provider names
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider constructs the configured provider, or the best available one
// detected from the environment when no provider is named. Fails fast before
// any network call when nothing is configured.
func NewProvider(cfg *Config, logger core.Logger, telemetry core.Telemetry) (Provider, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	name := cfg.Provider
	if name == "" {
		detected, err := detectBestProvider(logger)
		if err != nil {
			return nil, err
		}
		name = detected
	}

	factory, exists := GetFactory(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s (registered: %v)", core.ErrProviderNotFound, name, ListProviders())
	}

	logger.Info("Chat provider selected", map[string]interface{}{
		"operation": "provider_selection",
		"provider":  name,
	})

	return factory.Create(cfg, logger, telemetry), nil
}

// detectBestProvider finds the highest-priority available provider
func detectBestProvider(logger core.Logger) (string, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	type candidate struct {
		name     string
		priority int
	}
	var candidates []candidate

	for name, factory := range registry.providers {
		priority, available := factory.DetectEnvironment()

		logger.Debug("Provider environment check", map[string]interface{}{
			"operation": "provider_check",
			"provider":  name,
			"priority":  priority,
			"available": available,
		})

		if available {
			candidates = append(candidates, candidate{name: name, priority: priority})
		}
	}

	if len(candidates) == 0 {
		logger.Error("No chat providers detected in environment", map[string]interface{}{
			"operation":         "provider_detection",
			"checked_providers": len(registry.providers),
			"suggestion":        "Set API keys (OPENAI_API_KEY, GEMINI_API_KEY)",
		})
		return "", fmt.Errorf("%w: no provider detected in environment", core.ErrMissingConfiguration)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority > candidates[j].priority
		}
		return candidates[i].name < candidates[j].name
	})

	return candidates[0].name, nil
}
