// Package providers holds the shared HTTP shell for vendor chat adapters.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
)

// DefaultTimeout is the hard timeout for one outbound vendor call. On
// timeout the call is aborted and surfaced; it is never retried — a tool
// round that already mutated the remote store must not replay.
const DefaultTimeout = 60 * time.Second

// BaseClient provides common functionality for all chat providers
type BaseClient struct {
	// HTTP client with timeout
	HTTPClient *http.Client

	// Logger for debugging
	Logger core.Logger

	// Telemetry for span creation
	Telemetry core.Telemetry

	// Default configuration
	DefaultModel       string
	DefaultTemperature float32
	DefaultMaxTokens   int
}

// NewBaseClient creates a new base client with defaults
func NewBaseClient(timeout time.Duration, logger core.Logger, telemetry core.Telemetry) *BaseClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	return &BaseClient{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Logger:             logger,
		Telemetry:          telemetry,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   2000,
	}
}

// StartSpan opens a telemetry span
func (b *BaseClient) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	return b.Telemetry.StartSpan(ctx, name)
}

// Execute performs one HTTP request. There is no automatic retry: transport
// failures and timeouts are classified and surfaced to the caller.
func (b *BaseClient) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := b.HTTPClient.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, fmt.Errorf("%w: request took too long", core.ErrTimeout)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrContextCanceled, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	return resp, nil
}

func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// HandleError processes vendor API errors consistently, distinguishing auth
// failures, rate limiting, and bad requests from generic failures.
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w (%s)", core.ErrUnauthorized, provider)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w (%s)", core.ErrRateLimited, provider)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s rejected the request - %s", core.ErrRequestFailed, provider, string(body))
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s temporarily unavailable (status %d)", core.ErrRequestFailed, provider, statusCode)
	default:
		return fmt.Errorf("%w: %s status %d: %s", core.ErrRequestFailed, provider, statusCode, string(body))
	}
}

// LogRequest logs outgoing API requests
func (b *BaseClient) LogRequest(provider, model string, messages, tools int) {
	b.Logger.Info("Chat request initiated", map[string]interface{}{
		"operation": "chat_request",
		"provider":  provider,
		"model":     model,
		"messages":  messages,
		"tools":     tools,
	})
}

// LogResponse logs API responses
func (b *BaseClient) LogResponse(provider, model string, toolCalls int, usage llm.TokenUsage, duration time.Duration) {
	b.Logger.Info("Chat response received", map[string]interface{}{
		"operation":         "chat_response",
		"provider":          provider,
		"model":             model,
		"tool_calls":        toolCalls,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"duration_ms":       duration.Milliseconds(),
		"status":            "success",
	})
}
