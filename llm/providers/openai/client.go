package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
	"github.com/verdantlabs/arbor/llm/providers"
)

// DefaultBaseURL is the default chat-completions endpoint
const DefaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Provider for the chat-completions protocol
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient creates a new chat-completions client
func NewClient(apiKey, baseURL string, timeout time.Duration, logger core.Logger, telemetry core.Telemetry) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(timeout, logger, telemetry)
	base.DefaultModel = "gpt-4o-mini"

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// Chat sends the conversation and tool catalog, returning the parsed
// response. One HTTP POST per turn; no automatic retry.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	ctx, span := c.StartSpan(ctx, "llm.chat")
	defer span.End()
	span.SetAttribute("llm.provider", "openai")

	if c.apiKey == "" {
		c.Logger.Error("Chat request failed - API key not configured", map[string]interface{}{
			"operation": "chat_request_error",
			"provider":  "openai",
			"error":     "api_key_missing",
		})
		err := fmt.Errorf("%w (openai)", core.ErrAPIKeyMissing)
		span.RecordError(err)
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.DefaultModel
	}
	span.SetAttribute("llm.model", model)

	body := buildRequest(req, model, c.DefaultTemperature, c.DefaultMaxTokens)

	jsonData, err := json.Marshal(body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.LogRequest("openai", model, len(req.Messages), len(req.Tools))
	startTime := time.Now()

	resp, err := c.Execute(ctx, httpReq)
	if err != nil {
		c.Logger.Error("Chat request failed - send error", map[string]interface{}{
			"operation": "chat_request_error",
			"provider":  "openai",
			"error":     err.Error(),
			"phase":     "request_execution",
		})
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Error("Chat request failed - API error", map[string]interface{}{
			"operation":   "chat_request_error",
			"provider":    "openai",
			"status_code": resp.StatusCode,
			"phase":       "api_response",
		})
		apiErr := c.HandleError(resp.StatusCode, respBody, "OpenAI")
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return nil, apiErr
	}

	result, err := parseResponse(respBody)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttribute("llm.tool_calls", len(result.ToolCalls))
	span.SetAttribute("llm.total_tokens", result.Usage.TotalTokens)
	c.LogResponse("openai", result.Model, len(result.ToolCalls), result.Usage, time.Since(startTime))

	return result, nil
}

// buildRequest serializes the shared conversation form into the vendor body.
// Messages map 1:1 to role/content entries; the system prompt becomes the
// leading system message.
func buildRequest(req llm.ChatRequest, model string, defaultTemperature float32, defaultMaxTokens int) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}

	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg))
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	for _, spec := range req.Tools {
		body.Tools = append(body.Tools, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}

	return body
}

func convertMessage(msg llm.Message) chatMessage {
	out := chatMessage{Role: string(msg.Role)}

	switch msg.Role {
	case llm.RoleAssistant:
		out.Content = msg.Content
		for _, call := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, toolCall{
				ID:   call.ID,
				Type: "function",
				Function: functionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
	case llm.RoleTool:
		out.Content = msg.Content
		out.ToolCallID = msg.ToolCallID
	case llm.RoleUser:
		if len(msg.Attachments) == 0 {
			out.Content = msg.Content
			break
		}
		out.Content = buildUserParts(msg)
	default:
		out.Content = msg.Content
	}

	return out
}

// buildUserParts flattens document attachments into delimited text blocks
// and turns image attachments into base64 image parts.
func buildUserParts(msg llm.Message) []contentPart {
	text := msg.Content
	for _, att := range msg.Attachments {
		if att.Kind == llm.AttachmentDocument {
			text += fmt.Sprintf("\n\n--- Document: %s ---\n%s\n--- End ---", att.Name, att.Text)
		}
	}

	parts := []contentPart{{Type: "text", Text: text}}
	for _, att := range msg.Attachments {
		if att.Kind == llm.AttachmentImage {
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: fmt.Sprintf("data:%s;base64,%s", att.MimeType, att.Data)},
			})
		}
	}
	return parts
}

// parseResponse reads the first choice's content and tool calls verbatim
func parseResponse(body []byte) (*llm.ChatResponse, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	msg := parsed.Choices[0].Message
	result := &llm.ChatResponse{
		Content: msg.Content,
		Model:   parsed.Model,
		Usage: llm.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}

	for _, call := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	return result, nil
}
