package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
	"github.com/verdantlabs/arbor/llm/providers"
)

// DefaultBaseURL is the default GenerateContent API endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements llm.Provider for the generateContent protocol
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient creates a new generateContent client
func NewClient(apiKey, baseURL string, timeout time.Duration, logger core.Logger, telemetry core.Telemetry) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(timeout, logger, telemetry)
	base.DefaultModel = "gemini-1.5-flash"

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "gemini"
}

// Chat sends the conversation and tool catalog using the native
// GenerateContent API and returns the parsed response.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	ctx, span := c.StartSpan(ctx, "llm.chat")
	defer span.End()
	span.SetAttribute("llm.provider", "gemini")

	if c.apiKey == "" {
		c.Logger.Error("Chat request failed - API key not configured", map[string]interface{}{
			"operation": "chat_request_error",
			"provider":  "gemini",
			"error":     "api_key_missing",
		})
		err := fmt.Errorf("%w (gemini)", core.ErrAPIKeyMissing)
		span.RecordError(err)
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.DefaultModel
	}
	span.SetAttribute("llm.model", model)

	body := buildRequest(req, c.DefaultTemperature, c.DefaultMaxTokens)

	jsonData, err := json.Marshal(body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Format: /models/{model}:generateContent?key={api_key}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.LogRequest("gemini", model, len(req.Messages), len(req.Tools))
	startTime := time.Now()

	resp, err := c.Execute(ctx, httpReq)
	if err != nil {
		c.Logger.Error("Chat request failed - send error", map[string]interface{}{
			"operation": "chat_request_error",
			"provider":  "gemini",
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
			"provider":    "gemini",
			"status_code": resp.StatusCode,
			"phase":       "api_response",
		})
		apiErr := c.HandleError(resp.StatusCode, respBody, "Gemini")
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return nil, apiErr
	}

	result, err := parseResponse(respBody, model)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttribute("llm.tool_calls", len(result.ToolCalls))
	span.SetAttribute("llm.total_tokens", result.Usage.TotalTokens)
	c.LogResponse("gemini", model, len(result.ToolCalls), result.Usage, time.Since(startTime))

	return result, nil
}

// buildRequest re-derives the whole history into the protocol's contents
// form. The protocol has no system or tool roles: the system prompt (plus
// any system messages in the history) becomes a top-level instruction, and
// tool results become user-role turns carrying functionResponse parts.
func buildRequest(req llm.ChatRequest, defaultTemperature float32, defaultMaxTokens int) generateRequest {
	var systemParts []string
	if req.SystemPrompt != "" {
		systemParts = append(systemParts, req.SystemPrompt)
	}

	// The protocol does not echo tool-call ids; functionResponse parts are
	// matched by function name, so remember which name each id belongs to.
	callNames := make(map[string]string)

	contents := make([]content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleUser:
			contents = append(contents, content{Role: "user", Parts: buildUserParts(msg)})
		case llm.RoleAssistant:
			for _, call := range msg.ToolCalls {
				callNames[call.ID] = call.Name
			}
			contents = append(contents, content{Role: "model", Parts: buildModelParts(msg)})
		case llm.RoleTool:
			contents = append(contents, content{Role: "user", Parts: []part{{
				FunctionResponse: &functionResponse{
					Name:     callNames[msg.ToolCallID],
					Response: parseToolResult(msg.Content),
				},
			}}})
		}
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	body := generateRequest{
		Contents: contents,
		GenerationConfig: &generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	if len(systemParts) > 0 {
		body.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	if len(req.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(req.Tools))
		for _, spec := range req.Tools {
			declarations = append(declarations, functionDeclaration{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  convertSchema(spec.Parameters),
			})
		}
		body.Tools = []toolDeclarations{{FunctionDeclarations: declarations}}
	}

	return body
}

func buildUserParts(msg llm.Message) []part {
	text := msg.Content
	for _, att := range msg.Attachments {
		if att.Kind == llm.AttachmentDocument {
			text += fmt.Sprintf("\n\n--- Document: %s ---\n%s\n--- End ---", att.Name, att.Text)
		}
	}

	parts := []part{{Text: text}}
	for _, att := range msg.Attachments {
		if att.Kind == llm.AttachmentImage {
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: att.MimeType,
				Data:     att.Data,
			}})
		}
	}
	return parts
}

func buildModelParts(msg llm.Message) []part {
	var parts []part
	if msg.Content != "" {
		parts = append(parts, part{Text: msg.Content})
	}
	for _, call := range msg.ToolCalls {
		parts = append(parts, part{FunctionCall: &functionCall{
			Name: call.Name,
			Args: parseArguments(call.Arguments),
		}})
	}
	if len(parts) == 0 {
		parts = []part{{Text: ""}}
	}
	return parts
}

// parseArguments re-parses the stored JSON argument string back into an
// object; a malformed blob degrades to empty arguments.
func parseArguments(raw string) map[string]interface{} {
	args := make(map[string]interface{})
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]interface{}{}
	}
	return args
}

// parseToolResult wraps the stringified tool result as a response object
func parseToolResult(content string) map[string]interface{} {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		return parsed
	}
	return map[string]interface{}{"content": content}
}

// parseResponse concatenates all text parts for content and collects every
// functionCall part into a synthesized tool call. The protocol carries no
// native tool-call id, so a fresh unique id is fabricated per call.
func parseResponse(body []byte, model string) (*llm.ChatResponse, error) {
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	result := &llm.ChatResponse{
		Model: model,
		Usage: llm.TokenUsage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.FunctionCall != nil {
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil {
				args = []byte("{}")
			}
			result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
				ID:        uuid.NewString(),
				Name:      p.FunctionCall.Name,
				Arguments: string(args),
			})
		}
	}
	result.Content = text.String()

	return result, nil
}
