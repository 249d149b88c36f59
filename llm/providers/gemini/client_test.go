package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
)

func TestChatFailsFastWithoutAPIKey(t *testing.T) {
	client := NewClient("", "", 0, nil, nil)

	_, err := client.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})

	assert.ErrorIs(t, err, core.ErrAPIKeyMissing)
}

func TestChatRoundTrip(t *testing.T) {
	var captured generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", req.URL.Path)
		assert.Equal(t, "test-key", req.URL.Query().Get("key"))

		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [
				{"text": "Checking your map first. "},
				{"functionCall": {"name": "getMapContext", "args": {}}}
			]}, "finishReason": "STOP", "index": 0}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 6, "totalTokenCount": 18}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 0, nil, nil)
	resp, err := client.Chat(context.Background(), llm.ChatRequest{
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "plant an oak here"}},
		SystemPrompt: "You are a planting assistant.",
		Tools: []llm.ToolSpec{{
			Name:        "getMapContext",
			Description: "Returns the user's current map context",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"verbose": llm.StringSchema("verbosity level"),
			}),
		}},
	})
	require.NoError(t, err)

	require.NotNil(t, captured.SystemInstruction)
	require.Len(t, captured.SystemInstruction.Parts, 1)
	assert.Equal(t, "You are a planting assistant.", captured.SystemInstruction.Parts[0].Text)

	require.Len(t, captured.Tools, 1)
	require.Len(t, captured.Tools[0].FunctionDeclarations, 1)
	decl := captured.Tools[0].FunctionDeclarations[0]
	assert.Equal(t, "getMapContext", decl.Name)
	require.NotNil(t, decl.Parameters)
	assert.Equal(t, "OBJECT", decl.Parameters.Type)
	assert.Equal(t, "STRING", decl.Parameters.Properties["verbose"].Type)

	assert.Equal(t, "Checking your map first. ", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "getMapContext", resp.ToolCalls[0].Name)
	assert.NotEmpty(t, resp.ToolCalls[0].ID, "tool calls must carry a synthesized id")
	assert.Equal(t, 18, resp.Usage.TotalTokens)
}

func TestBuildRequestFoldsSystemMessages(t *testing.T) {
	body := buildRequest(llm.ChatRequest{
		SystemPrompt: "Base instructions.",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Extra rule."},
			{Role: llm.RoleUser, Content: "hello"},
		},
	}, 0.7, 2000)

	require.NotNil(t, body.SystemInstruction)
	require.Len(t, body.SystemInstruction.Parts, 1)
	assert.Equal(t, "Base instructions.\n\nExtra rule.", body.SystemInstruction.Parts[0].Text)

	// System messages never appear as contents.
	require.Len(t, body.Contents, 1)
	assert.Equal(t, "user", body.Contents[0].Role)
}

func TestBuildRequestMapsToolResultsByCallID(t *testing.T) {
	body := buildRequest(llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "create it"},
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
				{ID: "id-1", Name: "createEvent", Arguments: `{"title":"Oak"}`},
				{ID: "id-2", Name: "getWeather", Arguments: `{"lat":50.0,"lng":14.5}`},
			}},
			{Role: llm.RoleTool, ToolCallID: "id-2", Content: `{"temperature":21.5}`},
			{Role: llm.RoleTool, ToolCallID: "id-1", Content: `{"success":true}`},
		},
	}, 0.7, 2000)

	require.Len(t, body.Contents, 4)

	model := body.Contents[1]
	assert.Equal(t, "model", model.Role)
	require.Len(t, model.Parts, 2)
	require.NotNil(t, model.Parts[0].FunctionCall)
	assert.Equal(t, "createEvent", model.Parts[0].FunctionCall.Name)
	assert.Equal(t, "Oak", model.Parts[0].FunctionCall.Args["title"])

	// Tool results become user-role functionResponse parts named after the
	// function the id referred to, even out of order.
	first := body.Contents[2]
	assert.Equal(t, "user", first.Role)
	require.NotNil(t, first.Parts[0].FunctionResponse)
	assert.Equal(t, "getWeather", first.Parts[0].FunctionResponse.Name)
	assert.Equal(t, 21.5, first.Parts[0].FunctionResponse.Response["temperature"])

	second := body.Contents[3]
	require.NotNil(t, second.Parts[0].FunctionResponse)
	assert.Equal(t, "createEvent", second.Parts[0].FunctionResponse.Name)
	assert.Equal(t, true, second.Parts[0].FunctionResponse.Response["success"])
}

func TestBuildRequestMalformedArgumentsDegradeToEmpty(t *testing.T) {
	body := buildRequest(llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
				{ID: "id-1", Name: "getEvents", Arguments: `{not json`},
			}},
		},
	}, 0.7, 2000)

	require.Len(t, body.Contents, 1)
	require.NotNil(t, body.Contents[0].Parts[0].FunctionCall)
	assert.Empty(t, body.Contents[0].Parts[0].FunctionCall.Args)
}

func TestBuildRequestNonJSONToolResultWrapped(t *testing.T) {
	body := buildRequest(llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
				{ID: "id-1", Name: "getAlerts", Arguments: `{}`},
			}},
			{Role: llm.RoleTool, ToolCallID: "id-1", Content: "plain text result"},
		},
	}, 0.7, 2000)

	resp := body.Contents[1].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, map[string]interface{}{"content": "plain text result"}, resp.Response)
}

func TestBuildUserPartsWithAttachments(t *testing.T) {
	parts := buildUserParts(llm.Message{
		Role:    llm.RoleUser,
		Content: "what do you see?",
		Attachments: []llm.Attachment{
			{Kind: llm.AttachmentImage, MimeType: "image/jpeg", Data: "aW1n"},
			{Kind: llm.AttachmentDocument, Name: "notes.txt", Text: "clay soil"},
		},
	})

	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "what do you see?")
	assert.Contains(t, parts[0].Text, "--- Document: notes.txt ---")
	assert.Contains(t, parts[0].Text, "clay soil")

	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MimeType)
	assert.Equal(t, "aW1n", parts[1].InlineData.Data)
}

func TestParseResponseSynthesizesUniqueIDs(t *testing.T) {
	body := []byte(`{
		"candidates": [{"content": {"role": "model", "parts": [
			{"functionCall": {"name": "getWeather", "args": {"lat": 50.0}}},
			{"functionCall": {"name": "getAlerts", "args": {}}}
		]}, "finishReason": "STOP", "index": 0}],
		"usageMetadata": {"promptTokenCount": 1, "candidatesTokenCount": 1, "totalTokenCount": 2}
	}`)

	resp, err := parseResponse(body, "gemini-1.5-flash")
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.NotEmpty(t, resp.ToolCalls[0].ID)
	assert.NotEmpty(t, resp.ToolCalls[1].ID)
	assert.NotEqual(t, resp.ToolCalls[0].ID, resp.ToolCalls[1].ID)

	var args map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.ToolCalls[0].Arguments), &args))
	assert.Equal(t, 50.0, args["lat"])
}

func TestParseResponseNoCandidates(t *testing.T) {
	_, err := parseResponse([]byte(`{"candidates": []}`), "gemini-1.5-flash")
	assert.Error(t, err)
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
	}{
		{"unauthorized", http.StatusUnauthorized, core.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, core.ErrRateLimited},
		{"server error", http.StatusInternalServerError, core.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient("test-key", server.URL, 0, nil, nil)
			_, err := client.Chat(context.Background(), llm.ChatRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
			})
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
