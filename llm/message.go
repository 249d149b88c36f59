// Package llm defines the provider-agnostic conversation model and the
// Provider interface the orchestration loop drives. Vendor-specific wire
// formats live in llm/providers; everything the shared model can express
// maps losslessly through each adapter.
package llm

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request emitted by the model asking the engine to
// execute a named operation. Arguments holds the raw JSON argument blob as
// the vendor supplied it; it is parsed defensively at dispatch time.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// AttachmentKind distinguishes attachment payload types
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment is an image or document payload attached to a user message.
// Images carry base64 data plus a mime type; documents carry extracted text.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Name     string         `json:"name,omitempty"`
	MimeType string         `json:"mimeType,omitempty"`
	Data     string         `json:"data,omitempty"` // base64 for images
	Text     string         `json:"text,omitempty"` // extracted document text
}

// Message is one conversation turn. Content may be empty when only tool
// calls are present. A tool message references a tool-call id emitted by the
// immediately preceding assistant message.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolCallID  string       `json:"toolCallId,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// TokenUsage reports the vendor's token accounting for one call
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
