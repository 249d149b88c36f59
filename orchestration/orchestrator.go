// Package orchestration runs the bounded chat loop between the user, the
// model provider, and the tool dispatcher.
package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/geo"
	"github.com/verdantlabs/arbor/llm"
	"github.com/verdantlabs/arbor/store"
	"github.com/verdantlabs/arbor/tools"
)

// DefaultMaxToolRounds bounds how many times one user message may bounce
// between the model and the tools.
const DefaultMaxToolRounds = 5

const budgetExhaustedNote = "I ran out of tool budget for this request; here is what I found so far."

// Session is one user's conversational state: the persistent thread id and
// the in-memory map context.
type Session struct {
	ConversationID string
	Map            *geo.MapContext
}

// NewSession creates a session with an empty map context and no thread yet
func NewSession() *Session {
	return &Session{Map: geo.NewMapContext()}
}

// Orchestrator drives the provider/tool loop for each user message
type Orchestrator struct {
	provider      llm.Provider
	conversations store.ConversationStore
	dispatcher    *tools.Dispatcher
	logger        core.Logger
	telemetry     core.Telemetry
	maxToolRounds int

	// onMutation fires after a successful mutating tool so a UI can refresh
	// its calendar view. Optional.
	onMutation func(tool string)
}

// Option configures the orchestrator
type Option func(*Orchestrator)

// WithMaxToolRounds overrides the tool round budget (minimum 2)
func WithMaxToolRounds(rounds int) Option {
	return func(o *Orchestrator) {
		if rounds >= 2 {
			o.maxToolRounds = rounds
		}
	}
}

// WithMutationCallback registers a hook fired after successful mutations
func WithMutationCallback(fn func(tool string)) Option {
	return func(o *Orchestrator) { o.onMutation = fn }
}

// WithTelemetry attaches a tracer
func WithTelemetry(telemetry core.Telemetry) Option {
	return func(o *Orchestrator) {
		if telemetry != nil {
			o.telemetry = telemetry
		}
	}
}

// New creates an orchestrator
func New(provider llm.Provider, conversations store.ConversationStore, dispatcher *tools.Dispatcher, logger core.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	o := &Orchestrator{
		provider:      provider,
		conversations: conversations,
		dispatcher:    dispatcher,
		logger:        logger,
		telemetry:     &core.NoOpTelemetry{},
		maxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleUserMessage persists the user's message, then alternates between
// the provider and the tool dispatcher until the model answers without
// requesting tools or the round budget runs out.
func (o *Orchestrator) HandleUserMessage(ctx context.Context, session *Session, text string, attachments []llm.Attachment) (*llm.Message, error) {
	ctx, span := o.telemetry.StartSpan(ctx, "orchestration.handle_message")
	defer span.End()

	if session.ConversationID == "" {
		conv, err := o.conversations.CreateConversation(ctx, conversationTitle(text))
		if err != nil {
			return nil, fmt.Errorf("failed to start conversation: %w", err)
		}
		session.ConversationID = conv.ID
		o.logger.Info("Conversation started", map[string]interface{}{
			"operation":       "handle_message",
			"conversation_id": conv.ID,
		})
	}
	span.SetAttribute("conversation.id", session.ConversationID)

	userMsg := llm.Message{Role: llm.RoleUser, Content: text, Attachments: attachments}
	if err := o.conversations.SaveMessage(ctx, session.ConversationID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	history, err := o.conversations.GetMessages(ctx, session.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	env := tools.Env{ConversationID: session.ConversationID, Map: session.Map}
	startTime := time.Now()

	var lastAssistant llm.Message
	for round := 0; round < o.maxToolRounds; round++ {
		resp, err := o.provider.Chat(ctx, llm.ChatRequest{
			Messages:     history,
			Tools:        tools.Specs(),
			SystemPrompt: systemPrompt,
		})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		assistantMsg := llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		if err := o.conversations.SaveMessage(ctx, session.ConversationID, assistantMsg); err != nil {
			return nil, fmt.Errorf("failed to persist assistant message: %w", err)
		}
		history = append(history, assistantMsg)
		lastAssistant = assistantMsg

		if len(resp.ToolCalls) == 0 {
			o.logger.Info("Turn completed", map[string]interface{}{
				"operation":       "handle_message",
				"conversation_id": session.ConversationID,
				"rounds":          round + 1,
				"duration_ms":     time.Since(startTime).Milliseconds(),
			})
			return &assistantMsg, nil
		}

		history, err = o.runToolRound(ctx, session, env, resp.ToolCalls, history)
		if err != nil {
			return nil, err
		}
	}

	// Budget exhausted: answer with what we have instead of looping forever.
	o.logger.Warn("Tool round budget exhausted", map[string]interface{}{
		"operation":       "handle_message",
		"conversation_id": session.ConversationID,
		"max_rounds":      o.maxToolRounds,
	})
	span.RecordError(core.ErrToolBudgetExceeded)

	final := llm.Message{Role: llm.RoleAssistant, Content: lastAssistant.Content}
	if final.Content != "" {
		final.Content += "\n\n"
	}
	final.Content += budgetExhaustedNote
	if err := o.conversations.SaveMessage(ctx, session.ConversationID, final); err != nil {
		return nil, fmt.Errorf("failed to persist final message: %w", err)
	}
	return &final, nil
}

// runToolRound executes one batch of tool calls sequentially in array
// order. Failed tools produce failed results fed back to the model; they
// never abort the round.
func (o *Orchestrator) runToolRound(ctx context.Context, session *Session, env tools.Env, calls []llm.ToolCall, history []llm.Message) ([]llm.Message, error) {
	for _, call := range calls {
		result := o.dispatcher.Execute(ctx, env, call)

		toolMsg := llm.Message{Role: llm.RoleTool, Content: result, ToolCallID: call.ID}
		if err := o.conversations.SaveMessage(ctx, session.ConversationID, toolMsg); err != nil {
			return nil, fmt.Errorf("failed to persist tool result: %w", err)
		}
		history = append(history, toolMsg)

		if !tools.IsMutating(call.Name) || !resultSucceeded(result) {
			continue
		}
		if o.onMutation != nil {
			o.onMutation(call.Name)
		}
		if tools.ConsumesLocation(call.Name) && session.Map != nil {
			session.Map.ClearPicked()
		}
	}
	return history, nil
}

func resultSucceeded(result string) bool {
	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		return false
	}
	return parsed.Success
}

// conversationTitle derives a thread title from the first message
func conversationTitle(text string) string {
	const maxLen = 60
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
