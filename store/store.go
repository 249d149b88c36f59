// Package store holds the persistence contracts and implementations for
// conversations, calendar events, and regional alerts.
package store

import (
	"context"
	"time"

	"github.com/verdantlabs/arbor/llm"
)

// Conversation is one chat thread
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is one calendar entry: a planting, watering, pruning, or other
// maintenance task anchored to a date and a location.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Status    string    `json:"status"`
	Items     []string  `json:"items,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventUpdate is a partial update; nil fields are left untouched
type EventUpdate struct {
	Title  *string
	Date   *string
	Status *string
	Notes  *string
}

// EventFilter narrows FetchEvents. Empty fields match everything.
type EventFilter struct {
	StartDate string
	EndDate   string
	Type      string
}

// Alert is a regional weather or phytosanitary advisory covering a date
// interval. Severity is "warning" or "danger".
type Alert struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Severity string  `json:"severity"`
	Start    string  `json:"start"` // YYYY-MM-DD, inclusive
	End      string  `json:"end"`   // YYYY-MM-DD, inclusive
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Action is one recorded mutation performed by a tool on behalf of a
// conversation, kept for auditability.
type Action struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Tool           string    `json:"tool"`
	Payload        string    `json:"payload"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationStore persists chat threads and their messages
type ConversationStore interface {
	CreateConversation(ctx context.Context, title string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	SaveMessage(ctx context.Context, conversationID string, msg llm.Message) error
	GetMessages(ctx context.Context, conversationID string) ([]llm.Message, error)
	SaveAction(ctx context.Context, conversationID, tool, payload string) error
	// DeleteConversation removes the thread and everything hanging off it:
	// messages first, then action-log rows, then the conversation row.
	DeleteConversation(ctx context.Context, conversationID string) error
}

// EventStore persists calendar events and serves regional alerts
type EventStore interface {
	FetchEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	CreateEvent(ctx context.Context, event Event) (*Event, error)
	UpdateEvent(ctx context.Context, id string, update EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
	FetchAlerts(ctx context.Context, lat, lng float64) ([]Alert, error)
}
