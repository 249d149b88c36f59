package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
)

// MemoryStore is an in-memory ConversationStore and EventStore, used by
// tests and as a fallback when no database path is configured.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]llm.Message
	actions       map[string][]Action
	events        map[string]*Event
	alerts        []Alert
	nextActionID  int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]llm.Message),
		actions:       make(map[string][]Action),
		events:        make(map[string]*Event),
	}
}

func (m *MemoryStore) CreateConversation(_ context.Context, title string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	conv.UpdatedAt = conv.CreatedAt
	m.conversations[conv.ID] = conv

	copied := *conv
	return &copied, nil
}

func (m *MemoryStore) ListConversations(_ context.Context) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Conversation, 0, len(m.conversations))
	for _, c := range m.conversations {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *MemoryStore) SaveMessage(_ context.Context, conversationID string, msg llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrConversationNotFound, conversationID)
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) GetMessages(_ context.Context, conversationID string) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *MemoryStore) SaveAction(_ context.Context, conversationID, tool, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextActionID++
	m.actions[conversationID] = append(m.actions[conversationID], Action{
		ID:             m.nextActionID,
		ConversationID: conversationID,
		Tool:           tool,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	})
	return nil
}

// Actions returns the recorded action log for a conversation
func (m *MemoryStore) Actions(conversationID string) []Action {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Action, len(m.actions[conversationID]))
	copy(out, m.actions[conversationID])
	return out
}

func (m *MemoryStore) DeleteConversation(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrConversationNotFound, conversationID)
	}
	delete(m.messages, conversationID)
	delete(m.actions, conversationID)
	delete(m.conversations, conversationID)
	return nil
}

func (m *MemoryStore) FetchEvents(_ context.Context, filter EventFilter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.events {
		if filter.StartDate != "" && e.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && e.Date > filter.EndDate {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MemoryStore) CreateEvent(_ context.Context, event Event) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	if event.Status == "" {
		event.Status = "planned"
	}
	m.events[event.ID] = &event

	copied := event
	return &copied, nil
}

func (m *MemoryStore) UpdateEvent(_ context.Context, id string, update EventUpdate) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	if update.Title != nil {
		event.Title = *update.Title
	}
	if update.Date != nil {
		event.Date = *update.Date
	}
	if update.Status != nil {
		event.Status = *update.Status
	}
	if update.Notes != nil {
		event.Notes = *update.Notes
	}
	event.UpdatedAt = time.Now().UTC()

	copied := *event
	return &copied, nil
}

func (m *MemoryStore) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryStore) FetchAlerts(_ context.Context, lat, lng float64) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Alert
	for _, a := range m.alerts {
		if abs(a.Lat-lat) <= 1.0 && abs(a.Lng-lng) <= 1.0 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// AddAlert registers an advisory for subsequent FetchAlerts calls
func (m *MemoryStore) AddAlert(alert Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	m.alerts = append(m.alerts, alert)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
