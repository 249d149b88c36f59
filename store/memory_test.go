package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
)

func TestMemoryStoreConversations(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	conv, err := m.CreateConversation(ctx, "test")
	require.NoError(t, err)

	require.NoError(t, m.SaveMessage(ctx, conv.ID, llm.Message{Role: llm.RoleUser, Content: "hi"}))
	require.NoError(t, m.SaveAction(ctx, conv.ID, "createEvent", "{}"))

	messages, err := m.GetMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Len(t, m.Actions(conv.ID), 1)

	require.NoError(t, m.DeleteConversation(ctx, conv.ID))
	messages, err = m.GetMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Empty(t, m.Actions(conv.ID))

	assert.ErrorIs(t, m.DeleteConversation(ctx, conv.ID), core.ErrConversationNotFound)
	assert.ErrorIs(t, m.SaveMessage(ctx, "missing", llm.Message{}), core.ErrConversationNotFound)
}

func TestMemoryStoreEvents(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	created, err := m.CreateEvent(ctx, Event{Title: "prune", Type: "pruning", Date: "2026-10-01", Lat: 50, Lng: 14})
	require.NoError(t, err)
	assert.Equal(t, "planned", created.Status)

	title := "prune apple trees"
	updated, err := m.UpdateEvent(ctx, created.ID, EventUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "prune apple trees", updated.Title)
	assert.Equal(t, "2026-10-01", updated.Date)

	events, err := m.FetchEvents(ctx, EventFilter{Type: "pruning"})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.NoError(t, m.DeleteEvent(ctx, created.ID))
	assert.ErrorIs(t, m.DeleteEvent(ctx, created.ID), core.ErrEventNotFound)
}

func TestMemoryStoreAlerts(t *testing.T) {
	m := NewMemoryStore()

	m.AddAlert(Alert{Title: "heat wave", Severity: "warning", Start: "2026-08-01", End: "2026-08-05", Lat: 50, Lng: 14})
	m.AddAlert(Alert{Title: "distant", Severity: "danger", Start: "2026-08-01", End: "2026-08-05", Lat: 30, Lng: 30})

	alerts, err := m.FetchAlerts(context.Background(), 50.2, 14.3)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "heat wave", alerts[0].Title)
}
