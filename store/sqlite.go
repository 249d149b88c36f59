package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/llm"
)

// SQLiteStore implements ConversationStore and EventStore on one database
// file. All writes go through database/sql's connection pool; the sqlite
// driver serializes them.
type SQLiteStore struct {
	db     *sql.DB
	logger core.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string, logger core.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger.Info("Database opened", map[string]interface{}{
		"operation": "store_open",
		"path":      path,
	})

	return s, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls TEXT,
		tool_call_id TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE TABLE IF NOT EXISTS action_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_conversation ON action_log(conversation_id);
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		date TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		address TEXT,
		notes TEXT,
		status TEXT NOT NULL,
		items TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		severity TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateConversation inserts a new thread and returns it
func (s *SQLiteStore) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	conv := &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	conv.UpdatedAt = conv.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// ListConversations returns all threads, most recently updated first
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// SaveMessage appends one message to a thread and bumps its update time
func (s *SQLiteStore) SaveMessage(ctx context.Context, conversationID string, msg llm.Message) error {
	var toolCalls sql.NullString
	if len(msg.ToolCalls) > 0 {
		encoded, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to encode tool calls: %w", err)
		}
		toolCalls = sql.NullString{String: string(encoded), Valid: true}
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, tool_calls, tool_call_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, string(msg.Role), msg.Content, toolCalls, msg.ToolCallID, now)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// GetMessages returns a thread's messages in insertion order
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id FROM messages
		 WHERE conversation_id = ? ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var (
			role, content string
			toolCalls     sql.NullString
			toolCallID    sql.NullString
		)
		if err := rows.Scan(&role, &content, &toolCalls, &toolCallID); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg := llm.Message{
			Role:       llm.Role(role),
			Content:    content,
			ToolCallID: toolCallID.String,
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				s.logger.Warn("Discarding undecodable tool calls", map[string]interface{}{
					"operation":       "get_messages",
					"conversation_id": conversationID,
					"error":           err.Error(),
				})
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SaveAction records one tool mutation in the audit trail
func (s *SQLiteStore) SaveAction(ctx context.Context, conversationID, tool, payload string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_log (conversation_id, tool, payload, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, tool, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save action: %w", err)
	}
	return nil
}

// DeleteConversation removes a thread and its dependents. Order matters:
// messages, then action-log rows, then the conversation row, so a failure
// partway never leaves orphans pointing at a deleted thread.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM action_log WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to delete action log: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrConversationNotFound, conversationID)
	}

	s.logger.Info("Conversation deleted", map[string]interface{}{
		"operation":       "delete_conversation",
		"conversation_id": conversationID,
	})
	return nil
}

// FetchEvents returns events matching the filter, ordered by date
func (s *SQLiteStore) FetchEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	query := `SELECT id, title, type, date, lat, lng, address, notes, status, items, created_at, updated_at
	          FROM events WHERE 1=1`
	var args []interface{}

	if filter.StartDate != "" {
		query += ` AND date >= ?`
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += ` AND date <= ?`
		args = append(args, filter.EndDate)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// CreateEvent inserts an event, assigning an id and timestamps
func (s *SQLiteStore) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	if event.Status == "" {
		event.Status = "planned"
	}

	items, err := encodeItems(event.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, title, type, date, lat, lng, address, notes, status, items, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Title, event.Type, event.Date, event.Lat, event.Lng,
		event.Address, event.Notes, event.Status, items, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("Event created", map[string]interface{}{
		"operation": "create_event",
		"event_id":  event.ID,
		"type":      event.Type,
		"date":      event.Date,
	})
	return &event, nil
}

// UpdateEvent applies a partial update and returns the stored event
func (s *SQLiteStore) UpdateEvent(ctx context.Context, id string, update EventUpdate) (*Event, error) {
	current, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		current.Title = *update.Title
	}
	if update.Date != nil {
		current.Date = *update.Date
	}
	if update.Status != nil {
		current.Status = *update.Status
	}
	if update.Notes != nil {
		current.Notes = *update.Notes
	}
	current.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, date = ?, status = ?, notes = ?, updated_at = ? WHERE id = ?`,
		current.Title, current.Date, current.Status, current.Notes, current.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return current, nil
}

// DeleteEvent removes an event by id
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	return nil
}

// FetchAlerts returns alerts covering the rough vicinity of a coordinate.
// One degree of latitude is about 111 km; a one-degree box is good enough
// for regional advisories.
func (s *SQLiteStore) FetchAlerts(ctx context.Context, lat, lng float64) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, severity, start_date, end_date, lat, lng FROM alerts
		 WHERE ABS(lat - ?) <= 1.0 AND ABS(lng - ?) <= 1.0 ORDER BY start_date ASC`, lat, lng)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Title, &a.Severity, &a.Start, &a.End, &a.Lat, &a.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// SaveAlert inserts or replaces an advisory
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO alerts (id, title, severity, start_date, end_date, lat, lng)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.Title, alert.Severity, alert.Start, alert.End, alert.Lat, alert.Lng)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getEvent(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, type, date, lat, lng, address, notes, status, items, created_at, updated_at
		 FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	return event, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		event          Event
		address, notes sql.NullString
		items          sql.NullString
	)
	err := row.Scan(&event.ID, &event.Title, &event.Type, &event.Date, &event.Lat, &event.Lng,
		&address, &notes, &event.Status, &items, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	event.Address = address.String
	event.Notes = notes.String
	if items.Valid && items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &event.Items); err != nil {
			return nil, fmt.Errorf("failed to decode event items: %w", err)
		}
	}
	return &event, nil
}

func encodeItems(items []string) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode event items: %w", err)
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}
