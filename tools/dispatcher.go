package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/geo"
	"github.com/verdantlabs/arbor/llm"
	"github.com/verdantlabs/arbor/risk"
	"github.com/verdantlabs/arbor/store"
	"github.com/verdantlabs/arbor/weather"
)

// Locator resolves event locations; failures surface as nil, never errors
type Locator interface {
	ResolveEventLocation(ctx context.Context, in geo.LocationInput) *geo.Coordinates
	ReverseGeocode(ctx context.Context, lat, lng float64) string
}

// WeatherService serves forecasts for tool handlers
type WeatherService interface {
	FetchCurrent(ctx context.Context, lat, lng float64) (*weather.Current, error)
	FetchForecast(ctx context.Context, lat, lng float64, days int) ([]weather.Day, error)
}

// Env is the per-call environment: which conversation the call belongs to
// and the session's map context.
type Env struct {
	ConversationID string
	Map            *geo.MapContext
}

// Result is one tool outcome, serialized as JSON and fed back to the model
type Result map[string]interface{}

// Dispatcher routes tool calls to their handlers
type Dispatcher struct {
	events        store.EventStore
	conversations store.ConversationStore
	locator       Locator
	weather       WeatherService
	thresholds    risk.Thresholds
	logger        core.Logger

	// now is swappable in tests
	now func() time.Time
}

// NewDispatcher wires the dispatcher's collaborators
func NewDispatcher(events store.EventStore, conversations store.ConversationStore, locator Locator, weatherSvc WeatherService, thresholds risk.Thresholds, logger core.Logger) *Dispatcher {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Dispatcher{
		events:        events,
		conversations: conversations,
		locator:       locator,
		weather:       weatherSvc,
		thresholds:    thresholds,
		logger:        logger,
		now:           time.Now,
	}
}

// Execute runs one tool call and returns the JSON-encoded result. It never
// returns an error: unknown tools, bad arguments, handler failures and
// panics all become failed results so one bad call cannot abort its
// siblings or the conversation.
func (d *Dispatcher) Execute(ctx context.Context, env Env, call llm.ToolCall) string {
	result := d.dispatch(ctx, env, call)

	encoded, err := json.Marshal(result)
	if err != nil {
		d.logger.Error("Tool result not encodable", map[string]interface{}{
			"operation": "tool_dispatch",
			"tool":      call.Name,
			"error":     err.Error(),
		})
		return `{"success":false,"error":"internal error encoding tool result"}`
	}
	return string(encoded)
}

func (d *Dispatcher) dispatch(ctx context.Context, env Env, call llm.ToolCall) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked", map[string]interface{}{
				"operation": "tool_dispatch",
				"tool":      call.Name,
				"panic":     r,
			})
			result = failure("internal error executing tool")
		}
	}()

	args := parseArguments(call.Arguments, call.Name, d.logger)

	d.logger.Debug("Dispatching tool call", map[string]interface{}{
		"operation": "tool_dispatch",
		"tool":      call.Name,
		"call_id":   call.ID,
	})

	switch call.Name {
	case ToolCreateEvent:
		return d.createEvent(ctx, env, args)
	case ToolEditEvent:
		return d.editEvent(ctx, env, args)
	case ToolDeleteEvent:
		return d.deleteEvent(ctx, env, args)
	case ToolGetEvents:
		return d.getEvents(ctx, args)
	case ToolGetWeather:
		return d.getWeather(ctx, env, args)
	case ToolGetAlerts:
		return d.getAlerts(ctx, env)
	case ToolAnalyzeRisks:
		return d.analyzeRisks(ctx, args)
	case ToolSuggestPlantingDate:
		return d.suggestPlantingDate(ctx, env, args)
	case ToolGetMapContext:
		return d.getMapContext(env)
	default:
		d.logger.Warn("Unknown tool requested", map[string]interface{}{
			"operation": "tool_dispatch",
			"tool":      call.Name,
		})
		return failure("unknown tool")
	}
}

// recordAction appends an audit row for a successful mutation. Audit
// failures are logged, not surfaced: the mutation already happened.
func (d *Dispatcher) recordAction(ctx context.Context, env Env, tool string, payload interface{}) {
	if env.ConversationID == "" {
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte("{}")
	}
	if err := d.conversations.SaveAction(ctx, env.ConversationID, tool, string(encoded)); err != nil {
		d.logger.Warn("Failed to record action", map[string]interface{}{
			"operation":       "tool_dispatch",
			"tool":            tool,
			"conversation_id": env.ConversationID,
			"error":           err.Error(),
		})
	}
}

func failure(msg string) Result {
	return Result{"success": false, "error": msg}
}

func success(fields Result) Result {
	out := Result{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
