// Package tools declares the assistant's callable operations and dispatches
// model tool calls to their handlers.
package tools

import "github.com/verdantlabs/arbor/llm"

// Tool names are the external contract shared with the model
const (
	ToolCreateEvent         = "createEvent"
	ToolEditEvent           = "editEvent"
	ToolDeleteEvent         = "deleteEvent"
	ToolGetEvents           = "getEvents"
	ToolGetWeather          = "getWeather"
	ToolGetAlerts           = "getAlerts"
	ToolAnalyzeRisks        = "analyzeRisks"
	ToolSuggestPlantingDate = "suggestPlantingDate"
	ToolGetMapContext       = "getMapContext"
)

// Specs returns the declarative catalog handed to the provider on every
// chat turn.
func Specs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        ToolCreateEvent,
			Description: "Create a calendar event for a planting or maintenance task at a location. Provide lat/lng from the map context, or an address to geocode.",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"title":   llm.StringSchema("Short human-readable title of the task"),
				"type":    {Type: "string", Description: "Kind of task", Enum: []string{"planting", "watering", "pruning", "fertilizing", "inspection", "other"}},
				"date":    llm.StringSchema("Scheduled date, YYYY-MM-DD"),
				"lat":     llm.NumberSchema("Latitude of the task location"),
				"lng":     llm.NumberSchema("Longitude of the task location"),
				"address": llm.StringSchema("Street address to geocode when no coordinates are known"),
				"notes":   llm.StringSchema("Free-form notes"),
				"items":   llm.ArraySchema("Materials or plants needed", llm.StringSchema("One item")),
			}, "title", "type", "date"),
		},
		{
			Name:        ToolEditEvent,
			Description: "Update fields of an existing event. Only the provided fields change.",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"eventId": llm.StringSchema("Identifier of the event to change"),
				"title":   llm.StringSchema("New title"),
				"date":    llm.StringSchema("New date, YYYY-MM-DD"),
				"status":  {Type: "string", Description: "New status", Enum: []string{"planned", "done", "cancelled"}},
				"notes":   llm.StringSchema("New notes"),
			}, "eventId"),
		},
		{
			Name:        ToolDeleteEvent,
			Description: "Delete an event from the calendar.",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"eventId": llm.StringSchema("Identifier of the event to delete"),
			}, "eventId"),
		},
		{
			Name:        ToolGetEvents,
			Description: "List calendar events, optionally filtered by date range and type.",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"startDate": llm.StringSchema("Earliest date to include, YYYY-MM-DD"),
				"endDate":   llm.StringSchema("Latest date to include, YYYY-MM-DD"),
				"type":      llm.StringSchema("Only events of this type"),
			}),
		},
		{
			Name:        ToolGetWeather,
			Description: "Current conditions and daily forecast for a location. Without lat/lng the user's map context location is used.",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"lat":  llm.NumberSchema("Latitude"),
				"lng":  llm.NumberSchema("Longitude"),
				"days": llm.IntegerSchema("Forecast days to return (default 7, max 16)"),
			}),
		},
		{
			Name:        ToolGetAlerts,
			Description: "Active regional weather and phytosanitary alerts for the user's map context location.",
			Parameters:  llm.ObjectSchema(map[string]*llm.Schema{}),
		},
		{
			Name:        ToolAnalyzeRisks,
			Description: "Evaluate upcoming events against forecast and alerts, flagging frost, drought, heavy rain and heat risks.",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"eventId": llm.StringSchema("Restrict the analysis to one event"),
			}),
		},
		{
			Name:        ToolSuggestPlantingDate,
			Description: "Suggest the next suitable planting date for a species based on the forecast. Without lat/lng the user's map context location is used.",
			Parameters: llm.ObjectSchema(map[string]*llm.Schema{
				"species": llm.StringSchema("Plant species to schedule"),
				"lat":     llm.NumberSchema("Latitude"),
				"lng":     llm.NumberSchema("Longitude"),
			}, "species"),
		},
		{
			Name:        ToolGetMapContext,
			Description: "Where the user is pointing or looking on the map: picked pin, GPS fix, viewport. Call this before creating anything location-bound.",
			Parameters:  llm.ObjectSchema(map[string]*llm.Schema{}),
		},
	}
}

// IsMutating reports whether a tool writes to the event store
func IsMutating(name string) bool {
	switch name {
	case ToolCreateEvent, ToolEditEvent, ToolDeleteEvent:
		return true
	}
	return false
}

// ConsumesLocation reports whether a successful run of the tool uses up the
// picked map location, so the orchestrator clears the pin afterwards.
func ConsumesLocation(name string) bool {
	return name == ToolCreateEvent
}
