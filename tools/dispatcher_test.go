package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/arbor/geo"
	"github.com/verdantlabs/arbor/llm"
	"github.com/verdantlabs/arbor/risk"
	"github.com/verdantlabs/arbor/store"
	"github.com/verdantlabs/arbor/weather"
)

type fakeLocator struct {
	resolved *geo.Coordinates
	reverse  string
}

func (f *fakeLocator) ResolveEventLocation(_ context.Context, in geo.LocationInput) *geo.Coordinates {
	if in.Lat != nil && in.Lng != nil && geo.IsValidLatLng(*in.Lat, *in.Lng) {
		return &geo.Coordinates{Lat: *in.Lat, Lng: *in.Lng}
	}
	if in.Address != "" {
		return f.resolved
	}
	return nil
}

func (f *fakeLocator) ReverseGeocode(_ context.Context, _, _ float64) string {
	return f.reverse
}

type fakeWeather struct {
	current     *weather.Current
	forecast    []weather.Day
	err         error
	panicOnCall bool
}

func (f *fakeWeather) FetchCurrent(_ context.Context, _, _ float64) (*weather.Current, error) {
	if f.panicOnCall {
		panic("weather backend exploded")
	}
	return f.current, f.err
}

func (f *fakeWeather) FetchForecast(_ context.Context, _, _ float64, _ int) ([]weather.Day, error) {
	if f.panicOnCall {
		panic("weather backend exploded")
	}
	return f.forecast, f.err
}

type fixture struct {
	dispatcher *Dispatcher
	store      *store.MemoryStore
	locator    *fakeLocator
	weather    *fakeWeather
	env        Env
	convID     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemoryStore()
	conv, err := mem.CreateConversation(context.Background(), "test")
	require.NoError(t, err)

	locator := &fakeLocator{reverse: "Resolved Street 1"}
	weatherSvc := &fakeWeather{
		current: &weather.Current{Temperature: 18, SoilMoisture: 0.3},
	}

	d := NewDispatcher(mem, mem, locator, weatherSvc, risk.DefaultThresholds(), nil)
	d.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }

	return &fixture{
		dispatcher: d,
		store:      mem,
		locator:    locator,
		weather:    weatherSvc,
		env:        Env{ConversationID: conv.ID, Map: geo.NewMapContext()},
		convID:     conv.ID,
	}
}

func (f *fixture) run(t *testing.T, name, args string) map[string]interface{} {
	t.Helper()

	raw := f.dispatcher.Execute(context.Background(), f.env, llm.ToolCall{
		ID: "call_test", Name: name, Arguments: args,
	})
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	return result
}

func TestUnknownToolIsFailedResult(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, "launchRocket", "{}")

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "unknown tool", result["error"])
}

func TestMalformedArgumentsDegradeToDefaults(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, ToolCreateEvent, `{broken json`)

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "title, type and date are required", result["error"])
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	f.weather.panicOnCall = true
	f.env.Map.Set(geo.ContextUpdate{GPS: &geo.Coordinates{Lat: 50, Lng: 14}})

	result := f.run(t, ToolGetWeather, "{}")

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "internal error executing tool", result["error"])
}

func TestCreateEventWithExplicitCoordinates(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, ToolCreateEvent,
		`{"title":"Plant oak","type":"planting","date":"2026-09-14","lat":50.015,"lng":14.497,"items":["oak sapling","stake"]}`)

	require.Equal(t, true, result["success"])
	event := result["event"].(map[string]interface{})
	assert.Equal(t, 50.015, event["lat"])
	assert.Equal(t, 14.497, event["lng"])
	assert.Equal(t, "Resolved Street 1", event["address"], "missing address is reverse geocoded")

	stored, err := f.store.FetchEvents(context.Background(), store.EventFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []string{"oak sapling", "stake"}, stored[0].Items)

	actions := f.store.Actions(f.convID)
	require.Len(t, actions, 1)
	assert.Equal(t, ToolCreateEvent, actions[0].Tool)
}

func TestCreateEventRefusesUnresolvableAddress(t *testing.T) {
	f := newFixture(t)
	f.locator.resolved = nil

	result := f.run(t, ToolCreateEvent,
		`{"title":"Plant oak","type":"planting","date":"2026-09-14","address":"Nowhere 99"}`)

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "could not resolve location", result["error"])

	stored, err := f.store.FetchEvents(context.Background(), store.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored, "failed geocode must block the write")
	assert.Empty(t, f.store.Actions(f.convID))
}

func TestCreateEventGeocodesAddress(t *testing.T) {
	f := newFixture(t)
	f.locator.resolved = &geo.Coordinates{Lat: 50.015, Lng: 14.497}

	result := f.run(t, ToolCreateEvent,
		`{"title":"Plant oak","type":"planting","date":"2026-09-14","address":"Volarska 548/26"}`)

	require.Equal(t, true, result["success"])
	event := result["event"].(map[string]interface{})
	assert.Equal(t, 50.015, event["lat"])
	assert.Equal(t, "Volarska 548/26", event["address"], "given address is kept verbatim")
}

func TestEditAndDeleteEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.store.CreateEvent(ctx, store.Event{
		Title: "Prune", Type: "pruning", Date: "2026-09-10", Lat: 50, Lng: 14,
	})
	require.NoError(t, err)

	result := f.run(t, ToolEditEvent, `{"eventId":"`+created.ID+`","status":"done"}`)
	require.Equal(t, true, result["success"])
	event := result["event"].(map[string]interface{})
	assert.Equal(t, "done", event["status"])
	assert.Equal(t, "Prune", event["title"])

	result = f.run(t, ToolDeleteEvent, `{"eventId":"`+created.ID+`"}`)
	require.Equal(t, true, result["success"])

	stored, err := f.store.FetchEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)

	result = f.run(t, ToolDeleteEvent, `{"eventId":"`+created.ID+`"}`)
	assert.Equal(t, false, result["success"])

	assert.Len(t, f.store.Actions(f.convID), 2)
}

func TestGetEventsFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, e := range []store.Event{
		{Title: "a", Type: "planting", Date: "2026-09-05", Lat: 50, Lng: 14},
		{Title: "b", Type: "watering", Date: "2026-09-06", Lat: 50, Lng: 14},
	} {
		_, err := f.store.CreateEvent(ctx, e)
		require.NoError(t, err)
	}

	result := f.run(t, ToolGetEvents, `{"type":"watering"}`)
	require.Equal(t, true, result["success"])
	assert.Equal(t, float64(1), result["count"])

	result = f.run(t, ToolGetEvents, "{}")
	assert.Equal(t, float64(2), result["count"])
}

func TestGetWeatherFallsBackToMapContext(t *testing.T) {
	f := newFixture(t)
	f.weather.forecast = []weather.Day{{Date: "2026-09-01", TempMin: 10, TempMax: 20}}
	f.env.Map.Set(geo.ContextUpdate{Picked: &geo.Coordinates{Lat: 50.015, Lng: 14.497}})

	result := f.run(t, ToolGetWeather, "{}")

	require.Equal(t, true, result["success"])
	assert.Equal(t, "50.01500, 14.49700", result["location"])
}

func TestGetWeatherWithoutAnyLocation(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, ToolGetWeather, "{}")

	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "no location")
}

func TestGetWeatherServiceError(t *testing.T) {
	f := newFixture(t)
	f.weather.err = errors.New("connection refused")

	result := f.run(t, ToolGetWeather, `{"lat":50.0,"lng":14.4}`)

	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "weather service unavailable")
}

func TestGetAlerts(t *testing.T) {
	f := newFixture(t)
	f.env.Map.Set(geo.ContextUpdate{GPS: &geo.Coordinates{Lat: 50.0, Lng: 14.4}})
	f.store.AddAlert(store.Alert{
		Title: "Frost warning", Severity: "danger",
		Start: "2026-09-03", End: "2026-09-05", Lat: 50.0, Lng: 14.4,
	})

	result := f.run(t, ToolGetAlerts, "{}")

	require.Equal(t, true, result["success"])
	assert.Equal(t, float64(1), result["count"])
}

func TestAnalyzeRisksFlagsFrost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.store.CreateEvent(ctx, store.Event{
		Title: "Plant oak", Type: "planting", Date: "2026-09-05", Lat: 50, Lng: 14,
	})
	require.NoError(t, err)
	f.weather.forecast = []weather.Day{{Date: "2026-09-05", TempMin: -3, TempMax: 6, SoilMoisture: 0.3}}

	result := f.run(t, ToolAnalyzeRisks, "{}")

	require.Equal(t, true, result["success"])
	warnings := result["warnings"].([]interface{})
	require.Len(t, warnings, 1)
	warning := warnings[0].(map[string]interface{})
	assert.Equal(t, created.ID, warning["eventId"])
	assert.Equal(t, "danger", warning["severity"])
}

func TestAnalyzeRisksUnknownEvent(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, ToolAnalyzeRisks, `{"eventId":"missing"}`)

	assert.Equal(t, false, result["success"])
}

func TestSuggestPlantingDateSkipsFrostDays(t *testing.T) {
	f := newFixture(t)
	f.env.Map.Set(geo.ContextUpdate{GPS: &geo.Coordinates{Lat: 50, Lng: 14}})
	f.weather.forecast = []weather.Day{
		{Date: "2026-09-02", TempMin: -1, TempMax: 8, SoilMoisture: 0.3},
		{Date: "2026-09-03", TempMin: 1, TempMax: 10, SoilMoisture: 0.3},
		{Date: "2026-09-04", TempMin: 6, TempMax: 18, SoilMoisture: 0.3},
	}

	result := f.run(t, ToolSuggestPlantingDate, `{"species":"oak"}`)

	require.Equal(t, true, result["success"])
	assert.Equal(t, "2026-09-04", result["date"], "days at or near frost are skipped")
	assert.Equal(t, "oak", result["species"])
}

func TestSuggestPlantingDateNoSuitableDay(t *testing.T) {
	f := newFixture(t)
	f.env.Map.Set(geo.ContextUpdate{GPS: &geo.Coordinates{Lat: 50, Lng: 14}})
	f.weather.forecast = []weather.Day{{Date: "2026-09-02", TempMin: -5, TempMax: 2}}

	result := f.run(t, ToolSuggestPlantingDate, `{"species":"oak"}`)

	assert.Equal(t, false, result["success"])
}

func TestGetMapContextEmpty(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, ToolGetMapContext, "{}")

	require.Equal(t, true, result["success"])
	assert.Equal(t, false, result["hasLocation"])
}

func TestGetMapContextWithPickedPin(t *testing.T) {
	f := newFixture(t)
	f.env.Map.Set(geo.ContextUpdate{
		Picked: &geo.Coordinates{Lat: 50.015, Lng: 14.497},
		GPS:    &geo.Coordinates{Lat: 50.1, Lng: 14.4},
	})

	result := f.run(t, ToolGetMapContext, "{}")

	require.Equal(t, true, result["success"])
	assert.Equal(t, true, result["hasLocation"])
	assert.Equal(t, "picked", result["source"])
	assert.Equal(t, 50.015, result["lat"])
}

func TestSpecsCatalogIsComplete(t *testing.T) {
	specs := Specs()
	require.Len(t, specs, 9)

	names := make(map[string]bool, len(specs))
	for _, spec := range specs {
		names[spec.Name] = true
		require.NotNil(t, spec.Parameters, "%s needs a parameter schema", spec.Name)
		assert.Equal(t, "object", spec.Parameters.Type)
		assert.NotEmpty(t, spec.Description)
	}
	for _, name := range []string{
		ToolCreateEvent, ToolEditEvent, ToolDeleteEvent, ToolGetEvents,
		ToolGetWeather, ToolGetAlerts, ToolAnalyzeRisks, ToolSuggestPlantingDate, ToolGetMapContext,
	} {
		assert.True(t, names[name], "catalog is missing %s", name)
	}
}

func TestBuildPlanEventRequiresPickedLocation(t *testing.T) {
	_, err := BuildPlanEvent(nil, "Plant oak", "planting", "2026-09-14", "")
	assert.Error(t, err)
}

func TestBuildPlanEventMatchesInput(t *testing.T) {
	picked := &geo.Coordinates{Lat: 50.015, Lng: 14.497}

	draft, err := BuildPlanEvent(picked, "Plant oak", "planting", "2026-09-14", "Volarska 548/26")
	require.NoError(t, err)

	assert.Equal(t, 50.015, draft.Lat)
	assert.Equal(t, 14.497, draft.Lng)
	assert.Equal(t, "Volarska 548/26", draft.Address)
	assert.Equal(t, "Plant oak", draft.Title)
	assert.Equal(t, "planting", draft.Type)
	assert.Equal(t, "2026-09-14", draft.Date)
}
