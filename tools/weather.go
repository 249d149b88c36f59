package tools

import (
	"context"
	"fmt"

	"github.com/verdantlabs/arbor/geo"
	"github.com/verdantlabs/arbor/risk"
	"github.com/verdantlabs/arbor/store"
	"github.com/verdantlabs/arbor/weather"
)

// resolveToolLocation picks explicit lat/lng arguments first, then falls
// back to the session's map context.
func resolveToolLocation(env Env, args arguments) (lat, lng float64, ok bool) {
	argLat, hasLat := args.float("lat")
	argLng, hasLng := args.float("lng")
	if hasLat && hasLng {
		return argLat, argLng, true
	}
	if env.Map == nil {
		return 0, 0, false
	}
	best := env.Map.BestLocation()
	if best == nil {
		return 0, 0, false
	}
	return best.Lat, best.Lng, true
}

func (d *Dispatcher) getWeather(ctx context.Context, env Env, args arguments) Result {
	lat, lng, ok := resolveToolLocation(env, args)
	if !ok {
		return failure("no location available; ask the user or check the map context")
	}
	if err := geo.AssertValidLatLng(lat, lng, "getWeather"); err != nil {
		return failure(err.Error())
	}

	current, err := d.weather.FetchCurrent(ctx, lat, lng)
	if err != nil {
		return failure("weather service unavailable: " + err.Error())
	}

	days := args.intVal("days", 7)
	forecast, err := d.weather.FetchForecast(ctx, lat, lng, days)
	if err != nil {
		return failure("weather service unavailable: " + err.Error())
	}

	return success(Result{
		"location": geo.FormatCoordinates(lat, lng),
		"current":  current,
		"forecast": forecast,
	})
}

func (d *Dispatcher) getAlerts(ctx context.Context, env Env) Result {
	lat, lng, ok := resolveToolLocation(env, arguments{})
	if !ok {
		return failure("no location available; ask the user or check the map context")
	}

	alerts, err := d.events.FetchAlerts(ctx, lat, lng)
	if err != nil {
		return failure("could not load alerts: " + err.Error())
	}
	if alerts == nil {
		alerts = []store.Alert{}
	}
	return success(Result{"alerts": alerts, "count": len(alerts)})
}

func (d *Dispatcher) analyzeRisks(ctx context.Context, args arguments) Result {
	now := d.now()
	filter := store.EventFilter{
		StartDate: now.Format("2006-01-02"),
		EndDate:   now.AddDate(0, 0, d.thresholds.WindowDays).Format("2006-01-02"),
	}

	events, err := d.events.FetchEvents(ctx, filter)
	if err != nil {
		return failure("could not load events: " + err.Error())
	}

	if eventID := args.str("eventId"); eventID != "" {
		var match []store.Event
		for _, e := range events {
			if e.ID == eventID {
				match = append(match, e)
			}
		}
		if len(match) == 0 {
			return failure(fmt.Sprintf("event %s not found in the next %d days", eventID, d.thresholds.WindowDays))
		}
		events = match
	}

	warnings := make([]risk.Warning, 0)
	for _, event := range events {
		alerts, err := d.events.FetchAlerts(ctx, event.Lat, event.Lng)
		if err != nil {
			d.logger.Warn("Skipping alerts for event", map[string]interface{}{
				"operation": "analyze_risks",
				"event_id":  event.ID,
				"error":     err.Error(),
			})
			alerts = nil
		}

		// A missing forecast degrades the analysis to alerts only.
		forecast, err := d.weather.FetchForecast(ctx, event.Lat, event.Lng, d.thresholds.WindowDays)
		if err != nil {
			d.logger.Warn("Skipping forecast for event", map[string]interface{}{
				"operation": "analyze_risks",
				"event_id":  event.ID,
				"error":     err.Error(),
			})
			forecast = nil
		}

		warnings = append(warnings, risk.Evaluate(now, []store.Event{event}, alerts, forecast, d.thresholds)...)
	}

	return success(Result{"warnings": warnings, "count": len(warnings)})
}

func (d *Dispatcher) suggestPlantingDate(ctx context.Context, env Env, args arguments) Result {
	species := args.str("species")
	if species == "" {
		return failure("species is required")
	}

	lat, lng, ok := resolveToolLocation(env, args)
	if !ok {
		return failure("no location available; ask the user or check the map context")
	}

	forecast, err := d.weather.FetchForecast(ctx, lat, lng, weather.MaxForecastDays)
	if err != nil {
		return failure("weather service unavailable: " + err.Error())
	}

	for _, day := range forecast {
		if suitable, reason := d.plantable(day); suitable {
			return success(Result{
				"species": species,
				"date":    day.Date,
				"reason":  reason,
			})
		}
	}

	return failure(fmt.Sprintf("no suitable planting day for %s in the next %d days", species, weather.MaxForecastDays))
}

// plantable applies the same thresholds the risk evaluator uses, plus a 2°C
// margin over the frost limit so a borderline night does not get suggested.
func (d *Dispatcher) plantable(day weather.Day) (bool, string) {
	if day.TempMin < d.thresholds.FrostBelow+2 {
		return false, ""
	}
	if day.TempMax > d.thresholds.HeatAbove {
		return false, ""
	}
	if day.Precipitation > d.thresholds.HeavyRainAbove {
		return false, ""
	}
	if day.SoilMoisture > 0 && day.SoilMoisture < d.thresholds.SoilMoistureBelow {
		return false, ""
	}
	return true, fmt.Sprintf("mild temperatures (%.0f to %.0f°C), no frost or heavy rain expected", day.TempMin, day.TempMax)
}
