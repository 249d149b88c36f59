package tools

import (
	"context"

	"github.com/verdantlabs/arbor/geo"
	"github.com/verdantlabs/arbor/store"
)

func (d *Dispatcher) createEvent(ctx context.Context, env Env, args arguments) Result {
	title := args.str("title")
	eventType := args.str("type")
	date := args.str("date")
	if title == "" || eventType == "" || date == "" {
		return failure("title, type and date are required")
	}

	coords := d.locator.ResolveEventLocation(ctx, geo.LocationInput{
		Lat:     args.floatPtr("lat"),
		Lng:     args.floatPtr("lng"),
		Address: args.str("address"),
	})
	if coords == nil {
		return failure("could not resolve location")
	}
	if err := geo.AssertValidLatLng(coords.Lat, coords.Lng, "createEvent"); err != nil {
		return failure(err.Error())
	}

	address := args.str("address")
	if address == "" {
		address = d.locator.ReverseGeocode(ctx, coords.Lat, coords.Lng)
	}

	event, err := d.events.CreateEvent(ctx, store.Event{
		Title:   title,
		Type:    eventType,
		Date:    date,
		Lat:     coords.Lat,
		Lng:     coords.Lng,
		Address: address,
		Notes:   args.str("notes"),
		Items:   args.stringSlice("items"),
	})
	if err != nil {
		return failure("could not save event: " + err.Error())
	}

	d.recordAction(ctx, env, ToolCreateEvent, Result{
		"eventId": event.ID,
		"title":   event.Title,
		"date":    event.Date,
	})
	return success(Result{"event": event})
}

func (d *Dispatcher) editEvent(ctx context.Context, env Env, args arguments) Result {
	eventID := args.str("eventId")
	if eventID == "" {
		return failure("eventId is required")
	}

	update := store.EventUpdate{
		Title:  args.strPtr("title"),
		Date:   args.strPtr("date"),
		Status: args.strPtr("status"),
		Notes:  args.strPtr("notes"),
	}

	event, err := d.events.UpdateEvent(ctx, eventID, update)
	if err != nil {
		return failure("could not update event: " + err.Error())
	}

	d.recordAction(ctx, env, ToolEditEvent, Result{"eventId": eventID})
	return success(Result{"event": event})
}

func (d *Dispatcher) deleteEvent(ctx context.Context, env Env, args arguments) Result {
	eventID := args.str("eventId")
	if eventID == "" {
		return failure("eventId is required")
	}

	if err := d.events.DeleteEvent(ctx, eventID); err != nil {
		return failure("could not delete event: " + err.Error())
	}

	d.recordAction(ctx, env, ToolDeleteEvent, Result{"eventId": eventID})
	return success(Result{"eventId": eventID})
}

func (d *Dispatcher) getEvents(ctx context.Context, args arguments) Result {
	events, err := d.events.FetchEvents(ctx, store.EventFilter{
		StartDate: args.str("startDate"),
		EndDate:   args.str("endDate"),
		Type:      args.str("type"),
	})
	if err != nil {
		return failure("could not load events: " + err.Error())
	}
	if events == nil {
		events = []store.Event{}
	}
	return success(Result{"events": events, "count": len(events)})
}
