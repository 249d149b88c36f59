package tools

import (
	"fmt"

	"github.com/verdantlabs/arbor/geo"
	"github.com/verdantlabs/arbor/store"
)

// BuildPlanEvent turns a picked map location into an event draft the UI can
// show for confirmation before anything is written. The draft carries the
// input verbatim; no geocoding or normalization happens here.
func BuildPlanEvent(picked *geo.Coordinates, title, eventType, date, address string) (*store.Event, error) {
	if picked == nil {
		return nil, fmt.Errorf("no picked location to plan from")
	}
	if err := geo.AssertValidLatLng(picked.Lat, picked.Lng, "planEvent"); err != nil {
		return nil, err
	}

	return &store.Event{
		Title:   title,
		Type:    eventType,
		Date:    date,
		Lat:     picked.Lat,
		Lng:     picked.Lng,
		Address: address,
		Status:  "planned",
	}, nil
}
