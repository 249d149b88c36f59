package geo

import "sync"

// LocationSource identifies which map context slot supplied a location
type LocationSource string

const (
	SourcePicked   LocationSource = "picked"
	SourceGPS      LocationSource = "gps"
	SourceViewport LocationSource = "viewport"
)

// View is the current map viewport center and zoom
type View struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// ContextUpdate carries a partial map context change. Nil slots are left
// untouched by Set.
type ContextUpdate struct {
	Picked *Coordinates
	GPS    *Coordinates
	View   *View
}

// Snapshot is a defensive copy of the map context slots
type Snapshot struct {
	Picked *Coordinates `json:"pickedLocation,omitempty"`
	GPS    *Coordinates `json:"userGPS,omitempty"`
	View   *View        `json:"currentView,omitempty"`
}

// SourcedLocation is a resolved implicit location tagged with its origin
type SourcedLocation struct {
	Coordinates
	Source LocationSource `json:"source"`
}

// MapContext records where the user is looking or pointing: a picked pin, a
// GPS fix, and the viewport center. One instance is scoped per session and
// threaded through tool dispatch; it is never shared across sessions. It has
// no persistence and starts empty.
type MapContext struct {
	mu     sync.RWMutex
	picked *Coordinates
	gps    *Coordinates
	view   *View
}

// NewMapContext creates an empty map context
func NewMapContext() *MapContext {
	return &MapContext{}
}

// Set merges the update into the current snapshot. Each slot is updated
// independently; nil slots keep their current value.
func (m *MapContext) Set(update ContextUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if update.Picked != nil {
		picked := *update.Picked
		m.picked = &picked
	}
	if update.GPS != nil {
		gps := *update.GPS
		m.gps = &gps
	}
	if update.View != nil {
		view := *update.View
		m.view = &view
	}
}

// Snapshot returns a defensive copy of all slots
func (m *MapContext) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snap Snapshot
	if m.picked != nil {
		picked := *m.picked
		snap.Picked = &picked
	}
	if m.gps != nil {
		gps := *m.gps
		snap.GPS = &gps
	}
	if m.view != nil {
		view := *m.view
		snap.View = &view
	}
	return snap
}

// BestLocation applies the fixed precedence picked > GPS > viewport center
// and tags the result with its source. Returns nil when no slot is set.
func (m *MapContext) BestLocation() *SourcedLocation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case m.picked != nil:
		return &SourcedLocation{Coordinates: *m.picked, Source: SourcePicked}
	case m.gps != nil:
		return &SourcedLocation{Coordinates: *m.gps, Source: SourceGPS}
	case m.view != nil:
		return &SourcedLocation{Coordinates: Coordinates{Lat: m.view.Lat, Lng: m.view.Lng}, Source: SourceViewport}
	default:
		return nil
	}
}

// ClearPicked resets only the picked slot. Called after a location-consuming
// tool completes so a stale pin is not silently reused for the next action.
func (m *MapContext) ClearPicked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picked = nil
}
