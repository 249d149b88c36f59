package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapContextStartsEmpty(t *testing.T) {
	mc := NewMapContext()

	assert.Nil(t, mc.BestLocation())
	snap := mc.Snapshot()
	assert.Nil(t, snap.Picked)
	assert.Nil(t, snap.GPS)
	assert.Nil(t, snap.View)
}

func TestMapContextSetMergesSlotsIndependently(t *testing.T) {
	mc := NewMapContext()

	mc.Set(ContextUpdate{GPS: &Coordinates{Lat: 50.0, Lng: 14.0}})
	mc.Set(ContextUpdate{View: &View{Lat: 49.0, Lng: 15.0, Zoom: 12}})

	snap := mc.Snapshot()
	assert.Nil(t, snap.Picked)
	require.NotNil(t, snap.GPS)
	assert.Equal(t, 50.0, snap.GPS.Lat)
	require.NotNil(t, snap.View)
	assert.Equal(t, 12, snap.View.Zoom)
}

func TestMapContextBestLocationPrecedence(t *testing.T) {
	mc := NewMapContext()

	mc.Set(ContextUpdate{View: &View{Lat: 1, Lng: 2, Zoom: 10}})
	best := mc.BestLocation()
	require.NotNil(t, best)
	assert.Equal(t, SourceViewport, best.Source)
	assert.Equal(t, 1.0, best.Lat)

	mc.Set(ContextUpdate{GPS: &Coordinates{Lat: 3, Lng: 4}})
	best = mc.BestLocation()
	require.NotNil(t, best)
	assert.Equal(t, SourceGPS, best.Source)

	mc.Set(ContextUpdate{Picked: &Coordinates{Lat: 5, Lng: 6}})
	best = mc.BestLocation()
	require.NotNil(t, best)
	assert.Equal(t, SourcePicked, best.Source)
	assert.Equal(t, 5.0, best.Lat)
}

func TestMapContextClearPickedOnlyResetsPin(t *testing.T) {
	mc := NewMapContext()
	mc.Set(ContextUpdate{
		Picked: &Coordinates{Lat: 5, Lng: 6},
		GPS:    &Coordinates{Lat: 3, Lng: 4},
	})

	mc.ClearPicked()

	best := mc.BestLocation()
	require.NotNil(t, best)
	assert.Equal(t, SourceGPS, best.Source)
	assert.NotNil(t, mc.Snapshot().GPS)
	assert.Nil(t, mc.Snapshot().Picked)
}

func TestMapContextSnapshotIsDefensiveCopy(t *testing.T) {
	mc := NewMapContext()
	mc.Set(ContextUpdate{Picked: &Coordinates{Lat: 5, Lng: 6}})

	snap := mc.Snapshot()
	snap.Picked.Lat = 99

	best := mc.BestLocation()
	require.NotNil(t, best)
	assert.Equal(t, 5.0, best.Lat)
}
