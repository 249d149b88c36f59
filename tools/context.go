package tools

func (d *Dispatcher) getMapContext(env Env) Result {
	if env.Map == nil {
		return success(Result{"hasLocation": false})
	}

	best := env.Map.BestLocation()
	if best == nil {
		return success(Result{"hasLocation": false})
	}

	snap := env.Map.Snapshot()
	return success(Result{
		"hasLocation":    true,
		"lat":            best.Lat,
		"lng":            best.Lng,
		"source":         best.Source,
		"pickedLocation": snap.Picked,
		"userGPS":        snap.GPS,
		"currentView":    snap.View,
	})
}
