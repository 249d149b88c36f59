// Package risk scores upcoming calendar events against forecasts and
// regional advisories.
package risk

import (
	"fmt"
	"time"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/store"
	"github.com/verdantlabs/arbor/weather"
)

// Severity levels of a warning record
const (
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
)

// Thresholds are the tunable limits for risk evaluation
type Thresholds struct {
	// WindowDays restricts evaluation to events this many days ahead
	WindowDays int
	// FrostBelow marks a frost risk when the daily minimum drops under it
	FrostBelow float64
	// SoilMoistureBelow marks a drought risk
	SoilMoistureBelow float64
	// HeavyRainAbove marks a precipitation risk, in mm per day
	HeavyRainAbove float64
	// HeatAbove marks a heat-stress risk when the daily maximum exceeds it
	HeatAbove float64
}

// DefaultThresholds returns the stock limits
func DefaultThresholds() Thresholds {
	return Thresholds{
		WindowDays:        14,
		FrostBelow:        0,
		SoilMoistureBelow: 0.15,
		HeavyRainAbove:    20,
		HeatAbove:         32,
	}
}

// ThresholdsFromConfig maps the application risk configuration
func ThresholdsFromConfig(cfg core.RiskConfig) Thresholds {
	return Thresholds{
		WindowDays:        cfg.WindowDays,
		FrostBelow:        cfg.FrostBelow,
		SoilMoistureBelow: cfg.SoilMoistureBelow,
		HeavyRainAbove:    cfg.HeavyRainAbove,
		HeatAbove:         cfg.HeatAbove,
	}
}

// Warning is the risk assessment for one event. An event with no
// contributing risks produces no Warning at all.
type Warning struct {
	EventID  string   `json:"eventId"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Risks    []string `json:"risks"`
	Severity string   `json:"severity"`
}

// Evaluate scores every event inside the forward window against the
// advisories and the forecast. now anchors the window; callers pass
// time.Now() outside tests.
func Evaluate(now time.Time, events []store.Event, alerts []store.Alert, forecast []weather.Day, th Thresholds) []Warning {
	windowStart := now.Format("2006-01-02")
	windowEnd := now.AddDate(0, 0, th.WindowDays).Format("2006-01-02")

	days := make(map[string]weather.Day, len(forecast))
	for _, d := range forecast {
		days[d.Date] = d
	}

	var warnings []Warning
	for _, event := range events {
		if event.Date < windowStart || event.Date > windowEnd {
			continue
		}

		var (
			risks  []string
			danger bool
		)

		for _, alert := range alerts {
			if event.Date < alert.Start || event.Date > alert.End {
				continue
			}
			risks = append(risks, alert.Title)
			if alert.Severity == SeverityDanger {
				danger = true
			}
		}

		if day, ok := days[event.Date]; ok {
			if day.TempMin < th.FrostBelow {
				risks = append(risks, fmt.Sprintf("frost risk (min %.1f°C)", day.TempMin))
				danger = true
			}
			if day.SoilMoisture > 0 && day.SoilMoisture < th.SoilMoistureBelow {
				risks = append(risks, fmt.Sprintf("drought risk (soil moisture %.2f)", day.SoilMoisture))
				danger = true
			}
			if day.Precipitation > th.HeavyRainAbove {
				risks = append(risks, fmt.Sprintf("heavy rain (%.0f mm)", day.Precipitation))
			}
			if day.TempMax > th.HeatAbove {
				risks = append(risks, fmt.Sprintf("heat stress (max %.1f°C)", day.TempMax))
			}
		}

		if len(risks) == 0 {
			continue
		}

		severity := SeverityWarning
		if danger {
			severity = SeverityDanger
		}
		warnings = append(warnings, Warning{
			EventID:  event.ID,
			Title:    event.Title,
			Date:     event.Date,
			Risks:    risks,
			Severity: severity,
		})
	}

	return warnings
}
