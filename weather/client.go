// Package weather provides the forecast collaborator client. Results are
// treated as point-in-time snapshots and may be cached through a core.Memory
// with a TTL.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verdantlabs/arbor/core"
)

// DefaultCacheTTL bounds how stale a cached snapshot may be
const DefaultCacheTTL = 10 * time.Minute

// MaxForecastDays is the provider's forecast horizon
const MaxForecastDays = 16

// Client fetches current conditions and multi-day forecasts from an
// Open-Meteo-style provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	cache      core.Memory
	cacheTTL   time.Duration
}

// NewClient creates a weather client. cache may be nil to disable caching.
func NewClient(baseURL string, cache core.Memory, logger core.Logger) *Client {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		cache:      cache,
		cacheTTL:   DefaultCacheTTL,
	}
}

// SetCacheTTL overrides the cache TTL
func (c *Client) SetCacheTTL(ttl time.Duration) {
	c.cacheTTL = ttl
}

// FetchCurrent returns the current conditions at the location
func (c *Client) FetchCurrent(ctx context.Context, lat, lng float64) (*Current, error) {
	key := fmt.Sprintf("weather:current:%.3f:%.3f", lat, lng)
	if cached := c.fromCache(ctx, key); cached != "" {
		var current Current
		if err := json.Unmarshal([]byte(cached), &current); err == nil {
			return &current, nil
		}
	}

	resp, err := c.fetch(ctx, lat, lng, 1)
	if err != nil {
		return nil, err
	}

	current := &Current{
		Temperature:   resp.Current.Temperature,
		WindSpeed:     resp.Current.WindSpeed,
		Precipitation: resp.Current.Precipitation,
		SoilMoisture:  latestSoilMoisture(resp),
	}
	c.toCache(ctx, key, current)
	return current, nil
}

// FetchForecast returns up to days of daily forecast data, capped at the
// provider horizon.
func (c *Client) FetchForecast(ctx context.Context, lat, lng float64, days int) ([]Day, error) {
	if days <= 0 {
		days = 7
	}
	if days > MaxForecastDays {
		days = MaxForecastDays
	}

	key := fmt.Sprintf("weather:forecast:%.3f:%.3f:%d", lat, lng, days)
	if cached := c.fromCache(ctx, key); cached != "" {
		var forecast []Day
		if err := json.Unmarshal([]byte(cached), &forecast); err == nil {
			return forecast, nil
		}
	}

	resp, err := c.fetch(ctx, lat, lng, days)
	if err != nil {
		return nil, err
	}

	forecast := buildDays(resp)
	c.toCache(ctx, key, forecast)
	return forecast, nil
}

func (c *Client) fetch(ctx context.Context, lat, lng float64, days int) (*forecastResponse, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("current", "temperature_2m,wind_speed_10m,precipitation")
	params.Set("daily", "temperature_2m_min,temperature_2m_max,precipitation_sum,weather_code")
	params.Set("hourly", "soil_moisture_3_to_9cm")
	params.Set("forecast_days", strconv.Itoa(days))
	params.Set("timezone", "UTC")

	endpoint := c.baseURL + "/v1/forecast?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Weather request failed", map[string]interface{}{
			"operation":   "weather_fetch",
			"status_code": resp.StatusCode,
		})
		return nil, fmt.Errorf("%w: weather provider status %d", core.ErrRequestFailed, resp.StatusCode)
	}

	var parsed forecastResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing weather response: %w", err)
	}
	return &parsed, nil
}

// buildDays folds the provider's parallel daily arrays and hourly soil
// moisture samples into per-day records. Soil moisture is the mean of the
// hourly samples sharing the day's calendar date.
func buildDays(resp *forecastResponse) []Day {
	soilByDate := make(map[string][]float64)
	for i, ts := range resp.Hourly.Time {
		if i >= len(resp.Hourly.SoilMoisture) {
			break
		}
		date := ts
		if len(ts) >= 10 {
			date = ts[:10]
		}
		soilByDate[date] = append(soilByDate[date], resp.Hourly.SoilMoisture[i])
	}

	days := make([]Day, 0, len(resp.Daily.Time))
	for i, date := range resp.Daily.Time {
		day := Day{Date: date}
		if i < len(resp.Daily.TempMin) {
			day.TempMin = resp.Daily.TempMin[i]
		}
		if i < len(resp.Daily.TempMax) {
			day.TempMax = resp.Daily.TempMax[i]
		}
		if i < len(resp.Daily.Precipitation) {
			day.Precipitation = resp.Daily.Precipitation[i]
		}
		if i < len(resp.Daily.WeatherCode) {
			day.WeatherCode = resp.Daily.WeatherCode[i]
		}
		if samples := soilByDate[date]; len(samples) > 0 {
			sum := 0.0
			for _, s := range samples {
				sum += s
			}
			day.SoilMoisture = sum / float64(len(samples))
		}
		days = append(days, day)
	}
	return days
}

func latestSoilMoisture(resp *forecastResponse) float64 {
	if len(resp.Hourly.SoilMoisture) == 0 {
		return 0
	}
	return resp.Hourly.SoilMoisture[0]
}

func (c *Client) fromCache(ctx context.Context, key string) string {
	if c.cache == nil {
		return ""
	}
	value, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Weather cache read failed", map[string]interface{}{
			"operation": "weather_cache_get",
			"key":       key,
			"error":     err.Error(),
		})
		return ""
	}
	return value
}

func (c *Client) toCache(ctx context.Context, key string, value interface{}) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(data), c.cacheTTL); err != nil {
		c.logger.Warn("Weather cache write failed", map[string]interface{}{
			"operation": "weather_cache_set",
			"key":       key,
			"error":     err.Error(),
		})
	}
}
