package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the assistant engine configuration. Values are resolved with
// the precedence: explicit option > environment variable > config file >
// default.
type Config struct {
	// Provider selection and credentials
	Provider string `yaml:"provider"` // "openai" or "gemini"; empty = auto-detect
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	// External collaborators
	GeocoderURL string `yaml:"geocoder_url"`
	WeatherURL  string `yaml:"weather_url"`

	// Persistence and caching
	SQLitePath string        `yaml:"sqlite_path"`
	RedisURL   string        `yaml:"redis_url"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`

	// Orchestration limits
	MaxToolRounds  int           `yaml:"max_tool_rounds"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Risk evaluation tuning
	Risk RiskConfig `yaml:"risk"`
}

// RiskConfig carries the risk evaluation thresholds so they can be tuned
// from the config file instead of living as magic numbers in logic.
type RiskConfig struct {
	WindowDays        int     `yaml:"window_days"`
	FrostBelow        float64 `yaml:"frost_below"`
	SoilMoistureBelow float64 `yaml:"soil_moisture_below"`
	HeavyRainAbove    float64 `yaml:"heavy_rain_above"`
	HeatAbove         float64 `yaml:"heat_above"`
}

// Option configures a Config
type Option func(*Config)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GeocoderURL:    "https://nominatim.openstreetmap.org",
		WeatherURL:     "https://api.open-meteo.com",
		SQLitePath:     "arbor.db",
		CacheTTL:       10 * time.Minute,
		MaxToolRounds:  5,
		RequestTimeout: 60 * time.Second,
		Risk: RiskConfig{
			WindowDays:        14,
			FrostBelow:        0,
			SoilMoistureBelow: 0.15,
			HeavyRainAbove:    20,
			HeatAbove:         32,
		},
	}
}

// NewConfig builds a Config from defaults, an optional YAML file, the
// environment, and explicit options, in increasing precedence.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("ARBOR_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
	}

	cfg.applyEnvironment()

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironment() {
	if v := os.Getenv("ARBOR_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("ARBOR_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("ARBOR_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("ARBOR_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("ARBOR_GEOCODER_URL"); v != "" {
		c.GeocoderURL = v
	}
	if v := os.Getenv("ARBOR_WEATHER_URL"); v != "" {
		c.WeatherURL = v
	}
	if v := os.Getenv("ARBOR_SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("ARBOR_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("ARBOR_MAX_TOOL_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxToolRounds = n
		}
	}
	if v := os.Getenv("ARBOR_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RequestTimeout = d
		}
	}
}

// Validate checks the configuration for invalid combinations
func (c *Config) Validate() error {
	if c.MaxToolRounds < 2 {
		return fmt.Errorf("%w: max_tool_rounds must be at least 2 (model round plus tool round)", ErrInvalidConfiguration)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfiguration)
	}
	if c.Risk.WindowDays <= 0 {
		return fmt.Errorf("%w: risk.window_days must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// WithProvider selects the chat provider by name
func WithProvider(name string) Option {
	return func(c *Config) { c.Provider = name }
}

// WithAPIKey sets the provider API key
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the default model id
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithGeocoderURL overrides the forward/reverse geocoding endpoint
func WithGeocoderURL(url string) Option {
	return func(c *Config) { c.GeocoderURL = url }
}

// WithWeatherURL overrides the weather collaborator endpoint
func WithWeatherURL(url string) Option {
	return func(c *Config) { c.WeatherURL = url }
}

// WithSQLitePath sets the path of the SQLite database file
func WithSQLitePath(path string) Option {
	return func(c *Config) { c.SQLitePath = path }
}

// WithRedisURL enables the Redis-backed cache
func WithRedisURL(url string) Option {
	return func(c *Config) { c.RedisURL = url }
}

// WithMaxToolRounds bounds the orchestration loop depth
func WithMaxToolRounds(n int) Option {
	return func(c *Config) { c.MaxToolRounds = n }
}

// WithRequestTimeout sets the hard timeout for outbound vendor calls
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithRiskConfig replaces the risk evaluation thresholds
func WithRiskConfig(rc RiskConfig) Option {
	return func(c *Config) { c.Risk = rc }
}
