package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type ServerConfig struct {
	Port                string `json:"port"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

type GoogleConfig struct {
	APIKey     string `json:"api_key"`
	GeocodeURL string `json:"geocode_url"`
	RoutesURL  string `json:"routes_url"`
	Language   string `json:"language"`
	Region     string `json:"region"`
}

type MatrixConfig struct {
	BatchSize           int     `json:"batch_size"`
	MaxConcurrentBlocks int     `json:"max_concurrent_blocks"`
	CacheSize           int     `json:"cache_size"`
	RequestsPerSecond   float64 `json:"requests_per_second"`
}

type SolverConfig struct {
	SlackMinutes      int `json:"slack_minutes"`
	HorizonMinutes    int `json:"horizon_minutes"`
	TimeBudgetSeconds int `json:"time_budget_seconds"`
}

type RedisConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLMinutes int    `json:"ttl_minutes"`
}

type DatabaseConfig struct {
	URL string `json:"url"`
}

type Config struct {
	Server   ServerConfig   `json:"server"`
	Google   GoogleConfig   `json:"google"`
	Matrix   MatrixConfig   `json:"matrix"`
	Solver   SolverConfig   `json:"solver"`
	Redis    RedisConfig    `json:"redis"`
	Database DatabaseConfig `json:"database"`
}

func (c *Config) SetDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		// Tuned for cold-cache matrix builds plus a full solve budget.
		c.Server.WriteTimeoutSeconds = 120
	}
	if c.Google.GeocodeURL == "" {
		c.Google.GeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	if c.Google.RoutesURL == "" {
		c.Google.RoutesURL = "https://routes.googleapis.com/distanceMatrix/v2:computeRouteMatrix"
	}
	if c.Google.Language == "" {
		c.Google.Language = "ja"
	}
	if c.Google.Region == "" {
		c.Google.Region = "JP"
	}
	if c.Matrix.BatchSize == 0 {
		c.Matrix.BatchSize = 100
	}
	if c.Matrix.MaxConcurrentBlocks == 0 {
		c.Matrix.MaxConcurrentBlocks = 4
	}
	if c.Matrix.CacheSize == 0 {
		c.Matrix.CacheSize = 256
	}
	if c.Matrix.RequestsPerSecond == 0 {
		c.Matrix.RequestsPerSecond = 10
	}
	if c.Solver.SlackMinutes == 0 {
		c.Solver.SlackMinutes = 30
	}
	if c.Solver.HorizonMinutes == 0 {
		c.Solver.HorizonMinutes = 1440
	}
	if c.Solver.TimeBudgetSeconds == 0 {
		c.Solver.TimeBudgetSeconds = 10
	}
	if c.Redis.TTLMinutes == 0 {
		c.Redis.TTLMinutes = 60
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Google.APIKey) == "" {
		return fmt.Errorf("config: google.api_key is required")
	}
	if c.Matrix.BatchSize < 1 {
		return fmt.Errorf("config: matrix.batch_size must be >= 1")
	}
	if c.Matrix.MaxConcurrentBlocks < 1 {
		return fmt.Errorf("config: matrix.max_concurrent_blocks must be >= 1")
	}
	if c.Solver.HorizonMinutes < 1 {
		return fmt.Errorf("config: solver.horizon_minutes must be >= 1")
	}
	if c.Solver.TimeBudgetSeconds < 1 {
		return fmt.Errorf("config: solver.time_budget_seconds must be >= 1")
	}
	return nil
}

// SolveBudget returns the wall-clock search budget as a duration.
func (c *Config) SolveBudget() time.Duration {
	return time.Duration(c.Solver.TimeBudgetSeconds) * time.Second
}

// Load reads configuration from an optional yaml/json file and applies
// APP_-prefixed environment overrides (APP_GOOGLE__API_KEY -> google.api_key).
// An empty path skips the file layer entirely.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("config: unsupported format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("config: load %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("APP_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "app_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// GOOGLE_MAPS_API_KEY remains honored for parity with older deployments.
	if cfg.Google.APIKey == "" {
		cfg.Google.APIKey = strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY"))
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
