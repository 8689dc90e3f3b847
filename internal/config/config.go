package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvConfigPath = "ANIMEBRIDGE_CONFIG"
	EnvDBPath     = "ANIMEBRIDGE_DB_PATH"
	EnvClientID   = "ANIMEBRIDGE_CLIENT_ID"
	EnvUsername   = "ANIMEBRIDGE_USERNAME"
)

// maxListLimit is the catalog's page-size ceiling.
const maxListLimit = 1000

var (
	knownLanguages = []string{"auto", "en", "tr"}
	knownLevels    = []string{"debug", "info", "warn", "error", "fatal"}
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Sync     SyncConfig     `toml:"sync"`
	Render   RenderConfig   `toml:"render"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type CatalogConfig struct {
	Username       string `toml:"username"`
	ClientID       string `toml:"client_id"`
	BaseURL        string `toml:"base_url"`
	Timeout        string `toml:"timeout"`
	HistoryLimit   int    `toml:"history_limit"`
	FavoritesLimit int    `toml:"favorites_limit"`
	ListLimit      int    `toml:"list_limit"`
	PlanLimit      int    `toml:"plan_limit"`
}

type SyncConfig struct {
	Cooldown         string `toml:"cooldown"`
	PollInterval     string `toml:"poll_interval"`
	BaselineLookback string `toml:"baseline_lookback"`
}

type RenderConfig struct {
	Language string `toml:"language"` // auto | en | tr
	Timezone string `toml:"timezone"` // IANA name; empty uses the host zone
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://api.myanimelist.net/v2",
			Timeout:        "15s",
			HistoryLimit:   50,
			FavoritesLimit: 10,
			ListLimit:      1000,
			PlanLimit:      50,
		},
		Sync: SyncConfig{
			Cooldown:         "5m",
			PollInterval:     "15m",
			BaselineLookback: "24h",
		},
		Render: RenderConfig{
			Language: "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
			},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overlays credential environment variables onto c.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvClientID)); v != "" {
		c.Catalog.ClientID = v
	}
	if v := strings.TrimSpace(getenv(EnvUsername)); v != "" {
		c.Catalog.Username = v
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if raw := strings.TrimSpace(c.Catalog.BaseURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid catalog.base_url: %q", c.Catalog.BaseURL)
		}
	}
	if err := positiveDuration("catalog.timeout", c.Catalog.Timeout); err != nil {
		return err
	}
	for _, limit := range []struct {
		name  string
		value int
	}{
		{"catalog.history_limit", c.Catalog.HistoryLimit},
		{"catalog.favorites_limit", c.Catalog.FavoritesLimit},
		{"catalog.list_limit", c.Catalog.ListLimit},
		{"catalog.plan_limit", c.Catalog.PlanLimit},
	} {
		if limit.value < 0 || limit.value > maxListLimit {
			return fmt.Errorf("%s must be between 0 and %d", limit.name, maxListLimit)
		}
	}

	if _, err := parseDuration("sync.cooldown", c.Sync.Cooldown); err != nil {
		return err
	}
	if err := positiveDuration("sync.baseline_lookback", c.Sync.BaselineLookback); err != nil {
		return err
	}
	poll, err := parseDuration("sync.poll_interval", c.Sync.PollInterval)
	if err != nil {
		return err
	}
	if poll != 0 && poll < time.Minute {
		return errors.New("sync.poll_interval must be at least 1m")
	}

	if lang := strings.ToLower(strings.TrimSpace(c.Render.Language)); lang != "" && !slices.Contains(knownLanguages, lang) {
		return fmt.Errorf("invalid render.language: %q", c.Render.Language)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if level := strings.ToLower(strings.TrimSpace(c.Logging.Level)); level != "" && !slices.Contains(knownLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// CooldownDuration returns sync.cooldown; unset means no cooldown.
func (c Config) CooldownDuration() time.Duration {
	d, _ := parseDuration("", c.Sync.Cooldown)
	return d
}

// PollIntervalDuration returns sync.poll_interval; unset disables polling.
func (c Config) PollIntervalDuration() time.Duration {
	d, _ := parseDuration("", c.Sync.PollInterval)
	return d
}

// BaselineLookbackDuration returns sync.baseline_lookback.
func (c Config) BaselineLookbackDuration() time.Duration {
	d, _ := parseDuration("", c.Sync.BaselineLookback)
	return d
}

// TimeoutDuration returns catalog.timeout.
func (c Config) TimeoutDuration() time.Duration {
	d, _ := parseDuration("", c.Catalog.Timeout)
	return d
}

// Location resolves render.timezone, falling back to the host zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Render.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid render.timezone %q: %w", name, err)
	}
	return loc, nil
}

// HasCredentials reports whether both catalog credentials are set.
func (c Config) HasCredentials() bool {
	return strings.TrimSpace(c.Catalog.Username) != "" && strings.TrimSpace(c.Catalog.ClientID) != ""
}

func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be >= 0", field)
	}
	return d, nil
}

func positiveDuration(field, raw string) error {
	d, err := parseDuration(field, raw)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) != "" && d == 0 {
		return fmt.Errorf("%s must be > 0", field)
	}
	return nil
}

// UpsertCatalog writes catalog credentials into the TOML file at path,
// keeping every other key. The file is created when missing.
func UpsertCatalog(path, username, clientID string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("config path is required")
	}
	doc := map[string]any{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(content) > 0 {
			if err := toml.Unmarshal(content, &doc); err != nil {
				return fmt.Errorf("decode toml: %w", err)
			}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read config: %w", err)
	}

	catalog, _ := doc["catalog"].(map[string]any)
	if catalog == nil {
		catalog = map[string]any{}
	}
	if v := strings.TrimSpace(username); v != "" {
		catalog["username"] = v
	}
	if v := strings.TrimSpace(clientID); v != "" {
		catalog["client_id"] = v
	}
	doc["catalog"] = catalog

	encoded, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	// The client id is a credential.
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
