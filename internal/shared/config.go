package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	MustApp  MustAppConfig  `toml:"mustapp"`
	Cache    CacheConfig    `toml:"cache"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Memcache MemcacheConfig `toml:"memcache"`
	Server   ServerConfig   `toml:"server"`
	Export   ExportConfig   `toml:"export"`
	Log      LogConfig      `toml:"log"`
}

// MustAppConfig controls how the MustApp API is queried.
type MustAppConfig struct {
	BaseURL      string   `toml:"base_url"`
	UserAgent    string   `toml:"user_agent"`
	Timeout      Duration `toml:"timeout"`
	BatchSize    int      `toml:"batch_size"`
	BatchDelay   Duration `toml:"batch_delay"`
	PageFallback bool     `toml:"page_fallback"`
}

// CacheConfig selects the snapshot store.
type CacheConfig struct {
	Backend string `toml:"backend"`
	Version int    `toml:"version"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains Redis connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	DB       int      `toml:"db"`
	Password string   `toml:"password"`
	TTL      Duration `toml:"ttl"`
}

// MemcacheConfig contains memcached settings for the memcache cache backend.
type MemcacheConfig struct {
	Addr        string   `toml:"addr"`
	TTL         Duration `toml:"ttl"`
	MaxItemSize int      `toml:"max_item_size"` // bytes; must match memcached's -I setting
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ExportConfig contains spreadsheet export settings.
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so it can be written as "100ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Cache backends
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
	BackendNone     = "none"
)

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults. A missing file is reported as [ErrMissingConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.MustApp.BaseURL == "" {
		return fmt.Errorf("%w: mustapp.base_url is empty", ErrInvalidConfig)
	}
	if c.MustApp.BatchSize <= 0 {
		return fmt.Errorf("%w: mustapp.batch_size must be positive, got %d", ErrInvalidConfig, c.MustApp.BatchSize)
	}
	if c.MustApp.BatchDelay.Duration < 0 {
		return fmt.Errorf("%w: mustapp.batch_delay must not be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for the sqlite cache", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis cache", ErrInvalidConfig)
		}
	case BackendMemcache:
		if c.Memcache.Addr == "" {
			return fmt.Errorf("%w: memcache.addr is required for the memcache cache", ErrInvalidConfig)
		}
		if c.Memcache.MaxItemSize < 0 {
			return fmt.Errorf("%w: memcache.max_item_size must not be negative", ErrInvalidConfig)
		}
	case BackendNone:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	return nil
}

// ServerAddr returns host:port for the HTTP server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
