package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=value pairs from the given files (default ".env") into the process environment.
//
// Missing files are ignored. Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with MUSTX_* environment variables.
func ApplyEnv(c *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *Duration) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, v)
		}
		dst.Duration = d
		return nil
	}

	str("MUSTX_BASE_URL", &c.MustApp.BaseURL)
	str("MUSTX_USER_AGENT", &c.MustApp.UserAgent)
	str("MUSTX_CACHE_BACKEND", &c.Cache.Backend)
	str("MUSTX_DATABASE_PATH", &c.Database.Path)
	str("MUSTX_REDIS_ADDR", &c.Redis.Addr)
	str("MUSTX_REDIS_PASSWORD", &c.Redis.Password)
	str("MUSTX_MEMCACHE_ADDR", &c.Memcache.Addr)
	str("MUSTX_SERVER_HOST", &c.Server.Host)
	str("MUSTX_EXPORT_DIR", &c.Export.Dir)
	str("MUSTX_LOG_LEVEL", &c.Log.Level)

	for key, dst := range map[string]*int{
		"MUSTX_BATCH_SIZE":             &c.MustApp.BatchSize,
		"MUSTX_CACHE_VERSION":          &c.Cache.Version,
		"MUSTX_REDIS_DB":               &c.Redis.DB,
		"MUSTX_SERVER_PORT":            &c.Server.Port,
		"MUSTX_MEMCACHE_MAX_ITEM_SIZE": &c.Memcache.MaxItemSize,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if err := dur("MUSTX_BATCH_DELAY", &c.MustApp.BatchDelay); err != nil {
		return err
	}
	return dur("MUSTX_TIMEOUT", &c.MustApp.Timeout)
}
