package binding

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/modelbind/pkg/config"
)

// Config carries process-wide binder settings, set once at startup.
type Config struct {
	CacheCapacity int           `env:"MODELBIND_CACHE_CAPACITY" envDefault:"1000"` // CacheCapacity is the maximum number of cached binding results.
	CacheTTL      time.Duration `env:"MODELBIND_CACHE_TTL" envDefault:"1m"`        // CacheTTL is the default lifetime of a cached result.
	Debug         bool          `env:"MODELBIND_DEBUG" envDefault:"false"`         // Debug enables debug logging of resolution steps to stderr.
}

// NewFromConfig creates a Binder from explicit configuration.
// Additional options are applied after the configuration and may
// override it.
func NewFromConfig(cfg Config, opts ...Option) *Binder {
	base := make([]Option, 0, len(opts)+3)
	if cfg.CacheCapacity > 0 {
		base = append(base, WithCacheCapacity(cfg.CacheCapacity))
	}
	if cfg.CacheTTL > 0 {
		base = append(base, WithDefaultCacheTTL(cfg.CacheTTL))
	}
	if cfg.Debug {
		base = append(base, WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}
	return New(append(base, opts...)...)
}

// NewFromEnv creates a Binder configured from environment variables.
func NewFromEnv(opts ...Option) (*Binder, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, errors.Join(errors.New("modelbind: load binder config"), err)
	}
	return NewFromConfig(cfg, opts...), nil
}
