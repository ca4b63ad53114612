package binding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/modelbind/pkg/cache"
)

// Defaults for the binder's shared result cache.
const (
	DefaultCacheCapacity = 1000
	DefaultCacheTTL      = time.Minute
)

// Binder resolves route parameters into persisted records through the
// currently configured adapter, applying caching and validation, and
// producing a uniform Result regardless of which adapter is active.
//
// A Binder is constructed once at application startup and passed by
// reference to every middleware and call site; it is safe for
// concurrent use. The cache capacity is fixed at construction.
type Binder struct {
	mu      sync.RWMutex
	adapter Adapter

	cache      *cache.FIFOCache[string, any]
	defaultTTL time.Duration
	log        *slog.Logger
}

// Option configures Binder construction.
type Option func(*binderConfig)

type binderConfig struct {
	capacity   int
	defaultTTL time.Duration
	log        *slog.Logger
	adapter    Adapter
}

// WithCacheCapacity sets the maximum number of cached results. Panics
// for non-positive values to enforce fail-fast initialization.
func WithCacheCapacity(n int) Option {
	return func(c *binderConfig) {
		if n <= 0 {
			panic(fmt.Errorf("invalid cache capacity %d: must be positive", n))
		}
		c.capacity = n
	}
}

// WithDefaultCacheTTL sets the TTL used when a cached binding does not
// specify its own. Non-positive values are ignored.
func WithDefaultCacheTTL(d time.Duration) Option {
	return func(c *binderConfig) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithLogger enables debug logging of resolution steps. Nil loggers are
// ignored for safety.
func WithLogger(l *slog.Logger) Option {
	return func(c *binderConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithAdapter installs the initial adapter. Panics on nil: framework
// misconfiguration should prevent startup rather than cause per-request
// errors.
func WithAdapter(a Adapter) Option {
	return func(c *binderConfig) {
		if a == nil {
			panic(ErrNilAdapter)
		}
		c.adapter = a
	}
}

// New creates a Binder with an empty cache and, unless WithAdapter is
// given, no active adapter.
func New(opts ...Option) *Binder {
	cfg := binderConfig{
		capacity:   DefaultCacheCapacity,
		defaultTTL: DefaultCacheTTL,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Binder{
		adapter:    cfg.adapter,
		cache:      cache.NewFIFOCache[string, any](cfg.capacity),
		defaultTTL: cfg.defaultTTL,
		log:        cfg.log,
	}
}

// SetAdapter installs the active adapter, replacing any previous one.
// The cache is not invalidated on replacement: stale values from a
// prior adapter may surface by key collision. Callers swapping adapters
// at runtime should call ClearCache themselves.
func (b *Binder) SetAdapter(a Adapter) error {
	if a == nil {
		return ErrNilAdapter
	}
	b.mu.Lock()
	b.adapter = a
	b.mu.Unlock()
	return nil
}

// Adapter returns the active adapter or ErrNoAdapter when none is
// installed. Side-effect free.
func (b *Binder) Adapter() (Adapter, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.adapter == nil {
		return nil, ErrNoAdapter
	}
	return b.adapter, nil
}

// ClearAdapter removes the active adapter. Idempotent.
func (b *Binder) ClearAdapter() {
	b.mu.Lock()
	b.adapter = nil
	b.mu.Unlock()
}

// ClearCache drops all cached binding results.
func (b *Binder) ClearCache() {
	b.cache.Clear()
}

// CacheStats returns occupancy of the shared result cache.
func (b *Binder) CacheStats() cache.Stats {
	return b.cache.Stats()
}

// Bind resolves one route parameter into a bound value. Expected domain
// failures (missing value, invalid model, not-found, validation) are
// encoded in the returned Result, never raised; so is a missing adapter
// configuration, which the middleware treats as a server error. Panics
// in caller-supplied callbacks are recovered into the result as well.
//
// The adapter call and the Validate callback receive ctx unchanged; the
// binder enforces no timeout and never retries.
func (b *Binder) Bind(ctx context.Context, param, raw string, model any, opts Options) (res Result) {
	start := time.Now()
	res = Result{Name: opts.attachName(param)}
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Name: opts.attachName(param),
				Err:  fmt.Errorf("modelbind: panic while binding %q: %v", param, r),
			}
		}
		res.Duration = time.Since(start)
	}()

	adapter, err := b.Adapter()
	if err != nil {
		res.Err = err
		return res
	}

	if strings.TrimSpace(raw) == "" {
		if opts.Optional {
			return res
		}
		res.Err = MissingParamError{Param: param}
		return res
	}

	// Structural model check happens before any I/O.
	if !adapter.IsValidModel(model) {
		res.Err = InvalidModelError{Model: modelName(adapter, model)}
		return res
	}
	name := modelName(adapter, model)

	field := opts.Key
	if field == "" {
		field = adapter.PrimaryKey(model)
	}

	var value any
	if opts.Transform != nil {
		value, err = opts.Transform(raw)
		if err != nil {
			res.Err = fmt.Errorf("modelbind: transform value for %q: %w", param, err)
			return res
		}
	} else {
		value = adapter.TransformValue(model, field, raw)
	}

	var cacheKey string
	if opts.cacheEnabled() {
		cacheKey = buildCacheKey(name, field, value, opts)
		if cached, ok := b.cache.Get(cacheKey); ok {
			// Cache entries are trusted as-is for their TTL window; no
			// revalidation against the adapter.
			b.log.DebugContext(ctx, "binding served from cache",
				slog.String("param", param), slog.String("model", name), slog.String("cache_key", cacheKey))
			res.Value = cached
			res.FromCache = true
			return res
		}
	}

	record, found, err := adapter.FindByKey(ctx, model, field, value, opts)
	if err != nil {
		res.Err = AdapterError{Model: name, Op: "find_by_key", Err: err}
		return res
	}

	if !found {
		if opts.Optional {
			b.log.DebugContext(ctx, "optional binding not found",
				slog.String("param", param), slog.String("model", name))
			return res
		}
		res.Err = notFoundOutcome(param, raw, name, field, opts)
		return res
	}

	// Post-fetch validation runs strictly after not-found handling and
	// before caching: a rejected record must never be cached.
	if opts.Validate != nil {
		if err := opts.Validate(ctx, record); err != nil {
			res.Err = ValidationError{Param: param, Err: err}
			return res
		}
	}

	if opts.cacheEnabled() {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = b.defaultTTL
		}
		b.cache.Set(cacheKey, record, ttl)
	}

	b.log.DebugContext(ctx, "binding resolved",
		slog.String("param", param), slog.String("model", name), slog.String("field", field))
	res.Value = record
	return res
}

// notFoundOutcome applies the override precedence for not-found
// results: custom error, then factory, then message override, then the
// default templated error. A factory returning nil falls through to the
// default.
func notFoundOutcome(param, raw, model, field string, opts Options) error {
	if opts.OnNotFound != nil {
		return opts.OnNotFound
	}
	if opts.OnNotFoundFunc != nil {
		if err := opts.OnNotFoundFunc(param, raw); err != nil {
			return err
		}
	}
	return NotFoundError{
		Param:   param,
		Value:   raw,
		Model:   model,
		Field:   field,
		Message: opts.ErrorMessage,
	}
}

// Spec declares one parameter binding for multi-model binding and for
// the middleware.
type Spec struct {
	Param   string
	Model   any
	Options Options
}

// BindModels resolves several parameters strictly in the order given,
// reading raw values through the values func. Resolution is fail-fast:
// the first hard failure aborts the remaining bindings and earlier
// successful results are retained in the returned slice. Optional
// bindings that found nothing do not abort.
func (b *Binder) BindModels(ctx context.Context, values func(param string) string, specs ...Spec) []Result {
	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		res := b.Bind(ctx, spec.Param, values(spec.Param), spec.Model, spec.Options)
		results = append(results, res)
		if !res.OK() {
			break
		}
	}
	return results
}
