package binding

import (
	"context"
	"time"
)

// LockMode selects a row-locking strategy for the lookup. Adapters
// apply it best-effort; technologies without row locks ignore it.
type LockMode string

const (
	LockNone      LockMode = ""
	LockForUpdate LockMode = "update"
	LockForShare  LockMode = "share"
)

// Options configures a single binding. The zero value binds by the
// adapter-reported primary key, fails on missing or not-found values,
// and does not cache.
type Options struct {
	// Key is the lookup field name. Defaults to the adapter-reported
	// primary key for the model.
	Key string

	// Optional makes a missing route value or a not-found record
	// succeed with an absent bound value instead of failing.
	Optional bool

	// As overrides the attachment name. Defaults to the parameter name.
	As string

	// Where adds extra equality conditions, AND-combined with the
	// primary lookup condition. Passed through to the adapter untouched.
	Where map[string]any

	// Select restricts the fetched columns/fields.
	Select []string

	// Include requests eager relation loading where the adapter
	// supports it.
	Include []string

	// WithTrashed includes soft-deleted records; OnlyTrashed restricts
	// the lookup to soft-deleted records. Both are only meaningful when
	// the adapter reports soft-delete support for the model.
	WithTrashed bool
	OnlyTrashed bool

	// Lock requests row locking for the lookup.
	Lock LockMode

	// Query is an adapter-native escape hatch: it receives the
	// adapter's own query builder for arbitrary extension. It
	// intentionally breaks the cross-adapter abstraction and is scoped
	// to advanced use. Bindings with a Query modifier are never cached.
	Query any

	// Transform overrides the adapter's value coercion.
	Transform func(raw string) (any, error)

	// Validate runs against the fetched record after not-found handling
	// and before caching. An error fails the binding even though the
	// fetch succeeded.
	Validate func(ctx context.Context, record any) error

	// Cache enables result caching. CacheTTL overrides the binder's
	// default TTL; a positive CacheTTL alone also enables caching.
	Cache    bool
	CacheTTL time.Duration

	// OnNotFound replaces the not-found error outright. OnNotFoundFunc
	// builds one from the parameter name and raw value. ErrorMessage
	// overrides only the message of the default not-found error.
	// Precedence: OnNotFound, then OnNotFoundFunc, then ErrorMessage.
	OnNotFound     error
	OnNotFoundFunc func(param, value string) error
	ErrorMessage   string
}

func (o Options) attachName(param string) string {
	if o.As != "" {
		return o.As
	}
	return param
}

func (o Options) cacheEnabled() bool {
	// A custom Query modifier changes the result shape in ways the
	// cache key cannot capture, so it always bypasses the cache.
	return (o.Cache || o.CacheTTL > 0) && o.Query == nil
}
