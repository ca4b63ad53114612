package binding

import "time"

// Result is the immutable outcome of one binding request. Exactly one
// of Value and Err is meaningful; an optional binding that found
// nothing succeeds with a nil Value.
type Result struct {
	// Name is the attachment name (Options.As or the parameter name).
	Name string

	// Value is the resolved record. Nil when the binding failed or when
	// an optional binding found nothing.
	Value any

	// Err is the failure, if any. Domain failures (not-found, invalid
	// model, validation) land here rather than escaping Bind.
	Err error

	// Duration is the elapsed wall time of the resolution.
	Duration time.Duration

	// FromCache marks a result served from the binder's cache without
	// contacting the adapter.
	FromCache bool
}

// OK reports whether the binding succeeded.
func (r Result) OK() bool { return r.Err == nil }
