package binding

import (
	"errors"
	"fmt"
	"net/http"
)

// Configuration errors. These are programmer errors: they should
// surface at startup or route registration, not per request.
var (
	ErrNoAdapter  = errors.New("modelbind: no adapter configured")
	ErrNilAdapter = errors.New("modelbind: adapter must not be nil")
)

// MissingParamError reports a required route value that was absent or
// empty. Recoverable by the caller via Options.Optional.
type MissingParamError struct {
	Param string
}

func (e MissingParamError) Error() string {
	return fmt.Sprintf("missing required route parameter %q", e.Param)
}

func (e MissingParamError) StatusCode() int { return http.StatusBadRequest }
func (e MissingParamError) Kind() string    { return "missing_parameter" }

// InvalidModelError reports a model descriptor that failed the active
// adapter's structural check.
type InvalidModelError struct {
	Model string
}

func (e InvalidModelError) Error() string {
	return fmt.Sprintf("invalid model descriptor %q for the active adapter", e.Model)
}

func (e InvalidModelError) StatusCode() int { return http.StatusBadRequest }
func (e InvalidModelError) Kind() string    { return "invalid_model" }

// NotFoundError reports a lookup that matched no record. It carries the
// offending parameter, its raw value and the resolved model name so the
// HTTP boundary can build a structured payload.
type NotFoundError struct {
	Param   string
	Value   string
	Model   string
	Field   string
	Message string
}

func (e NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found with %s = %s", e.Model, e.Field, e.Value)
}

func (e NotFoundError) StatusCode() int { return http.StatusNotFound }
func (e NotFoundError) Kind() string    { return "not_found" }

// ValidationError wraps a failure from a caller-supplied Validate
// callback. It takes precedence over an otherwise-successful fetch.
type ValidationError struct {
	Param string
	Err   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter %q: %v", e.Param, e.Err)
}

func (e ValidationError) Unwrap() error   { return e.Err }
func (e ValidationError) StatusCode() int { return http.StatusUnprocessableEntity }
func (e ValidationError) Kind() string    { return "validation_failed" }

// AdapterError wraps a failure during the adapter's native I/O with the
// model and operation that were being attempted. The cause is preserved
// for errors.Is/As.
type AdapterError struct {
	Model string
	Op    string
	Err   error
}

func (e AdapterError) Error() string {
	return fmt.Sprintf("adapter %s on %s: %v", e.Op, e.Model, e.Err)
}

func (e AdapterError) Unwrap() error   { return e.Err }
func (e AdapterError) StatusCode() int { return http.StatusInternalServerError }
func (e AdapterError) Kind() string    { return "adapter_error" }

// StatusCode maps any binding error to an HTTP status. Errors without a
// declared status default to 500.
func StatusCode(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// ErrorKind returns the stable machine-readable kind of a binding
// error, or "internal_error" for errors without one.
func ErrorKind(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "internal_error"
}
