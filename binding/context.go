package binding

import "context"

// contextKey prevents collisions with other packages using context
// values; each attachment name gets its own key.
type contextKey struct{ name string }

// Attach stores a bound value in the context under the given name.
func Attach(ctx context.Context, name string, value any) context.Context {
	return context.WithValue(ctx, contextKey{name: name}, value)
}

// FromContext retrieves a bound value by name, asserting it to T.
// Returns false when nothing is bound under the name or the type does
// not match.
func FromContext[T any](ctx context.Context, name string) (T, bool) {
	v, ok := ctx.Value(contextKey{name: name}).(T)
	return v, ok
}

// MustFromContext panics if nothing is bound under the name. Use only
// in handlers guarded by a non-optional binding for that parameter.
func MustFromContext[T any](ctx context.Context, name string) T {
	v, ok := FromContext[T](ctx, name)
	if !ok {
		panic("modelbind: no value bound under " + name)
	}
	return v
}
