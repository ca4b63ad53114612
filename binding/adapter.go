package binding

import (
	"context"
	"fmt"
	"reflect"
)

// Adapter is the capability contract implemented once per storage
// technology. Exactly one adapter is active per Binder; it is shared by
// all concurrent bindings.
//
// The model descriptor is opaque to the orchestrator and interpreted
// only by the adapter (a table descriptor, a collection descriptor, a
// plain string, whatever the technology needs).
type Adapter interface {
	// FindByKey performs the technology-specific single-record lookup.
	// It must honor Select, Where (AND-combined with the primary lookup
	// condition), Include, soft-delete visibility (WithTrashed /
	// OnlyTrashed, only meaningful when SupportsSoftDeletes reports
	// true), Lock (best-effort per technology) and the Query escape
	// hatch. Unsupported or unsafe options must fail rather than be
	// silently dropped. Returns found=false when no record matches.
	FindByKey(ctx context.Context, model any, field string, value any, opts Options) (record any, found bool, err error)

	// PrimaryKey returns the default lookup field for the model.
	PrimaryKey(model any) string

	// IsValidModel is a cheap structural check, no I/O.
	IsValidModel(model any) bool

	// TransformValue coerces a raw route-parameter string into the
	// storage technology's native key type. Ambiguous values must stay
	// strings: a wrong coercion surfaces as "not found", not as a type
	// error.
	TransformValue(model any, field, raw string) any

	// SupportsSoftDeletes reports whether the model carries a
	// soft-delete marker the adapter can filter on.
	SupportsSoftDeletes(model any) bool
}

// ModelNamer is an optional adapter capability providing a
// human-readable model name for error messages and cache keys. Without
// it the binder falls back to a reflected type name.
type ModelNamer interface {
	ModelName(model any) string
}

func modelName(a Adapter, model any) string {
	if n, ok := a.(ModelNamer); ok {
		if name := n.ModelName(model); name != "" {
			return name
		}
	}

	switch m := model.(type) {
	case string:
		return m
	case fmt.Stringer:
		return m.String()
	}

	t := reflect.TypeOf(model)
	if t == nil {
		return "model"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
