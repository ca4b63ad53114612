package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/modelbind/binding"
)

var (
	ErrUnsupportedOption = errors.New("redis: unsupported option")
	ErrInvalidDocument   = errors.New("redis: stored value is not a JSON document")
)

// Keyspace describes one bindable key family: records are JSON
// documents stored under "<Prefix>:<value>".
type Keyspace struct {
	Prefix     string
	PrimaryKey string // defaults to "id"; informational, lookups always go by key
}

func (k Keyspace) primaryKey() string {
	if k.PrimaryKey == "" {
		return "id"
	}
	return k.PrimaryKey
}

// Client is the subset of go-redis the adapter needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Adapter resolves bindings against Redis. It is a pure key-value
// technology: only primary-key lookups are possible, and secondary
// conditions fail explicitly instead of being dropped.
type Adapter struct {
	client Client
}

// New creates a Redis adapter on top of an established client.
func New(client Client) *Adapter {
	return &Adapter{client: client}
}

// FindByKey fetches and decodes the JSON document stored under the
// keyspace prefix and lookup value. Where, Include, OnlyTrashed and the
// Query escape hatch are unsupported; Select is applied client-side;
// Lock and WithTrashed are no-ops (no locks, no soft deletes).
func (a *Adapter) FindByKey(ctx context.Context, model any, field string, value any, opts binding.Options) (any, bool, error) {
	k, ok := asKeyspace(model)
	if !ok {
		return nil, false, fmt.Errorf("%w: descriptor %T", ErrUnsupportedOption, model)
	}
	if field != k.primaryKey() {
		return nil, false, fmt.Errorf("%w: lookup by %q, only the primary key is addressable", ErrUnsupportedOption, field)
	}
	if len(opts.Where) > 0 {
		return nil, false, fmt.Errorf("%w: where", ErrUnsupportedOption)
	}
	if len(opts.Include) > 0 {
		return nil, false, fmt.Errorf("%w: include", ErrUnsupportedOption)
	}
	if opts.OnlyTrashed {
		return nil, false, fmt.Errorf("%w: onlyTrashed", ErrUnsupportedOption)
	}
	if opts.Query != nil {
		return nil, false, fmt.Errorf("%w: query modifier", ErrUnsupportedOption)
	}

	raw, err := a.client.Get(ctx, storageKey(k, value)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, errors.Join(ErrInvalidDocument, err)
	}

	if len(opts.Select) > 0 {
		selected := make(map[string]any, len(opts.Select))
		for _, f := range opts.Select {
			if v, ok := doc[f]; ok {
				selected[f] = v
			}
		}
		doc = selected
	}

	return doc, true, nil
}

// PrimaryKey returns the keyspace's declared primary key.
func (a *Adapter) PrimaryKey(model any) string {
	if k, ok := asKeyspace(model); ok {
		return k.primaryKey()
	}
	return "id"
}

// IsValidModel accepts Keyspace descriptors with a non-empty prefix.
func (a *Adapter) IsValidModel(model any) bool {
	k, ok := asKeyspace(model)
	return ok && k.Prefix != "" && !strings.ContainsAny(k.Prefix, " \t\n")
}

// TransformValue keeps every value a string: lookup values become part
// of the storage key verbatim.
func (a *Adapter) TransformValue(model any, field, raw string) any {
	return raw
}

// SupportsSoftDeletes always reports false.
func (a *Adapter) SupportsSoftDeletes(model any) bool { return false }

// ModelName implements binding.ModelNamer.
func (a *Adapter) ModelName(model any) string {
	if k, ok := asKeyspace(model); ok {
		return k.Prefix
	}
	return ""
}

func storageKey(k Keyspace, value any) string {
	return fmt.Sprintf("%s:%v", k.Prefix, value)
}

func asKeyspace(model any) (Keyspace, bool) {
	switch k := model.(type) {
	case Keyspace:
		return k, true
	case *Keyspace:
		if k != nil {
			return *k, true
		}
	}
	return Keyspace{}, false
}
