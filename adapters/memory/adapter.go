// Package memory provides an in-process, map-backed storage adapter.
// It supports the full binding option surface except Include and is the
// reference adapter used throughout the core tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrymomot/modelbind/binding"
)

// Record is a single stored row.
type Record = map[string]any

var (
	ErrUnknownModel      = errors.New("memory: unknown model")
	ErrUnsupportedOption = errors.New("memory: unsupported option")
	ErrInvalidQueryFunc  = errors.New("memory: query modifier must be func([]Record) []Record")
)

type modelData struct {
	primaryKey      string
	softDeleteField string
	records         []Record
}

// Store is an in-memory adapter. Models are identified by plain string
// names; records are seeded explicitly. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	models map[string]*modelData
}

// New creates an empty store.
func New() *Store {
	return &Store{models: make(map[string]*modelData)}
}

// ModelOption customizes a seeded model.
type ModelOption func(*modelData)

// WithPrimaryKey overrides the default "id" primary key.
func WithPrimaryKey(field string) ModelOption {
	return func(m *modelData) { m.primaryKey = field }
}

// WithSoftDeleteField marks the model as soft-deletable: records whose
// named field is non-nil count as deleted.
func WithSoftDeleteField(field string) ModelOption {
	return func(m *modelData) { m.softDeleteField = field }
}

// Seed registers a model (if needed) and appends records to it.
func (s *Store) Seed(model string, records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.ensureModel(model)
	m.records = append(m.records, records...)
}

// Register declares a model without records, applying options.
func (s *Store) Register(model string, opts ...ModelOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.ensureModel(model)
	for _, opt := range opts {
		opt(m)
	}
}

// Truncate drops all records of a model, keeping its registration.
func (s *Store) Truncate(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.models[model]; ok {
		m.records = nil
	}
}

// Must be called with lock held.
func (s *Store) ensureModel(model string) *modelData {
	m, ok := s.models[model]
	if !ok {
		m = &modelData{primaryKey: "id"}
		s.models[model] = m
	}
	return m
}

// FindByKey scans the model's records for the first one whose field
// matches the value, honoring Where, Select, soft-delete visibility and
// the Query escape hatch (func([]Record) []Record). Include is not
// supported and fails explicitly.
func (s *Store) FindByKey(ctx context.Context, model any, field string, value any, opts binding.Options) (any, bool, error) {
	name, ok := model.(string)
	if !ok {
		return nil, false, fmt.Errorf("%w: descriptor %T", ErrUnknownModel, model)
	}
	if len(opts.Include) > 0 {
		return nil, false, fmt.Errorf("%w: include", ErrUnsupportedOption)
	}

	s.mu.RLock()
	m, ok := s.models[name]
	if !ok {
		s.mu.RUnlock()
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	candidates := make([]Record, len(m.records))
	copy(candidates, m.records)
	softDelete := m.softDeleteField
	s.mu.RUnlock()

	if opts.Query != nil {
		fn, ok := opts.Query.(func([]Record) []Record)
		if !ok {
			return nil, false, ErrInvalidQueryFunc
		}
		candidates = fn(candidates)
	}

	for _, rec := range candidates {
		if !looseEquals(rec[field], value) {
			continue
		}
		if !matchesWhere(rec, opts.Where) {
			continue
		}
		if softDelete != "" && !visibleUnderSoftDelete(rec, softDelete, opts) {
			continue
		}
		return project(rec, opts.Select), true, nil
	}
	return nil, false, nil
}

// PrimaryKey returns the model's configured primary key, defaulting to
// "id" for unregistered models.
func (s *Store) PrimaryKey(model any) string {
	name, ok := model.(string)
	if !ok {
		return "id"
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.models[name]; ok {
		return m.primaryKey
	}
	return "id"
}

// IsValidModel accepts registered string model names.
func (s *Store) IsValidModel(model any) bool {
	name, ok := model.(string)
	if !ok || name == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok = s.models[name]
	return ok
}

// TransformValue applies the default coercion: int-like strings become
// int64, UUID/ObjectId shapes and everything else stay strings.
func (s *Store) TransformValue(model any, field, raw string) any {
	return binding.DefaultTransform(raw)
}

// SupportsSoftDeletes reports whether the model was registered with a
// soft-delete field.
func (s *Store) SupportsSoftDeletes(model any) bool {
	name, ok := model.(string)
	if !ok {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.models[name]; ok {
		return m.softDeleteField != ""
	}
	return false
}

// ModelName implements binding.ModelNamer.
func (s *Store) ModelName(model any) string {
	if name, ok := model.(string); ok {
		return name
	}
	return ""
}

// looseEquals compares stored and lookup values across numeric widths:
// seeded int values must match transformed int64 lookups.
func looseEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func matchesWhere(rec Record, where map[string]any) bool {
	for k, v := range where {
		if !looseEquals(rec[k], v) {
			return false
		}
	}
	return true
}

func visibleUnderSoftDelete(rec Record, field string, opts binding.Options) bool {
	deleted := rec[field] != nil
	switch {
	case opts.OnlyTrashed:
		return deleted
	case opts.WithTrashed:
		return true
	default:
		return !deleted
	}
}

func project(rec Record, fields []string) Record {
	if len(fields) == 0 {
		out := make(Record, len(rec))
		for k, v := range rec {
			out[k] = v
		}
		return out
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}
