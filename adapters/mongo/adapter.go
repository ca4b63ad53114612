package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/modelbind/binding"
)

var (
	ErrUnsafeField       = errors.New("mongo: unsafe field name")
	ErrUnsupportedOption = errors.New("mongo: unsupported option")
	ErrInvalidQueryFunc  = errors.New("mongo: query modifier must be func(bson.M)")
)

// Collection describes one bindable collection.
type Collection struct {
	Name            string
	PrimaryKey      string // defaults to "_id"
	SoftDeleteField string // empty = hard deletes only
}

func (c Collection) primaryKey() string {
	if c.PrimaryKey == "" {
		return "_id"
	}
	return c.PrimaryKey
}

// Adapter resolves bindings against MongoDB. Records are returned as
// bson.M documents.
type Adapter struct {
	db *mongo.Database
}

// New creates a Mongo adapter on top of an established database handle.
func New(db *mongo.Database) *Adapter {
	return &Adapter{db: db}
}

// FindByKey runs a FindOne with the merged filter, honoring Select via
// projection, soft-delete visibility and the Query escape hatch
// (func(bson.M) mutating the filter). Include is rejected: FindOne
// cannot express relation loading. Lock is ignored; MongoDB has no row
// locks, and the contract makes locking best-effort.
func (a *Adapter) FindByKey(ctx context.Context, model any, field string, value any, opts binding.Options) (any, bool, error) {
	c, ok := asCollection(model)
	if !ok {
		return nil, false, fmt.Errorf("%w: descriptor %T", ErrUnsupportedOption, model)
	}

	filter, findOpts, err := buildQuery(c, field, value, opts)
	if err != nil {
		return nil, false, err
	}

	var doc bson.M
	err = a.db.Collection(c.Name).FindOne(ctx, filter, findOpts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}

// buildQuery assembles the FindOne filter and options. Split out so
// filter generation is testable without a running server.
func buildQuery(c Collection, field string, value any, opts binding.Options) (bson.M, options.Lister[options.FindOneOptions], error) {
	if len(opts.Include) > 0 {
		return nil, nil, fmt.Errorf("%w: include", ErrUnsupportedOption)
	}
	if err := checkField(field); err != nil {
		return nil, nil, err
	}

	filter := bson.M{field: value}
	for k, v := range opts.Where {
		if err := checkField(k); err != nil {
			return nil, nil, err
		}
		filter[k] = v
	}

	if c.SoftDeleteField != "" {
		if err := checkField(c.SoftDeleteField); err != nil {
			return nil, nil, err
		}
		switch {
		case opts.OnlyTrashed:
			filter[c.SoftDeleteField] = bson.M{"$ne": nil}
		case !opts.WithTrashed:
			// Matches both missing and explicit-null markers.
			filter[c.SoftDeleteField] = nil
		}
	}

	if opts.Query != nil {
		fn, ok := opts.Query.(func(bson.M))
		if !ok {
			return nil, nil, ErrInvalidQueryFunc
		}
		fn(filter)
	}

	findOpts := options.FindOne()
	if len(opts.Select) > 0 {
		projection := bson.M{}
		for _, f := range opts.Select {
			if err := checkField(f); err != nil {
				return nil, nil, err
			}
			projection[f] = 1
		}
		findOpts.SetProjection(projection)
	}

	return filter, findOpts, nil
}

// PrimaryKey returns the collection's configured primary key.
func (a *Adapter) PrimaryKey(model any) string {
	if c, ok := asCollection(model); ok {
		return c.primaryKey()
	}
	return "_id"
}

// IsValidModel accepts Collection descriptors with a non-empty name.
func (a *Adapter) IsValidModel(model any) bool {
	c, ok := asCollection(model)
	return ok && c.Name != "" && !strings.ContainsAny(c.Name, "$\x00")
}

// TransformValue coerces route values to native key types: ObjectId hex
// strings become bson.ObjectID (for any field, _id references appear in
// relations too), integer-like strings become int64, UUIDs and
// everything ambiguous stay strings.
func (a *Adapter) TransformValue(model any, field, raw string) any {
	if binding.IsObjectIDHex(raw) {
		if oid, err := bson.ObjectIDFromHex(raw); err == nil {
			return oid
		}
	}
	if binding.IsUUID(raw) {
		return raw
	}
	if binding.IsIntString(raw) {
		return binding.DefaultTransform(raw)
	}
	return raw
}

// SupportsSoftDeletes reports whether the collection declares a
// soft-delete field.
func (a *Adapter) SupportsSoftDeletes(model any) bool {
	c, ok := asCollection(model)
	return ok && c.SoftDeleteField != ""
}

// ModelName implements binding.ModelNamer.
func (a *Adapter) ModelName(model any) string {
	if c, ok := asCollection(model); ok {
		return c.Name
	}
	return ""
}

func asCollection(model any) (Collection, bool) {
	switch c := model.(type) {
	case Collection:
		return c, true
	case *Collection:
		if c != nil {
			return *c, true
		}
	}
	return Collection{}, false
}

// checkField rejects operator injection through dynamic field names:
// no leading '$', no dotted paths, no NUL bytes.
func checkField(name string) error {
	if name == "" || strings.HasPrefix(name, "$") || strings.ContainsAny(name, ".\x00") {
		return fmt.Errorf("%w: %q", ErrUnsafeField, name)
	}
	return nil
}
