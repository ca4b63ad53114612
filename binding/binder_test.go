package binding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/modelbind/adapters/memory"
	"github.com/dmitrymomot/modelbind/binding"
)

// mockAdapter is an internal mock implementation of the Adapter interface
type mockAdapter struct {
	mock.Mock
}

func (m *mockAdapter) FindByKey(ctx context.Context, model any, field string, value any, opts binding.Options) (any, bool, error) {
	args := m.Called(ctx, model, field, value, opts)
	return args.Get(0), args.Bool(1), args.Error(2)
}

func (m *mockAdapter) PrimaryKey(model any) string {
	return m.Called(model).String(0)
}

func (m *mockAdapter) IsValidModel(model any) bool {
	return m.Called(model).Bool(0)
}

func (m *mockAdapter) TransformValue(model any, field, raw string) any {
	return m.Called(model, field, raw).Get(0)
}

func (m *mockAdapter) SupportsSoftDeletes(model any) bool {
	return m.Called(model).Bool(0)
}

func newUserStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	store.Seed("users",
		memory.Record{"id": 1, "name": "John", "active": true},
		memory.Record{"id": 2, "name": "Jane", "active": false},
	)
	return store
}

func TestBinder_AdapterLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("no adapter configured", func(t *testing.T) {
		t.Parallel()

		b := binding.New()
		_, err := b.Adapter()
		assert.ErrorIs(t, err, binding.ErrNoAdapter)

		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{})
		require.False(t, res.OK())
		assert.ErrorIs(t, res.Err, binding.ErrNoAdapter)
	})

	t.Run("set adapter rejects nil", func(t *testing.T) {
		t.Parallel()

		b := binding.New()
		assert.ErrorIs(t, b.SetAdapter(nil), binding.ErrNilAdapter)
	})

	t.Run("adapter is returned repeatedly without side effects", func(t *testing.T) {
		t.Parallel()

		store := newUserStore(t)
		b := binding.New(binding.WithAdapter(store))

		for i := 0; i < 3; i++ {
			a, err := b.Adapter()
			require.NoError(t, err)
			assert.Same(t, store, a.(*memory.Store))
		}
	})

	t.Run("clear adapter is idempotent", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		b.ClearAdapter()
		b.ClearAdapter()

		_, err := b.Adapter()
		assert.ErrorIs(t, err, binding.ErrNoAdapter)
	})

	t.Run("with adapter panics on nil", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { binding.New(binding.WithAdapter(nil)) })
	})
}

func TestBinder_Bind(t *testing.T) {
	t.Parallel()

	t.Run("resolves record by primary key", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{})

		require.True(t, res.OK())
		assert.False(t, res.FromCache)
		assert.Equal(t, "user", res.Name)
		assert.GreaterOrEqual(t, res.Duration, time.Duration(0))

		record, ok := res.Value.(memory.Record)
		require.True(t, ok)
		assert.Equal(t, "John", record["name"])
	})

	t.Run("missing value fails unless optional", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))

		for _, raw := range []string{"", "   "} {
			res := b.Bind(context.Background(), "user", raw, "users", binding.Options{})
			require.False(t, res.OK())
			var missing binding.MissingParamError
			require.ErrorAs(t, res.Err, &missing)
			assert.Equal(t, "user", missing.Param)

			res = b.Bind(context.Background(), "user", raw, "users", binding.Options{Optional: true})
			require.True(t, res.OK())
			assert.Nil(t, res.Value)
		}
	})

	t.Run("invalid model fails before any lookup", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "1", "no_such_model", binding.Options{})

		require.False(t, res.OK())
		var invalid binding.InvalidModelError
		assert.ErrorAs(t, res.Err, &invalid)
	})

	t.Run("not found carries param, value and model", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "999", "users", binding.Options{})

		require.False(t, res.OK())
		var nf binding.NotFoundError
		require.ErrorAs(t, res.Err, &nf)
		assert.Equal(t, "user", nf.Param)
		assert.Equal(t, "999", nf.Value)
		assert.Equal(t, "users", nf.Model)
		assert.Equal(t, "users not found with id = 999", nf.Error())
	})

	t.Run("not found with optional succeeds with absent value", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "999", "users", binding.Options{Optional: true})

		require.True(t, res.OK())
		assert.Nil(t, res.Value)
	})

	t.Run("custom key lookup", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "Jane", "users", binding.Options{Key: "name"})

		require.True(t, res.OK())
		record := res.Value.(memory.Record)
		assert.Equal(t, 2, record["id"])
	})

	t.Run("where narrows the match", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "2", "users", binding.Options{
			Where: map[string]any{"active": true},
		})

		require.False(t, res.OK())
		var nf binding.NotFoundError
		assert.ErrorAs(t, res.Err, &nf)
	})

	t.Run("select restricts returned fields", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{
			Select: []string{"name"},
		})

		require.True(t, res.OK())
		record := res.Value.(memory.Record)
		assert.Equal(t, memory.Record{"name": "John"}, record)
	})

	t.Run("caller transform overrides adapter coercion", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "user-1", "users", binding.Options{
			Transform: func(raw string) (any, error) {
				return 1, nil
			},
		})

		require.True(t, res.OK())
		assert.Equal(t, "John", res.Value.(memory.Record)["name"])
	})

	t.Run("transform error fails the binding", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		boom := errors.New("bad value")
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{
			Transform: func(raw string) (any, error) { return nil, boom },
		})

		require.False(t, res.OK())
		assert.ErrorIs(t, res.Err, boom)
	})

	t.Run("as overrides attachment name", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{As: "author"})

		require.True(t, res.OK())
		assert.Equal(t, "author", res.Name)
	})

	t.Run("idempotent without caching", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		first := b.Bind(context.Background(), "user", "1", "users", binding.Options{})
		second := b.Bind(context.Background(), "user", "1", "users", binding.Options{})

		require.True(t, first.OK())
		require.True(t, second.OK())
		assert.Equal(t, first.Value, second.Value)
		assert.False(t, second.FromCache)
	})
}

func TestBinder_Validate(t *testing.T) {
	t.Parallel()

	t.Run("validation failure overrides a successful fetch", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		forbidden := errors.New("Forbidden")
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{
			Validate: func(ctx context.Context, record any) error { return forbidden },
		})

		require.False(t, res.OK())
		var verr binding.ValidationError
		require.ErrorAs(t, res.Err, &verr)
		assert.ErrorIs(t, res.Err, forbidden)
		assert.Nil(t, res.Value)
	})

	t.Run("validation sees the fetched record", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		var seen any
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{
			Validate: func(ctx context.Context, record any) error {
				seen = record
				return nil
			},
		})

		require.True(t, res.OK())
		assert.Equal(t, res.Value, seen)
	})

	t.Run("panicking validate is recovered into the result", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{
			Validate: func(ctx context.Context, record any) error { panic("boom") },
		})

		require.False(t, res.OK())
		assert.Contains(t, res.Err.Error(), "panic")
	})

	t.Run("rejected record is not cached", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newUserStore(t)))
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{
			Cache:    true,
			Validate: func(ctx context.Context, record any) error { return errors.New("nope") },
		})

		require.False(t, res.OK())
		assert.Equal(t, 0, b.CacheStats().Size)
	})
}

func TestBinder_NotFoundOverrides(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.Register("users")

	t.Run("custom error object wins over everything", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(store))
		custom := errors.New("gone for good")
		res := b.Bind(context.Background(), "user", "7", "users", binding.Options{
			OnNotFound:     custom,
			OnNotFoundFunc: func(param, value string) error { return errors.New("factory") },
			ErrorMessage:   "message override",
		})

		require.False(t, res.OK())
		assert.ErrorIs(t, res.Err, custom)
		assert.EqualError(t, res.Err, "gone for good")
	})

	t.Run("factory wins over message override", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(store))
		res := b.Bind(context.Background(), "user", "7", "users", binding.Options{
			OnNotFoundFunc: func(param, value string) error {
				return errors.New("no " + param + " with value " + value)
			},
			ErrorMessage: "message override",
		})

		require.False(t, res.OK())
		assert.EqualError(t, res.Err, "no user with value 7")
	})

	t.Run("nil factory result falls back to default", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(store))
		res := b.Bind(context.Background(), "user", "7", "users", binding.Options{
			OnNotFoundFunc: func(param, value string) error { return nil },
		})

		require.False(t, res.OK())
		var nf binding.NotFoundError
		assert.ErrorAs(t, res.Err, &nf)
	})

	t.Run("message override keeps the not-found kind", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(store))
		res := b.Bind(context.Background(), "user", "7", "users", binding.Options{
			ErrorMessage: "nobody here",
		})

		require.False(t, res.OK())
		var nf binding.NotFoundError
		require.ErrorAs(t, res.Err, &nf)
		assert.EqualError(t, nf, "nobody here")
		assert.Equal(t, "7", nf.Value)
	})
}

func TestBinder_Caching(t *testing.T) {
	t.Parallel()

	t.Run("cached result survives source mutation", func(t *testing.T) {
		t.Parallel()

		store := newUserStore(t)
		b := binding.New(binding.WithAdapter(store))

		first := b.Bind(context.Background(), "user", "1", "users", binding.Options{})
		require.True(t, first.OK())
		assert.False(t, first.FromCache)

		second := b.Bind(context.Background(), "user", "1", "users", binding.Options{Cache: true})
		require.True(t, second.OK())
		assert.False(t, second.FromCache, "first cached call populates, does not hit")

		// Mutating the source must not affect the cached window.
		store.Truncate("users")

		third := b.Bind(context.Background(), "user", "1", "users", binding.Options{Cache: true})
		require.True(t, third.OK())
		assert.True(t, third.FromCache)
		assert.Equal(t, second.Value, third.Value)
	})

	t.Run("different option shapes use different cache entries", func(t *testing.T) {
		t.Parallel()

		store := newUserStore(t)
		b := binding.New(binding.WithAdapter(store))

		full := b.Bind(context.Background(), "user", "1", "users", binding.Options{Cache: true})
		named := b.Bind(context.Background(), "user", "1", "users", binding.Options{
			Cache:  true,
			Select: []string{"name"},
		})

		require.True(t, full.OK())
		require.True(t, named.OK())
		assert.False(t, named.FromCache, "select shape must not collide with the full record")
		assert.NotEqual(t, full.Value, named.Value)
	})

	t.Run("positive cache ttl alone enables caching", func(t *testing.T) {
		t.Parallel()

		store := newUserStore(t)
		b := binding.New(binding.WithAdapter(store))

		first := b.Bind(context.Background(), "user", "1", "users", binding.Options{CacheTTL: time.Minute})
		second := b.Bind(context.Background(), "user", "1", "users", binding.Options{CacheTTL: time.Minute})

		require.True(t, first.OK())
		require.True(t, second.OK())
		assert.True(t, second.FromCache)
	})

	t.Run("query modifier bypasses the cache", func(t *testing.T) {
		t.Parallel()

		store := newUserStore(t)
		b := binding.New(binding.WithAdapter(store))

		passthrough := func(records []memory.Record) []memory.Record { return records }
		for i := 0; i < 2; i++ {
			res := b.Bind(context.Background(), "user", "1", "users", binding.Options{
				Cache: true,
				Query: passthrough,
			})
			require.True(t, res.OK())
			assert.False(t, res.FromCache)
		}
		assert.Equal(t, 0, b.CacheStats().Size)
	})

	t.Run("clear cache forces a fresh fetch", func(t *testing.T) {
		t.Parallel()

		store := newUserStore(t)
		b := binding.New(binding.WithAdapter(store))

		require.True(t, b.Bind(context.Background(), "user", "1", "users", binding.Options{Cache: true}).OK())
		assert.Equal(t, 1, b.CacheStats().Size)

		b.ClearCache()
		assert.Equal(t, 0, b.CacheStats().Size)

		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{Cache: true})
		require.True(t, res.OK())
		assert.False(t, res.FromCache)
	})
}

func TestBinder_AdapterErrors(t *testing.T) {
	t.Parallel()

	t.Run("adapter failure is wrapped with model and operation", func(t *testing.T) {
		t.Parallel()

		adapter := new(mockAdapter)
		cause := errors.New("connection reset")
		adapter.On("IsValidModel", "users").Return(true)
		adapter.On("PrimaryKey", "users").Return("id")
		adapter.On("TransformValue", "users", "id", "1").Return(int64(1))
		adapter.On("FindByKey", mock.Anything, "users", "id", int64(1), mock.Anything).
			Return(nil, false, cause)

		b := binding.New(binding.WithAdapter(adapter))
		res := b.Bind(context.Background(), "user", "1", "users", binding.Options{})

		require.False(t, res.OK())
		var aerr binding.AdapterError
		require.ErrorAs(t, res.Err, &aerr)
		assert.Equal(t, "users", aerr.Model)
		assert.Equal(t, "find_by_key", aerr.Op)
		assert.ErrorIs(t, res.Err, cause)
		adapter.AssertExpectations(t)
	})

	t.Run("adapter transform result is used as lookup value", func(t *testing.T) {
		t.Parallel()

		adapter := new(mockAdapter)
		adapter.On("IsValidModel", "users").Return(true)
		adapter.On("PrimaryKey", "users").Return("id")
		adapter.On("TransformValue", "users", "id", "42").Return(int64(42))
		adapter.On("FindByKey", mock.Anything, "users", "id", int64(42), mock.Anything).
			Return(map[string]any{"id": int64(42)}, true, nil)

		b := binding.New(binding.WithAdapter(adapter))
		res := b.Bind(context.Background(), "user", "42", "users", binding.Options{})

		require.True(t, res.OK())
		adapter.AssertExpectations(t)
	})
}

func TestBinder_BindModels(t *testing.T) {
	t.Parallel()

	newStore := func(t *testing.T) *memory.Store {
		t.Helper()
		store := memory.New()
		store.Seed("users", memory.Record{"id": 1, "name": "John"})
		store.Register("posts")
		return store
	}

	values := func(vals map[string]string) func(string) string {
		return func(param string) string { return vals[param] }
	}

	t.Run("required resolves and optional missing stays absent", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newStore(t)))
		results := b.BindModels(context.Background(),
			values(map[string]string{"user": "1", "post": "9"}),
			binding.Spec{Param: "user", Model: "users"},
			binding.Spec{Param: "post", Model: "posts", Options: binding.Options{Optional: true}},
		)

		require.Len(t, results, 2)
		assert.True(t, results[0].OK())
		assert.NotNil(t, results[0].Value)
		assert.True(t, results[1].OK())
		assert.Nil(t, results[1].Value)
	})

	t.Run("first hard failure aborts remaining bindings", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newStore(t)))
		results := b.BindModels(context.Background(),
			values(map[string]string{"user": "999", "post": "9"}),
			binding.Spec{Param: "user", Model: "users"},
			binding.Spec{Param: "post", Model: "posts", Options: binding.Options{Optional: true}},
		)

		require.Len(t, results, 1, "fail-fast: post is never attempted")
		assert.False(t, results[0].OK())
	})

	t.Run("earlier successes are retained on later failure", func(t *testing.T) {
		t.Parallel()

		b := binding.New(binding.WithAdapter(newStore(t)))
		results := b.BindModels(context.Background(),
			values(map[string]string{"user": "1", "post": "9"}),
			binding.Spec{Param: "user", Model: "users"},
			binding.Spec{Param: "post", Model: "posts"},
		)

		require.Len(t, results, 2)
		assert.True(t, results[0].OK())
		assert.NotNil(t, results[0].Value)
		assert.False(t, results[1].OK())
	})

	t.Run("resolution order is the spec order", func(t *testing.T) {
		t.Parallel()

		var order []string
		b := binding.New(binding.WithAdapter(newStore(t)))
		validate := func(name string) func(context.Context, any) error {
			return func(context.Context, any) error {
				order = append(order, name)
				return nil
			}
		}

		b.BindModels(context.Background(),
			values(map[string]string{"first": "1", "second": "1"}),
			binding.Spec{Param: "first", Model: "users", Options: binding.Options{Validate: validate("first")}},
			binding.Spec{Param: "second", Model: "users", Options: binding.Options{Validate: validate("second")}},
		)

		assert.Equal(t, []string{"first", "second"}, order)
	})
}
