// Package binding resolves HTTP route parameters into persisted
// records through pluggable storage adapters and attaches the results
// to the request context before the handler runs.
//
// The central type is Binder: it owns the active Adapter reference and
// a bounded FIFO+TTL result cache, and exposes Bind, the single
// resolution operation used by the middleware. Expected domain failures
// (missing parameter, invalid model, not-found, validation) never
// escape Bind; they are encoded in the returned Result and translated
// to HTTP responses by the middleware's error handler.
//
// Typical setup with chi:
//
//	store := memory.New()
//	store.Seed("users", memory.Record{"id": int64(1), "name": "John"})
//
//	b := binding.New(binding.WithAdapter(store))
//
//	r := chi.NewRouter()
//	r.With(binding.Middleware(b,
//		binding.Spec{Param: "user", Model: "users"},
//	)).Get("/users/{user}", func(w http.ResponseWriter, r *http.Request) {
//		user := binding.MustFromContext[memory.Record](r.Context(), "user")
//		...
//	})
//
// Adding a new storage technology means implementing the Adapter
// contract; see the adapters subdirectories for the reference Postgres,
// Mongo, Redis and in-memory implementations.
package binding
