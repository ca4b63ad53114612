// Package postgres implements the binding.Adapter contract on top of
// PostgreSQL via pgx. Models are described by Table descriptors; lookups
// generate a single parameterized SELECT with identifier-safety checks
// on every dynamic name, soft-delete filters on the declared column,
// and best-effort row locking (FOR UPDATE / FOR SHARE).
package postgres
