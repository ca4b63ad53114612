// Package mongo implements the binding.Adapter contract on top of
// MongoDB. Models are described by Collection descriptors; lookups run
// a FindOne with AND-merged equality filters, projection from Select,
// soft-delete visibility on the declared field, and operator-injection
// checks on every dynamic field name.
package mongo
