// Package domain defines the core domain types and interfaces.
//
// This package contains the comment lifecycle model, aggregation value types,
// and cross-cutting interfaces (store, upstream clients, event publisher).
// No implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
package domain
