// Package store implements a hierarchical, typed, in-memory data store.
//
// A DataStore owns two things: a registry of indexed Buffers holding typed,
// contiguous memory, and a tree of named Groups rooted at Root(). Groups own
// Views, and a View is a described window onto data in exactly one of five
// states: empty, attached to a shared buffer, wrapping external caller-owned
// memory, or holding an inline scalar or string.
//
// Describing a view (type, count, offset, stride) and applying that
// description onto memory are separate steps, so several views can alias one
// buffer with different layouts. Buffers are never owned by views; the
// registry decides when they die, and indices of destroyed buffers are
// recycled oldest-first.
//
// Export and Load round-trip a store through a JSON document that preserves
// the buffer-sharing topology: views attached to the same buffer before a
// save share a buffer again after a load.
package store
