// Package types defines the shared public types of the data store: the typed
// error taxonomy, element type and view state enumerations, and the index
// conventions used across buffers, views and groups.
//
// The String spellings of TypeID and State double as the persisted names in
// saved documents; nothing else in the store is stringly typed.
package types
