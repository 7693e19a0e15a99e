// Package document implements the generic tree-structured document the store
// persists itself into: object nodes holding named children in insertion
// order, plus typed leaves for strings, integers, floats, booleans, integer
// vectors and raw byte payloads.
//
// The wire form is plain JSON. Byte payloads are carried as base64 strings
// and integer vectors as JSON arrays; consumers ask for the type they expect
// and skip keys they do not recognize, which keeps old readers working
// against newer documents.
package document
