package document

import "encoding/base64"

// Kind discriminates the value held by a Node.
type Kind uint8

const (
	KindObject Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindIntVector
	KindBytes
)

// Node is one node of a structured document: either an object holding named
// children in insertion order, or a typed leaf. Raw byte payloads travel as
// KindBytes and serialize as base64 strings.
type Node struct {
	kind     Kind
	str      string
	i64      int64
	f64      float64
	boolean  bool
	vec      []int64
	raw      []byte
	children map[string]*Node
	order    []string
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{kind: KindObject, children: map[string]*Node{}}
}

// String returns a string leaf.
func String(s string) *Node { return &Node{kind: KindString, str: s} }

// Int returns an integer leaf.
func Int(x int64) *Node { return &Node{kind: KindInt, i64: x} }

// Float returns a floating point leaf.
func Float(x float64) *Node { return &Node{kind: KindFloat, f64: x} }

// Bool returns a boolean leaf.
func Bool(b bool) *Node { return &Node{kind: KindBool, boolean: b} }

// IntVector returns an integer vector leaf (shape descriptions and the like).
func IntVector(v []int64) *Node {
	cp := make([]int64, len(v))
	copy(cp, v)
	return &Node{kind: KindIntVector, vec: cp}
}

// Bytes returns a raw payload leaf. The slice is not copied.
func Bytes(b []byte) *Node { return &Node{kind: KindBytes, raw: b} }

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// Set adds or replaces the child under key. Insertion order is preserved for
// iteration so that re-encoding a document is deterministic.
func (n *Node) Set(key string, child *Node) {
	if n.kind != KindObject {
		return
	}
	if _, exists := n.children[key]; !exists {
		n.order = append(n.order, key)
	}
	n.children[key] = child
}

// Child returns the child under key, if any.
func (n *Node) Child(key string) (*Node, bool) {
	if n.kind != KindObject {
		return nil, false
	}
	c, ok := n.children[key]
	return c, ok
}

// Has reports whether an object node has a child under key.
func (n *Node) Has(key string) bool {
	_, ok := n.Child(key)
	return ok
}

// Keys returns the child keys of an object node in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.order))
	copy(keys, n.order)
	return keys
}

// Len returns the number of children of an object node.
func (n *Node) Len() int { return len(n.children) }

// Str returns the string value, or "" for other kinds.
func (n *Node) Str() string {
	if n.kind != KindString {
		return ""
	}
	return n.str
}

// Int returns the integer value. Float leaves truncate; other kinds yield 0.
func (n *Node) Int() int64 {
	switch n.kind {
	case KindInt:
		return n.i64
	case KindFloat:
		return int64(n.f64)
	default:
		return 0
	}
}

// Float returns the floating point value. Int leaves convert; other kinds
// yield 0.
func (n *Node) Float() float64 {
	switch n.kind {
	case KindFloat:
		return n.f64
	case KindInt:
		return float64(n.i64)
	default:
		return 0
	}
}

// Bool returns the boolean value, or false for other kinds. Integer leaves
// follow the usual nonzero convention so flags survive numeric encodings.
func (n *Node) Bool() bool {
	switch n.kind {
	case KindBool:
		return n.boolean
	case KindInt:
		return n.i64 != 0
	default:
		return false
	}
}

// IntVector returns the integer vector value, or nil for other kinds.
func (n *Node) IntVector() []int64 {
	if n.kind != KindIntVector {
		return nil
	}
	cp := make([]int64, len(n.vec))
	copy(cp, n.vec)
	return cp
}

// Bytes returns the raw payload. String leaves are decoded as base64, which
// is how payloads come back from a parsed document.
func (n *Node) Bytes() ([]byte, error) {
	switch n.kind {
	case KindBytes:
		return n.raw, nil
	case KindString:
		return base64.StdEncoding.DecodeString(n.str)
	default:
		return nil, errNotBytes
	}
}
