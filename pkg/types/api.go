package types

import "fmt"

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindUsage    ErrKind = iota // bad argument (empty name, negative count, ...)
	ErrKindState                   // operation not valid in the object's current state
	ErrKindNotFound                // missing group/view/buffer
	ErrKindFormat                  // malformed saved document
	ErrKindCorrupt                 // internal invariant violation / conflicting topology
)

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels commonly returned by store operations.
var (
	// ErrBadName indicates an empty name or one containing the path delimiter.
	ErrBadName = &Error{Kind: ErrKindUsage, Msg: "invalid object name"}
	// ErrNameTaken indicates a sibling group or view already uses the name.
	ErrNameTaken = &Error{Kind: ErrKindUsage, Msg: "name already in use"}
	// ErrBadArgument indicates a negative count or missing type.
	ErrBadArgument = &Error{Kind: ErrKindUsage, Msg: "invalid argument"}
	// ErrWrongState indicates the operation is not valid in the current state.
	ErrWrongState = &Error{Kind: ErrKindState, Msg: "operation not valid in current state"}
	// ErrNotDescribed indicates the view has no type description yet.
	ErrNotDescribed = &Error{Kind: ErrKindState, Msg: "view is not described"}
	// ErrSharedBuffer indicates an allocate/reallocate on a buffer with other views attached.
	ErrSharedBuffer = &Error{Kind: ErrKindState, Msg: "buffer is shared by other views"}
	// ErrBufferInUse indicates a destroy on a buffer that still has views attached.
	ErrBufferInUse = &Error{Kind: ErrKindState, Msg: "buffer still has attached views"}
	// ErrNotFound indicates a missing group/view/buffer.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrNotDocument indicates the input is not a saved data store document.
	ErrNotDocument = &Error{Kind: ErrKindFormat, Msg: "not a data store document"}
	// ErrCorrupt indicates non-recoverable inconsistency in a saved document.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt data store document"}
)

// -----------------------------------------------------------------------------
// Core Identifiers
// -----------------------------------------------------------------------------

// IndexType is the signed index type used for element counts, offsets,
// strides and buffer indices.
type IndexType = int64

// InvalidIndex is the sentinel for "no such index".
const InvalidIndex IndexType = -1

// -----------------------------------------------------------------------------
// Element Types
// -----------------------------------------------------------------------------

// TypeID enumerates the element types a buffer or view description can carry.
type TypeID uint8

const (
	NoType TypeID = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Char8
)

// ElementBytes returns the byte width of one element, or 0 for NoType.
func (t TypeID) ElementBytes() IndexType {
	switch t {
	case Int8, UInt8, Char8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether t is a signed or unsigned integer type.
func (t TypeID) IsInteger() bool {
	switch t {
	case Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t is a floating point type.
func (t TypeID) IsFloat() bool {
	return t == Float32 || t == Float64
}

// String implements the Stringer interface for TypeID. The names are also
// the persisted spelling in saved documents.
func (t TypeID) String() string {
	switch t {
	case NoType:
		return "no_type"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Char8:
		return "char8"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_%d", uint8(t))
	}
}

// ParseTypeID maps a persisted type name back to its TypeID.
func ParseTypeID(s string) (TypeID, error) {
	for t := NoType; t <= Char8; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return NoType, &Error{Kind: ErrKindFormat, Msg: "unknown element type " + s}
}

// -----------------------------------------------------------------------------
// View States
// -----------------------------------------------------------------------------

// State enumerates the mutually exclusive data states of a view.
type State uint8

const (
	StateEmpty State = iota
	StateBuffer
	StateExternal
	StateScalar
	StateString
)

// String implements the Stringer interface for State. The names are also
// the persisted spelling in saved documents.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateBuffer:
		return "BUFFER"
	case StateExternal:
		return "EXTERNAL"
	case StateScalar:
		return "SCALAR"
	case StateString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// ParseState maps a persisted state name back to its State.
func ParseState(s string) (State, error) {
	switch s {
	case "EMPTY", "UNKNOWN":
		return StateEmpty, nil
	case "BUFFER":
		return StateBuffer, nil
	case "EXTERNAL":
		return StateExternal, nil
	case "SCALAR":
		return StateScalar, nil
	case "STRING":
		return StateString, nil
	default:
		return StateEmpty, &Error{Kind: ErrKindFormat, Msg: "unknown view state " + s}
	}
}
