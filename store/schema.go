package store

import (
	"encoding/binary"
	"math"

	"github.com/storekit/storekit/pkg/types"
)

// Schema describes typed, strided array data: the element type, the element
// count, and the byte offset and byte stride into the underlying memory.
// Offsets and strides cross the public API in elements; they are stored and
// persisted in bytes.
type Schema struct {
	Type        types.TypeID
	NumElems    types.IndexType
	OffsetBytes types.IndexType
	StrideBytes types.IndexType
}

// DefaultSchema returns the contiguous description for n elements of t.
func DefaultSchema(t types.TypeID, n types.IndexType) Schema {
	return Schema{Type: t, NumElems: n, StrideBytes: t.ElementBytes()}
}

// IsEmpty reports whether the schema describes nothing.
func (s Schema) IsEmpty() bool { return s.Type == types.NoType }

// TotalBytes returns the byte extent the description spans, including the
// leading offset. This is the figure that must fit inside an attached
// buffer's allocation.
func (s Schema) TotalBytes() types.IndexType {
	if s.IsEmpty() || s.NumElems <= 0 {
		return 0
	}
	return s.OffsetBytes + s.StrideBytes*(s.NumElems-1) + s.Type.ElementBytes()
}

// elementPos returns the byte position of element i.
func (s Schema) elementPos(i types.IndexType) types.IndexType {
	return s.OffsetBytes + i*s.StrideBytes
}

// -----------------------------------------------------------------------------
// Element codec
// -----------------------------------------------------------------------------
//
// Elements are stored little-endian. Integer values travel through the API
// as int64, floats as float64; the codec narrows on write and widens on read.

func readIntElement(b []byte, t types.TypeID) int64 {
	switch t {
	case types.Int8:
		return int64(int8(b[0]))
	case types.UInt8, types.Char8:
		return int64(b[0])
	case types.Int16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case types.UInt16:
		return int64(binary.LittleEndian.Uint16(b))
	case types.Int32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case types.UInt32:
		return int64(binary.LittleEndian.Uint32(b))
	case types.Int64, types.UInt64:
		return int64(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func writeIntElement(b []byte, t types.TypeID, x int64) {
	switch t {
	case types.Int8, types.UInt8, types.Char8:
		b[0] = byte(x)
	case types.Int16, types.UInt16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case types.Int32, types.UInt32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case types.Int64, types.UInt64:
		binary.LittleEndian.PutUint64(b, uint64(x))
	}
}

func readFloatElement(b []byte, t types.TypeID) float64 {
	switch t {
	case types.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case types.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func writeFloatElement(b []byte, t types.TypeID, x float64) {
	switch t {
	case types.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(x)))
	case types.Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	}
}
