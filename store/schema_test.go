package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/types"
)

func TestSchemaTotalBytes(t *testing.T) {
	cases := []struct {
		name string
		s    Schema
		want types.IndexType
	}{
		{"empty", Schema{}, 0},
		{"zero elements", DefaultSchema(types.Int32, 0), 0},
		{"contiguous", DefaultSchema(types.Int32, 10), 40},
		{"offset", Schema{Type: types.Int32, NumElems: 4, OffsetBytes: 8, StrideBytes: 4}, 24},
		{"strided", Schema{Type: types.Int32, NumElems: 4, OffsetBytes: 8, StrideBytes: 12}, 48},
		{"single", Schema{Type: types.Float64, NumElems: 1, StrideBytes: 8}, 8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.s.TotalBytes())
		})
	}
}

func TestSchemaElementPos(t *testing.T) {
	s := Schema{Type: types.Int32, NumElems: 4, OffsetBytes: 8, StrideBytes: 12}
	require.Equal(t, types.IndexType(8), s.elementPos(0))
	require.Equal(t, types.IndexType(20), s.elementPos(1))
	require.Equal(t, types.IndexType(44), s.elementPos(3))
}

func TestElementCodecRoundTrip(t *testing.T) {
	ints := []types.TypeID{
		types.Int8, types.UInt8, types.Int16, types.UInt16,
		types.Int32, types.UInt32, types.Int64, types.UInt64, types.Char8,
	}
	for _, typ := range ints {
		b := make([]byte, typ.ElementBytes())
		writeIntElement(b, typ, 100)
		require.Equal(t, int64(100), readIntElement(b, typ), "type %s", typ)
	}

	// Signed narrowing keeps the sign.
	b := make([]byte, 2)
	writeIntElement(b, types.Int16, -5)
	require.Equal(t, int64(-5), readIntElement(b, types.Int16))

	f := make([]byte, 8)
	writeFloatElement(f, types.Float64, -2.75)
	require.Equal(t, -2.75, readFloatElement(f, types.Float64))

	f32 := make([]byte, 4)
	writeFloatElement(f32, types.Float32, 1.5)
	require.Equal(t, 1.5, readFloatElement(f32, types.Float32))
}
