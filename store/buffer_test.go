package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/types"
)

func TestBufferDescribeThenAllocate(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.False(t, b.IsDescribed())
	require.Nil(t, b.Bytes())
	require.Equal(t, types.IndexType(0), b.TotalBytes())

	require.NoError(t, b.Describe(types.Int32, 10))
	require.True(t, b.IsDescribed())
	require.False(t, b.IsAllocated())

	require.NoError(t, b.Allocate(types.Int32, 10))
	require.True(t, b.IsAllocated())
	require.Equal(t, types.IndexType(40), b.TotalBytes())
	require.Len(t, b.Bytes(), 40)
}

func TestBufferDescribeRejectedOnceAllocated(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Int64, 2))
	require.ErrorIs(t, b.Describe(types.Int32, 4), types.ErrWrongState)
	require.ErrorIs(t, b.Allocate(types.Int32, 4), types.ErrWrongState)
	// Shape unchanged by the refused calls.
	require.Equal(t, types.Int64, b.TypeID())
	require.Equal(t, types.IndexType(2), b.NumElements())
}

func TestBufferZeroElementAllocation(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Float64, 0))
	require.True(t, b.IsAllocated())
	require.Equal(t, types.IndexType(0), b.TotalBytes())
}

func TestBufferReallocatePreservesLeadingElements(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Int32, 5))
	for i := types.IndexType(0); i < 5; i++ {
		require.NoError(t, b.SetInt(i, int64(i*i)))
	}

	require.NoError(t, b.Reallocate(10))
	require.Equal(t, types.IndexType(10), b.NumElements())
	require.Equal(t, types.IndexType(40), b.TotalBytes())
	for i := types.IndexType(0); i < 5; i++ {
		got, err := b.Int(i)
		require.NoError(t, err)
		require.Equal(t, int64(i*i), got, "element %d", i)
	}

	require.NoError(t, b.Reallocate(3))
	require.Equal(t, types.IndexType(3), b.NumElements())
	got, err := b.Int(2)
	require.NoError(t, err)
	require.Equal(t, int64(4), got)
}

func TestBufferReallocateWithoutDescription(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.ErrorIs(t, b.Reallocate(4), types.ErrWrongState)
	require.ErrorIs(t, b.Reallocate(-1), types.ErrBadArgument)
}

// A described but unallocated buffer treats Reallocate as a first allocation.
func TestBufferReallocateAllocatesWhenUnallocated(t *testing.T) {
	ds, _ := newTestStore(t)
	b, err := ds.CreateTypedBuffer(types.Int64, 4)
	require.NoError(t, err)
	require.NoError(t, b.Reallocate(6))
	require.True(t, b.IsAllocated())
	require.Equal(t, types.IndexType(48), b.TotalBytes())
}

func TestBufferDeallocateKeepsDescription(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Float32, 6))
	require.NoError(t, b.Deallocate())
	require.False(t, b.IsAllocated())
	require.True(t, b.IsDescribed())
	require.Equal(t, types.Float32, b.TypeID())
	require.Nil(t, b.Bytes())

	// Deallocate twice is a no-op, and the handle stays reusable.
	require.NoError(t, b.Deallocate())
	require.NoError(t, b.Allocate(types.Float32, 6))
	require.True(t, b.IsAllocated())
}

func TestBufferElementAccess(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Float64, 3))
	require.NoError(t, b.SetFloat(1, 2.5))
	got, err := b.Float(1)
	require.NoError(t, err)
	require.Equal(t, 2.5, got)

	_, err = b.Float(3)
	require.ErrorIs(t, err, types.ErrBadArgument)
	_, err = b.Float(-1)
	require.ErrorIs(t, err, types.ErrBadArgument)
	_, err = b.Int(0)
	require.ErrorIs(t, err, types.ErrBadArgument, "integer access on a float buffer")
	require.ErrorIs(t, b.SetInt(0, 1), types.ErrBadArgument)
}

func TestBufferElementAccessUnallocated(t *testing.T) {
	ds, _ := newTestStore(t)
	b, err := ds.CreateTypedBuffer(types.Int32, 3)
	require.NoError(t, err)
	_, err = b.Int(0)
	require.ErrorIs(t, err, types.ErrWrongState)
	require.ErrorIs(t, b.SetInt(0, 7), types.ErrWrongState)
}

func TestBufferViewTracking(t *testing.T) {
	ds, _ := newTestStore(t)
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Int32, 4))
	require.Equal(t, 0, b.NumViews())

	v1, err := ds.Root().CreateBufferView("v1", b)
	require.NoError(t, err)
	v2, err := ds.Root().CreateBufferView("v2", b)
	require.NoError(t, err)
	require.Equal(t, 2, b.NumViews())
	require.Equal(t, []*View{v1, v2}, b.Views())

	require.NoError(t, v1.AttachBuffer(nil))
	require.Equal(t, []*View{v2}, b.Views())
}
