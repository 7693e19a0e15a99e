package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/internal/memory"
	"github.com/storekit/storekit/internal/report"
	"github.com/storekit/storekit/pkg/types"
)

// newTestStore builds a store with a recording reporter so tests can assert
// on warnings without log noise.
func newTestStore(t *testing.T) (*DataStore, *report.Recorder) {
	t.Helper()
	rec := &report.Recorder{}
	ds := NewWithOptions(Options{Reporter: rec, Allocator: memory.Heap{}})
	return ds, rec
}

func TestNewStoreIsEmpty(t *testing.T) {
	ds, _ := newTestStore(t)
	require.NotNil(t, ds.Root())
	require.True(t, ds.Root().IsRoot())
	require.Equal(t, "", ds.Root().Name())
	require.Equal(t, 0, ds.NumBuffers())
	require.Empty(t, ds.BufferIndices())
}

func TestCreateBufferAssignsSequentialIndices(t *testing.T) {
	ds, _ := newTestStore(t)
	b0 := ds.CreateBuffer()
	b1 := ds.CreateBuffer()
	b2 := ds.CreateBuffer()
	require.Equal(t, types.IndexType(0), b0.Index())
	require.Equal(t, types.IndexType(1), b1.Index())
	require.Equal(t, types.IndexType(2), b2.Index())
	require.Equal(t, 3, ds.NumBuffers())
	require.Equal(t, []types.IndexType{0, 1, 2}, ds.BufferIndices())
}

// Destroyed indices come back in destruction order, oldest first.
func TestDestroyedBufferIndicesAreRecycledFIFO(t *testing.T) {
	ds, _ := newTestStore(t)
	ds.CreateBuffer()
	ds.CreateBuffer()
	ds.CreateBuffer()

	require.NoError(t, ds.DestroyBuffer(1))
	require.NoError(t, ds.DestroyBuffer(0))
	require.Equal(t, 1, ds.NumBuffers())

	require.Equal(t, types.IndexType(1), ds.CreateBuffer().Index())
	require.Equal(t, types.IndexType(0), ds.CreateBuffer().Index())
	require.Equal(t, types.IndexType(3), ds.CreateBuffer().Index())
}

func TestGetBufferUnknownIndex(t *testing.T) {
	ds, _ := newTestStore(t)
	_, err := ds.GetBuffer(0)
	require.ErrorIs(t, err, types.ErrNotFound)
	_, err = ds.GetBuffer(-1)
	require.ErrorIs(t, err, types.ErrNotFound)

	ds.CreateBuffer()
	require.NoError(t, ds.DestroyBuffer(0))
	_, err = ds.GetBuffer(0)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateTypedBuffer(t *testing.T) {
	ds, _ := newTestStore(t)
	b, err := ds.CreateTypedBuffer(types.Int32, 8)
	require.NoError(t, err)
	require.True(t, b.IsDescribed())
	require.False(t, b.IsAllocated())
	require.Equal(t, types.Int32, b.TypeID())
	require.Equal(t, types.IndexType(8), b.NumElements())

	_, err = ds.CreateTypedBuffer(types.NoType, 8)
	require.ErrorIs(t, err, types.ErrBadArgument)
	_, err = ds.CreateTypedBuffer(types.Int32, -1)
	require.ErrorIs(t, err, types.ErrBadArgument)
	// Failed creations must not leak registry slots.
	require.Equal(t, 1, ds.NumBuffers())
}

func TestDestroyBufferRefusedWhileViewsAttached(t *testing.T) {
	ds, rec := newTestStore(t)
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Int32, 4))
	v, err := ds.Root().CreateBufferView("v", b)
	require.NoError(t, err)
	require.True(t, v.HasBuffer())

	err = ds.DestroyBuffer(b.Index())
	require.ErrorIs(t, err, types.ErrBufferInUse)
	require.NotEmpty(t, rec.Warnings)
	require.Equal(t, 1, ds.NumBuffers())

	require.NoError(t, ds.Root().DestroyView("v"))
	require.NoError(t, ds.DestroyBuffer(b.Index()))
	require.Equal(t, 0, ds.NumBuffers())
}

func TestDestroyAllBuffers(t *testing.T) {
	ds, _ := newTestStore(t)
	v, err := ds.Root().CreateAllocatedView("v", types.Int32, 4)
	require.NoError(t, err)
	ds.CreateBuffer()
	require.Equal(t, 2, ds.NumBuffers())

	ds.DestroyAllBuffers()
	require.Equal(t, 0, ds.NumBuffers())
	require.True(t, v.IsEmpty(), "attached views reset to empty")
	require.False(t, v.HasBuffer())

	// Indices restart from the recycled pool.
	require.Equal(t, types.IndexType(0), ds.CreateBuffer().Index())
}

func TestDefaultOptions(t *testing.T) {
	ds := New()
	require.NotNil(t, ds.Root())
	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Float64, 2))
	require.Equal(t, types.IndexType(16), b.TotalBytes())
}
