package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapAllocate(t *testing.T) {
	var h Heap

	buf := h.Allocate(40)
	require.Len(t, buf, 40)
	for _, b := range buf {
		require.Zero(t, b, "heap slabs come back zeroed")
	}

	empty := h.Allocate(0)
	require.NotNil(t, empty)
	require.Len(t, empty, 0)
}

func TestHeapReallocatePreservesPrefix(t *testing.T) {
	var h Heap

	buf := h.Allocate(4)
	copy(buf, []byte{1, 2, 3, 4})

	grown := h.Reallocate(buf, 8)
	require.Len(t, grown, 8)
	assert.Equal(t, []byte{1, 2, 3, 4}, grown[:4])

	shrunk := h.Reallocate(grown, 2)
	require.Len(t, shrunk, 2)
	assert.Equal(t, []byte{1, 2}, shrunk)
}

func TestPooledSizeClasses(t *testing.T) {
	p := NewPooled()

	small := p.Allocate(10)
	require.Len(t, small, 10)
	assert.Equal(t, size256, cap(small), "small requests come from the 256B class")

	big := p.Allocate(size1M + 1)
	require.Len(t, big, size1M+1)

	p.Release(small)
	p.Release(big)
	p.Release(nil) // no-op
}

func TestPooledReallocate(t *testing.T) {
	p := NewPooled()

	buf := p.Allocate(16)
	copy(buf, []byte("abcdefghijklmnop"))

	// Growth within the same class reuses the slab in place.
	grown := p.Reallocate(buf, 32)
	require.Len(t, grown, 32)
	assert.Equal(t, []byte("abcdefghijklmnop"), grown[:16])

	// Growth past the class copies the prefix into a bigger slab.
	huge := p.Reallocate(grown, size4K)
	require.Len(t, huge, size4K)
	assert.Equal(t, []byte("abcdefghijklmnop"), huge[:16])
}
