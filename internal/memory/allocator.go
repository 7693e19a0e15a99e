// Package memory provides the byte-slab allocator behind buffer storage.
//
// Buffers never call make directly; they go through an Allocator so the store
// can be configured with a pooled allocator for churn-heavy workloads or a
// plain heap allocator for predictable zeroed memory.
package memory

import "sync"

// Allocator hands out and reclaims byte slabs for buffer storage.
//
// Allocate returns a slab of exactly n bytes (n == 0 is valid and returns an
// empty, non-nil slab). Reallocate returns a slab of n bytes preserving the
// first min(len(old), n) bytes of old; old is reclaimed. Release returns a
// slab to the allocator; the caller must not touch it afterwards.
type Allocator interface {
	Allocate(n int) []byte
	Reallocate(old []byte, n int) []byte
	Release(buf []byte)
}

// Heap is the trivial allocator: make on Allocate, garbage collector on
// Release. Slabs come back zeroed.
type Heap struct{}

func (Heap) Allocate(n int) []byte { return make([]byte, n) }

func (Heap) Reallocate(old []byte, n int) []byte {
	buf := make([]byte, n)
	copy(buf, old)
	return buf
}

func (Heap) Release([]byte) {}

// Predefined pool size classes. Most buffer payloads in a store tree are
// small arrays; 1MB covers large mesh fields without a dedicated class.
const (
	size256 = 1 << 8  // 256 bytes
	size4K  = 1 << 12 // 4 KB
	size64K = 1 << 16 // 64 KB
	size1M  = 1 << 20 // 1 MB
)

// Pooled recycles slabs through sync.Pool size classes. Slabs handed out may
// contain stale bytes from a previous use; buffer reallocation semantics only
// guarantee the preserved prefix.
type Pooled struct {
	pool256 sync.Pool
	pool4K  sync.Pool
	pool64K sync.Pool
	pool1M  sync.Pool
}

// NewPooled returns a Pooled allocator with empty pools.
func NewPooled() *Pooled {
	p := &Pooled{}
	p.pool256.New = func() any { return make([]byte, size256) }
	p.pool4K.New = func() any { return make([]byte, size4K) }
	p.pool64K.New = func() any { return make([]byte, size64K) }
	p.pool1M.New = func() any { return make([]byte, size1M) }
	return p
}

func (p *Pooled) Allocate(n int) []byte {
	switch {
	case n <= size256:
		return p.pool256.Get().([]byte)[:n]
	case n <= size4K:
		return p.pool4K.Get().([]byte)[:n]
	case n <= size64K:
		return p.pool64K.Get().([]byte)[:n]
	case n <= size1M:
		return p.pool1M.Get().([]byte)[:n]
	default:
		// Beyond the largest class, allocate directly.
		return make([]byte, n)
	}
}

func (p *Pooled) Reallocate(old []byte, n int) []byte {
	if n <= cap(old) {
		return old[:n]
	}
	buf := p.Allocate(n)
	copy(buf, old)
	p.Release(old)
	return buf
}

func (p *Pooled) Release(buf []byte) {
	if buf == nil {
		return
	}
	switch cap(buf) {
	case size256:
		p.pool256.Put(buf[:cap(buf)])
	case size4K:
		p.pool4K.Put(buf[:cap(buf)])
	case size64K:
		p.pool64K.Put(buf[:cap(buf)])
	case size1M:
		p.pool1M.Put(buf[:cap(buf)])
	default:
		// Not from a pool class, let GC handle it.
	}
}
