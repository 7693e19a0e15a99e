package store

import (
	"fmt"

	"github.com/eapache/queue"

	"github.com/storekit/storekit/internal/memory"
	"github.com/storekit/storekit/internal/report"
	"github.com/storekit/storekit/pkg/types"
)

// Options configures a DataStore. Zero values select the defaults: a
// slog-backed reporter and the pooled allocator.
type Options struct {
	Reporter  report.Reporter
	Allocator memory.Allocator
}

// DataStore owns the root group and every buffer. Buffers live in an indexed
// slot table; destroyed indices are recycled first-in-first-out. A store is
// a single-threaded data structure: callers sharing one across goroutines
// must serialize access themselves.
type DataStore struct {
	rep report.Reporter
	mem memory.Allocator

	root       *Group
	buffers    []*Buffer
	freeIDs    *queue.Queue
	numBuffers int
}

// New returns an empty data store with default options.
func New() *DataStore {
	return NewWithOptions(Options{})
}

// NewWithOptions returns an empty data store configured by opts.
func NewWithOptions(opts Options) *DataStore {
	rep := opts.Reporter
	if rep == nil {
		rep = report.NewLogReporter(nil)
	}
	mem := opts.Allocator
	if mem == nil {
		mem = memory.NewPooled()
	}
	ds := &DataStore{
		rep:     rep,
		mem:     mem,
		freeIDs: queue.New(),
	}
	ds.root = newGroup("", nil, ds)
	return ds
}

// Root returns the root group.
func (ds *DataStore) Root() *Group { return ds.root }

// NumBuffers returns the number of live buffers.
func (ds *DataStore) NumBuffers() int { return ds.numBuffers }

// BufferIndices returns the indices of all live buffers in ascending order.
func (ds *DataStore) BufferIndices() []types.IndexType {
	out := make([]types.IndexType, 0, ds.numBuffers)
	for i, b := range ds.buffers {
		if b != nil {
			out = append(out, types.IndexType(i))
		}
	}
	return out
}

// CreateBuffer creates an empty, undescribed buffer and assigns it the next
// free index.
func (ds *DataStore) CreateBuffer() *Buffer {
	return ds.newBuffer()
}

// CreateTypedBuffer creates a buffer described with numElems elements of t,
// without allocating.
func (ds *DataStore) CreateTypedBuffer(t types.TypeID, numElems types.IndexType) (*Buffer, error) {
	b := ds.newBuffer()
	if err := b.Describe(t, numElems); err != nil {
		ds.destroyBufferObject(b)
		return nil, err
	}
	return b, nil
}

// GetBuffer returns the buffer at index.
func (ds *DataStore) GetBuffer(index types.IndexType) (*Buffer, error) {
	if index < 0 || index >= types.IndexType(len(ds.buffers)) || ds.buffers[index] == nil {
		return nil, fmt.Errorf("no buffer with index %d: %w", index, types.ErrNotFound)
	}
	return ds.buffers[index], nil
}

// DestroyBuffer destroys the buffer at index, releasing its memory and
// recycling the index. Destruction is forbidden while views are attached.
func (ds *DataStore) DestroyBuffer(index types.IndexType) error {
	b, err := ds.GetBuffer(index)
	if err != nil {
		return err
	}
	if b.NumViews() > 0 {
		return failf(ds.rep, types.ErrBufferInUse,
			"buffer %d still has %d attached views", index, b.NumViews())
	}
	ds.destroyBufferObject(b)
	return nil
}

// DestroyAllBuffers destroys every buffer in the registry. Attached views are
// detached first and reset to the empty state.
func (ds *DataStore) DestroyAllBuffers() {
	for _, b := range ds.buffers {
		if b == nil {
			continue
		}
		for _, v := range b.Views() {
			v.detachBuffer()
		}
		ds.destroyBufferObject(b)
	}
}

// newBuffer allocates a registry slot, reusing the oldest destroyed index
// first.
func (ds *DataStore) newBuffer() *Buffer {
	var index types.IndexType
	if ds.freeIDs.Length() > 0 {
		index = ds.freeIDs.Remove().(types.IndexType)
	} else {
		index = types.IndexType(len(ds.buffers))
		ds.buffers = append(ds.buffers, nil)
	}
	b := &Buffer{index: index, mem: ds.mem, rep: ds.rep}
	ds.buffers[index] = b
	ds.numBuffers++
	return b
}

// destroyBufferObject releases a buffer's memory and registry slot. Callers
// guarantee no views are attached; anything else is a broken invariant.
func (ds *DataStore) destroyBufferObject(b *Buffer) {
	if b.NumViews() > 0 {
		ds.rep.Fatalf("destroying buffer %d with %d attached views", b.index, b.NumViews())
	}
	_ = b.Deallocate()
	ds.buffers[b.index] = nil
	ds.freeIDs.Add(b.index)
	ds.numBuffers--
}

// failf reports a precondition violation as a warning and returns the same
// message wrapped around the sentinel.
func failf(rep report.Reporter, sentinel error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	rep.Warnf("%s", msg)
	return fmt.Errorf("%s: %w", msg, sentinel)
}
