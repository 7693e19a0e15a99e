package store

import (
	"fmt"

	"github.com/storekit/storekit/internal/memory"
	"github.com/storekit/storekit/internal/report"
	"github.com/storekit/storekit/pkg/types"
)

// Buffer is an owned, allocatable block of typed, contiguous memory. It knows
// nothing about any view's offset or stride; several views may alias it with
// different descriptions. The DataStore's registry is the canonical owner —
// views hold shared, non-owning handles, and the buffer tracks which views
// are attached so the registry can decide destruction eligibility.
type Buffer struct {
	index     types.IndexType
	typ       types.TypeID
	numElems  types.IndexType
	data      []byte
	allocated bool
	views     []*View

	mem memory.Allocator
	rep report.Reporter
}

// Index returns the buffer's registry index. Indices are stable until the
// buffer is destroyed and are reused afterwards.
func (b *Buffer) Index() types.IndexType { return b.index }

// TypeID returns the described element type, NoType when undescribed.
func (b *Buffer) TypeID() types.TypeID { return b.typ }

// NumElements returns the described element count.
func (b *Buffer) NumElements() types.IndexType { return b.numElems }

// IsDescribed reports whether the buffer has an element type.
func (b *Buffer) IsDescribed() bool { return b.typ != types.NoType }

// IsAllocated reports whether the buffer holds memory. A zero-element
// allocation still counts as allocated.
func (b *Buffer) IsAllocated() bool { return b.allocated }

// TotalBytes returns the allocated byte size, 0 when unallocated.
func (b *Buffer) TotalBytes() types.IndexType {
	if !b.allocated {
		return 0
	}
	return types.IndexType(len(b.data))
}

// Bytes returns the raw memory, nil when unallocated.
func (b *Buffer) Bytes() []byte {
	if !b.allocated {
		return nil
	}
	return b.data
}

// NumViews returns the number of views attached to the buffer.
func (b *Buffer) NumViews() int { return len(b.views) }

// Views returns the attached views in attachment order.
func (b *Buffer) Views() []*View {
	out := make([]*View, len(b.views))
	copy(out, b.views)
	return out
}

// Describe sets the element type and count without allocating. It fails if
// the buffer is already allocated.
func (b *Buffer) Describe(t types.TypeID, numElems types.IndexType) error {
	if b.allocated {
		return failf(b.rep, types.ErrWrongState,
			"buffer %d: cannot describe an allocated buffer", b.index)
	}
	if t == types.NoType || numElems < 0 {
		return failf(b.rep, types.ErrBadArgument,
			"buffer %d: describe needs a type and a non-negative count", b.index)
	}
	b.typ = t
	b.numElems = numElems
	return nil
}

// Allocate describes the buffer and reserves numElems elements of t.
// numElems == 0 is valid and yields an allocated, zero-byte buffer. The
// operation fails, leaving the buffer unchanged, if it is already allocated.
func (b *Buffer) Allocate(t types.TypeID, numElems types.IndexType) error {
	if b.allocated {
		return failf(b.rep, types.ErrWrongState,
			"buffer %d: already allocated", b.index)
	}
	if err := b.Describe(t, numElems); err != nil {
		return err
	}
	b.data = b.mem.Allocate(int(numElems * t.ElementBytes()))
	b.allocated = true
	return nil
}

// Reallocate resizes the buffer to numElems elements, preserving the first
// min(old, new) elements. An unallocated described buffer simply allocates;
// an undescribed one fails because the element type is unknown.
func (b *Buffer) Reallocate(numElems types.IndexType) error {
	if numElems < 0 {
		return failf(b.rep, types.ErrBadArgument,
			"buffer %d: reallocate needs a non-negative count", b.index)
	}
	if !b.IsDescribed() {
		return failf(b.rep, types.ErrWrongState,
			"buffer %d: cannot reallocate without an element type", b.index)
	}
	if !b.allocated {
		return b.Allocate(b.typ, numElems)
	}
	b.data = b.mem.Reallocate(b.data, int(numElems*b.typ.ElementBytes()))
	b.numElems = numElems
	return nil
}

// Deallocate releases the buffer's memory. The buffer stays a valid, reusable
// handle and keeps its description. Attached views are untouched; they must
// re-apply after a later allocation.
func (b *Buffer) Deallocate() error {
	if !b.allocated {
		return nil
	}
	b.mem.Release(b.data)
	b.data = nil
	b.allocated = false
	return nil
}

// Int returns element i as an int64.
func (b *Buffer) Int(i types.IndexType) (int64, error) {
	if err := b.checkElement(i, true); err != nil {
		return 0, err
	}
	eb := b.typ.ElementBytes()
	return readIntElement(b.data[i*eb:], b.typ), nil
}

// SetInt stores an integer value into element i.
func (b *Buffer) SetInt(i types.IndexType, x int64) error {
	if err := b.checkElement(i, true); err != nil {
		return err
	}
	eb := b.typ.ElementBytes()
	writeIntElement(b.data[i*eb:], b.typ, x)
	return nil
}

// Float returns element i as a float64.
func (b *Buffer) Float(i types.IndexType) (float64, error) {
	if err := b.checkElement(i, false); err != nil {
		return 0, err
	}
	eb := b.typ.ElementBytes()
	return readFloatElement(b.data[i*eb:], b.typ), nil
}

// SetFloat stores a floating point value into element i.
func (b *Buffer) SetFloat(i types.IndexType, x float64) error {
	if err := b.checkElement(i, false); err != nil {
		return err
	}
	eb := b.typ.ElementBytes()
	writeFloatElement(b.data[i*eb:], b.typ, x)
	return nil
}

func (b *Buffer) checkElement(i types.IndexType, wantInt bool) error {
	if !b.allocated {
		return fmt.Errorf("buffer %d is not allocated: %w", b.index, types.ErrWrongState)
	}
	if i < 0 || i >= b.numElems {
		return fmt.Errorf("buffer %d: element %d out of range [0,%d): %w",
			b.index, i, b.numElems, types.ErrBadArgument)
	}
	if wantInt != (b.typ.IsInteger() || b.typ == types.Char8) {
		return fmt.Errorf("buffer %d holds %s elements: %w", b.index, b.typ, types.ErrBadArgument)
	}
	return nil
}

// attach and detach maintain the back-reference set. They are driven by view
// transitions only.

func (b *Buffer) attach(v *View) {
	b.views = append(b.views, v)
}

func (b *Buffer) detach(v *View) {
	for i, attached := range b.views {
		if attached == v {
			b.views = append(b.views[:i], b.views[i+1:]...)
			return
		}
	}
}
