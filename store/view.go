package store

import (
	"fmt"
	"strings"

	"github.com/storekit/storekit/internal/report"
	"github.com/storekit/storekit/pkg/types"
)

// View is a named, described handle onto data. It is always in exactly one
// of five states: EMPTY (no data source), BUFFER (attached to a shared
// Buffer), EXTERNAL (wrapping caller-owned memory), or SCALAR/STRING (inline
// value). Views are created only through their owning Group and never own
// the buffer or external memory they point at.
//
// Mutators validate the requested transition against the current state and
// return a typed error on violation, leaving the view exactly as it was.
type View struct {
	name  string
	group *Group

	state   types.State
	schema  Schema
	shape   []types.IndexType
	applied bool

	buffer   *Buffer // BUFFER state only; shared, non-owning
	external []byte  // EXTERNAL state only; caller-owned
	value    []byte  // SCALAR/STRING state only; inline, owned

	attrs     map[string]string
	attrOrder []string
}

// -----------------------------------------------------------------------------
// Identity and queries
// -----------------------------------------------------------------------------

// Name returns the view's name within its owning group.
func (v *View) Name() string { return v.name }

// OwningGroup returns the group that owns the view.
func (v *View) OwningGroup() *Group { return v.group }

// Path returns the owning group's full path name.
func (v *View) Path() string { return v.group.PathName() }

// PathName returns the view's full path, including its name.
func (v *View) PathName() string {
	if v.Path() == "" {
		return v.name
	}
	return v.Path() + PathDelimiter + v.name
}

// State returns the view's current data state.
func (v *View) State() types.State { return v.state }

// IsEmpty reports whether the view has no data source.
func (v *View) IsEmpty() bool { return v.state == types.StateEmpty }

// IsExternal reports whether the view wraps caller-owned memory.
func (v *View) IsExternal() bool { return v.state == types.StateExternal }

// IsScalar reports whether the view holds an inline scalar.
func (v *View) IsScalar() bool { return v.state == types.StateScalar }

// IsString reports whether the view holds an inline string.
func (v *View) IsString() bool { return v.state == types.StateString }

// HasBuffer reports whether the view is attached to a buffer.
func (v *View) HasBuffer() bool { return v.buffer != nil }

// Buffer returns the attached buffer, nil when there is none.
func (v *View) Buffer() *Buffer { return v.buffer }

// IsDescribed reports whether the view carries a type description.
func (v *View) IsDescribed() bool { return !v.schema.IsEmpty() }

// IsApplied reports whether the description is bound onto physical memory.
func (v *View) IsApplied() bool { return v.applied }

// IsAllocated reports whether the view refers to allocated data: an
// allocated buffer, external memory, or an inline value.
func (v *View) IsAllocated() bool {
	switch v.state {
	case types.StateEmpty:
		return false
	case types.StateBuffer:
		return v.IsDescribed() && v.buffer.IsAllocated()
	case types.StateExternal, types.StateScalar, types.StateString:
		return true
	default:
		v.rep().Fatalf("view %q: unexpected state value %d", v.PathName(), v.state)
		return false
	}
}

// TypeID returns the described element type, NoType when undescribed.
func (v *View) TypeID() types.TypeID { return v.schema.Type }

// NumElements returns the described element count.
func (v *View) NumElements() types.IndexType { return v.schema.NumElems }

// ElementBytes returns the byte width of one described element.
func (v *View) ElementBytes() types.IndexType { return v.schema.Type.ElementBytes() }

// TotalBytes returns the byte extent the description spans.
func (v *View) TotalBytes() types.IndexType { return v.schema.TotalBytes() }

// Offset returns the description's offset as a number of elements. A stored
// byte offset that is not an exact multiple of the element width is a usage
// error, not a truncation.
func (v *View) Offset() (types.IndexType, error) {
	if !v.IsDescribed() {
		return 0, nil
	}
	eb := v.schema.Type.ElementBytes()
	if eb == 0 {
		return 0, nil
	}
	if v.schema.OffsetBytes%eb != 0 {
		return 0, v.fail(types.ErrBadArgument,
			"view %q: byte offset %d is not a multiple of the element width %d",
			v.PathName(), v.schema.OffsetBytes, eb)
	}
	return v.schema.OffsetBytes / eb, nil
}

// Stride returns the description's stride as a number of elements, with the
// same exactness requirement as Offset.
func (v *View) Stride() (types.IndexType, error) {
	if !v.IsDescribed() {
		return 1, nil
	}
	eb := v.schema.Type.ElementBytes()
	if eb == 0 {
		return 1, nil
	}
	if v.schema.StrideBytes%eb != 0 {
		return 0, v.fail(types.ErrBadArgument,
			"view %q: byte stride %d is not a multiple of the element width %d",
			v.PathName(), v.schema.StrideBytes, eb)
	}
	return v.schema.StrideBytes / eb, nil
}

// NumDimensions returns the dimensionality of the described shape.
func (v *View) NumDimensions() int { return len(v.shape) }

// Shape returns a copy of the described shape, nil when undescribed.
func (v *View) Shape() []types.IndexType {
	if v.shape == nil {
		return nil
	}
	out := make([]types.IndexType, len(v.shape))
	copy(out, v.shape)
	return out
}

// IsEquivalentTo reports structural equivalence: same name, type, applied
// flag, buffer attachment and byte extent. It deliberately compares neither
// data bytes nor buffer identity, making it an O(1) shape check.
func (v *View) IsEquivalentTo(other *View) bool {
	if other == nil {
		return false
	}
	return v.name == other.name &&
		v.schema.Type == other.schema.Type &&
		v.applied == other.applied &&
		v.HasBuffer() == other.HasBuffer() &&
		v.TotalBytes() == other.TotalBytes()
}

// -----------------------------------------------------------------------------
// Allocation
// -----------------------------------------------------------------------------

// Allocate allocates data for a previously described view. From EMPTY the
// view acquires a fresh buffer from the store and transitions to BUFFER;
// in BUFFER state the view must be the buffer's only attachment.
func (v *View) Allocate() error {
	if err := v.allocateValid(); err != nil {
		return err
	}
	if v.state == types.StateEmpty {
		b := v.group.store.newBuffer()
		b.attach(v)
		v.buffer = b
		v.state = types.StateBuffer
	}
	if !v.buffer.IsAllocated() {
		if err := v.buffer.Allocate(v.schema.Type, v.schema.NumElems); err != nil {
			return err
		}
	}
	return v.Apply()
}

// AllocateTyped describes the view with numElems elements of t, then
// allocates.
func (v *View) AllocateTyped(t types.TypeID, numElems types.IndexType) error {
	if t == types.NoType || numElems < 0 {
		return v.fail(types.ErrBadArgument,
			"view %q: allocate needs a type and a non-negative count", v.PathName())
	}
	v.describe(DefaultSchema(t, numElems))
	return v.Allocate()
}

// Reallocate resizes the view's data to numElems elements of its described
// type, preserving existing elements up to min(old, new). The single-owner
// rule applies: a buffer shared by other views cannot be resized here.
func (v *View) Reallocate(numElems types.IndexType) error {
	if numElems < 0 {
		return v.fail(types.ErrBadArgument,
			"view %q: reallocate needs a non-negative count", v.PathName())
	}
	if err := v.allocateValid(); err != nil {
		return err
	}
	if v.state == types.StateEmpty || !v.buffer.IsAllocated() {
		return v.AllocateTyped(v.schema.Type, numElems)
	}
	v.describe(DefaultSchema(v.schema.Type, numElems))
	if err := v.buffer.Reallocate(numElems); err != nil {
		return err
	}
	return v.Apply()
}

// Deallocate releases the attached buffer's data. The view keeps its
// description and attachment.
func (v *View) Deallocate() error {
	if err := v.allocateValid(); err != nil {
		return err
	}
	if v.HasBuffer() {
		return v.buffer.Deallocate()
	}
	return nil
}

// allocateValid reports whether the view's state permits allocate,
// reallocate and deallocate.
func (v *View) allocateValid() error {
	switch v.state {
	case types.StateEmpty:
		if !v.IsDescribed() {
			return v.fail(types.ErrNotDescribed,
				"view %q: cannot allocate without a description", v.PathName())
		}
		return nil
	case types.StateBuffer:
		if !v.IsDescribed() {
			return v.fail(types.ErrNotDescribed,
				"view %q: cannot allocate without a description", v.PathName())
		}
		if v.buffer.NumViews() != 1 {
			return v.fail(types.ErrSharedBuffer,
				"view %q: buffer %d is attached to %d views",
				v.PathName(), v.buffer.Index(), v.buffer.NumViews())
		}
		return nil
	case types.StateExternal, types.StateScalar, types.StateString:
		return v.fail(types.ErrWrongState,
			"view %q: state %s does not allow allocation", v.PathName(), v.state)
	default:
		v.rep().Fatalf("view %q: unexpected state value %d", v.PathName(), v.state)
		return nil
	}
}

// -----------------------------------------------------------------------------
// Buffer attachment
// -----------------------------------------------------------------------------

// AttachBuffer attaches b to an EMPTY view, applying immediately when the
// view is described and the buffer already allocated. AttachBuffer(nil)
// detaches a BUFFER view; if the buffer is then left with no views, the
// store destroys it.
func (v *View) AttachBuffer(b *Buffer) error {
	switch {
	case v.state == types.StateBuffer && b == nil:
		old := v.detachBuffer()
		if old != nil && old.NumViews() == 0 {
			v.group.store.destroyBufferObject(old)
		}
		return nil
	case v.state == types.StateEmpty && b != nil:
		v.buffer = b
		b.attach(v)
		v.state = types.StateBuffer
		if v.IsDescribed() && b.IsAllocated() {
			return v.Apply()
		}
		return nil
	default:
		return v.fail(types.ErrWrongState,
			"view %q: cannot attach buffer in state %s", v.PathName(), v.state)
	}
}

// detachBuffer unlinks the view from its buffer and resets it to EMPTY.
// The buffer itself is left alone; callers decide its fate.
func (v *View) detachBuffer() *Buffer {
	if v.state != types.StateBuffer {
		return nil
	}
	b := v.buffer
	b.detach(v)
	v.buffer = nil
	v.state = types.StateEmpty
	v.applied = false
	return b
}

// -----------------------------------------------------------------------------
// External data
// -----------------------------------------------------------------------------

// SetExternal points the view at caller-owned memory, applying immediately
// when described. SetExternal(nil) clears an EXTERNAL view back to EMPTY so
// the view never outlives the memory it wrapped. The caller remains
// responsible for the memory's lifetime.
func (v *View) SetExternal(data []byte) error {
	if v.state != types.StateEmpty && v.state != types.StateExternal {
		return v.fail(types.ErrWrongState,
			"view %q: cannot set external data in state %s", v.PathName(), v.state)
	}
	if data == nil {
		v.external = nil
		v.applied = false
		v.state = types.StateEmpty
		return nil
	}
	v.external = data
	v.state = types.StateExternal
	if v.IsDescribed() {
		return v.Apply()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Apply
// -----------------------------------------------------------------------------

// Apply binds the view's description onto its physical memory. Calling it
// again without an intervening state change is a no-op.
func (v *View) Apply() error {
	if err := v.applyValid(); err != nil {
		return err
	}
	v.applied = true
	return nil
}

// ApplyNumElems rebinds the view with numElems elements at the given offset
// and stride, all expressed in elements of the current type (or the attached
// buffer's type when the view is undescribed).
func (v *View) ApplyNumElems(numElems, offset, stride types.IndexType) error {
	if numElems < 0 {
		return v.fail(types.ErrBadArgument,
			"view %q: apply needs a non-negative count", v.PathName())
	}
	t := v.schema.Type
	if t == types.NoType && v.buffer != nil {
		t = v.buffer.TypeID()
	}
	if t == types.NoType {
		return v.fail(types.ErrNotDescribed,
			"view %q: no element type to apply", v.PathName())
	}
	return v.ApplyTyped(t, numElems, offset, stride)
}

// ApplyTyped rebinds the view with a full type/count/offset/stride
// description, offset and stride in elements.
func (v *View) ApplyTyped(t types.TypeID, numElems, offset, stride types.IndexType) error {
	if t == types.NoType || numElems < 0 {
		return v.fail(types.ErrBadArgument,
			"view %q: apply needs a type and a non-negative count", v.PathName())
	}
	eb := t.ElementBytes()
	v.describe(Schema{
		Type:        t,
		NumElems:    numElems,
		OffsetBytes: offset * eb,
		StrideBytes: stride * eb,
	})
	return v.Apply()
}

// ApplyShape rebinds the view as a contiguous multi-dimensional array.
func (v *View) ApplyShape(t types.TypeID, shape []types.IndexType) error {
	if t == types.NoType || len(shape) == 0 {
		return v.fail(types.ErrBadArgument,
			"view %q: apply needs a type and a non-empty shape", v.PathName())
	}
	v.describeShaped(t, shape)
	return v.Apply()
}

// applyValid reports whether the description can be bound in the current
// state. An EXTERNAL view's pointer and description are assumed consistent.
func (v *View) applyValid() error {
	if !v.IsDescribed() {
		return v.fail(types.ErrNotDescribed,
			"view %q: no description to apply", v.PathName())
	}
	switch v.state {
	case types.StateEmpty, types.StateScalar, types.StateString:
		return v.fail(types.ErrWrongState,
			"view %q: state %s does not allow apply", v.PathName(), v.state)
	case types.StateExternal:
		if v.external == nil {
			return v.fail(types.ErrWrongState,
				"view %q: no external data to apply onto", v.PathName())
		}
		return nil
	case types.StateBuffer:
		if v.schema.TotalBytes() > v.buffer.TotalBytes() {
			return v.fail(types.ErrWrongState,
				"view %q: description spans %d bytes but buffer %d holds %d",
				v.PathName(), v.schema.TotalBytes(), v.buffer.Index(), v.buffer.TotalBytes())
		}
		return nil
	default:
		v.rep().Fatalf("view %q: unexpected state value %d", v.PathName(), v.state)
		return nil
	}
}

// -----------------------------------------------------------------------------
// Inline values
// -----------------------------------------------------------------------------

// SetScalarInt stores an inline int64 scalar. Valid from EMPTY or SCALAR.
func (v *View) SetScalarInt(x int64) error {
	if v.state != types.StateEmpty && v.state != types.StateScalar {
		return v.fail(types.ErrWrongState,
			"view %q: cannot set a scalar in state %s", v.PathName(), v.state)
	}
	v.schema = DefaultSchema(types.Int64, 1)
	v.shape = []types.IndexType{1}
	v.value = make([]byte, 8)
	writeIntElement(v.value, types.Int64, x)
	v.state = types.StateScalar
	v.applied = true
	return nil
}

// SetScalarFloat stores an inline float64 scalar. Valid from EMPTY or SCALAR.
func (v *View) SetScalarFloat(x float64) error {
	if v.state != types.StateEmpty && v.state != types.StateScalar {
		return v.fail(types.ErrWrongState,
			"view %q: cannot set a scalar in state %s", v.PathName(), v.state)
	}
	v.schema = DefaultSchema(types.Float64, 1)
	v.shape = []types.IndexType{1}
	v.value = make([]byte, 8)
	writeFloatElement(v.value, types.Float64, x)
	v.state = types.StateScalar
	v.applied = true
	return nil
}

// SetString stores an inline string. Valid from EMPTY or STRING.
func (v *View) SetString(s string) error {
	if v.state != types.StateEmpty && v.state != types.StateString {
		return v.fail(types.ErrWrongState,
			"view %q: cannot set a string in state %s", v.PathName(), v.state)
	}
	v.schema = DefaultSchema(types.Char8, types.IndexType(len(s)))
	v.shape = []types.IndexType{types.IndexType(len(s))}
	v.value = []byte(s)
	v.state = types.StateString
	v.applied = true
	return nil
}

// ScalarInt returns the inline scalar as an int64.
func (v *View) ScalarInt() (int64, error) {
	if v.state != types.StateScalar {
		return 0, fmt.Errorf("view %q holds no scalar: %w", v.PathName(), types.ErrWrongState)
	}
	if v.schema.Type.IsFloat() {
		return int64(readFloatElement(v.value, v.schema.Type)), nil
	}
	return readIntElement(v.value, v.schema.Type), nil
}

// ScalarFloat returns the inline scalar as a float64.
func (v *View) ScalarFloat() (float64, error) {
	if v.state != types.StateScalar {
		return 0, fmt.Errorf("view %q holds no scalar: %w", v.PathName(), types.ErrWrongState)
	}
	if v.schema.Type.IsFloat() {
		return readFloatElement(v.value, v.schema.Type), nil
	}
	return float64(readIntElement(v.value, v.schema.Type)), nil
}

// StringValue returns the inline string.
func (v *View) StringValue() (string, error) {
	if v.state != types.StateString {
		return "", fmt.Errorf("view %q holds no string: %w", v.PathName(), types.ErrWrongState)
	}
	return string(v.value), nil
}

// -----------------------------------------------------------------------------
// Data access
// -----------------------------------------------------------------------------

// Data returns the view's raw bytes starting at its described offset, or nil
// when there is nothing applied to look at. For an unapplied EXTERNAL view
// the memory is returned opaquely, description ignored.
func (v *View) Data() []byte {
	switch v.state {
	case types.StateEmpty:
		return nil
	case types.StateExternal:
		if v.applied {
			return sliceFrom(v.external, v.schema.OffsetBytes)
		}
		return v.external
	case types.StateBuffer:
		if v.applied {
			return sliceFrom(v.buffer.Bytes(), v.schema.OffsetBytes)
		}
		v.rep().Warnf("view %q has no applied data", v.PathName())
		return nil
	case types.StateScalar, types.StateString:
		return v.value
	default:
		v.rep().Fatalf("view %q: unexpected state value %d", v.PathName(), v.state)
		return nil
	}
}

func sliceFrom(src []byte, off types.IndexType) []byte {
	if off < 0 || off > types.IndexType(len(src)) {
		return nil
	}
	return src[off:]
}

// Int returns element i of an applied view as an int64, honoring offset and
// stride.
func (v *View) Int(i types.IndexType) (int64, error) {
	src, err := v.elementBytes(i, true)
	if err != nil {
		return 0, err
	}
	return readIntElement(src, v.schema.Type), nil
}

// SetInt stores an integer into element i of an applied view.
func (v *View) SetInt(i types.IndexType, x int64) error {
	src, err := v.elementBytes(i, true)
	if err != nil {
		return err
	}
	writeIntElement(src, v.schema.Type, x)
	return nil
}

// Float returns element i of an applied view as a float64.
func (v *View) Float(i types.IndexType) (float64, error) {
	src, err := v.elementBytes(i, false)
	if err != nil {
		return 0, err
	}
	return readFloatElement(src, v.schema.Type), nil
}

// SetFloat stores a floating point value into element i of an applied view.
func (v *View) SetFloat(i types.IndexType, x float64) error {
	src, err := v.elementBytes(i, false)
	if err != nil {
		return err
	}
	writeFloatElement(src, v.schema.Type, x)
	return nil
}

func (v *View) elementBytes(i types.IndexType, wantInt bool) ([]byte, error) {
	if !v.applied {
		return nil, fmt.Errorf("view %q is not applied: %w", v.PathName(), types.ErrWrongState)
	}
	if i < 0 || i >= v.schema.NumElems {
		return nil, fmt.Errorf("view %q: element %d out of range [0,%d): %w",
			v.PathName(), i, v.schema.NumElems, types.ErrBadArgument)
	}
	if wantInt != (v.schema.Type.IsInteger() || v.schema.Type == types.Char8) {
		return nil, fmt.Errorf("view %q holds %s elements: %w",
			v.PathName(), v.schema.Type, types.ErrBadArgument)
	}
	var src []byte
	switch v.state {
	case types.StateBuffer:
		src = v.buffer.Bytes()
	case types.StateExternal:
		src = v.external
	case types.StateScalar, types.StateString:
		src = v.value
	default:
		return nil, fmt.Errorf("view %q has no data: %w", v.PathName(), types.ErrWrongState)
	}
	pos := v.schema.elementPos(i)
	eb := v.schema.Type.ElementBytes()
	if pos < 0 || pos+eb > types.IndexType(len(src)) {
		return nil, fmt.Errorf("view %q: element %d lies outside the data: %w",
			v.PathName(), i, types.ErrBadArgument)
	}
	return src[pos : pos+eb], nil
}

// -----------------------------------------------------------------------------
// Attributes
// -----------------------------------------------------------------------------

// SetAttribute attaches a named string attribute to the view.
func (v *View) SetAttribute(name, value string) {
	if v.attrs == nil {
		v.attrs = map[string]string{}
	}
	if _, exists := v.attrs[name]; !exists {
		v.attrOrder = append(v.attrOrder, name)
	}
	v.attrs[name] = value
}

// Attribute returns a named attribute value.
func (v *View) Attribute(name string) (string, bool) {
	value, ok := v.attrs[name]
	return value, ok
}

// AttributeNames returns the attribute names in insertion order.
func (v *View) AttributeNames() []string {
	out := make([]string, len(v.attrOrder))
	copy(out, v.attrOrder)
	return out
}

// -----------------------------------------------------------------------------
// Rename
// -----------------------------------------------------------------------------

// Rename gives the view a new name within its owning group. The new name
// must be non-empty, free of path delimiters, and unused by any sibling view
// or group; on failure the view keeps its current name.
func (v *View) Rename(newName string) error {
	if newName == v.name {
		return nil
	}
	parent := v.group
	if newName == "" {
		return v.fail(types.ErrBadName,
			"view %q: cannot rename to an empty string", v.PathName())
	}
	if strings.Contains(newName, PathDelimiter) {
		return v.fail(types.ErrBadName,
			"view %q: cannot rename to %q, names may not contain %q",
			v.PathName(), newName, PathDelimiter)
	}
	if parent.hasChild(newName) {
		return v.fail(types.ErrNameTaken,
			"group %q already has a child named %q", parent.PathName(), newName)
	}
	parent.detachView(v.name)
	v.name = newName
	parent.attachView(v)
	return nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (v *View) rep() report.Reporter { return v.group.store.rep }

func (v *View) fail(sentinel error, format string, args ...any) error {
	return failf(v.rep(), sentinel, format, args...)
}

// describe installs a new description and invalidates the applied binding.
func (v *View) describe(s Schema) {
	v.schema = s
	v.shape = []types.IndexType{s.NumElems}
	v.applied = false
}

// describeShaped installs a contiguous multi-dimensional description.
func (v *View) describeShaped(t types.TypeID, shape []types.IndexType) {
	numElems := types.IndexType(0)
	if len(shape) > 0 {
		numElems = 1
		for _, d := range shape {
			numElems *= d
		}
	}
	v.describe(DefaultSchema(t, numElems))
	v.shape = make([]types.IndexType, len(shape))
	copy(v.shape, shape)
}

// copyInto copies this view's contents into an undescribed EMPTY view,
// sharing the buffer or external memory rather than duplicating bytes.
func (v *View) copyInto(dst *View) error {
	if dst.state != types.StateEmpty || dst.IsDescribed() {
		return dst.fail(types.ErrWrongState,
			"view %q: copy target must be empty and undescribed", dst.PathName())
	}
	if v.IsDescribed() {
		dst.schema = v.schema
		dst.shape = v.Shape()
	}
	switch v.state {
	case types.StateEmpty:
		return nil
	case types.StateScalar, types.StateString:
		dst.value = append([]byte(nil), v.value...)
		dst.state = v.state
		dst.applied = true
		return nil
	case types.StateExternal:
		return dst.SetExternal(v.external)
	case types.StateBuffer:
		return dst.AttachBuffer(v.buffer)
	default:
		v.rep().Fatalf("view %q: unexpected state value %d", v.PathName(), v.state)
		return nil
	}
}
