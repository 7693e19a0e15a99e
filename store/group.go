package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/storekit/storekit/pkg/types"
)

// PathDelimiter separates group names in a path.
const PathDelimiter = "/"

// Group is a named node of the store tree. It owns its child groups and
// views by name; the two child kinds live in separate maps, but a new name
// must be free in both so a path never resolves ambiguously.
//
// Create, Get, Has and Destroy operations accept delimiter-joined paths.
// Create operations build missing intermediate groups on the way down.
type Group struct {
	name   string
	parent *Group
	store  *DataStore

	groups map[string]*Group
	views  map[string]*View
}

// Name returns the group's name. The root group's name is "".
func (g *Group) Name() string { return g.name }

// Parent returns the parent group, nil for the root.
func (g *Group) Parent() *Group { return g.parent }

// Store returns the enclosing data store.
func (g *Group) Store() *DataStore { return g.store }

// IsRoot reports whether the group is the store's root.
func (g *Group) IsRoot() bool { return g.parent == nil }

// Path returns the delimiter-joined names of the group's ancestors.
func (g *Group) Path() string {
	if g.parent == nil {
		return ""
	}
	return g.parent.PathName()
}

// PathName returns the group's full path, including its own name. The root
// has the empty path name.
func (g *Group) PathName() string {
	if g.Path() == "" {
		return g.name
	}
	return g.Path() + PathDelimiter + g.name
}

// -----------------------------------------------------------------------------
// Lookup
// -----------------------------------------------------------------------------

// NumGroups returns the number of direct child groups.
func (g *Group) NumGroups() int { return len(g.groups) }

// NumViews returns the number of direct child views.
func (g *Group) NumViews() int { return len(g.views) }

// GroupNames returns the direct child group names in sorted order.
func (g *Group) GroupNames() []string { return sortedKeys(g.groups) }

// ViewNames returns the direct child view names in sorted order.
func (g *Group) ViewNames() []string { return sortedKeys(g.views) }

// HasGroup reports whether a group exists at path.
func (g *Group) HasGroup(path string) bool {
	_, err := g.GetGroup(path)
	return err == nil
}

// HasView reports whether a view exists at path.
func (g *Group) HasView(path string) bool {
	_, err := g.GetView(path)
	return err == nil
}

// GetGroup returns the group at path.
func (g *Group) GetGroup(path string) (*Group, error) {
	owner, name, err := g.walk(path, false)
	if err != nil {
		return nil, err
	}
	child, ok := owner.groups[name]
	if !ok {
		return nil, fmt.Errorf("group %q has no child group %q: %w",
			owner.PathName(), name, types.ErrNotFound)
	}
	return child, nil
}

// GetView returns the view at path.
func (g *Group) GetView(path string) (*View, error) {
	owner, name, err := g.walk(path, false)
	if err != nil {
		return nil, err
	}
	v, ok := owner.views[name]
	if !ok {
		return nil, fmt.Errorf("group %q has no view %q: %w",
			owner.PathName(), name, types.ErrNotFound)
	}
	return v, nil
}

// -----------------------------------------------------------------------------
// Creation
// -----------------------------------------------------------------------------

// CreateGroup creates a group at path, building intermediate groups as
// needed.
func (g *Group) CreateGroup(path string) (*Group, error) {
	owner, name, err := g.walk(path, true)
	if err != nil {
		return nil, err
	}
	if err := owner.checkNewName(name); err != nil {
		return nil, err
	}
	child := newGroup(name, owner, g.store)
	owner.groups[name] = child
	return child, nil
}

// CreateView creates an empty, undescribed view at path.
func (g *Group) CreateView(path string) (*View, error) {
	owner, name, err := g.walk(path, true)
	if err != nil {
		return nil, err
	}
	if err := owner.checkNewName(name); err != nil {
		return nil, err
	}
	v := &View{name: name, group: owner, state: types.StateEmpty}
	owner.views[name] = v
	return v, nil
}

// CreateTypedView creates a view at path described with numElems elements
// of t, without allocating.
func (g *Group) CreateTypedView(path string, t types.TypeID, numElems types.IndexType) (*View, error) {
	if t == types.NoType || numElems < 0 {
		return nil, failf(g.store.rep, types.ErrBadArgument,
			"group %q: view %q needs a type and a non-negative count", g.PathName(), path)
	}
	v, err := g.CreateView(path)
	if err != nil {
		return nil, err
	}
	v.describe(DefaultSchema(t, numElems))
	return v, nil
}

// CreateShapedView creates a view at path described as a contiguous
// multi-dimensional array, without allocating.
func (g *Group) CreateShapedView(path string, t types.TypeID, shape []types.IndexType) (*View, error) {
	if t == types.NoType || len(shape) == 0 {
		return nil, failf(g.store.rep, types.ErrBadArgument,
			"group %q: view %q needs a type and a non-empty shape", g.PathName(), path)
	}
	v, err := g.CreateView(path)
	if err != nil {
		return nil, err
	}
	v.describeShaped(t, shape)
	return v, nil
}

// CreateAllocatedView creates a described view at path and allocates its
// data.
func (g *Group) CreateAllocatedView(path string, t types.TypeID, numElems types.IndexType) (*View, error) {
	v, err := g.CreateTypedView(path, t, numElems)
	if err != nil {
		return nil, err
	}
	if err := v.Allocate(); err != nil {
		g.destroyChildView(v)
		return nil, err
	}
	return v, nil
}

// CreateBufferView creates a view at path attached to b.
func (g *Group) CreateBufferView(path string, b *Buffer) (*View, error) {
	v, err := g.CreateView(path)
	if err != nil {
		return nil, err
	}
	if b != nil {
		if err := v.AttachBuffer(b); err != nil {
			g.destroyChildView(v)
			return nil, err
		}
	}
	return v, nil
}

// CreateExternalView creates a described view at path wrapping caller-owned
// memory.
func (g *Group) CreateExternalView(path string, data []byte, t types.TypeID, numElems types.IndexType) (*View, error) {
	v, err := g.CreateTypedView(path, t, numElems)
	if err != nil {
		return nil, err
	}
	if err := v.SetExternal(data); err != nil {
		g.destroyChildView(v)
		return nil, err
	}
	return v, nil
}

// CreateScalarIntView creates a view at path holding an inline int64.
func (g *Group) CreateScalarIntView(path string, x int64) (*View, error) {
	v, err := g.CreateView(path)
	if err != nil {
		return nil, err
	}
	if err := v.SetScalarInt(x); err != nil {
		g.destroyChildView(v)
		return nil, err
	}
	return v, nil
}

// CreateScalarFloatView creates a view at path holding an inline float64.
func (g *Group) CreateScalarFloatView(path string, x float64) (*View, error) {
	v, err := g.CreateView(path)
	if err != nil {
		return nil, err
	}
	if err := v.SetScalarFloat(x); err != nil {
		g.destroyChildView(v)
		return nil, err
	}
	return v, nil
}

// CreateStringView creates a view at path holding an inline string.
func (g *Group) CreateStringView(path, s string) (*View, error) {
	v, err := g.CreateView(path)
	if err != nil {
		return nil, err
	}
	if err := v.SetString(s); err != nil {
		g.destroyChildView(v)
		return nil, err
	}
	return v, nil
}

// CopyView creates a view at path sharing src's data source: a BUFFER view's
// buffer is shared, not duplicated, an EXTERNAL view's memory is re-wrapped,
// and inline values are copied.
func (g *Group) CopyView(path string, src *View) (*View, error) {
	if src == nil {
		return nil, failf(g.store.rep, types.ErrBadArgument,
			"group %q: cannot copy a nil view", g.PathName())
	}
	v, err := g.CreateView(path)
	if err != nil {
		return nil, err
	}
	if err := src.copyInto(v); err != nil {
		g.destroyChildView(v)
		return nil, err
	}
	return v, nil
}

// -----------------------------------------------------------------------------
// Destruction
// -----------------------------------------------------------------------------

// DestroyView removes the view at path. The view detaches from its buffer,
// but the buffer itself survives even if left with no views.
func (g *Group) DestroyView(path string) error {
	v, err := g.GetView(path)
	if err != nil {
		return err
	}
	v.detachBuffer()
	g.destroyChildView(v)
	return nil
}

// DestroyViewAndData removes the view at path and cascades: a buffer left
// with no attached views is destroyed with it.
func (g *Group) DestroyViewAndData(path string) error {
	v, err := g.GetView(path)
	if err != nil {
		return err
	}
	if b := v.detachBuffer(); b != nil && b.NumViews() == 0 {
		g.store.destroyBufferObject(b)
	}
	g.destroyChildView(v)
	return nil
}

// DestroyGroup removes the group at path and its entire subtree. Views in
// the subtree detach from their buffers without destroying them.
func (g *Group) DestroyGroup(path string) error {
	child, err := g.GetGroup(path)
	if err != nil {
		return err
	}
	child.destroySubtree()
	delete(child.parent.groups, child.name)
	return nil
}

func (g *Group) destroySubtree() {
	for _, v := range g.views {
		v.detachBuffer()
		v.group = nil
	}
	g.views = map[string]*View{}
	for _, child := range g.groups {
		child.destroySubtree()
		child.parent = nil
	}
	g.groups = map[string]*Group{}
}

func (g *Group) destroyChildView(v *View) {
	delete(g.views, v.name)
	v.group = nil
}

// -----------------------------------------------------------------------------
// Rename
// -----------------------------------------------------------------------------

// Rename gives the group a new name within its parent, with the same rules
// as View.Rename. The root group cannot be renamed.
func (g *Group) Rename(newName string) error {
	if newName == g.name {
		return nil
	}
	if g.parent == nil {
		return failf(g.store.rep, types.ErrWrongState,
			"cannot rename the root group")
	}
	if newName == "" {
		return failf(g.store.rep, types.ErrBadName,
			"group %q: cannot rename to an empty string", g.PathName())
	}
	if strings.Contains(newName, PathDelimiter) {
		return failf(g.store.rep, types.ErrBadName,
			"group %q: cannot rename to %q, names may not contain %q",
			g.PathName(), newName, PathDelimiter)
	}
	if g.parent.hasChild(newName) {
		return failf(g.store.rep, types.ErrNameTaken,
			"group %q already has a child named %q", g.parent.PathName(), newName)
	}
	delete(g.parent.groups, g.name)
	g.name = newName
	g.parent.groups[newName] = g
	return nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func newGroup(name string, parent *Group, ds *DataStore) *Group {
	return &Group{
		name:   name,
		parent: parent,
		store:  ds,
		groups: map[string]*Group{},
		views:  map[string]*View{},
	}
}

// walk resolves all but the last segment of path, optionally creating
// missing intermediate groups, and returns the owning group plus the final
// segment.
func (g *Group) walk(path string, create bool) (*Group, string, error) {
	segments := strings.Split(path, PathDelimiter)
	for _, seg := range segments {
		if seg == "" {
			return nil, "", failf(g.store.rep, types.ErrBadName,
				"group %q: empty segment in path %q", g.PathName(), path)
		}
	}
	cur := g
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur.groups[seg]
		if !ok {
			if !create {
				return nil, "", fmt.Errorf("group %q has no child group %q: %w",
					cur.PathName(), seg, types.ErrNotFound)
			}
			if cur.hasChild(seg) {
				return nil, "", failf(g.store.rep, types.ErrNameTaken,
					"group %q already has a child named %q", cur.PathName(), seg)
			}
			next = newGroup(seg, cur, g.store)
			cur.groups[seg] = next
		}
		cur = next
	}
	return cur, segments[len(segments)-1], nil
}

// hasChild consults both namespaces: a name is taken if either a child
// group or a child view uses it.
func (g *Group) hasChild(name string) bool {
	if _, ok := g.groups[name]; ok {
		return true
	}
	_, ok := g.views[name]
	return ok
}

func (g *Group) checkNewName(name string) error {
	if name == "" {
		return failf(g.store.rep, types.ErrBadName,
			"group %q: child name must not be empty", g.PathName())
	}
	if g.hasChild(name) {
		return failf(g.store.rep, types.ErrNameTaken,
			"group %q already has a child named %q", g.PathName(), name)
	}
	return nil
}

func (g *Group) attachView(v *View) { g.views[v.name] = v }

func (g *Group) detachView(name string) *View {
	v, ok := g.views[name]
	if !ok {
		return nil
	}
	delete(g.views, name)
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
