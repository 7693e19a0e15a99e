package store

import (
	"io"
	"strconv"

	"github.com/storekit/storekit/internal/doctext"
	"github.com/storekit/storekit/internal/document"
	"github.com/storekit/storekit/internal/mmfile"
	"github.com/storekit/storekit/pkg/types"
)

// ImportNode restores a previously exported document into the store. Buffers
// are rebuilt first and receive fresh registry indices; the old indices
// recorded in the document are remapped when views re-attach. The imported
// tree merges into the current root, so importing into a non-empty store
// fails on any name collision.
func (ds *DataStore) ImportNode(n *document.Node) error {
	if err := ds.checkHeader(n); err != nil {
		return err
	}
	remap := map[types.IndexType]*Buffer{}
	if buffers, ok := n.Child("buffers"); ok {
		for _, key := range buffers.Keys() {
			oldIndex, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return failf(ds.rep, types.ErrCorrupt,
					"document: buffer key %q is not an index", key)
			}
			bn, _ := buffers.Child(key)
			b, err := ds.importBuffer(bn, key)
			if err != nil {
				return err
			}
			remap[types.IndexType(oldIndex)] = b
		}
	}
	tree, ok := n.Child("tree")
	if !ok {
		return failf(ds.rep, types.ErrCorrupt, "document: missing tree")
	}
	return ds.root.importFrom(tree, remap)
}

// LoadFrom reads and imports a store document from r.
func (ds *DataStore) LoadFrom(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return ds.importBytes(data)
}

// Load reads and imports a store document from a file. The file is mapped
// rather than read so large saved stores do not get copied twice.
func (ds *DataStore) Load(path string) error {
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return err
	}
	defer cleanup()
	return ds.importBytes(data)
}

func (ds *DataStore) importBytes(data []byte) error {
	text, err := doctext.Decode(data)
	if err != nil {
		return failf(ds.rep, types.ErrCorrupt, "document: %v", err)
	}
	node, err := document.Parse(text)
	if err != nil {
		return failf(ds.rep, types.ErrCorrupt, "document: %v", err)
	}
	return ds.ImportNode(node)
}

func (ds *DataStore) checkHeader(n *document.Node) error {
	header, ok := n.Child(docHeaderKey)
	if !ok || header.Kind() != document.KindObject {
		return failf(ds.rep, types.ErrNotDocument, "document: missing %q header", docHeaderKey)
	}
	if format, _ := header.Child("format"); format == nil || format.Str() != docFormatName {
		return failf(ds.rep, types.ErrNotDocument, "document: not a %s document", docFormatName)
	}
	if version, _ := header.Child("version"); version == nil || version.Int() > docVersion {
		return failf(ds.rep, types.ErrNotDocument,
			"document: unsupported format version")
	}
	return nil
}

// childStr, childInt and childBool read leaf children with zero-value
// defaults, which is what "skip unknown or absent fields" wants.

func childStr(n *document.Node, key string) string {
	c, _ := n.Child(key)
	if c == nil {
		return ""
	}
	return c.Str()
}

func childInt(n *document.Node, key string) types.IndexType {
	c, _ := n.Child(key)
	if c == nil {
		return 0
	}
	return c.Int()
}

func childBool(n *document.Node, key string) bool {
	c, _ := n.Child(key)
	if c == nil {
		return false
	}
	return c.Bool()
}

// importBuffer rebuilds one buffer from its document node.
func (ds *DataStore) importBuffer(n *document.Node, key string) (*Buffer, error) {
	b := ds.newBuffer()
	t := types.NoType
	if typeName := childStr(n, "type"); typeName != "" {
		var err error
		t, err = types.ParseTypeID(typeName)
		if err != nil {
			ds.destroyBufferObject(b)
			return nil, failf(ds.rep, types.ErrCorrupt, "document: buffer %s: %v", key, err)
		}
	}
	if t != types.NoType {
		if err := b.Describe(t, childInt(n, "num_elems")); err != nil {
			ds.destroyBufferObject(b)
			return nil, err
		}
	}
	if !childBool(n, "allocated") {
		return b, nil
	}
	data, ok := n.Child("data")
	if !ok {
		ds.destroyBufferObject(b)
		return nil, failf(ds.rep, types.ErrCorrupt,
			"document: buffer %s is allocated but has no data", key)
	}
	raw, err := data.Bytes()
	if err != nil {
		ds.destroyBufferObject(b)
		return nil, failf(ds.rep, types.ErrCorrupt, "document: buffer %s: %v", key, err)
	}
	if want := childInt(n, "total_bytes"); want != types.IndexType(len(raw)) {
		ds.destroyBufferObject(b)
		return nil, failf(ds.rep, types.ErrCorrupt,
			"document: buffer %s holds %d bytes, header says %d", key, len(raw), want)
	}
	if err := b.Allocate(b.typ, b.numElems); err != nil {
		ds.destroyBufferObject(b)
		return nil, err
	}
	copy(b.data, raw)
	return b, nil
}

// importFrom rebuilds the group subtree below g.
func (g *Group) importFrom(n *document.Node, remap map[types.IndexType]*Buffer) error {
	if views, ok := n.Child("views"); ok {
		for _, name := range views.Keys() {
			v, err := g.CreateView(name)
			if err != nil {
				return err
			}
			vn, _ := views.Child(name)
			if err := v.importFrom(vn, remap); err != nil {
				return err
			}
		}
	}
	if groups, ok := n.Child("groups"); ok {
		for _, name := range groups.Keys() {
			child, err := g.CreateGroup(name)
			if err != nil {
				return err
			}
			gn, _ := groups.Child(name)
			if err := child.importFrom(gn, remap); err != nil {
				return err
			}
		}
	}
	return nil
}

// importFrom rebuilds one view from its document node. Unknown fields are
// skipped so newer writers stay readable.
func (v *View) importFrom(n *document.Node, remap map[types.IndexType]*Buffer) error {
	state, err := types.ParseState(childStr(n, "state"))
	if err != nil {
		return v.fail(types.ErrCorrupt, "document: view %q: %v", v.PathName(), err)
	}
	if attrs, ok := n.Child("attributes"); ok {
		for _, name := range attrs.Keys() {
			value, _ := attrs.Child(name)
			v.SetAttribute(name, value.Str())
		}
	}
	switch state {
	case types.StateEmpty:
		return v.importDescription(n)
	case types.StateBuffer:
		oldIndex := types.InvalidIndex
		if id, ok := n.Child("buffer_id"); ok {
			oldIndex = id.Int()
		}
		b, ok := remap[oldIndex]
		if !ok {
			return v.fail(types.ErrCorrupt,
				"document: view %q references missing buffer %d", v.PathName(), oldIndex)
		}
		if err := v.importDescription(n); err != nil {
			return err
		}
		v.buffer = b
		b.attach(v)
		v.state = types.StateBuffer
		if childBool(n, "is_applied") && v.IsDescribed() && b.IsAllocated() {
			return v.Apply()
		}
		return nil
	case types.StateExternal:
		// The original memory is gone; the view comes back described but
		// unapplied, waiting for SetExternal.
		if err := v.importDescription(n); err != nil {
			return err
		}
		v.state = types.StateExternal
		return nil
	case types.StateScalar:
		value, ok := n.Child("value")
		if !ok {
			return v.fail(types.ErrCorrupt,
				"document: scalar view %q has no value", v.PathName())
		}
		t, err := types.ParseTypeID(childStr(value, "type"))
		if err != nil {
			return v.fail(types.ErrCorrupt, "document: view %q: %v", v.PathName(), err)
		}
		x, _ := value.Child("value")
		if x == nil {
			return v.fail(types.ErrCorrupt,
				"document: scalar view %q has no value", v.PathName())
		}
		if t.IsFloat() {
			return v.SetScalarFloat(x.Float())
		}
		return v.SetScalarInt(x.Int())
	case types.StateString:
		value, ok := n.Child("value")
		if !ok {
			return v.fail(types.ErrCorrupt,
				"document: string view %q has no value", v.PathName())
		}
		return v.SetString(value.Str())
	default:
		return v.fail(types.ErrCorrupt,
			"document: view %q has unknown state %q", v.PathName(), childStr(n, "state"))
	}
}

// importDescription restores the schema and shape, leaving the view
// unapplied.
func (v *View) importDescription(n *document.Node) error {
	schema, ok := n.Child("schema")
	if !ok {
		return nil
	}
	t, err := types.ParseTypeID(childStr(schema, "type"))
	if err != nil {
		return v.fail(types.ErrCorrupt, "document: view %q: %v", v.PathName(), err)
	}
	v.schema = Schema{
		Type:        t,
		NumElems:    childInt(schema, "num_elems"),
		OffsetBytes: childInt(schema, "offset"),
		StrideBytes: childInt(schema, "stride"),
	}
	v.applied = false
	if shape, ok := n.Child("shape"); ok {
		v.shape = shape.IntVector()
	} else {
		v.shape = []types.IndexType{v.schema.NumElems}
	}
	return nil
}
