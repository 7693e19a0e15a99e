package store

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/storekit/storekit/internal/document"
	"github.com/storekit/storekit/pkg/types"
)

// Saved document layout:
//
//	{
//	  "storekit": {"format": "datastore", "version": 1},
//	  "buffers":  {"<index>": {type, num_elems, allocated, total_bytes, data}},
//	  "tree":     {"views": {...}, "groups": {...}}
//	}
//
// Buffer indices inside view nodes are logical references; import remaps
// them onto freshly assigned indices. Only buffers referenced by at least
// one view are written.
const (
	docHeaderKey  = "storekit"
	docFormatName = "datastore"
	docVersion    = 1
)

// ExportNode serializes the whole store into a document tree.
func (ds *DataStore) ExportNode() (*document.Node, error) {
	header := document.NewObject()
	header.Set("format", document.String(docFormatName))
	header.Set("version", document.Int(docVersion))

	referenced := map[types.IndexType]bool{}
	tree, err := ds.root.exportTo(referenced)
	if err != nil {
		return nil, err
	}

	indices := make([]types.IndexType, 0, len(referenced))
	for index := range referenced {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	buffers := document.NewObject()
	for _, index := range indices {
		b, err := ds.GetBuffer(index)
		if err != nil {
			return nil, fmt.Errorf("exporting referenced buffer %d: %w", index, err)
		}
		buffers.Set(strconv.FormatInt(index, 10), b.exportTo())
	}

	root := document.NewObject()
	root.Set(docHeaderKey, header)
	root.Set("buffers", buffers)
	root.Set("tree", tree)
	return root, nil
}

// SaveTo writes the store as a UTF-8 JSON document.
func (ds *DataStore) SaveTo(w io.Writer) error {
	node, err := ds.ExportNode()
	if err != nil {
		return err
	}
	data, err := node.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Save writes the store document to a file.
func (ds *DataStore) Save(path string) error {
	node, err := ds.ExportNode()
	if err != nil {
		return err
	}
	data, err := node.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// exportTo writes the group subtree, collecting referenced buffer indices.
func (g *Group) exportTo(referenced map[types.IndexType]bool) (*document.Node, error) {
	n := document.NewObject()
	if len(g.views) > 0 {
		views := document.NewObject()
		for _, name := range g.ViewNames() {
			vn, err := g.views[name].exportTo(referenced)
			if err != nil {
				return nil, err
			}
			views.Set(name, vn)
		}
		n.Set("views", views)
	}
	if len(g.groups) > 0 {
		groups := document.NewObject()
		for _, name := range g.GroupNames() {
			gn, err := g.groups[name].exportTo(referenced)
			if err != nil {
				return nil, err
			}
			groups.Set(name, gn)
		}
		n.Set("groups", groups)
	}
	return n, nil
}

// exportTo writes one view node. An undescribed EXTERNAL view has nothing
// restorable and is demoted to EMPTY in the document.
func (v *View) exportTo(referenced map[types.IndexType]bool) (*document.Node, error) {
	n := document.NewObject()
	n.Set("state", document.String(v.state.String()))
	v.exportAttributes(n)

	switch v.state {
	case types.StateEmpty:
		if v.IsDescribed() {
			v.exportDescription(n)
		}
	case types.StateBuffer:
		n.Set("buffer_id", document.Int(v.buffer.Index()))
		if v.IsDescribed() {
			v.exportDescription(n)
		}
		n.Set("is_applied", document.Bool(v.applied))
		referenced[v.buffer.Index()] = true
	case types.StateExternal:
		if v.IsDescribed() {
			v.exportDescription(n)
		} else {
			n.Set("state", document.String(types.StateEmpty.String()))
		}
	case types.StateScalar:
		value := document.NewObject()
		value.Set("type", document.String(v.schema.Type.String()))
		if v.schema.Type.IsFloat() {
			value.Set("value", document.Float(readFloatElement(v.value, v.schema.Type)))
		} else {
			value.Set("value", document.Int(readIntElement(v.value, v.schema.Type)))
		}
		n.Set("value", value)
	case types.StateString:
		n.Set("value", document.String(string(v.value)))
	default:
		v.rep().Fatalf("view %q: unexpected state value %d", v.PathName(), v.state)
	}
	return n, nil
}

// exportDescription writes the schema (offset and stride in bytes) and, for
// multi-dimensional views, the shape.
func (v *View) exportDescription(n *document.Node) {
	schema := document.NewObject()
	schema.Set("type", document.String(v.schema.Type.String()))
	schema.Set("num_elems", document.Int(v.schema.NumElems))
	schema.Set("offset", document.Int(v.schema.OffsetBytes))
	schema.Set("stride", document.Int(v.schema.StrideBytes))
	n.Set("schema", schema)
	if v.NumDimensions() > 1 {
		n.Set("shape", document.IntVector(v.shape))
	}
}

func (v *View) exportAttributes(n *document.Node) {
	if len(v.attrs) == 0 {
		return
	}
	attrs := document.NewObject()
	for _, name := range v.attrOrder {
		attrs.Set(name, document.String(v.attrs[name]))
	}
	n.Set("attributes", attrs)
}

// exportTo writes one buffer node. The payload is present only when the
// buffer is allocated.
func (b *Buffer) exportTo() *document.Node {
	n := document.NewObject()
	n.Set("type", document.String(b.typ.String()))
	n.Set("num_elems", document.Int(b.numElems))
	n.Set("allocated", document.Bool(b.allocated))
	n.Set("total_bytes", document.Int(b.TotalBytes()))
	if b.allocated {
		n.Set("data", document.Bytes(b.data))
	}
	return n
}
