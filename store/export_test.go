package store

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/internal/doctext"
	"github.com/storekit/storekit/pkg/types"
)

// buildSampleStore assembles a store exercising every view state: two views
// sharing one buffer (one of them strided), an unreferenced buffer, inline
// values, an external view and a described-but-empty view.
func buildSampleStore(t *testing.T) *DataStore {
	t.Helper()
	ds, _ := newTestStore(t)
	root := ds.Root()

	b := ds.CreateBuffer()
	require.NoError(t, b.Allocate(types.Int32, 8))
	for i := types.IndexType(0); i < 8; i++ {
		require.NoError(t, b.SetInt(i, int64(10*i)))
	}
	full, err := root.CreateBufferView("data/full", b)
	require.NoError(t, err)
	require.NoError(t, full.ApplyNumElems(8, 0, 1))
	window, err := root.CreateBufferView("data/window", b)
	require.NoError(t, err)
	require.NoError(t, window.ApplyNumElems(3, 1, 2))

	// Never referenced by a view; export must drop it.
	orphan := ds.CreateBuffer()
	require.NoError(t, orphan.Allocate(types.Float64, 2))

	_, err = root.CreateScalarIntView("meta/cycle", 42)
	require.NoError(t, err)
	_, err = root.CreateScalarFloatView("meta/time", 1.25)
	require.NoError(t, err)
	label, err := root.CreateStringView("meta/label", "run-7")
	require.NoError(t, err)
	label.SetAttribute("units", "none")

	_, err = root.CreateExternalView("ext", make([]byte, 16), types.Int32, 4)
	require.NoError(t, err)
	_, err = root.CreateTypedView("pending", types.Float64, 3)
	require.NoError(t, err)
	return ds
}

func TestExportImportRoundTrip(t *testing.T) {
	src := buildSampleStore(t)

	var buf bytes.Buffer
	require.NoError(t, src.SaveTo(&buf))

	dst, _ := newTestStore(t)
	require.NoError(t, dst.LoadFrom(&buf))
	root := dst.Root()

	// The orphaned buffer was dropped; the shared one came back exactly once.
	require.Equal(t, 1, dst.NumBuffers())

	full, err := root.GetView("data/full")
	require.NoError(t, err)
	window, err := root.GetView("data/window")
	require.NoError(t, err)
	require.Same(t, full.Buffer(), window.Buffer(),
		"buffer sharing topology survives the round trip")
	require.True(t, full.IsApplied())
	require.True(t, window.IsApplied())

	for i := types.IndexType(0); i < 8; i++ {
		got, err := full.Int(i)
		require.NoError(t, err)
		require.Equal(t, int64(10*i), got, "element %d", i)
	}

	// The strided window still sees buffer elements 1, 3, 5.
	require.Equal(t, types.IndexType(3), window.NumElements())
	off, err := window.Offset()
	require.NoError(t, err)
	require.Equal(t, types.IndexType(1), off)
	stride, err := window.Stride()
	require.NoError(t, err)
	require.Equal(t, types.IndexType(2), stride)
	for i := types.IndexType(0); i < 3; i++ {
		got, err := window.Int(i)
		require.NoError(t, err)
		require.Equal(t, int64(10*(1+2*i)), got)
	}

	cycle, err := root.GetView("meta/cycle")
	require.NoError(t, err)
	x, err := cycle.ScalarInt()
	require.NoError(t, err)
	require.Equal(t, int64(42), x)

	tm, err := root.GetView("meta/time")
	require.NoError(t, err)
	f, err := tm.ScalarFloat()
	require.NoError(t, err)
	require.Equal(t, 1.25, f)

	label, err := root.GetView("meta/label")
	require.NoError(t, err)
	s, err := label.StringValue()
	require.NoError(t, err)
	require.Equal(t, "run-7", s)
	units, ok := label.Attribute("units")
	require.True(t, ok)
	require.Equal(t, "none", units)

	// External memory cannot be saved; the view returns described and
	// unapplied, waiting for a new pointer.
	ext, err := root.GetView("ext")
	require.NoError(t, err)
	require.True(t, ext.IsExternal())
	require.False(t, ext.IsApplied())
	require.Equal(t, types.Int32, ext.TypeID())
	require.NoError(t, ext.SetExternal(make([]byte, 16)))
	require.True(t, ext.IsApplied())

	pending, err := root.GetView("pending")
	require.NoError(t, err)
	require.True(t, pending.IsEmpty())
	require.True(t, pending.IsDescribed())
	require.Equal(t, types.IndexType(3), pending.NumElements())
}

func TestExportIsDeterministic(t *testing.T) {
	ds := buildSampleStore(t)
	var a, b bytes.Buffer
	require.NoError(t, ds.SaveTo(&a))
	require.NoError(t, ds.SaveTo(&b))
	require.Equal(t, a.String(), b.String())
}

func TestSaveLoadFile(t *testing.T) {
	src := buildSampleStore(t)
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, src.Save(path))

	dst, _ := newTestStore(t)
	require.NoError(t, dst.Load(path))
	require.Equal(t, 1, dst.NumBuffers())
	require.True(t, dst.Root().HasView("data/full"))
	require.True(t, dst.Root().HasView("meta/label"))
}

func TestLoadFromUTF16Document(t *testing.T) {
	src := buildSampleStore(t)
	var buf bytes.Buffer
	require.NoError(t, src.SaveTo(&buf))

	encoded, err := doctext.Encode(buf.Bytes(), doctext.EncodingUTF16LE)
	require.NoError(t, err)
	require.NotEqual(t, buf.Bytes(), encoded)

	dst, _ := newTestStore(t)
	require.NoError(t, dst.LoadFrom(bytes.NewReader(encoded)))
	require.True(t, dst.Root().HasView("data/window"))
}

func TestLoadRejectsForeignDocuments(t *testing.T) {
	for _, doc := range []string{
		`{"foo": 1}`,
		`{"storekit": {"format": "something-else", "version": 1}}`,
		`{"storekit": {"format": "datastore", "version": 99}}`,
	} {
		ds, _ := newTestStore(t)
		err := ds.LoadFrom(strings.NewReader(doc))
		require.ErrorIs(t, err, types.ErrNotDocument, "doc %s", doc)
	}
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	header := `"storekit": {"format": "datastore", "version": 1}`
	for _, doc := range []string{
		`{not json`,
		`{` + header + `}`, // no tree
		`{` + header + `, "buffers": {"zero": {}}, "tree": {}}`,
		`{` + header + `, "tree": {"views": {"v": {"state": "BUFFER", "buffer_id": 5}}}}`,
		`{` + header + `, "buffers": {"0": {"type": "int32", "num_elems": 2, "allocated": true}}, "tree": {}}`,
	} {
		ds, _ := newTestStore(t)
		err := ds.LoadFrom(strings.NewReader(doc))
		require.ErrorIs(t, err, types.ErrCorrupt, "doc %s", doc)
	}
}

// A document written with a byte offset that does not divide evenly by the
// element width imports fine; asking for the element offset is the error.
func TestImportedNonIntegralOffsetSurfacesOnQuery(t *testing.T) {
	doc := `{
		"storekit": {"format": "datastore", "version": 1},
		"buffers": {"0": {"type": "int32", "num_elems": 4, "allocated": false}},
		"tree": {"views": {"v": {
			"state": "BUFFER",
			"buffer_id": 0,
			"schema": {"type": "int32", "num_elems": 2, "offset": 2, "stride": 4},
			"is_applied": false
		}}}
	}`
	ds, _ := newTestStore(t)
	require.NoError(t, ds.LoadFrom(strings.NewReader(doc)))

	v, err := ds.Root().GetView("v")
	require.NoError(t, err)
	_, err = v.Offset()
	require.ErrorIs(t, err, types.ErrBadArgument)
	stride, err := v.Stride()
	require.NoError(t, err)
	require.Equal(t, types.IndexType(1), stride)
}

func TestImportMergesIntoExistingTree(t *testing.T) {
	src, _ := newTestStore(t)
	_, err := src.Root().CreateScalarIntView("a/x", 1)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, src.SaveTo(&buf))
	saved := buf.Bytes()

	dst, _ := newTestStore(t)
	_, err = dst.Root().CreateScalarIntView("b/y", 2)
	require.NoError(t, err)
	require.NoError(t, dst.LoadFrom(bytes.NewReader(saved)))
	require.True(t, dst.Root().HasView("a/x"))
	require.True(t, dst.Root().HasView("b/y"))

	// Importing the same document again collides on the group name.
	err = dst.LoadFrom(bytes.NewReader(saved))
	require.ErrorIs(t, err, types.ErrNameTaken)
}
