package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/types"
	"github.com/storekit/storekit/store"
)

func writeTestDocument(t *testing.T) string {
	t.Helper()
	ds := store.New()
	root := ds.Root()

	v, err := root.CreateAllocatedView("mesh/ids", types.Int32, 4)
	require.NoError(t, err)
	for i := types.IndexType(0); i < 4; i++ {
		require.NoError(t, v.SetInt(i, int64(i+1)))
	}
	_, err = root.CreateScalarFloatView("meta/time", 0.5)
	require.NoError(t, err)
	_, err = root.CreateStringView("meta/label", "run-1")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, ds.Save(path))
	return path
}

func TestDumpView(t *testing.T) {
	path := writeTestDocument(t)
	ds, err := loadStore(path)
	require.NoError(t, err)

	ids, err := ds.Root().GetView("mesh/ids")
	require.NoError(t, err)
	dump, err := dumpView(ids)
	require.NoError(t, err)
	require.Equal(t, "BUFFER", dump.State)
	require.Equal(t, "int32", dump.Type)
	require.Equal(t, []int64{1, 2, 3, 4}, dump.Ints)

	tm, err := ds.Root().GetView("meta/time")
	require.NoError(t, err)
	dump, err = dumpView(tm)
	require.NoError(t, err)
	require.Equal(t, 0.5, dump.Scalar)

	label, err := ds.Root().GetView("meta/label")
	require.NoError(t, err)
	dump, err = dumpView(label)
	require.NoError(t, err)
	require.Equal(t, "run-1", dump.Text)
}

func TestDumpViewHonorsLimit(t *testing.T) {
	path := writeTestDocument(t)
	ds, err := loadStore(path)
	require.NoError(t, err)
	ids, err := ds.Root().GetView("mesh/ids")
	require.NoError(t, err)

	dumpLimit = 2
	defer func() { dumpLimit = 0 }()
	dump, err := dumpView(ids)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, dump.Ints)
}

func TestDescribeView(t *testing.T) {
	ds := store.New()
	v, err := ds.Root().CreateAllocatedView("v", types.Float64, 3)
	require.NoError(t, err)
	require.Equal(t, "BUFFER float64 x3", describeView(v))

	s, err := ds.Root().CreateStringView("s", "abc")
	require.NoError(t, err)
	require.Equal(t, "STRING len 3", describeView(s))

	e, err := ds.Root().CreateView("e")
	require.NoError(t, err)
	require.Equal(t, "EMPTY", describeView(e))
}

func TestRunConvertRoundTrip(t *testing.T) {
	in := writeTestDocument(t)
	out := filepath.Join(t.TempDir(), "out.json")

	quiet = true
	defer func() { quiet = false }()
	convertEncoding = "UTF-16LE"
	defer func() { convertEncoding = "UTF-8" }()
	require.NoError(t, runConvert([]string{in, out}))

	ds, err := loadStore(out)
	require.NoError(t, err)
	require.True(t, ds.Root().HasView("mesh/ids"))
}
