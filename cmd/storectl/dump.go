package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storekit/storekit/pkg/types"
	"github.com/storekit/storekit/store"
)

var dumpLimit int

func init() {
	cmd := newDumpCmd()
	cmd.Flags().IntVar(&dumpLimit, "limit", 0, "Maximum elements to print (0 = all)")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <document> <view-path>",
		Short: "Print the contents of one view",
		Long: `The dump command prints the value of a single view: the elements of
an array view, or the inline scalar or string.

Example:
  storectl dump sim.json sim/mesh/coords
  storectl dump sim.json meta/label --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	return cmd
}

type viewDump struct {
	Path     string    `json:"path"`
	State    string    `json:"state"`
	Type     string    `json:"type,omitempty"`
	Elements int64     `json:"elements,omitempty"`
	Ints     []int64   `json:"ints,omitempty"`
	Floats   []float64 `json:"floats,omitempty"`
	Scalar   any       `json:"scalar,omitempty"`
	Text     string    `json:"text,omitempty"`
}

func runDump(args []string) error {
	printVerbose("Loading document: %s\n", args[0])
	ds, err := loadStore(args[0])
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	v, err := ds.Root().GetView(args[1])
	if err != nil {
		return err
	}

	dump, err := dumpView(v)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(dump)
	}

	printInfo("%s  [%s]\n", dump.Path, describeView(v))
	switch {
	case dump.Text != "" || v.IsString():
		printInfo("  %q\n", dump.Text)
	case dump.Scalar != nil:
		printInfo("  %v\n", dump.Scalar)
	case dump.Ints != nil:
		for i, x := range dump.Ints {
			printInfo("  [%d] %d\n", i, x)
		}
	case dump.Floats != nil:
		for i, x := range dump.Floats {
			printInfo("  [%d] %g\n", i, x)
		}
	default:
		printInfo("  (no data)\n")
	}
	return nil
}

func dumpView(v *store.View) (*viewDump, error) {
	dump := &viewDump{
		Path:  v.PathName(),
		State: v.State().String(),
	}
	if v.IsDescribed() {
		dump.Type = v.TypeID().String()
		dump.Elements = v.NumElements()
	}

	switch v.State() {
	case types.StateScalar:
		if v.TypeID().IsFloat() {
			f, err := v.ScalarFloat()
			if err != nil {
				return nil, err
			}
			dump.Scalar = f
		} else {
			x, err := v.ScalarInt()
			if err != nil {
				return nil, err
			}
			dump.Scalar = x
		}
	case types.StateString:
		s, err := v.StringValue()
		if err != nil {
			return nil, err
		}
		dump.Text = s
	case types.StateBuffer, types.StateExternal:
		if !v.IsApplied() {
			return dump, nil
		}
		n := v.NumElements()
		if dumpLimit > 0 && types.IndexType(dumpLimit) < n {
			n = types.IndexType(dumpLimit)
		}
		if v.TypeID().IsFloat() {
			for i := types.IndexType(0); i < n; i++ {
				f, err := v.Float(i)
				if err != nil {
					return nil, err
				}
				dump.Floats = append(dump.Floats, f)
			}
		} else {
			for i := types.IndexType(0); i < n; i++ {
				x, err := v.Int(i)
				if err != nil {
					return nil, err
				}
				dump.Ints = append(dump.Ints, x)
			}
		}
	}
	return dump, nil
}
