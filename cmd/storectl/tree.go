package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storekit/storekit/pkg/types"
	"github.com/storekit/storekit/store"
)

var (
	treeDepth  int
	treeStates bool
)

func init() {
	cmd := newTreeCmd()
	cmd.Flags().IntVar(&treeDepth, "depth", 0, "Maximum depth (0 = unlimited)")
	cmd.Flags().BoolVar(&treeStates, "states", false, "Annotate views with their state")
	rootCmd.AddCommand(cmd)
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <document> [path]",
		Short: "Display the group/view tree of a store document",
		Long: `The tree command displays the hierarchy of groups and views in a
saved store document, optionally starting below a group path.

Example:
  storectl tree sim.json
  storectl tree sim.json sim/mesh --depth 2
  storectl tree sim.json --states`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(args)
		},
	}
	return cmd
}

func runTree(args []string) error {
	printVerbose("Loading document: %s\n", args[0])
	ds, err := loadStore(args[0])
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	g := ds.Root()
	if len(args) > 1 {
		g, err = g.GetGroup(args[1])
		if err != nil {
			return err
		}
	}

	if jsonOut {
		return printJSON(treeNode(g, 1))
	}
	printGroup(g, 0)
	return nil
}

func printGroup(g *store.Group, depth int) {
	indent := strings.Repeat("  ", depth)
	name := g.Name()
	if g.IsRoot() {
		name = "/"
	}
	printInfo("%s%s/\n", indent, name)
	if treeDepth > 0 && depth >= treeDepth {
		return
	}
	for _, vn := range g.ViewNames() {
		v, err := g.GetView(vn)
		if err != nil {
			continue
		}
		if treeStates {
			printInfo("%s  %s  [%s]\n", indent, vn, describeView(v))
		} else {
			printInfo("%s  %s\n", indent, vn)
		}
	}
	for _, gn := range g.GroupNames() {
		child, err := g.GetGroup(gn)
		if err != nil {
			continue
		}
		printGroup(child, depth+1)
	}
}

func describeView(v *store.View) string {
	switch v.State() {
	case types.StateScalar:
		return fmt.Sprintf("%s %s", v.State(), v.TypeID())
	case types.StateString:
		return fmt.Sprintf("%s len %d", v.State(), v.NumElements())
	default:
		if v.IsDescribed() {
			return fmt.Sprintf("%s %s x%d", v.State(), v.TypeID(), v.NumElements())
		}
		return v.State().String()
	}
}

type treeEntry struct {
	Views  map[string]string    `json:"views,omitempty"`
	Groups map[string]treeEntry `json:"groups,omitempty"`
}

func treeNode(g *store.Group, depth int) treeEntry {
	entry := treeEntry{}
	if g.NumViews() > 0 {
		entry.Views = map[string]string{}
		for _, vn := range g.ViewNames() {
			if v, err := g.GetView(vn); err == nil {
				entry.Views[vn] = describeView(v)
			}
		}
	}
	if g.NumGroups() > 0 && (treeDepth == 0 || depth < treeDepth) {
		entry.Groups = map[string]treeEntry{}
		for _, gn := range g.GroupNames() {
			if child, err := g.GetGroup(gn); err == nil {
				entry.Groups[gn] = treeNode(child, depth+1)
			}
		}
	}
	return entry
}
