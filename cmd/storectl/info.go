package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storekit/storekit/store"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <document>",
		Short: "Load a store document and report basic metadata",
		Long: `The info command loads a saved store document and displays basic
metadata: group and view counts, buffer count and total buffer bytes.

Example:
  storectl info sim.json
  storectl info sim.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

type storeInfo struct {
	File        string         `json:"file"`
	Groups      int            `json:"groups"`
	Views       int            `json:"views"`
	ViewStates  map[string]int `json:"view_states"`
	Buffers     int            `json:"buffers"`
	BufferBytes int64          `json:"buffer_bytes"`
}

func runInfo(args []string) error {
	path := args[0]
	printVerbose("Loading document: %s\n", path)

	ds, err := loadStore(path)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	info := storeInfo{File: path, Buffers: ds.NumBuffers(), ViewStates: map[string]int{}}
	countChildren(ds.Root(), &info)
	for _, index := range ds.BufferIndices() {
		b, err := ds.GetBuffer(index)
		if err != nil {
			return err
		}
		info.BufferBytes += b.TotalBytes()
	}

	if jsonOut {
		return printJSON(info)
	}

	printInfo("\nStore Information:\n")
	printInfo("  File: %s\n", path)
	if stat, err := os.Stat(path); err == nil {
		printInfo("  Size: %d bytes\n", stat.Size())
	}
	printInfo("  Groups: %d\n", info.Groups)
	printInfo("  Views: %d\n", info.Views)
	for _, state := range []string{"EMPTY", "BUFFER", "EXTERNAL", "SCALAR", "STRING"} {
		if n := info.ViewStates[state]; n > 0 {
			printInfo("    %s: %d\n", state, n)
		}
	}
	printInfo("  Buffers: %d (%d bytes)\n", info.Buffers, info.BufferBytes)
	return nil
}

func countChildren(g *store.Group, info *storeInfo) {
	info.Views += g.NumViews()
	for _, name := range g.ViewNames() {
		if v, err := g.GetView(name); err == nil {
			info.ViewStates[v.State().String()]++
		}
	}
	for _, name := range g.GroupNames() {
		child, err := g.GetGroup(name)
		if err != nil {
			continue
		}
		info.Groups++
		countChildren(child, info)
	}
}

// loadStore loads a document into a fresh store.
func loadStore(path string) (*store.DataStore, error) {
	ds := store.New()
	if err := ds.Load(path); err != nil {
		return nil, err
	}
	return ds, nil
}
