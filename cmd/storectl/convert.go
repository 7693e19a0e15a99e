package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storekit/storekit/internal/doctext"
)

var (
	convertEncoding string
	convertPretty   bool
)

func init() {
	cmd := newConvertCmd()
	cmd.Flags().StringVar(&convertEncoding, "encoding", doctext.EncodingUTF8,
		"Output text encoding (UTF-8 or UTF-16LE)")
	cmd.Flags().BoolVar(&convertPretty, "pretty", false, "Indent the JSON output")
	rootCmd.AddCommand(cmd)
}

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-encode a store document",
		Long: `The convert command loads a store document and writes it back out,
normalizing the content and converting between text encodings. Loading
accepts UTF-8 and UTF-16 input regardless of flags.

Example:
  storectl convert legacy.json clean.json
  storectl convert sim.json sim-win.json --encoding UTF-16LE
  storectl convert sim.json readable.json --pretty`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(args)
		},
	}
	return cmd
}

func runConvert(args []string) error {
	inPath, outPath := args[0], args[1]
	printVerbose("Loading document: %s\n", inPath)

	ds, err := loadStore(inPath)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	node, err := ds.ExportNode()
	if err != nil {
		return err
	}
	data, err := node.MarshalJSON()
	if err != nil {
		return err
	}
	if convertPretty {
		var indented bytes.Buffer
		if err := json.Indent(&indented, data, "", "  "); err != nil {
			return err
		}
		data = indented.Bytes()
	}
	data, err = doctext.Encode(data, convertEncoding)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	printInfo("Wrote %s (%d bytes, %s)\n", outPath, len(data), convertEncoding)
	return nil
}
