package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	natvis "github.com/effectus/natvis-go"
	"github.com/effectus/natvis-go/children"
	"github.com/effectus/natvis-go/host"
	"github.com/effectus/natvis-go/memhost"
)

var renderCmd = &cobra.Command{
	Use:   "render [files...]",
	Short: "Render snapshot values through visualizers",
	Long: `Render the roots of a value snapshot the way a debugger watch window
would: one summary line per value followed by its children, indented.

Examples:
  natvisc render --snapshot values.yaml std.natvis
  natvisc render --snapshot values.json --root list --depth 3 std.natvis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		snapshotPath, _ := cmd.Flags().GetString("snapshot")
		roots, _ := cmd.Flags().GetStringSlice("root")
		depth, _ := cmd.Flags().GetInt("depth")
		if snapshotPath == "" {
			return fmt.Errorf("--snapshot is required")
		}
		snap, err := memhost.LoadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		vis := natvis.New(snap.Host(memhost.WithLogger(logger)),
			natvis.WithConfig(cfg), natvis.WithLogger(logger))
		for _, path := range sourceFiles(cfg, args) {
			if _, err := vis.LoadFile(path); err != nil {
				return err
			}
		}
		if len(roots) == 0 {
			roots = snap.Names()
		}
		for _, name := range roots {
			root, ok := snap.Root(name)
			if !ok {
				return fmt.Errorf("snapshot has no root %q", name)
			}
			renderValue(cmd.OutOrStdout(), vis, root, depth)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().String("snapshot", "", "Snapshot file with the values to render")
	renderCmd.Flags().StringSlice("root", nil, "Roots to render (default all)")
	renderCmd.Flags().Int("depth", 1, "Levels of children to expand")
}

// renderValue writes v and its children down to depth levels.
func renderValue(w io.Writer, vis *natvis.Visualizer, v host.Value, depth int) {
	writeTree(w, vis, v, 0, depth)
}

func writeTree(w io.Writer, vis *natvis.Visualizer, v host.Value, level, depth int) {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(w, "%s%s = %s\n", indent, v.Name(), vis.Summarize(v))
	if level >= depth {
		return
	}
	kids := vis.Expand(v)
	for i := 0; i < kids.Count(); i++ {
		child := kids.At(i)
		if child == nil {
			fmt.Fprintf(w, "%s  [%d] = ???\n", indent, i)
			continue
		}
		if child.Name() == children.RawViewName {
			continue
		}
		writeTree(w, vis, child, level+1, depth)
	}
	if t, ok := kids.(children.Truncated); ok && t.HasMore() {
		fmt.Fprintf(w, "%s  ...\n", indent)
	}
}
