package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/effectus/natvis-go/manager"
	"github.com/effectus/natvis-go/store"
	"github.com/effectus/natvis-go/typename"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <type> [files...]",
	Short: "Show the visualizers that apply to a type, best first",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		t, err := typename.Parse(args[0])
		if err != nil {
			return fmt.Errorf("type %q: %w", args[0], err)
		}
		m := manager.New(manager.WithLogger(logger))
		for _, path := range sourceFiles(cfg, args[1:]) {
			if _, err := m.Register(path); err != nil {
				return err
			}
		}
		matches := m.Lookup(t)
		if len(matches) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no visualizer for %s\n", t)
			return nil
		}
		writeMatches(cmd.OutOrStdout(), matches)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func writeMatches(w io.Writer, matches []store.Match) {
	for i, match := range matches {
		fmt.Fprintf(w, "%d. %s (Priority: %s", i+1, match.Pattern.Text, match.Rule.Priority)
		if len(match.Bindings) > 0 {
			fmt.Fprintf(w, ", $T: %s", strings.Join(match.Bindings, ", "))
		}
		fmt.Fprintln(w, ")")
	}
}
