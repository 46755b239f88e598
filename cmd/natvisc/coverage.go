package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/effectus/natvis-go/analysis"
	"github.com/effectus/natvis-go/host"
	"github.com/effectus/natvis-go/manager"
	"github.com/effectus/natvis-go/memhost"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage [files...]",
	Short: "Report which snapshot types have a visualizer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		snapshotPath, _ := cmd.Flags().GetString("snapshot")
		format, _ := cmd.Flags().GetString("format")
		if snapshotPath == "" {
			return fmt.Errorf("--snapshot is required")
		}
		snap, err := memhost.LoadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		m := manager.New(manager.WithLogger(logger))
		for _, path := range sourceFiles(cfg, args) {
			if _, err := m.Register(path); err != nil {
				return err
			}
		}
		report := analysis.BuildCoverage(m, snapshotTypes(snap))
		return writeCoverage(cmd.OutOrStdout(), report, format)
	},
}

func init() {
	rootCmd.AddCommand(coverageCmd)
	coverageCmd.Flags().String("snapshot", "", "Snapshot file providing the type names")
	coverageCmd.Flags().String("format", "text", "Output format: text or json")
}

// snapshotTypes collects the type names of every value reachable from the
// snapshot roots.
func snapshotTypes(snap *memhost.Snapshot) []string {
	h := snap.Host()
	seen := make(map[uint64]bool)
	var types []string
	var visit func(v host.Value)
	visit = func(v host.Value) {
		types = append(types, v.TypeName())
		if mv, ok := v.(*memhost.Value); ok && mv.Address() != 0 {
			if seen[mv.Address()] {
				return
			}
			seen[mv.Address()] = true
		}
		fields, err := h.Fields(v)
		if err != nil {
			return
		}
		for _, f := range fields {
			visit(f)
		}
	}
	for _, name := range snap.Names() {
		root, _ := snap.Root(name)
		visit(root)
	}
	return types
}

func writeCoverage(w io.Writer, report analysis.CoverageReport, format string) error {
	switch strings.ToLower(format) {
	case "json":
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding coverage: %w", err)
		}
		fmt.Fprintln(w, string(encoded))
	case "text":
		fmt.Fprintf(w, "Coverage: %.0f%%\n", report.Ratio()*100)
		for _, c := range report.Covered {
			fmt.Fprintf(w, "  covered   %s -> %s\n", c.Type, c.Pattern)
		}
		for _, name := range report.Uncovered {
			fmt.Fprintf(w, "  uncovered %s\n", name)
		}
		for _, name := range report.Invalid {
			fmt.Fprintf(w, "  invalid   %s\n", name)
		}
		for _, pattern := range report.UnusedPatterns {
			fmt.Fprintf(w, "  unused    %s\n", pattern)
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}
