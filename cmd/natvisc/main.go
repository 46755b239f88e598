package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/effectus/natvis-go/config"
	"github.com/effectus/natvis-go/parser"
)

var rootCmd = &cobra.Command{
	Use:   "natvisc",
	Short: "Inspect and exercise natvis visualizer files",
	Long: `natvisc parses, lints and applies natvis visualizer files.

Values are read from snapshot files (YAML or JSON) describing objects,
their types and their base classes.

Examples:
  # Lint a set of visualizers
  natvisc check std.natvis project.natvis

  # Render every root of a snapshot
  natvisc render --snapshot values.yaml std.natvis`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Show detailed output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the --config file, falling back to the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Diagnostics = config.DiagnosticsVerbose
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, logger, nil
}

// sourceFiles returns the files named on the command line followed by the
// configured sources.
func sourceFiles(cfg *config.Config, args []string) []string {
	files := append([]string{}, args...)
	return append(files, cfg.Sources...)
}

func parseFiles(logger *zap.Logger, files []string) ([]*parser.File, error) {
	p := parser.New(parser.WithLogger(logger))
	parsed := make([]*parser.File, 0, len(files))
	for _, path := range files {
		file, err := p.ParseFile(path)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, file)
	}
	return parsed, nil
}
