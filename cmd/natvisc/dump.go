package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/effectus/natvis-go/util"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [files...]",
	Short: "Print the parsed rules of visualizer files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		files := sourceFiles(cfg, args)
		if len(files) == 0 {
			return fmt.Errorf("no input files specified")
		}
		parsed, err := parseFiles(logger, files)
		if err != nil {
			return err
		}
		dumper := util.NewRuleDumper(cmd.OutOrStdout())
		for _, file := range parsed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", file.Path)
			dumper.DumpRules(file.Rules)
			for _, err := range file.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  skipped: %v\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
