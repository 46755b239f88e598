package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/effectus/natvis-go/lint"
	"github.com/effectus/natvis-go/parser"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Parse and lint visualizer files",
	Long: `Parse natvis files and run the rule linter over every visualizer.

Type elements that fail to parse are reported as errors. The remaining
rules are linted; warnings fail the check only with --fail-on-warn.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		files := sourceFiles(cfg, args)
		if len(files) == 0 {
			return fmt.Errorf("no input files specified")
		}
		format, _ := cmd.Flags().GetString("format")
		failOnWarn, _ := cmd.Flags().GetBool("fail-on-warn")

		parsed, err := parseFiles(logger, files)
		if err != nil {
			return err
		}
		issues := collectIssues(parsed, lint.Options{WarningsAsErrors: failOnWarn})
		if err := writeIssues(cmd.OutOrStdout(), issues, format); err != nil {
			return err
		}
		if lint.HasErrors(issues) {
			return fmt.Errorf("check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("format", "text", "Output format: text or json")
	checkCmd.Flags().Bool("fail-on-warn", false, "Return non-zero exit code when warnings are present")
}

// collectIssues turns parse errors into error issues and lints the rules of
// every file.
func collectIssues(files []*parser.File, options lint.Options) []lint.Issue {
	var issues []lint.Issue
	for _, file := range files {
		for _, err := range file.Errors {
			issues = append(issues, lint.Issue{
				File:     file.Path,
				Severity: lint.SeverityError,
				Code:     "parse",
				Message:  err.Error(),
			})
		}
		issues = append(issues, lint.LintRulesWithOptions(file.Rules, file.Path, options)...)
	}
	return issues
}

func writeIssues(w io.Writer, issues []lint.Issue, format string) error {
	switch strings.ToLower(format) {
	case "json":
		if issues == nil {
			issues = []lint.Issue{}
		}
		encoded, err := json.MarshalIndent(issues, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding issues: %w", err)
		}
		fmt.Fprintln(w, string(encoded))
	case "text":
		for _, issue := range issues {
			fmt.Fprintln(w, issue.String())
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}
