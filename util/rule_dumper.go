package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/effectus/natvis-go/ast"
)

// RuleDumper dumps visualizer rules to a writer
type RuleDumper struct {
	writer io.Writer
	indent string
}

// NewRuleDumper creates a new rule dumper that writes to the given writer
func NewRuleDumper(writer io.Writer) *RuleDumper {
	return &RuleDumper{
		writer: writer,
		indent: "",
	}
}

// NewStdoutRuleDumper creates a new rule dumper that writes to stdout
func NewStdoutRuleDumper() *RuleDumper {
	return NewRuleDumper(os.Stdout)
}

// DumpRules dumps all rules of a file
func (d *RuleDumper) DumpRules(rules []*ast.Rule) {
	d.indent = ""
	fmt.Fprintf(d.writer, "Rules (%d):\n", len(rules))
	for i, rule := range rules {
		d.dumpRule(i+1, rule)
	}
}

func (d *RuleDumper) dumpRule(n int, rule *ast.Rule) {
	patterns := make([]string, len(rule.Patterns))
	for i, p := range rule.Patterns {
		patterns[i] = p.Text
	}
	fmt.Fprintf(d.writer, "  Rule %d: %s (Priority: %s, Inheritable: %t)\n",
		n, strings.Join(patterns, " | "), rule.Priority, rule.Inheritable)
	d.dumpViews("    ", rule.Views)

	if len(rule.Summaries) > 0 {
		fmt.Fprintf(d.writer, "    Summaries (%d):\n", len(rule.Summaries))
		for j, s := range rule.Summaries {
			fmt.Fprintf(d.writer, "      Summary %d: %s%s\n", j+1, s.Text, suffix(s.Condition, s.Optional))
		}
	}

	if rule.HasExpand {
		fmt.Fprintf(d.writer, "    Expand (%d items, HideRawView: %t):\n", len(rule.Items), rule.HideRawView)
		for j, item := range rule.Items {
			d.dumpItem(j+1, item, "      ")
		}
	}
}

func (d *RuleDumper) dumpViews(indentStr string, c ast.Condition) {
	if c.IncludeView != "" {
		fmt.Fprintf(d.writer, "%sIncludeView: %s\n", indentStr, c.IncludeView)
	}
	if c.ExcludeView != "" {
		fmt.Fprintf(d.writer, "%sExcludeView: %s\n", indentStr, c.ExcludeView)
	}
}

func suffix(c ast.Condition, optional bool) string {
	var parts []string
	if c.Expression != "" {
		parts = append(parts, "if "+c.Expression)
	}
	if c.IncludeView != "" {
		parts = append(parts, "view "+c.IncludeView)
	}
	if c.ExcludeView != "" {
		parts = append(parts, "not view "+c.ExcludeView)
	}
	if optional {
		parts = append(parts, "optional")
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

func (d *RuleDumper) dumpItem(n int, item ast.ItemProvider, indentStr string) {
	base := item.Base()
	tail := suffix(base.Condition, base.Optional)
	switch it := item.(type) {
	case *ast.SingleItem:
		fmt.Fprintf(d.writer, "%sItem %d: %s = %s%s\n", indentStr, n, it.Name, it.Value, tail)
	case *ast.ExpandedItem:
		fmt.Fprintf(d.writer, "%sExpandedItem %d: %s%s\n", indentStr, n, it.Value, tail)
	case *ast.ArrayItems:
		fmt.Fprintf(d.writer, "%sArrayItems %d%s\n", indentStr, n, tail)
		d.dumpSizes(it.Sizes, indentStr+"  ")
		d.dumpValues("ValuePointer", it.ValuePointers, indentStr+"  ")
	case *ast.IndexListItems:
		fmt.Fprintf(d.writer, "%sIndexListItems %d%s\n", indentStr, n, tail)
		d.dumpSizes(it.Sizes, indentStr+"  ")
		d.dumpValues("ValueNode", it.Values, indentStr+"  ")
	case *ast.LinkedListItems:
		fmt.Fprintf(d.writer, "%sLinkedListItems %d%s\n", indentStr, n, tail)
		if it.Size != nil {
			d.dumpSizes([]*ast.SizeNode{it.Size}, indentStr+"  ")
		}
		fmt.Fprintf(d.writer, "%s  Head: %s\n", indentStr, it.Head)
		fmt.Fprintf(d.writer, "%s  Next: %s\n", indentStr, it.Next)
		d.dumpNode(it.Name, it.Value, "", indentStr+"  ")
	case *ast.TreeItems:
		fmt.Fprintf(d.writer, "%sTreeItems %d%s\n", indentStr, n, tail)
		if it.Size != nil {
			d.dumpSizes([]*ast.SizeNode{it.Size}, indentStr+"  ")
		}
		fmt.Fprintf(d.writer, "%s  Head: %s\n", indentStr, it.Head)
		fmt.Fprintf(d.writer, "%s  Left: %s\n", indentStr, it.Left)
		fmt.Fprintf(d.writer, "%s  Right: %s\n", indentStr, it.Right)
		d.dumpNode(it.Name, it.Value, it.ValueCondition, indentStr+"  ")
	case *ast.CustomListItems:
		fmt.Fprintf(d.writer, "%sCustomListItems %d%s\n", indentStr, n, tail)
		for _, v := range it.Variables {
			fmt.Fprintf(d.writer, "%s  Variable: %s = %s\n", indentStr, v.Name, v.InitialValue)
		}
		d.dumpSizes(it.Sizes, indentStr+"  ")
		d.dumpCode(it.Code, indentStr+"  ")
	}
}

func (d *RuleDumper) dumpSizes(sizes []*ast.SizeNode, indentStr string) {
	for _, s := range sizes {
		fmt.Fprintf(d.writer, "%sSize: %s%s\n", indentStr, s.Expr, suffix(s.Condition, s.Optional))
	}
}

func (d *RuleDumper) dumpValues(label string, values []*ast.ValueNode, indentStr string) {
	for _, v := range values {
		fmt.Fprintf(d.writer, "%s%s: %s%s\n", indentStr, label, v.Value, suffix(v.Condition, v.Optional))
	}
}

func (d *RuleDumper) dumpNode(name *ast.InterpolatedString, value *ast.FormattedExpression, cond, indentStr string) {
	line := fmt.Sprintf("%sValue: %s", indentStr, value)
	if name != nil {
		line += fmt.Sprintf(" (Name: %s)", name)
	}
	if cond != "" {
		line += " [if " + cond + "]"
	}
	fmt.Fprintln(d.writer, line)
}

// dumpCode dumps a custom-list code block
func (d *RuleDumper) dumpCode(code []ast.Statement, indentStr string) {
	for _, st := range code {
		guard := ""
		if g := st.Guard(); g != "" {
			guard = " [if " + g + "]"
		}
		switch s := st.(type) {
		case *ast.Exec:
			fmt.Fprintf(d.writer, "%sExec: %s%s\n", indentStr, s.Expr, guard)
		case *ast.ItemStmt:
			if s.Name != nil {
				fmt.Fprintf(d.writer, "%sItem: %s = %s%s\n", indentStr, s.Name, s.Value, guard)
			} else {
				fmt.Fprintf(d.writer, "%sItem: %s%s\n", indentStr, s.Value, guard)
			}
		case *ast.Break:
			fmt.Fprintf(d.writer, "%sBreak%s\n", indentStr, guard)
		case *ast.Loop:
			fmt.Fprintf(d.writer, "%sLoop%s\n", indentStr, guard)
			d.dumpCode(s.Body, indentStr+"  ")
		case *ast.If:
			fmt.Fprintf(d.writer, "%sIf%s\n", indentStr, guard)
			d.dumpCode(s.Body, indentStr+"  ")
		case *ast.ElseIf:
			fmt.Fprintf(d.writer, "%sElseIf%s\n", indentStr, guard)
			d.dumpCode(s.Body, indentStr+"  ")
		case *ast.Else:
			fmt.Fprintf(d.writer, "%sElse\n", indentStr)
			d.dumpCode(s.Body, indentStr+"  ")
		}
	}
}
