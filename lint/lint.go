// Package lint runs static checks over parsed visualizer rules.
package lint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/effectus/natvis-go/ast"
)

const (
	SeverityWarning = "warning"
	SeverityError   = "error"

	CodeEmptyRule          = "empty-rule"
	CodeUnreachableSummary = "unreachable-summary"
	CodeDuplicateItem      = "duplicate-item"
	CodeMissingSize        = "missing-size"
	CodeUnboundWildcard    = "unbound-wildcard"
	CodeDeadCondition      = "dead-condition"
)

// Options configures lint behavior.
type Options struct {
	// WarningsAsErrors reports every finding with error severity.
	WarningsAsErrors bool
}

// DefaultOptions returns the default lint options.
func DefaultOptions() Options {
	return Options{}
}

// Issue represents a linter finding.
type Issue struct {
	File     string
	Rule     string
	Severity string
	Code     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s [%s] %s: %s", i.File, i.Severity, i.Code, i.Rule, i.Message)
}

// LintRules runs lint checks on the rules of one file.
func LintRules(rules []*ast.Rule, path string) []Issue {
	return LintRulesWithOptions(rules, path, DefaultOptions())
}

// LintRulesWithOptions runs lint checks with custom options.
func LintRulesWithOptions(rules []*ast.Rule, path string, options Options) []Issue {
	issues := make([]Issue, 0)
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		issues = append(issues, lintEmptyRule(path, rule)...)
		issues = append(issues, lintUnreachableSummary(path, rule)...)
		issues = append(issues, lintDuplicateItems(path, rule)...)
		issues = append(issues, lintMissingSize(path, rule)...)
		issues = append(issues, lintUnboundWildcards(path, rule)...)
		issues = append(issues, lintDeadConditions(path, rule)...)
	}
	if options.WarningsAsErrors {
		for i := range issues {
			issues[i].Severity = SeverityError
		}
	}
	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func issue(path string, rule *ast.Rule, severity, code, format string, args ...any) Issue {
	return Issue{
		File:     path,
		Rule:     rule.Name(),
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

func lintEmptyRule(path string, rule *ast.Rule) []Issue {
	if len(rule.Summaries) > 0 || rule.HasExpand {
		return nil
	}
	return []Issue{issue(path, rule, SeverityWarning, CodeEmptyRule,
		"type %q has neither a DisplayString nor an Expand", rule.Name())}
}

// lintUnreachableSummary flags summaries that follow one that always applies.
func lintUnreachableSummary(path string, rule *ast.Rule) []Issue {
	for i, s := range rule.Summaries {
		if s.Optional || s.Condition.Expression != "" || s.Condition.IncludeViewID != 0 || s.Condition.ExcludeViewID != 0 {
			continue
		}
		if rest := len(rule.Summaries) - i - 1; rest > 0 {
			return []Issue{issue(path, rule, SeverityWarning, CodeUnreachableSummary,
				"%d DisplayString(s) after the unconditional DisplayString #%d are never used", rest, i+1)}
		}
		return nil
	}
	return nil
}

func lintDuplicateItems(path string, rule *ast.Rule) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for _, item := range rule.Items {
		single, ok := item.(*ast.SingleItem)
		if !ok || single.Condition.Expression != "" || single.Condition.IncludeViewID != 0 || single.Condition.ExcludeViewID != 0 {
			continue
		}
		if seen[single.Name] {
			issues = append(issues, issue(path, rule, SeverityWarning, CodeDuplicateItem,
				"item %q is defined more than once", single.Name))
		}
		seen[single.Name] = true
	}
	return issues
}

func lintMissingSize(path string, rule *ast.Rule) []Issue {
	var issues []Issue
	for _, item := range rule.Items {
		switch it := item.(type) {
		case *ast.ArrayItems:
			if len(it.Sizes) == 0 {
				issues = append(issues, issue(path, rule, SeverityError, CodeMissingSize, "ArrayItems without Size"))
			}
		case *ast.IndexListItems:
			if len(it.Sizes) == 0 {
				issues = append(issues, issue(path, rule, SeverityError, CodeMissingSize, "IndexListItems without Size"))
			}
		}
	}
	return issues
}

var wildcardRef = regexp.MustCompile(`\$T([1-9][0-9]*)`)

func lintUnboundWildcards(path string, rule *ast.Rule) []Issue {
	bound := -1
	for _, p := range rule.Patterns {
		if n := p.Template.WildcardCount(); bound < 0 || n < bound {
			bound = n
		}
	}
	if bound < 0 {
		return nil
	}
	var issues []Issue
	reported := make(map[int]bool)
	for _, text := range Expressions(rule) {
		for _, m := range wildcardRef.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= bound || reported[n] {
				continue
			}
			reported[n] = true
			issues = append(issues, issue(path, rule, SeverityError, CodeUnboundWildcard,
				"$T%d is used but the pattern binds only %d wildcard(s)", n, bound))
		}
	}
	return issues
}

func lintDeadConditions(path string, rule *ast.Rule) []Issue {
	var issues []Issue
	for _, cond := range Conditions(rule) {
		if value, ok := constantBool(cond); ok && !value {
			issues = append(issues, issue(path, rule, SeverityWarning, CodeDeadCondition,
				"condition %q is always false", cond))
		}
	}
	return issues
}

func constantBool(expression string) (bool, bool) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, false
	}
	tree, err := parser.Parse(expression)
	if err != nil {
		return false, false
	}

	visitor := &variableVisitor{}
	node := tree.Node
	exprast.Walk(&node, visitor)
	if visitor.hasVariables {
		return false, false
	}

	result, err := expr.Eval(expression, map[string]interface{}{})
	if err != nil {
		return false, false
	}
	switch value := result.(type) {
	case bool:
		return value, true
	case int:
		return value != 0, true
	}
	return false, false
}

type variableVisitor struct {
	hasVariables bool
}

func (v *variableVisitor) Visit(node *exprast.Node) {
	switch (*node).(type) {
	case *exprast.IdentifierNode, *exprast.MemberNode, *exprast.PointerNode, *exprast.VariableDeclaratorNode:
		v.hasVariables = true
	}
}
