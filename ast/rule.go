// Package ast defines the in-memory form of visualization rules.
package ast

import (
	"reflect"
	"sync/atomic"

	"github.com/effectus/natvis-go/typename"
)

// Priority orders rule variants registered for the same type.
type Priority int

const (
	PriorityLow        Priority = 1
	PriorityMediumLow  Priority = 2
	PriorityMedium     Priority = 3
	PriorityMediumHigh Priority = 4
	PriorityHigh       Priority = 5
)

var priorityNames = map[string]Priority{
	"Low":        PriorityLow,
	"MediumLow":  PriorityMediumLow,
	"Medium":     PriorityMedium,
	"MediumHigh": PriorityMediumHigh,
	"High":       PriorityHigh,
}

// ParsePriority maps a priority attribute value to a Priority.
func ParsePriority(name string) (Priority, bool) {
	p, ok := priorityNames[name]
	return p, ok
}

func (p Priority) String() string {
	for name, v := range priorityNames {
		if v == p {
			return name
		}
	}
	return "Unknown"
}

// TypeNamePattern is one of the type names a rule applies to.
type TypeNamePattern struct {
	Text     string
	Template *typename.Template
}

// Condition gates a rule element on an expression and on the active view.
type Condition struct {
	Expression    string
	IncludeView   string
	IncludeViewID int
	ExcludeView   string
	ExcludeViewID int
}

// NewCondition builds a condition and interns its view names.
func NewCondition(expression, includeView, excludeView string) Condition {
	return Condition{
		Expression:    expression,
		IncludeView:   includeView,
		IncludeViewID: ViewID(includeView),
		ExcludeView:   excludeView,
		ExcludeViewID: ViewID(excludeView),
	}
}

// AcceptsView reports whether the view gates pass for the active view id.
func (c Condition) AcceptsView(viewID int) bool {
	if c.IncludeViewID != 0 && viewID != c.IncludeViewID {
		return false
	}
	if c.ExcludeViewID != 0 && viewID == c.ExcludeViewID {
		return false
	}
	return true
}

// Summary is one DisplayString candidate.
type Summary struct {
	Text      *InterpolatedString
	Condition Condition
	Optional  bool
}

// Rule is a parsed visualizer for one or more type-name patterns.
type Rule struct {
	ID          uint64
	Patterns    []*TypeNamePattern
	Summaries   []*Summary
	Items       []ItemProvider
	HasExpand   bool
	HideRawView bool
	Views       Condition
	Priority    Priority
	Inheritable bool
}

var ruleIDs atomic.Uint64

// NewRule returns an empty rule with a fresh id and default attributes.
func NewRule() *Rule {
	return &Rule{
		ID:          ruleIDs.Add(1),
		Priority:    PriorityMedium,
		Inheritable: true,
	}
}

// Name returns the text of the first pattern.
func (r *Rule) Name() string {
	if len(r.Patterns) == 0 {
		return ""
	}
	return r.Patterns[0].Text
}

// Equal compares the behavior of two rules, ignoring ids and patterns.
func (r *Rule) Equal(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Priority == other.Priority &&
		r.Inheritable == other.Inheritable &&
		r.HasExpand == other.HasExpand &&
		r.HideRawView == other.HideRawView &&
		r.Views == other.Views &&
		reflect.DeepEqual(r.Summaries, other.Summaries) &&
		reflect.DeepEqual(r.Items, other.Items)
}
