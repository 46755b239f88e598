// Package analysis reports which type names a rule set covers.
package analysis

import (
	"sort"

	"github.com/effectus/natvis-go/store"
	"github.com/effectus/natvis-go/typename"
)

// Catalog is the rule set being analysed. store.Store and manager.Manager
// both satisfy it.
type Catalog interface {
	Lookup(t *typename.Template) []store.Match
	Entries() []store.Entry
}

// Edge represents a type matched by a pattern.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// TypeCoverage is the best pattern for one type name.
type TypeCoverage struct {
	Type     string   `json:"type"`
	Pattern  string   `json:"pattern"`
	Bindings []string `json:"bindings,omitempty"`
	Rules    int      `json:"rules"`
}

// CoverageReport summarizes pattern usage for a set of type names.
type CoverageReport struct {
	Covered        []TypeCoverage `json:"covered"`
	Uncovered      []string       `json:"uncovered"`
	Invalid        []string       `json:"invalid"`
	UnusedPatterns []string       `json:"unused_patterns"`
	Edges          []Edge         `json:"edges"`
}

// BuildCoverage matches every type name against the catalog. A type is
// covered by its first match; every match produces an edge.
func BuildCoverage(catalog Catalog, typeNames []string) CoverageReport {
	report := CoverageReport{}
	used := make(map[string]struct{})

	for _, name := range unique(typeNames) {
		t, err := typename.Parse(name)
		if err != nil {
			report.Invalid = append(report.Invalid, name)
			continue
		}
		matches := catalog.Lookup(t)
		if len(matches) == 0 {
			report.Uncovered = append(report.Uncovered, name)
			continue
		}
		report.Covered = append(report.Covered, TypeCoverage{
			Type:     name,
			Pattern:  matches[0].Pattern.Text,
			Bindings: matches[0].Bindings,
			Rules:    len(matches),
		})
		for _, m := range matches {
			canonical := m.Pattern.Template.String()
			used[canonical] = struct{}{}
			kind := "exact"
			if m.Pattern.Template.HasWildcard() {
				kind = "wildcard"
			}
			report.Edges = append(report.Edges, Edge{
				From: "type:" + name,
				To:   "pattern:" + canonical,
				Kind: kind,
			})
		}
	}

	for _, entry := range catalog.Entries() {
		if _, ok := used[entry.Name]; !ok {
			report.UnusedPatterns = append(report.UnusedPatterns, entry.Name)
		}
	}
	report.UnusedPatterns = unique(report.UnusedPatterns)
	return report
}

// Ratio returns the covered fraction of the valid type names.
func (r CoverageReport) Ratio() float64 {
	total := len(r.Covered) + len(r.Uncovered)
	if total == 0 {
		return 0
	}
	return float64(len(r.Covered)) / float64(total)
}

func unique(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
