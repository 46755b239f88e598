package ast

import (
	"sort"
	"strings"
)

// Intrinsic is a named parameterless expression macro. A call `name()` in
// later expressions is replaced by `(expression)`.
type Intrinsic struct {
	Name       string
	Expression string
}

// NormalizeExpression removes line breaks from expression text.
func NormalizeExpression(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	return strings.ReplaceAll(text, "\n", "")
}

// SortIntrinsics orders intrinsics by descending name length so that a name
// is never substituted inside a longer one.
func SortIntrinsics(intrinsics []Intrinsic) {
	sort.SliceStable(intrinsics, func(i, j int) bool {
		return len(intrinsics[i].Name) > len(intrinsics[j].Name)
	})
}

// ExpandIntrinsics substitutes intrinsic calls in text.
func ExpandIntrinsics(text string, intrinsics []Intrinsic) string {
	for _, in := range intrinsics {
		text = strings.ReplaceAll(text, in.Name+"()", "("+in.Expression+")")
	}
	return text
}
