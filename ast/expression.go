package ast

import (
	"regexp"
	"strings"
)

var (
	arraySizeOnly = regexp.MustCompile(`^\d+$`)
	arraySizeSpec = regexp.MustCompile(`^(?:\[(.*)\])?(.*)$`)
	viewSpec      = regexp.MustCompile(`^(?:view\s*\((.*)\))?(.*)$`)
)

// lastTopLevelComma returns the index of the last comma that is not nested
// in brackets or quotes, or -1.
func lastTopLevelComma(text string) int {
	depth := 0
	var quote byte
	last := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				last = i
			}
		}
	}
	return last
}

// ParseFormattedExpression splits text into an expression and the formatting
// options written after its last top-level comma. The suffix is decomposed
// as an array length (bare integer or `[len]`), then `view(name)`, then flag
// tokens, then at most one format spec. Unknown spec text is dropped. When
// the suffix yields nothing recognizable the whole text is the expression.
func ParseFormattedExpression(text string) *FormattedExpression {
	comma := lastTopLevelComma(text)
	if comma < 0 {
		return Plain(text)
	}
	expr := strings.TrimSpace(text[:comma])
	spec := strings.TrimSpace(text[comma+1:])
	if expr == "" || spec == "" {
		return Plain(text)
	}

	out := &FormattedExpression{Text: expr}
	if arraySizeOnly.MatchString(spec) {
		out.ArraySize = spec
		return out
	}

	if m := arraySizeSpec.FindStringSubmatch(spec); m != nil {
		out.ArraySize = strings.TrimSpace(m[1])
		spec = strings.TrimSpace(m[2])
	}
	if m := viewSpec.FindStringSubmatch(spec); m != nil {
		out.View = strings.TrimSpace(m[1])
		spec = strings.TrimSpace(m[2])
	}

	for spec != "" {
		matched := false
		for _, ft := range flagTokens {
			if strings.HasPrefix(spec, ft.token) {
				out.Flags |= ft.flag
				spec = spec[len(ft.token):]
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}

	if spec != "" {
		if s, ok := LookupSpec(strings.TrimSpace(spec)); ok {
			out.Spec = s
		}
	}

	if !out.HasOptions() {
		return Plain(text)
	}
	out.ViewID = ViewID(out.View)
	return out
}
