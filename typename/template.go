// Package typename parses C++-style type names into templates that can be
// compared structurally and matched against wildcard patterns.
package typename

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is returned when a type name has no tokens.
var ErrEmpty = errors.New("empty type name")

// Segment is a run of literal text optionally followed by a template
// argument list.
type Segment struct {
	Text    string
	HasArgs bool
	Args    []*Template
}

// Template is a parsed type name. A template whose Wildcard flag is set is the
// single `*` argument and matches any type.
type Template struct {
	Wildcard bool
	Segments []Segment

	rendered string
}

// Parse parses a type name into a Template.
func Parse(text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}
	node, err := nameParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("parse type name %q: %w", text, err)
	}
	if len(node.Parts) == 0 {
		return nil, ErrEmpty
	}
	return build(node), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level tables.
func MustParse(text string) *Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

func build(node *name) *Template {
	if len(node.Parts) == 1 && node.Parts[0].Token == "*" {
		t := &Template{Wildcard: true}
		t.rendered = "*"
		return t
	}

	t := &Template{}
	var text strings.Builder
	var prev byte
	for _, p := range node.Parts {
		if p.Args == nil {
			if needsSpace(prev, p.Token[0]) {
				text.WriteByte(' ')
			}
			text.WriteString(p.Token)
			prev = p.Token[len(p.Token)-1]
			continue
		}
		seg := Segment{Text: text.String(), HasArgs: true}
		for _, arg := range p.Args.Args {
			if arg == nil || len(arg.Parts) == 0 {
				continue
			}
			seg.Args = append(seg.Args, build(arg))
		}
		t.Segments = append(t.Segments, seg)
		text.Reset()
		prev = '>'
	}
	if text.Len() > 0 || len(t.Segments) == 0 {
		t.Segments = append(t.Segments, Segment{Text: text.String()})
	}
	t.rendered = t.render()
	return t
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c == '~' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func needsSpace(prev, next byte) bool {
	if prev == 0 || !isIdentByte(next) {
		return false
	}
	return isIdentByte(prev) || prev == '>'
}

func (t *Template) render() string {
	if t.Wildcard {
		return "*"
	}
	var b strings.Builder
	for _, seg := range t.Segments {
		b.WriteString(seg.Text)
		if !seg.HasArgs {
			continue
		}
		b.WriteByte('<')
		for i, arg := range seg.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(arg.String())
		}
		b.WriteByte('>')
	}
	return b.String()
}

// String returns the canonical rendering of the template. Two templates
// describe the same type exactly when their canonical renderings are equal.
func (t *Template) String() string {
	if t.rendered == "" {
		t.rendered = t.render()
	}
	return t.rendered
}

// Key returns the bucket key of the template: the rendered prefix before the
// first argument list.
func (t *Template) Key() string {
	if t.Wildcard {
		return "*"
	}
	if len(t.Segments) > 0 && t.Segments[0].HasArgs {
		return t.Segments[0].Text
	}
	return t.String()
}

// HasWildcard reports whether any argument, at any depth, is a wildcard.
func (t *Template) HasWildcard() bool {
	if t.Wildcard {
		return true
	}
	for _, seg := range t.Segments {
		for _, arg := range seg.Args {
			if arg.HasWildcard() {
				return true
			}
		}
	}
	return false
}

// WildcardCount returns the number of wildcard positions in the template.
func (t *Template) WildcardCount() int {
	if t.Wildcard {
		return 1
	}
	n := 0
	for _, seg := range t.Segments {
		for _, arg := range seg.Args {
			n += arg.WildcardCount()
		}
	}
	return n
}

// Match reports whether other is an instance of t. Wildcard captures are
// appended to captures in left-to-right order when captures is not nil.
//
// A wildcard that is the last argument of an argument list absorbs any
// remaining arguments of the matched list; the capture is their renderings
// joined with ",".
func (t *Template) Match(other *Template, captures *[]string) bool {
	var local []string
	if !t.match(other, &local) {
		return false
	}
	if captures != nil {
		*captures = append(*captures, local...)
	}
	return true
}

func (t *Template) match(other *Template, captures *[]string) bool {
	if t.Wildcard {
		*captures = append(*captures, other.String())
		return true
	}
	if other.Wildcard || len(t.Segments) != len(other.Segments) {
		return false
	}
	for i := range t.Segments {
		ps, os := t.Segments[i], other.Segments[i]
		if ps.Text != os.Text || ps.HasArgs != os.HasArgs {
			return false
		}
		if !matchArgs(ps.Args, os.Args, captures) {
			return false
		}
	}
	return true
}

func matchArgs(pattern, concrete []*Template, captures *[]string) bool {
	if len(pattern) == len(concrete) {
		for i := range pattern {
			if !pattern[i].match(concrete[i], captures) {
				return false
			}
		}
		return true
	}
	n := len(pattern)
	if n == 0 || len(concrete) < n || !pattern[n-1].Wildcard {
		return false
	}
	for i := 0; i < n-1; i++ {
		if !pattern[i].match(concrete[i], captures) {
			return false
		}
	}
	rest := make([]string, 0, len(concrete)-n+1)
	for _, arg := range concrete[n-1:] {
		rest = append(rest, arg.String())
	}
	*captures = append(*captures, strings.Join(rest, ","))
	return true
}
