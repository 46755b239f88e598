package ast

import (
	"errors"
	"strings"
)

// ErrUnterminatedBrace is returned for a `{` without a matching `}`.
var ErrUnterminatedBrace = errors.New("unterminated '{' in interpolated string")

// Part is a literal prefix followed by an optional embedded expression.
type Part struct {
	Literal string
	Expr    *FormattedExpression
}

// InterpolatedString is literal text with embedded `{expr}` fields.
type InterpolatedString struct {
	Parts []Part
}

// Equal compares two interpolated strings structurally.
func (s *InterpolatedString) Equal(other *InterpolatedString) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Parts) != len(other.Parts) {
		return false
	}
	for i := range s.Parts {
		if s.Parts[i].Literal != other.Parts[i].Literal || !s.Parts[i].Expr.Equal(other.Parts[i].Expr) {
			return false
		}
	}
	return true
}

// IsLiteral reports whether the string has no embedded expressions.
func (s *InterpolatedString) IsLiteral() bool {
	for _, p := range s.Parts {
		if p.Expr != nil {
			return false
		}
	}
	return true
}

func (s *InterpolatedString) String() string {
	var b strings.Builder
	for _, p := range s.Parts {
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(p.Literal, "{", "{{"), "}", "}}"))
		if p.Expr != nil {
			b.WriteByte('{')
			b.WriteString(p.Expr.Text)
			b.WriteByte('}')
		}
	}
	return b.String()
}

// ParseInterpolated parses text with embedded `{expr}` fields. `{{` and `}}`
// denote literal braces and a lone `}` is kept as-is. Each field goes through
// prepare before being split into expression and format options.
func ParseInterpolated(text string, prepare func(string) string) (*InterpolatedString, error) {
	out := &InterpolatedString{}
	var literal strings.Builder
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			literal.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			literal.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, ErrUnterminatedBrace
			}
			field := text[i+1 : i+1+end]
			if prepare != nil {
				field = prepare(field)
			}
			out.Parts = append(out.Parts, Part{Literal: literal.String(), Expr: ParseFormattedExpression(field)})
			literal.Reset()
			i += end + 2
		default:
			literal.WriteByte(c)
			i++
		}
	}
	if literal.Len() > 0 {
		out.Parts = append(out.Parts, Part{Literal: literal.String()})
	}
	return out, nil
}
