package eval

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/host"
)

var (
	// ErrNoSize is returned when no Size node of an element applies.
	ErrNoSize = errors.New("no applicable size")
	// ErrNoValue is returned when no value node of an element applies.
	ErrNoValue = errors.New("no applicable value")
	// ErrNotInteger is returned when a size expression is not an integer.
	ErrNotInteger = errors.New("size value must be of integer type")
)

var wildcardRef = regexp.MustCompile(`\$T([1-9][0-9]*)`)

// SubstituteWildcards replaces `$Tn` with the n-th binding (1-based). A
// reference without a binding is left as-is. A space is inserted when a
// replacement ending in '>' would be followed by another '>'.
func SubstituteWildcards(text string, bindings []string) string {
	if len(bindings) == 0 || !strings.Contains(text, "$T") {
		return text
	}
	var b strings.Builder
	i := 0
	for _, loc := range wildcardRef.FindAllStringSubmatchIndex(text, -1) {
		b.WriteString(text[i:loc[0]])
		replacement := text[loc[0]:loc[1]]
		if n, err := strconv.Atoi(text[loc[2]:loc[3]]); err == nil && n <= len(bindings) {
			replacement = bindings[n-1]
		}
		b.WriteString(replacement)
		i = loc[1]
		if i < len(text) && strings.HasSuffix(replacement, ">") && text[i] == '>' {
			b.WriteByte(' ')
		}
	}
	b.WriteString(text[i:])
	return b.String()
}

// evalCtx evaluates the expressions of one rule candidate.
type evalCtx struct {
	e        *Engine
	rule     *ast.Rule
	bindings []string
	depth    int
	scope    host.Scope
}

func (e *Engine) context(c candidate, depth int) *evalCtx {
	return &evalCtx{e: e, rule: c.rule, bindings: c.bindings, depth: depth}
}

func (c *evalCtx) resolve(text string) string {
	return SubstituteWildcards(text, c.bindings)
}

func (c *evalCtx) eval(v host.Value, text, name string) (host.Value, error) {
	return c.e.host.Evaluate(v, text, host.EvalOptions{Name: name, Scope: c.scope})
}

func (c *evalCtx) truth(v host.Value, text string) (bool, error) {
	res, err := c.eval(v, c.resolve(text), "")
	if err != nil {
		return false, err
	}
	return c.e.host.Bool(res)
}

func (c *evalCtx) integer(v host.Value, text string) (int64, error) {
	res, err := c.eval(v, c.resolve(text), "")
	if err != nil {
		return 0, err
	}
	n, err := c.e.host.Int(res)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrNotInteger, text, err)
	}
	return n, nil
}

// check evaluates the view gates and the expression of cond. index, when not
// empty, replaces `$i` in the expression.
func (c *evalCtx) check(cond ast.Condition, v host.Value, index string) (bool, error) {
	if !cond.AcceptsView(v.Format().ViewID) {
		return false, nil
	}
	if cond.Expression == "" {
		return true, nil
	}
	text := cond.Expression
	if index != "" {
		text = strings.ReplaceAll(text, "$i", index)
	}
	return c.truth(v, text)
}

// value evaluates a formatted expression in the context of v and applies its
// formatting options.
func (c *evalCtx) value(v host.Value, fe *ast.FormattedExpression, name, index string) (host.Value, error) {
	text := c.resolve(fe.Text)
	if index != "" {
		text = strings.ReplaceAll(text, "$i", index)
	}
	res, err := c.eval(v, text, name)
	if err != nil {
		return nil, err
	}
	return c.format(v, res, fe)
}

func (c *evalCtx) format(ctx, res host.Value, fe *ast.FormattedExpression) (host.Value, error) {
	f := host.Format{Flags: fe.Flags}
	if fe.Spec != ast.SpecNone {
		f.Spec = fe.Spec
	} else {
		f.ViewID = fe.ViewID
	}
	if fe.ArraySize != "" {
		n, err := c.integer(ctx, fe.ArraySize)
		if err != nil {
			return nil, err
		}
		f.ArraySize = n
	}
	return res.WithFormat(f), nil
}

// size returns the value of the first applicable size node.
func (c *evalCtx) size(nodes []*ast.SizeNode, v host.Value) (int64, bool, error) {
	for _, node := range nodes {
		ok, err := c.check(node.Condition, v, "")
		if err == nil && ok {
			var n int64
			if n, err = c.integer(v, node.Expr); err == nil {
				return n, true, nil
			}
		}
		if err != nil {
			if node.Optional {
				continue
			}
			return 0, false, err
		}
	}
	return 0, false, nil
}

// firstValue returns the value of the first applicable value node.
func (c *evalCtx) firstValue(nodes []*ast.ValueNode, v host.Value, name, index string) (host.Value, bool, error) {
	for _, node := range nodes {
		ok, err := c.check(node.Condition, v, index)
		if err == nil && ok {
			var res host.Value
			if res, err = c.value(v, node.Value, name, index); err == nil {
				return res, true, nil
			}
		}
		if err != nil {
			if node.Optional {
				continue
			}
			return nil, false, err
		}
	}
	return nil, false, nil
}

// interpolate renders s in the context of v.
func (c *evalCtx) interpolate(s *ast.InterpolatedString, v host.Value) (string, error) {
	st := c.e.newStream(c.depth)
	if err := c.writeInterpolated(st, s, v); err != nil {
		return "", err
	}
	return st.String(), nil
}
