package eval

import (
	"strings"

	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/children"
	"github.com/effectus/natvis-go/host"
)

const (
	ellipsis    = "..."
	unavailable = "???"
)

// stream accumulates summary text. A nested stream starts at the length of
// its parent so the length budget covers the whole summary.
type stream struct {
	b     strings.Builder
	base  int
	depth int
	limit int
}

func (e *Engine) newStream(depth int) *stream {
	return &stream{depth: depth, limit: e.limits.MaxStringLength}
}

func (s *stream) nested() *stream {
	return &stream{base: s.length(), depth: s.depth, limit: s.limit}
}

func (s *stream) length() int    { return s.base + s.b.Len() }
func (s *stream) full() bool     { return s.length() > s.limit }
func (s *stream) write(t string) { s.b.WriteString(t) }
func (s *stream) String() string { return s.b.String() }

// Summarize renders the one-line summary of v as a value of typeName.
func (e *Engine) Summarize(typeName string, v host.Value) string {
	if v == nil {
		return unavailable
	}
	st := e.newStream(0)
	e.writeTyped(st, typeName, v)
	return st.String()
}

func (e *Engine) writeValue(st *stream, v host.Value) {
	if v == nil {
		st.write(unavailable)
		return
	}
	e.writeTyped(st, v.TypeName(), v)
}

func (e *Engine) writeTyped(st *stream, typeName string, v host.Value) {
	if st.depth >= e.limits.MaxDepth {
		st.write(ellipsis)
		return
	}
	st.depth++
	defer func() { st.depth-- }()

	f := v.Format()
	if f.ArraySize > 0 {
		e.writeArray(st, v)
		return
	}
	if !f.RawView() {
		if cands := e.candidates(typeName); len(cands) > 0 {
			e.writeRules(st, typeName, cands, v)
			return
		}
	}
	if text, ok := e.host.Summary(v); ok {
		st.write(text)
		return
	}
	e.writeChildren(st, e.rawChildren(v))
}

func (e *Engine) writeRules(st *stream, typeName string, cands []candidate, v host.Value) {
	view := v.Format().ViewID
candidates:
	for _, c := range cands {
		if !c.rule.Views.AcceptsView(view) {
			continue
		}
		if len(c.rule.Summaries) == 0 {
			e.writeChildren(st, e.expandCandidates(st.depth, cands, v, false))
			return
		}
		ctx := e.context(c, st.depth)
		for _, s := range c.rule.Summaries {
			ok, err := ctx.summary(st, s, v)
			if err != nil {
				if s.Optional {
					continue
				}
				e.logger.Debug("summary candidate failed",
					zap.String("type", typeName),
					zap.String("pattern", c.pattern),
					zap.Error(err))
				continue candidates
			}
			if ok {
				return
			}
		}
	}
	e.writeChildren(st, e.expandCandidates(st.depth, cands, v, false))
}

// summary writes s when its condition holds. Nothing is written when an
// expression fails.
func (c *evalCtx) summary(st *stream, s *ast.Summary, v host.Value) (bool, error) {
	ok, err := c.check(s.Condition, v, "")
	if err != nil || !ok {
		return false, err
	}
	nested := st.nested()
	if err := c.writeInterpolated(nested, s.Text, v); err != nil {
		return false, err
	}
	st.write(nested.String())
	return true, nil
}

func (c *evalCtx) writeInterpolated(st *stream, s *ast.InterpolatedString, v host.Value) error {
	for _, part := range s.Parts {
		if st.full() {
			st.write(ellipsis)
			return nil
		}
		st.write(part.Literal)
		if part.Expr == nil {
			continue
		}
		if st.full() {
			st.write(ellipsis)
			return nil
		}
		if err := c.writeExpr(st, v, part.Expr); err != nil {
			return err
		}
	}
	return nil
}

func (c *evalCtx) writeExpr(st *stream, v host.Value, fe *ast.FormattedExpression) error {
	if st.depth >= c.e.limits.MaxDepth {
		st.write(ellipsis)
		return nil
	}
	res, err := c.eval(v, c.resolve(fe.Text), "")
	if err != nil {
		if host.IsRuntime(err) {
			st.write(unavailable)
			return nil
		}
		return err
	}
	if res, err = c.format(v, res, fe); err != nil {
		return err
	}
	res = res.WithFormat(host.OverlaySummary(res.Format(), v.Format()))
	c.e.writeValue(st, res)
	return nil
}

// writeArray renders the first ArraySize elements of v.
func (e *Engine) writeArray(st *stream, v host.Value) {
	f := v.Format()
	n := f.ArraySize
	f.ArraySize = 0
	base := v.WithFormat(f)

	st.write("{")
	for i := int64(0); i < n; i++ {
		if i > 0 {
			st.write(", ")
		}
		if st.full() {
			st.write(ellipsis)
			break
		}
		el, err := e.host.Element(base, i, children.IndexName(int(i)))
		if err != nil {
			st.write(unavailable)
			continue
		}
		e.writeValue(st, el.WithFormat(host.OverlayChild(el.Format(), f)))
	}
	st.write("}")
}

// writeChildren renders the default `{name=summary, ...}` listing.
func (e *Engine) writeChildren(st *stream, p children.Provider) {
	st.write("{")
	n := p.Count()
	if n == 0 || st.full() {
		st.write(ellipsis)
		st.write("}")
		return
	}
	shown := 0
	for i := 0; i < n; i++ {
		child := p.At(i)
		if child != nil && child.Name() == children.RawViewName {
			continue
		}
		if shown > 0 {
			st.write(", ")
		}
		if shown >= e.limits.SummaryChildren || st.full() {
			st.write(ellipsis)
			break
		}
		if child != nil {
			st.write(child.Name())
		}
		st.write("=")
		if st.full() {
			st.write(ellipsis)
			break
		}
		e.writeValue(st, child)
		shown++
	}
	st.write("}")
}
