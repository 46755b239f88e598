package eval

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/children"
	"github.com/effectus/natvis-go/host"
)

// StructuralError reports a data structure that cannot be walked, such as a
// tree deeper than the configured limit. It truncates the walk and is never
// returned to callers of Expand.
type StructuralError struct {
	Msg string
}

func (e *StructuralError) Error() string { return e.Msg }

// Expand returns the children of v as a value of typeName.
func (e *Engine) Expand(typeName string, v host.Value) children.Provider {
	if v == nil {
		return children.Empty
	}
	return e.expand(0, typeName, v, false)
}

func (e *Engine) expand(depth int, typeName string, v host.Value, hideRaw bool) children.Provider {
	f := v.Format()
	if f.ArraySize > 0 {
		return e.arrayChildren(v)
	}
	if f.RawView() {
		return e.rawChildren(v)
	}
	cands := e.candidates(typeName)
	if len(cands) == 0 {
		return e.rawChildren(v)
	}
	return e.expandCandidates(depth, cands, v, hideRaw)
}

func (e *Engine) expandCandidates(depth int, cands []candidate, v host.Value, hideRaw bool) children.Provider {
	if depth >= e.limits.MaxDepth-1 {
		e.logger.Debug("rules ignored: recursion limit reached",
			zap.String("type", v.TypeName()),
			zap.String("value", v.Name()),
			zap.Int("limit", e.limits.MaxDepth))
		return e.rawChildren(v)
	}
	f := v.Format()
	for _, c := range cands {
		if !c.rule.Views.AcceptsView(f.ViewID) || !c.rule.HasExpand {
			continue
		}
		providers, err := e.context(c, depth+1).providers(c.rule.Items, v)
		if err != nil {
			e.logger.Debug("expand candidate failed",
				zap.String("type", v.TypeName()),
				zap.String("pattern", c.pattern),
				zap.Error(err))
			continue
		}
		if !hideRaw && !c.rule.HideRawView && !f.Flags.Has(ast.FlagNoRawView) {
			providers = append(providers, children.RawView(v))
		}
		return children.NewComposite(f, providers...)
	}
	return e.rawChildren(v)
}

func (e *Engine) rawChildren(v host.Value) children.Provider {
	fields, err := e.host.Fields(v)
	if err != nil {
		e.logger.Debug("fields unavailable", zap.String("type", v.TypeName()), zap.Error(err))
		return children.Empty
	}
	return children.NewList(fields, false)
}

func (e *Engine) arrayChildren(v host.Value) children.Provider {
	f := v.Format()
	n := f.ArraySize
	if n > int64(e.limits.MaxChildren) {
		n = int64(e.limits.MaxChildren)
	}
	f.ArraySize = 0
	base := v.WithFormat(f)
	return children.NewIndexed(int(n), func(i int) host.Value {
		el, err := e.host.Element(base, int64(i), children.IndexName(i))
		if err != nil {
			return nil
		}
		return el
	})
}

func (c *evalCtx) providers(items []ast.ItemProvider, v host.Value) ([]children.Provider, error) {
	var out []children.Provider
	for _, item := range items {
		base := item.Base()
		ok, err := c.check(base.Condition, v, "")
		var p children.Provider
		if err == nil && ok {
			p, err = c.provider(item, v)
		}
		if err != nil {
			if base.Optional {
				continue
			}
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *evalCtx) provider(item ast.ItemProvider, v host.Value) (children.Provider, error) {
	switch it := item.(type) {
	case *ast.SingleItem:
		res, err := c.value(v, it.Value, it.Name, "")
		if err != nil {
			return nil, err
		}
		return children.NewSingle(res), nil
	case *ast.ExpandedItem:
		res, err := c.value(v, it.Value, "", "")
		if err != nil {
			return nil, err
		}
		return c.e.expand(c.depth, res.TypeName(), res, true), nil
	case *ast.ArrayItems:
		return c.arrayItems(it, v)
	case *ast.IndexListItems:
		return c.indexListItems(it, v)
	case *ast.LinkedListItems:
		return c.linkedListItems(it, v)
	case *ast.TreeItems:
		return c.treeItems(it, v)
	case *ast.CustomListItems:
		return c.customListItems(it, v)
	}
	return nil, fmt.Errorf("unsupported item provider %T", item)
}

func (c *evalCtx) limit(n int64) int {
	if n > int64(c.e.limits.MaxChildren) {
		return c.e.limits.MaxChildren
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

func (c *evalCtx) arrayItems(it *ast.ArrayItems, v host.Value) (children.Provider, error) {
	n, ok, err := c.size(it.Sizes, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSize
	}
	ptr, ok, err := c.firstValue(it.ValuePointers, v, "", "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoValue
	}
	pf := ptr.Format()
	return children.NewIndexed(c.limit(n), func(i int) host.Value {
		el, err := c.e.host.Element(ptr, int64(i), children.IndexName(i))
		if err != nil {
			c.e.logger.Debug("array element unavailable", zap.Int("index", i), zap.Error(err))
			return nil
		}
		return el.WithFormat(host.OverlayChild(el.Format(), pf))
	}), nil
}

func (c *evalCtx) indexListItems(it *ast.IndexListItems, v host.Value) (children.Provider, error) {
	n, ok, err := c.size(it.Sizes, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSize
	}
	return children.NewIndexed(c.limit(n), func(i int) host.Value {
		res, _, err := c.firstValue(it.Values, v, children.IndexName(i), strconv.Itoa(i))
		if err != nil {
			c.e.logger.Debug("index list element unavailable", zap.Int("index", i), zap.Error(err))
			return nil
		}
		return res
	}), nil
}

func isNull(v host.Value) bool {
	return v == nil || v.Address() == 0
}

// declaredSize evaluates an optional size node.
func (c *evalCtx) declaredSize(node *ast.SizeNode, v host.Value) (int64, bool, error) {
	if node == nil {
		return 0, false, nil
	}
	return c.size([]*ast.SizeNode{node}, v)
}

// nodeValues builds the provider over walked nodes.
func (c *evalCtx) nodeValues(nodes []host.Value, nameExpr *ast.InterpolatedString, valueExpr *ast.FormattedExpression, declared bool, size int64, hasMore bool) children.Provider {
	var names []string
	if nameExpr != nil {
		names = make([]string, len(nodes))
		for i, node := range nodes {
			name, err := c.interpolate(nameExpr, node)
			if err != nil || name == "" {
				name = children.IndexName(i)
			}
			names[i] = name
		}
	}
	if declared {
		for int64(len(nodes)) < size && len(nodes) < c.e.limits.MaxChildren {
			nodes = append(nodes, nil)
		}
	}
	return children.NewNodes(nodes, names, hasMore, func(node host.Value, name string) host.Value {
		res, err := c.value(node, valueExpr, name, "")
		if err != nil {
			c.e.logger.Debug("node value unavailable", zap.String("name", name), zap.Error(err))
			return nil
		}
		return res
	})
}

func (c *evalCtx) linkedListItems(it *ast.LinkedListItems, v host.Value) (children.Provider, error) {
	size, declared, err := c.declaredSize(it.Size, v)
	if err != nil {
		return nil, err
	}
	maxNodes := c.e.limits.MaxChildren
	if declared {
		maxNodes = c.limit(size)
	}

	cur, err := c.eval(v, c.resolve(it.Head), "")
	if err != nil {
		return nil, err
	}
	next := c.resolve(it.Next)
	seen := make(map[uint64]bool)
	var nodes []host.Value
	for !isNull(cur) && len(nodes) < maxNodes {
		if seen[cur.Address()] {
			break
		}
		seen[cur.Address()] = true
		node, err := c.e.host.Dereference(cur)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
		if cur, err = c.eval(node, next, ""); err != nil {
			return nil, err
		}
	}
	hasMore := !declared && !isNull(cur) && !seen[cur.Address()] && len(nodes) >= maxNodes
	return c.nodeValues(nodes, it.Name, it.Value, declared, size, hasMore), nil
}

func (c *evalCtx) treeItems(it *ast.TreeItems, v host.Value) (children.Provider, error) {
	size, declared, err := c.declaredSize(it.Size, v)
	if err != nil {
		return nil, err
	}
	maxNodes := c.e.limits.MaxChildren
	if declared {
		maxNodes = c.limit(size)
	}

	// live reports whether cur points to a node that is part of the tree.
	live := func(cur host.Value) (bool, error) {
		if isNull(cur) {
			return false, nil
		}
		if it.ValueCondition == "" {
			return true, nil
		}
		node, err := c.e.host.Dereference(cur)
		if err != nil {
			return false, err
		}
		return c.truth(node, it.ValueCondition)
	}

	cur, err := c.eval(v, c.resolve(it.Head), "")
	if err != nil {
		return nil, err
	}
	left, right := c.resolve(it.Left), c.resolve(it.Right)

	var (
		nodes   []host.Value
		stack   []host.Value
		hasMore bool
	)
	ok, err := live(cur)
	if err != nil {
		return nil, err
	}
walk:
	for (ok || len(stack) > 0) && len(nodes) < maxNodes {
		for ok {
			if len(stack) > c.e.limits.MaxTreeDepth {
				serr := &StructuralError{Msg: fmt.Sprintf("invalid tree: deeper than %d levels", c.e.limits.MaxTreeDepth)}
				c.e.logger.Warn("tree walk truncated", zap.String("type", v.TypeName()), zap.Error(serr))
				hasMore = true
				break walk
			}
			stack = append(stack, cur)
			node, err := c.e.host.Dereference(cur)
			if err != nil {
				return nil, err
			}
			if cur, err = c.eval(node, left, ""); err != nil {
				return nil, err
			}
			if ok, err = live(cur); err != nil {
				return nil, err
			}
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node, err := c.e.host.Dereference(top)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
		if cur, err = c.eval(node, right, ""); err != nil {
			return nil, err
		}
		if ok, err = live(cur); err != nil {
			return nil, err
		}
	}
	if !declared && !hasMore {
		hasMore = (ok || len(stack) > 0) && len(nodes) >= maxNodes
	}
	return c.nodeValues(nodes, it.Name, it.Value, declared, size, hasMore), nil
}
