package parser

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/typename"
)

// typeContext carries the per-Type state needed while parsing its children.
type typeContext struct {
	intrinsics []ast.Intrinsic
}

func (c *typeContext) expr(text string) string {
	return ast.ExpandIntrinsics(ast.NormalizeExpression(text), c.intrinsics)
}

func (c *typeContext) formatted(text string) *ast.FormattedExpression {
	return ast.ParseFormattedExpression(c.expr(text))
}

func (c *typeContext) interpolated(text string) (*ast.InterpolatedString, error) {
	return ast.ParseInterpolated(c.expr(text), nil)
}

func (c *typeContext) condition(el *etree.Element) ast.Condition {
	return ast.NewCondition(
		c.expr(el.SelectAttrValue("Condition", "")),
		el.SelectAttrValue("IncludeView", ""),
		el.SelectAttrValue("ExcludeView", ""),
	)
}

func (p *Parser) parseType(el *etree.Element) (*ast.Rule, error) {
	rule := ast.NewRule()

	names, err := requiredAttr(el, "Name")
	if err != nil {
		return nil, err
	}
	alternatives := strings.Split(names, "|")
	for _, alt := range elements(el, "AlternativeType") {
		name, err := requiredAttr(alt, "Name")
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, name)
	}
	for _, name := range alternatives {
		name = strings.TrimSpace(name)
		tmpl, err := typename.Parse(name)
		if err != nil {
			return nil, err
		}
		rule.Patterns = append(rule.Patterns, &ast.TypeNamePattern{Text: name, Template: tmpl})
	}

	if v := el.SelectAttr("Inheritable"); v != nil {
		inheritable, err := parseBool(v.Value)
		if err != nil {
			return nil, fmt.Errorf("Inheritable: %w", err)
		}
		rule.Inheritable = inheritable
	}
	if v := el.SelectAttr("Priority"); v != nil {
		priority, ok := ast.ParsePriority(v.Value)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPriority, v.Value)
		}
		rule.Priority = priority
	}
	rule.Views = ast.NewCondition("", el.SelectAttrValue("IncludeView", ""), el.SelectAttrValue("ExcludeView", ""))

	ctx := &typeContext{}
	for _, in := range elements(el, "Intrinsic") {
		if len(elements(in, "Parameter")) > 0 {
			continue
		}
		name, err := requiredAttr(in, "Name")
		if err != nil {
			return nil, err
		}
		expression := ctx.expr(in.SelectAttrValue("Expression", ""))
		ctx.intrinsics = append(ctx.intrinsics, ast.Intrinsic{Name: name, Expression: expression})
	}
	ast.SortIntrinsics(ctx.intrinsics)

	for _, ds := range elements(el, "DisplayString") {
		text, err := ctx.interpolated(ds.Text())
		if err != nil {
			return nil, fmt.Errorf("DisplayString: %w", err)
		}
		rule.Summaries = append(rule.Summaries, &ast.Summary{
			Text:      text,
			Condition: ctx.condition(ds),
			Optional:  optional(ds),
		})
	}

	if expand := element(el, "Expand"); expand != nil {
		rule.HasExpand = true
		if v := expand.SelectAttr("HideRawView"); v != nil {
			hide, err := parseBool(v.Value)
			if err != nil {
				return nil, fmt.Errorf("HideRawView: %w", err)
			}
			rule.HideRawView = hide
		}
		items, err := ctx.parseExpand(expand)
		if err != nil {
			return nil, err
		}
		rule.Items = items
	}

	return rule, nil
}

func (c *typeContext) parseExpand(expand *etree.Element) ([]ast.ItemProvider, error) {
	items := []ast.ItemProvider{}
	for _, child := range expand.ChildElements() {
		if !inNamespace(child) {
			continue
		}
		var (
			item ast.ItemProvider
			err  error
		)
		switch child.Tag {
		case "Item":
			item, err = c.parseItem(child)
		case "ExpandedItem":
			item = &ast.ExpandedItem{ItemBase: c.base(child), Value: c.formatted(child.Text())}
		case "ArrayItems":
			item = c.parseArrayItems(child)
		case "IndexListItems":
			item = c.parseIndexListItems(child)
		case "LinkedListItems":
			item, err = c.parseLinkedListItems(child)
		case "TreeItems":
			item, err = c.parseTreeItems(child)
		case "CustomListItems":
			item, err = c.parseCustomListItems(child)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", child.Tag, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *typeContext) base(el *etree.Element) ast.ItemBase {
	return ast.ItemBase{Condition: c.condition(el), Optional: optional(el)}
}

func (c *typeContext) sizes(el *etree.Element) []*ast.SizeNode {
	var out []*ast.SizeNode
	for _, s := range elements(el, "Size") {
		out = append(out, c.size(s))
	}
	return out
}

func (c *typeContext) size(el *etree.Element) *ast.SizeNode {
	return &ast.SizeNode{Condition: c.condition(el), Optional: optional(el), Expr: c.expr(el.Text())}
}

func (c *typeContext) values(el *etree.Element, tag string) []*ast.ValueNode {
	var out []*ast.ValueNode
	for _, v := range elements(el, tag) {
		out = append(out, &ast.ValueNode{Condition: c.condition(v), Optional: optional(v), Value: c.formatted(v.Text())})
	}
	return out
}

func (c *typeContext) parseItem(el *etree.Element) (ast.ItemProvider, error) {
	name, err := requiredAttr(el, "Name")
	if err != nil {
		return nil, err
	}
	return &ast.SingleItem{ItemBase: c.base(el), Name: name, Value: c.formatted(el.Text())}, nil
}

func (c *typeContext) parseArrayItems(el *etree.Element) ast.ItemProvider {
	return &ast.ArrayItems{
		ItemBase:      c.base(el),
		Sizes:         c.sizes(el),
		ValuePointers: c.values(el, "ValuePointer"),
	}
}

func (c *typeContext) parseIndexListItems(el *etree.Element) ast.ItemProvider {
	return &ast.IndexListItems{
		ItemBase: c.base(el),
		Sizes:    c.sizes(el),
		Values:   c.values(el, "ValueNode"),
	}
}

func (c *typeContext) optionalName(el *etree.Element) (*ast.InterpolatedString, error) {
	name := el.SelectAttrValue("Name", "")
	if name == "" {
		return nil, nil
	}
	return c.interpolated(name)
}

func (c *typeContext) parseLinkedListItems(el *etree.Element) (ast.ItemProvider, error) {
	item := &ast.LinkedListItems{ItemBase: c.base(el)}
	if s := element(el, "Size"); s != nil {
		item.Size = c.size(s)
	}
	head, err := exactlyOne(el, "HeadPointer")
	if err != nil {
		return nil, err
	}
	next, err := exactlyOne(el, "NextPointer")
	if err != nil {
		return nil, err
	}
	value, err := exactlyOne(el, "ValueNode")
	if err != nil {
		return nil, err
	}
	item.Head = c.expr(head.Text())
	item.Next = c.expr(next.Text())
	item.Value = c.formatted(value.Text())
	if item.Name, err = c.optionalName(value); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *typeContext) parseTreeItems(el *etree.Element) (ast.ItemProvider, error) {
	item := &ast.TreeItems{ItemBase: c.base(el)}
	if s := element(el, "Size"); s != nil {
		item.Size = c.size(s)
	}
	parts := map[string]*etree.Element{}
	for _, tag := range []string{"HeadPointer", "LeftPointer", "RightPointer", "ValueNode"} {
		node, err := exactlyOne(el, tag)
		if err != nil {
			return nil, err
		}
		parts[tag] = node
	}
	value := parts["ValueNode"]
	item.Head = c.expr(parts["HeadPointer"].Text())
	item.Left = c.expr(parts["LeftPointer"].Text())
	item.Right = c.expr(parts["RightPointer"].Text())
	item.Value = c.formatted(value.Text())
	item.ValueCondition = c.expr(value.SelectAttrValue("Condition", ""))
	var err error
	if item.Name, err = c.optionalName(value); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *typeContext) parseCustomListItems(el *etree.Element) (ast.ItemProvider, error) {
	item := &ast.CustomListItems{ItemBase: c.base(el), Sizes: c.sizes(el)}
	for _, v := range elements(el, "Variable") {
		name, err := requiredAttr(v, "Name")
		if err != nil {
			return nil, err
		}
		item.Variables = append(item.Variables, ast.Variable{
			Name:         name,
			InitialValue: c.expr(v.SelectAttrValue("InitialValue", "")),
		})
	}
	code, err := c.parseCode(el)
	if err != nil {
		return nil, err
	}
	if ast.ContainsBreakOutsideLoop(code) {
		return nil, ErrBreakOutsideLoop
	}
	item.Code = code
	return item, nil
}

func (c *typeContext) parseCode(el *etree.Element) ([]ast.Statement, error) {
	var code []ast.Statement
	for _, child := range el.ChildElements() {
		if !inNamespace(child) {
			continue
		}
		cond := c.expr(child.SelectAttrValue("Condition", ""))
		switch child.Tag {
		case "Exec":
			code = append(code, &ast.Exec{Condition: cond, Expr: c.expr(child.Text())})
		case "Item":
			name, err := c.optionalName(child)
			if err != nil {
				return nil, err
			}
			code = append(code, &ast.ItemStmt{Condition: cond, Name: name, Value: c.formatted(child.Text())})
		case "Break":
			code = append(code, &ast.Break{Condition: cond})
		case "Loop", "If", "Elseif", "ElseIf", "Else":
			body, err := c.parseCode(child)
			if err != nil {
				return nil, err
			}
			switch child.Tag {
			case "Loop":
				code = append(code, &ast.Loop{Condition: cond, Body: body})
			case "If":
				code = append(code, &ast.If{Condition: cond, Body: body})
			case "Else":
				code = append(code, &ast.Else{Body: body})
			default:
				code = append(code, &ast.ElseIf{Condition: cond, Body: body})
			}
		}
	}
	return code, nil
}
