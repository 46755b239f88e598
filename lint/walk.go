package lint

import "github.com/effectus/natvis-go/ast"

// Conditions returns the condition expressions of a rule.
func Conditions(rule *ast.Rule) []string {
	var out []string
	add := func(c ast.Condition) {
		if c.Expression != "" {
			out = append(out, c.Expression)
		}
	}
	for _, s := range rule.Summaries {
		add(s.Condition)
	}
	for _, item := range rule.Items {
		add(item.Base().Condition)
		switch it := item.(type) {
		case *ast.ArrayItems:
			for _, s := range it.Sizes {
				add(s.Condition)
			}
			for _, v := range it.ValuePointers {
				add(v.Condition)
			}
		case *ast.IndexListItems:
			for _, s := range it.Sizes {
				add(s.Condition)
			}
			for _, v := range it.Values {
				add(v.Condition)
			}
		case *ast.LinkedListItems:
			if it.Size != nil {
				add(it.Size.Condition)
			}
		case *ast.TreeItems:
			if it.Size != nil {
				add(it.Size.Condition)
			}
			if it.ValueCondition != "" {
				out = append(out, it.ValueCondition)
			}
		case *ast.CustomListItems:
			for _, s := range it.Sizes {
				add(s.Condition)
			}
			out = append(out, statementGuards(it.Code)...)
		}
	}
	return out
}

func statementGuards(code []ast.Statement) []string {
	var out []string
	for _, st := range code {
		if g := st.Guard(); g != "" {
			out = append(out, g)
		}
		switch s := st.(type) {
		case *ast.Loop:
			out = append(out, statementGuards(s.Body)...)
		case *ast.If:
			out = append(out, statementGuards(s.Body)...)
		case *ast.ElseIf:
			out = append(out, statementGuards(s.Body)...)
		case *ast.Else:
			out = append(out, statementGuards(s.Body)...)
		}
	}
	return out
}

// Expressions returns every expression text of a rule, conditions included.
func Expressions(rule *ast.Rule) []string {
	out := Conditions(rule)
	interpolated := func(s *ast.InterpolatedString) {
		if s == nil {
			return
		}
		for _, p := range s.Parts {
			if p.Expr != nil {
				out = append(out, p.Expr.Text)
			}
		}
	}
	formatted := func(e *ast.FormattedExpression) {
		if e != nil {
			out = append(out, e.Text)
		}
	}
	size := func(s *ast.SizeNode) {
		if s != nil {
			out = append(out, s.Expr)
		}
	}
	for _, s := range rule.Summaries {
		interpolated(s.Text)
	}
	for _, item := range rule.Items {
		switch it := item.(type) {
		case *ast.SingleItem:
			formatted(it.Value)
		case *ast.ExpandedItem:
			formatted(it.Value)
		case *ast.ArrayItems:
			for _, s := range it.Sizes {
				size(s)
			}
			for _, v := range it.ValuePointers {
				formatted(v.Value)
			}
		case *ast.IndexListItems:
			for _, s := range it.Sizes {
				size(s)
			}
			for _, v := range it.Values {
				formatted(v.Value)
			}
		case *ast.LinkedListItems:
			size(it.Size)
			out = append(out, it.Head, it.Next)
			formatted(it.Value)
			interpolated(it.Name)
		case *ast.TreeItems:
			size(it.Size)
			out = append(out, it.Head, it.Left, it.Right)
			formatted(it.Value)
			interpolated(it.Name)
		case *ast.CustomListItems:
			for _, v := range it.Variables {
				out = append(out, v.InitialValue)
			}
			for _, s := range it.Sizes {
				size(s)
			}
			out = append(out, statementExpressions(it.Code)...)
		}
	}
	return out
}

func statementExpressions(code []ast.Statement) []string {
	var out []string
	for _, st := range code {
		switch s := st.(type) {
		case *ast.Exec:
			out = append(out, s.Expr)
		case *ast.ItemStmt:
			if s.Value != nil {
				out = append(out, s.Value.Text)
			}
			if s.Name != nil {
				for _, p := range s.Name.Parts {
					if p.Expr != nil {
						out = append(out, p.Expr.Text)
					}
				}
			}
		case *ast.Loop:
			out = append(out, statementExpressions(s.Body)...)
		case *ast.If:
			out = append(out, statementExpressions(s.Body)...)
		case *ast.ElseIf:
			out = append(out, statementExpressions(s.Body)...)
		case *ast.Else:
			out = append(out, statementExpressions(s.Body)...)
		}
	}
	return out
}
