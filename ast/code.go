package ast

// Variable is a custom-list variable with its initializer.
type Variable struct {
	Name         string
	InitialValue string
}

// Statement is one element of a custom-list code block.
type Statement interface {
	Guard() string
	statement()
}

// Exec evaluates an expression for its side effects.
type Exec struct {
	Condition string
	Expr      string
}

// ItemStmt emits one child.
type ItemStmt struct {
	Condition string
	Name      *InterpolatedString
	Value     *FormattedExpression
}

// Loop repeats its body while the condition holds.
type Loop struct {
	Condition string
	Body      []Statement
}

// If starts a conditional chain.
type If struct {
	Condition string
	Body      []Statement
}

// ElseIf continues a conditional chain.
type ElseIf struct {
	Condition string
	Body      []Statement
}

// Else ends a conditional chain.
type Else struct {
	Body []Statement
}

// Break leaves the innermost loop.
type Break struct {
	Condition string
}

func (s *Exec) Guard() string     { return s.Condition }
func (s *ItemStmt) Guard() string { return s.Condition }
func (s *Loop) Guard() string     { return s.Condition }
func (s *If) Guard() string       { return s.Condition }
func (s *ElseIf) Guard() string   { return s.Condition }
func (*Else) Guard() string       { return "" }
func (s *Break) Guard() string    { return s.Condition }

func (*Exec) statement()     {}
func (*ItemStmt) statement() {}
func (*Loop) statement()     {}
func (*If) statement()       {}
func (*ElseIf) statement()   {}
func (*Else) statement()     {}
func (*Break) statement()    {}

// ContainsBreakOutsideLoop reports whether code has a Break that is not
// nested in a Loop.
func ContainsBreakOutsideLoop(code []Statement) bool {
	for _, st := range code {
		switch s := st.(type) {
		case *Break:
			return true
		case *If:
			if ContainsBreakOutsideLoop(s.Body) {
				return true
			}
		case *ElseIf:
			if ContainsBreakOutsideLoop(s.Body) {
				return true
			}
		case *Else:
			if ContainsBreakOutsideLoop(s.Body) {
				return true
			}
		}
	}
	return false
}
