// Package host defines what the visualization engine needs from the
// debugger that owns the inspected values.
package host

import (
	"errors"
	"fmt"

	"github.com/effectus/natvis-go/ast"
)

// Format is the rendering state attached to a value.
type Format struct {
	Spec      ast.FormatSpec
	Flags     ast.FormatFlags
	ViewID    int
	ArraySize int64
}

// RawView reports whether the value must be shown without rules.
func (f Format) RawView() bool {
	return f.Flags.Has(ast.FlagRawFormat)
}

// OverlayChild returns the format of a child value given its own format and
// its parent's. The child keeps its own spec and view and takes the parent's
// spec when it has none, plus every inheritable parent flag.
func OverlayChild(child, parent Format) Format {
	out := child
	if out.Spec == ast.SpecNone {
		out.Spec = parent.Spec
	}
	out.Flags |= parent.Flags & ast.InheritedFlags
	return out
}

// OverlaySummary is OverlayChild for values rendered inside a summary. The
// array size of the parent is inherited as well.
func OverlaySummary(child, parent Format) Format {
	out := OverlayChild(child, parent)
	if out.ArraySize == 0 {
		out.ArraySize = parent.ArraySize
	}
	return out
}

// Value is a live value owned by the host.
type Value interface {
	Name() string
	TypeName() string
	// Address identifies the storage of the value; for pointers it is the
	// address pointed to. Zero means null.
	Address() uint64
	Format() Format
	WithFormat(Format) Value
	WithName(string) Value
}

// Scope resolves custom-list variables during evaluation.
type Scope interface {
	Lookup(name string) (Value, bool)
	Assign(name string, v Value) error
	Names() []string
}

// EvalOptions are the per-call options for Host.Evaluate.
type EvalOptions struct {
	// Name is given to the resulting value.
	Name  string
	Scope Scope
}

// Host evaluates expressions and navigates values.
type Host interface {
	// Evaluate evaluates expr in the context of v. Errors are reported as
	// *EvaluationError.
	Evaluate(v Value, expr string, opts EvalOptions) (Value, error)
	// Dereference returns the value a pointer refers to.
	Dereference(v Value) (Value, error)
	// Element returns the index-th element of an array or of the memory a
	// pointer refers to.
	Element(v Value, index int64, name string) (Value, error)
	// Int converts a scalar value to an integer.
	Int(v Value) (int64, error)
	// Bool converts a scalar value to a truth value.
	Bool(v Value) (bool, error)
	// Fields returns the declared members of a value.
	Fields(v Value) ([]Value, error)
	// Summary renders a primitive value. ok is false for aggregates.
	Summary(v Value) (text string, ok bool)
	// BaseClasses returns the direct base classes of a type.
	BaseClasses(typeName string) []string
}

// ErrEvaluation marks expression evaluation failures.
var ErrEvaluation = errors.New("evaluation failed")

// ErrorKind tells apart expressions that cannot be evaluated at all from
// expressions that failed while running.
type ErrorKind int

const (
	// ParseFailure: the expression is malformed or names something unknown.
	ParseFailure ErrorKind = iota
	// RuntimeFailure: the expression is valid but failed on this value.
	RuntimeFailure
)

// EvaluationError describes an expression that could not be evaluated.
type EvaluationError struct {
	Expr string
	Kind ErrorKind
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() []error { return []error{ErrEvaluation, e.Err} }

// Errorf builds a parse-failure EvaluationError for expr.
func Errorf(expr, format string, args ...any) error {
	return &EvaluationError{Expr: expr, Kind: ParseFailure, Err: fmt.Errorf(format, args...)}
}

// RuntimeErrorf builds a runtime-failure EvaluationError for expr.
func RuntimeErrorf(expr, format string, args ...any) error {
	return &EvaluationError{Expr: expr, Kind: RuntimeFailure, Err: fmt.Errorf(format, args...)}
}

// IsRuntime reports whether err is an EvaluationError raised while running a
// valid expression.
func IsRuntime(err error) bool {
	var evalErr *EvaluationError
	return errors.As(err, &evalErr) && evalErr.Kind == RuntimeFailure
}
