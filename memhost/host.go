// Package memhost is an in-memory host for the visualization engine. Values
// are plain Go data and expressions are evaluated with expr-lang, after a
// light translation of C++ member access and null literals.
package memhost

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/host"
)

// Host evaluates expressions over memhost values.
type Host struct {
	mu     sync.RWMutex
	bases  map[string][]string
	logger *zap.Logger
}

var _ host.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates an empty host.
func New(opts ...Option) *Host {
	h := &Host{bases: make(map[string][]string), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// DeclareBases records the direct base classes of a type.
func (h *Host) DeclareBases(typeName string, bases ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bases[typeName] = append(h.bases[typeName], bases...)
}

func (h *Host) BaseClasses(typeName string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.bases[strings.TrimSpace(strings.TrimSuffix(typeName, "*"))]...)
}

var (
	nullLiteral = regexp.MustCompile(`\b(nullptr|NULL)\b`)
	assignment  = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*(\+\+|--|[-+*/]?=)(.*)$`)
	preIncDec   = regexp.MustCompile(`^\s*(\+\+|--)\s*([A-Za-z_]\w*)\s*$`)
)

func translate(text string) string {
	text = strings.ReplaceAll(text, "->", ".")
	return nullLiteral.ReplaceAllString(text, "nil")
}

func (h *Host) Evaluate(v host.Value, text string, opts host.EvalOptions) (host.Value, error) {
	name := opts.Name
	if name == "" {
		name = strings.TrimSpace(text)
	}
	if target, op, rhs, ok := splitAssignment(text); ok {
		return h.assign(v, text, target, op, rhs, name, opts.Scope)
	}
	res, err := h.eval(v, text, opts.Scope)
	if err != nil {
		return nil, err
	}
	return NewValue(name, res), nil
}

func splitAssignment(text string) (target, op, rhs string, ok bool) {
	if m := preIncDec.FindStringSubmatch(text); m != nil {
		return m[2], m[1], "", true
	}
	m := assignment.FindStringSubmatch(text)
	if m == nil {
		return "", "", "", false
	}
	target, op, rhs = m[1], m[2], m[3]
	switch {
	case op == "=" && strings.HasPrefix(rhs, "="):
		return "", "", "", false
	case (op == "++" || op == "--") && strings.TrimSpace(rhs) != "":
		return "", "", "", false
	}
	return target, op, strings.TrimSpace(rhs), true
}

func (h *Host) assign(v host.Value, text, target, op, rhs, name string, scope host.Scope) (host.Value, error) {
	if scope == nil {
		return nil, host.Errorf(text, "assignment to %s outside of a variable scope", target)
	}
	if _, ok := scope.Lookup(target); !ok {
		return nil, host.Errorf(text, "undefined variable %s", target)
	}
	switch op {
	case "++":
		rhs = target + " + 1"
	case "--":
		rhs = target + " - 1"
	case "=":
	default:
		rhs = fmt.Sprintf("%s %s (%s)", target, op[:1], rhs)
	}
	res, err := h.eval(v, rhs, scope)
	if err != nil {
		return nil, err
	}
	out := NewValue(name, res)
	if err := scope.Assign(target, out); err != nil {
		return nil, host.RuntimeErrorf(text, "%v", err)
	}
	return out, nil
}

type identifiers struct {
	names []string
}

func (c *identifiers) Visit(node *exprast.Node) {
	if id, ok := (*node).(*exprast.IdentifierNode); ok {
		c.names = append(c.names, id.Value)
	}
}

func (h *Host) eval(v host.Value, text string, scope host.Scope) (any, error) {
	code := translate(text)
	if strings.TrimSpace(code) == "" {
		return nil, host.Errorf(text, "empty expression")
	}
	tree, err := parser.Parse(code)
	if err != nil {
		return nil, host.Errorf(text, "%v", err)
	}
	env := environment(v, scope)
	ids := &identifiers{}
	exprast.Walk(&tree.Node, ids)
	for _, id := range ids.names {
		if _, ok := env[id]; !ok {
			return nil, host.Errorf(text, "undefined identifier %s", id)
		}
	}
	res, err := expr.Eval(code, env)
	if err != nil {
		return nil, host.RuntimeErrorf(text, "%v", err)
	}
	return normalize(res), nil
}

func environment(v host.Value, scope host.Scope) map[string]any {
	env := make(map[string]any)
	var data any
	if mv, ok := v.(*Value); ok {
		data = mv.data
	}
	if obj, ok := data.(Object); ok {
		for k, field := range obj {
			if !strings.HasPrefix(k, "$") {
				env[k] = normalize(field)
			}
		}
	}
	env["this"] = data
	if scope != nil {
		for _, name := range scope.Names() {
			if sv, ok := scope.Lookup(name); ok {
				if mv, ok := sv.(*Value); ok {
					env[name] = mv.data
				}
			}
		}
	}
	return env
}

func (h *Host) Dereference(v host.Value) (host.Value, error) {
	mv, ok := v.(*Value)
	if !ok {
		return nil, host.RuntimeErrorf("*"+v.Name(), "foreign value %T", v)
	}
	switch mv.data.(type) {
	case nil:
		return nil, host.RuntimeErrorf("*"+v.Name(), "null pointer")
	case Object, []any:
		return mv, nil
	}
	return nil, host.RuntimeErrorf("*"+v.Name(), "%s is not a pointer", mv.typ)
}

func (h *Host) Element(v host.Value, index int64, name string) (host.Value, error) {
	mv, ok := v.(*Value)
	if !ok {
		return nil, host.RuntimeErrorf(name, "foreign value %T", v)
	}
	items, ok := mv.data.([]any)
	if !ok {
		return nil, host.RuntimeErrorf(name, "%s is not an array", mv.typ)
	}
	if index < 0 || index >= int64(len(items)) {
		return nil, host.RuntimeErrorf(name, "index %d out of range [0, %d)", index, len(items))
	}
	return NewValue(name, items[index]), nil
}

func (h *Host) Int(v host.Value) (int64, error) {
	mv, ok := v.(*Value)
	if !ok {
		return 0, fmt.Errorf("foreign value %T", v)
	}
	if n, ok := toInt(mv.data); ok {
		return n, nil
	}
	if f, ok := mv.data.(float64); ok && f == math.Trunc(f) {
		return int64(f), nil
	}
	return 0, fmt.Errorf("%s is not an integer", mv.typ)
}

func (h *Host) Bool(v host.Value) (bool, error) {
	mv, ok := v.(*Value)
	if !ok {
		return false, fmt.Errorf("foreign value %T", v)
	}
	switch d := mv.data.(type) {
	case nil:
		return false, nil
	case bool:
		return d, nil
	case float64:
		return d != 0, nil
	case Object, []any:
		return true, nil
	}
	if n, ok := toInt(mv.data); ok {
		return n != 0, nil
	}
	return false, fmt.Errorf("%s is not convertible to bool", mv.typ)
}

func (h *Host) Fields(v host.Value) ([]host.Value, error) {
	mv, ok := v.(*Value)
	if !ok {
		return nil, fmt.Errorf("foreign value %T", v)
	}
	switch d := mv.data.(type) {
	case Object:
		keys := make([]string, 0, len(d))
		for k := range d {
			if !strings.HasPrefix(k, "$") {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		out := make([]host.Value, len(keys))
		for i, k := range keys {
			out[i] = NewValue(k, d[k])
		}
		return out, nil
	case []any:
		out := make([]host.Value, len(d))
		for i, el := range d {
			out[i] = NewValue("["+strconv.Itoa(i)+"]", el)
		}
		return out, nil
	}
	return nil, nil
}

func (h *Host) Summary(v host.Value) (string, bool) {
	mv, ok := v.(*Value)
	if !ok {
		return "", false
	}
	spec := mv.format.Spec
	switch d := mv.data.(type) {
	case nil:
		return "nullptr", true
	case Object, []any:
		return "", false
	case bool:
		return strconv.FormatBool(d), true
	case string:
		switch spec {
		case ast.SpecStringNoQuotes, ast.SpecUTF8StringNoQuotes, ast.SpecWideStringNoQuotes, ast.SpecUTF32StringNoQuotes:
			return d, true
		}
		return `"` + d + `"`, true
	case float32:
		return formatFloat(float64(d), spec), true
	case float64:
		return formatFloat(d, spec), true
	}
	if n, ok := toInt(mv.data); ok {
		return formatInt(n, spec), true
	}
	return fmt.Sprint(mv.data), true
}

func formatFloat(f float64, spec ast.FormatSpec) string {
	if spec == ast.SpecScientific {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatInt(n int64, spec ast.FormatSpec) string {
	switch spec {
	case ast.SpecHex:
		return fmt.Sprintf("0x%x", n)
	case ast.SpecHexUpper:
		return fmt.Sprintf("0x%X", n)
	case ast.SpecHexNoPrefix:
		return fmt.Sprintf("%x", n)
	case ast.SpecHexUpperNoPrefix:
		return fmt.Sprintf("%X", n)
	case ast.SpecOctal:
		return fmt.Sprintf("0%o", n)
	case ast.SpecBinary:
		return fmt.Sprintf("0b%b", n)
	case ast.SpecBinaryNoPrefix:
		return fmt.Sprintf("%b", n)
	case ast.SpecCharacter:
		return fmt.Sprintf("%d '%c'", n, rune(n))
	}
	return strconv.FormatInt(n, 10)
}
