// Package eval renders host values through visualization rules.
//
// The engine produces two things for a value: a one-line summary and a
// children provider. Every failure below these two entry points is absorbed:
// a failing rule candidate falls through to the next one, and when nothing
// applies the value is shown the way the host shows it.
package eval

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/config"
	"github.com/effectus/natvis-go/host"
	"github.com/effectus/natvis-go/store"
	"github.com/effectus/natvis-go/typename"
)

// Catalog finds the rules registered for a type.
type Catalog interface {
	Lookup(t *typename.Template) []store.Match
}

type candidate struct {
	rule     *ast.Rule
	pattern  string
	bindings []string
}

// Engine evaluates rules against host values.
type Engine struct {
	host    host.Host
	catalog Catalog
	limits  config.Limits
	logger  *zap.Logger

	mu     sync.Mutex
	types  map[string][]candidate
	lists  map[listKey]*listState
	varSeq int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the default limits.
func WithLimits(limits config.Limits) Option {
	return func(e *Engine) {
		e.limits = limits
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine over a host and a rule catalog.
func New(h host.Host, catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		host:    h,
		catalog: catalog,
		limits:  config.DefaultLimits(),
		logger:  zap.NewNop(),
		types:   make(map[string][]candidate),
		lists:   make(map[listKey]*listState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invalidate drops every cached lookup and custom-list state. It must be
// called whenever the catalog changes.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = make(map[string][]candidate)
	e.lists = make(map[listKey]*listState)
	e.logger.Debug("engine caches invalidated")
}

func (e *Engine) candidates(typeName string) []candidate {
	e.mu.Lock()
	cands, ok := e.types[typeName]
	e.mu.Unlock()
	if ok {
		return cands
	}

	cands = e.resolve(typeName)
	e.mu.Lock()
	e.types[typeName] = cands
	e.mu.Unlock()
	return cands
}

func (e *Engine) resolve(typeName string) []candidate {
	t, err := typename.Parse(typeName)
	if err != nil {
		e.logger.Debug("unparsable type name", zap.String("type", typeName), zap.Error(err))
		return nil
	}
	if cands := e.match(t, false); len(cands) > 0 {
		return cands
	}
	return e.inherited(typeName, map[string]bool{typeName: true})
}

func (e *Engine) match(t *typename.Template, inheritableOnly bool) []candidate {
	var out []candidate
	for _, m := range e.catalog.Lookup(t) {
		if inheritableOnly && !m.Rule.Inheritable {
			continue
		}
		out = append(out, candidate{rule: m.Rule, pattern: m.Pattern.Text, bindings: cleanBindings(m.Bindings)})
	}
	return out
}

// inherited searches the base classes depth first and returns the
// inheritable rules of the first base that has any.
func (e *Engine) inherited(typeName string, seen map[string]bool) []candidate {
	for _, base := range e.host.BaseClasses(typeName) {
		if seen[base] {
			continue
		}
		seen[base] = true
		t, err := typename.Parse(base)
		if err != nil {
			e.logger.Debug("unparsable base class", zap.String("type", base), zap.Error(err))
			continue
		}
		if cands := e.match(t, true); len(cands) > 0 {
			return cands
		}
		if cands := e.inherited(base, seen); len(cands) > 0 {
			return cands
		}
	}
	return nil
}

var typePrefixes = []string{"struct ", "class ", "enum "}

func cleanBindings(bindings []string) []string {
	if bindings == nil {
		return nil
	}
	out := make([]string, len(bindings))
	for i, b := range bindings {
		for _, prefix := range typePrefixes {
			b = strings.TrimPrefix(b, prefix)
		}
		out[i] = b
	}
	return out
}
