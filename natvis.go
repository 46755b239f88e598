// Package natvis renders debugger values through declarative natvis
// visualizers.
//
// A Visualizer ties together the source manager, which owns the loaded rule
// files, and the evaluation engine, which applies them to host values:
//
//	vis := natvis.New(myHost)
//	if _, err := vis.LoadFile("std.natvis"); err != nil { ... }
//	summary := vis.Summarize(value)
//	children := vis.Expand(value)
package natvis

import (
	"go.uber.org/zap"

	"github.com/effectus/natvis-go/children"
	"github.com/effectus/natvis-go/config"
	"github.com/effectus/natvis-go/eval"
	"github.com/effectus/natvis-go/host"
	"github.com/effectus/natvis-go/manager"
)

// Visualizer renders values with the rules of every loaded source.
type Visualizer struct {
	manager *manager.Manager
	engine  *eval.Engine
	logger  *zap.Logger
}

// Option configures a Visualizer.
type Option func(*options)

type options struct {
	limits config.Limits
	logger *zap.Logger
}

// WithLimits overrides the default limits.
func WithLimits(limits config.Limits) Option {
	return func(o *options) {
		o.limits = limits
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConfig applies the limits of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.limits = cfg.Limits
		}
	}
}

// New creates a Visualizer over h with no sources loaded.
func New(h host.Host, opts ...Option) *Visualizer {
	o := &options{limits: config.DefaultLimits(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	m := manager.New(manager.WithLogger(o.logger))
	e := eval.New(h, m, eval.WithLimits(o.limits), eval.WithLogger(o.logger))
	m.OnChange(func(manager.Event) { e.Invalidate() })
	return &Visualizer{manager: m, engine: e, logger: o.logger}
}

// LoadRules registers an in-memory natvis document under name.
func (v *Visualizer) LoadRules(name string, source []byte) (*manager.Source, error) {
	return v.manager.LoadRules(name, source)
}

// LoadFile registers a natvis file.
func (v *Visualizer) LoadFile(path string) (*manager.Source, error) {
	return v.manager.Register(path)
}

// Manager exposes the source manager, for reload and watch.
func (v *Visualizer) Manager() *manager.Manager {
	return v.manager
}

// Summarize returns the one-line summary of val.
func (v *Visualizer) Summarize(val host.Value) string {
	if val == nil {
		return v.engine.Summarize("", nil)
	}
	return v.engine.Summarize(val.TypeName(), val)
}

// Expand returns the children of val.
func (v *Visualizer) Expand(val host.Value) children.Provider {
	if val == nil {
		return children.Empty
	}
	return v.engine.Expand(val.TypeName(), val)
}
