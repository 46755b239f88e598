// Package manager keeps the set of loaded visualizer sources and serves rule
// lookups across all of them.
package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/parser"
	"github.com/effectus/natvis-go/store"
	"github.com/effectus/natvis-go/typename"
)

// ErrNotRegistered is returned for operations on an unknown source.
var ErrNotRegistered = errors.New("source not registered")

// EventKind says what happened to a source.
type EventKind int

const (
	Loaded EventKind = iota
	Reloaded
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Loaded:
		return "loaded"
	case Reloaded:
		return "reloaded"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event describes a change of the rule set.
type Event struct {
	Kind       EventKind
	Path       string
	Generation uuid.UUID
}

// Source is one loaded visualizer file or in-memory document.
type Source struct {
	Path       string
	Generation uuid.UUID
	LoadedAt   time.Time
	Rules      []*ast.Rule
	Errors     []error

	file  bool
	data  []byte
	store *store.Store
}

// Manager owns the registered sources. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	sources   map[string]*Source
	order     []string
	listeners []func(Event)

	parser *parser.Parser
	logger *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger. It is passed on to the parser and the
// per-source stores.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates an empty manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		sources: make(map[string]*Source),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.parser = parser.New(parser.WithLogger(m.logger))
	return m
}

// OnChange registers fn to be called after every change of the rule set.
func (m *Manager) OnChange(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	listeners := slices.Clone(m.listeners)
	m.mu.RUnlock()
	m.logger.Info("visualizers "+ev.Kind.String(),
		zap.String("path", ev.Path),
		zap.String("generation", ev.Generation.String()))
	for _, fn := range listeners {
		fn(ev)
	}
}

// Register loads a file. Registering a path again reloads it.
func (m *Manager) Register(path string) (*Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}
	return m.install(abs, data, true)
}

// LoadRules registers an in-memory document under name.
func (m *Manager) LoadRules(name string, data []byte) (*Source, error) {
	return m.install(name, append([]byte(nil), data...), false)
}

func (m *Manager) install(path string, data []byte, file bool) (*Source, error) {
	src, err := m.build(path, data, file)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	_, existed := m.sources[path]
	m.sources[path] = src
	if !existed {
		m.order = append(m.order, path)
	}
	m.mu.Unlock()

	kind := Loaded
	if existed {
		kind = Reloaded
	}
	m.notify(Event{Kind: kind, Path: path, Generation: src.Generation})
	return src, nil
}

func (m *Manager) build(path string, data []byte, file bool) (*Source, error) {
	parsed, err := m.parser.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src := &Source{
		Path:       path,
		Generation: uuid.New(),
		LoadedAt:   time.Now(),
		Errors:     parsed.Errors,
		file:       file,
		data:       data,
		store:      store.New(store.WithLogger(m.logger)),
	}
	for _, rule := range parsed.Rules {
		if err := src.store.Add(rule); err != nil {
			m.logger.Warn("pattern rejected",
				zap.String("path", path),
				zap.String("type", rule.Name()),
				zap.Error(err))
			src.Errors = append(src.Errors, err)
		}
		src.Rules = append(src.Rules, rule)
	}
	return src, nil
}

// Unregister drops a source and its rules.
func (m *Manager) Unregister(path string) error {
	key, src, ok := m.find(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	m.mu.Lock()
	delete(m.sources, key)
	for i, p := range m.order {
		if p == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	m.notify(Event{Kind: Removed, Path: key, Generation: src.Generation})
	return nil
}

// Reload parses a source again. File sources are re-read from disk.
func (m *Manager) Reload(path string) error {
	key, src, ok := m.find(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	data := src.data
	if src.file {
		var err error
		if data, err = os.ReadFile(key); err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
	}
	_, err := m.install(key, data, src.file)
	return err
}

// ReloadAll reloads every source. Failing sources keep their previous rules.
func (m *Manager) ReloadAll() error {
	var errs []error
	for _, path := range m.Files() {
		if err := m.Reload(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RemoveAll drops every source.
func (m *Manager) RemoveAll() {
	for _, path := range m.Files() {
		if err := m.Unregister(path); err != nil {
			m.logger.Debug("source already removed", zap.String("path", path))
		}
	}
}

// Files lists the registered sources in registration order.
func (m *Manager) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Source returns a registered source.
func (m *Manager) Source(path string) (*Source, bool) {
	_, src, ok := m.find(path)
	return src, ok
}

func (m *Manager) find(path string) (string, *Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if src, ok := m.sources[path]; ok {
		return path, src, true
	}
	if abs, err := filepath.Abs(path); err == nil {
		if src, ok := m.sources[abs]; ok {
			return abs, src, true
		}
	}
	return "", nil, false
}

// Lookup returns the rules for t from every source, in registration order.
func (m *Manager) Lookup(t *typename.Template) []store.Match {
	m.mu.RLock()
	stores := make([]*store.Store, 0, len(m.order))
	for _, path := range m.order {
		stores = append(stores, m.sources[path].store)
	}
	m.mu.RUnlock()

	var out []store.Match
	for _, s := range stores {
		out = append(out, s.Lookup(t)...)
	}
	return out
}

// Rules returns every loaded rule in registration order.
func (m *Manager) Rules() []*ast.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ast.Rule
	for _, path := range m.order {
		out = append(out, m.sources[path].Rules...)
	}
	return out
}

// Entries returns the store entries of every source, in registration order.
func (m *Manager) Entries() []store.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.Entry
	for _, path := range m.order {
		out = append(out, m.sources[path].store.Entries()...)
	}
	return out
}
