// Package store indexes visualization rules by type-name pattern.
package store

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/common"
	"github.com/effectus/natvis-go/typename"
)

// ErrSpecificityCycle is returned when a wildcard pattern would make the
// specificity ordering cyclic. The pattern is not inserted.
var ErrSpecificityCycle = errors.New("specificity cycle between wildcard patterns")

// Variant is one rule registered under a pattern.
type Variant struct {
	Rule    *ast.Rule
	Pattern *ast.TypeNamePattern
}

// GetPriority orders variants of one pattern.
func (v Variant) GetPriority() int { return int(v.Rule.Priority) }

// Match is a lookup result. Bindings holds the wildcard captures, in order,
// for wildcard matches and is nil for exact ones.
type Match struct {
	Rule     *ast.Rule
	Pattern  *ast.TypeNamePattern
	Bindings []string
}

type descriptor struct {
	template     *typename.Template
	name         string
	variants     []Variant
	moreSpecific []*descriptor
}

func (d *descriptor) priority() int {
	p := 0
	for _, v := range d.variants {
		if int(v.Rule.Priority) > p {
			p = int(v.Rule.Priority)
		}
	}
	return p
}

// add appends v unless an equivalent rule is already registered.
func (d *descriptor) add(v Variant) bool {
	for _, existing := range d.variants {
		if existing.Rule == v.Rule || existing.Rule.Equal(v.Rule) {
			return false
		}
	}
	d.variants = append(d.variants, v)
	return true
}

type bucket struct {
	exact      map[string]*descriptor
	exactOrder []*descriptor
	wildcards  []*descriptor
	wildByName map[string]*descriptor
	dirty      bool
}

func newBucket() *bucket {
	return &bucket{
		exact:      make(map[string]*descriptor),
		wildByName: make(map[string]*descriptor),
	}
}

// Store holds rules bucketed by the pattern prefix before the first template
// argument list.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	keys    []string
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{buckets: make(map[string]*bucket), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts every pattern of rule. Patterns that fail are reported in the
// joined error; the others stay inserted.
func (s *Store) Add(rule *ast.Rule) error {
	var errs []error
	for _, pattern := range rule.Patterns {
		if err := s.Insert(rule, pattern); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Insert registers rule under one pattern.
func (s *Store) Insert(rule *ast.Rule, pattern *ast.TypeNamePattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl := pattern.Template
	key := tmpl.Key()
	b, ok := s.buckets[key]
	if !ok {
		b = newBucket()
		s.buckets[key] = b
		s.keys = append(s.keys, key)
	}
	variant := Variant{Rule: rule, Pattern: pattern}
	name := tmpl.String()

	if !tmpl.HasWildcard() {
		d, ok := b.exact[name]
		if !ok {
			d = &descriptor{template: tmpl, name: name}
			b.exact[name] = d
			b.exactOrder = append(b.exactOrder, d)
		}
		if d.add(variant) {
			b.dirty = true
		}
		return nil
	}

	if d, ok := b.wildByName[name]; ok {
		if d.add(variant) {
			b.dirty = true
		}
		return nil
	}

	d := &descriptor{template: tmpl, name: name, variants: []Variant{variant}}
	var general []*descriptor
	for _, other := range b.wildcards {
		switch {
		case other.template.Match(tmpl, nil):
			other.moreSpecific = append(other.moreSpecific, d)
			general = append(general, other)
		case tmpl.Match(other.template, nil):
			d.moreSpecific = append(d.moreSpecific, other)
		}
	}

	candidate := append(append([]*descriptor(nil), b.wildcards...), d)
	if _, err := common.TopoSort(candidate, func(x *descriptor) []*descriptor { return x.moreSpecific }); err != nil {
		for _, other := range general {
			other.moreSpecific = other.moreSpecific[:len(other.moreSpecific)-1]
		}
		s.logger.Warn("rejecting wildcard pattern", zap.String("pattern", pattern.Text), zap.Error(err))
		return fmt.Errorf("%s: %w", pattern.Text, ErrSpecificityCycle)
	}

	b.wildcards = candidate
	b.wildByName[name] = d
	b.dirty = true
	return nil
}

func (b *bucket) ensureSorted() {
	if !b.dirty {
		return
	}
	for _, d := range b.exactOrder {
		common.SortByPriorityStable(d.variants)
	}
	for _, d := range b.wildcards {
		common.SortByPriorityStable(d.variants)
	}
	common.SortByPriorityFuncStable(b.wildcards, (*descriptor).priority)
	// Insert keeps the graph acyclic, so the sort cannot fail here.
	if sorted, err := common.TopoSort(b.wildcards, func(d *descriptor) []*descriptor { return d.moreSpecific }); err == nil {
		b.wildcards = sorted
	}
	b.dirty = false
}

func (s *Store) bucket(t *typename.Template) *bucket {
	b, ok := s.buckets[t.Key()]
	if !ok {
		return nil
	}
	b.ensureSorted()
	return b
}

// LookupExact returns the rules registered under exactly t's canonical name,
// highest priority first.
func (s *Store) LookupExact(t *typename.Template) []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(t)
	if b == nil {
		return nil
	}
	return b.exactMatches(t)
}

// LookupWildcard returns the wildcard rules matching t, most specific
// pattern first.
func (s *Store) LookupWildcard(t *typename.Template) []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(t)
	if b == nil {
		return nil
	}
	return b.wildcardMatches(t)
}

// Lookup returns exact matches followed by wildcard matches.
func (s *Store) Lookup(t *typename.Template) []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(t)
	if b == nil {
		return nil
	}
	return append(b.exactMatches(t), b.wildcardMatches(t)...)
}

// LookupName parses typeName and calls Lookup.
func (s *Store) LookupName(typeName string) ([]Match, error) {
	t, err := typename.Parse(typeName)
	if err != nil {
		return nil, err
	}
	return s.Lookup(t), nil
}

func (b *bucket) exactMatches(t *typename.Template) []Match {
	d, ok := b.exact[t.String()]
	if !ok {
		return nil
	}
	out := make([]Match, 0, len(d.variants))
	for _, v := range d.variants {
		out = append(out, Match{Rule: v.Rule, Pattern: v.Pattern})
	}
	return out
}

func (b *bucket) wildcardMatches(t *typename.Template) []Match {
	var out []Match
	for _, d := range b.wildcards {
		var captures []string
		if !d.template.Match(t, &captures) {
			continue
		}
		for _, v := range d.variants {
			out = append(out, Match{Rule: v.Rule, Pattern: v.Pattern, Bindings: captures})
		}
	}
	return out
}

// Entry describes one registered pattern.
type Entry struct {
	Name     string
	Wildcard bool
	Template *typename.Template
	Rules    []*ast.Rule
}

// Entries lists the registered patterns in bucket insertion order, exact
// patterns before wildcard ones within a bucket.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, key := range s.keys {
		b := s.buckets[key]
		b.ensureSorted()
		for _, d := range b.exactOrder {
			out = append(out, d.entry(false))
		}
		for _, d := range b.wildcards {
			out = append(out, d.entry(true))
		}
	}
	return out
}

func (d *descriptor) entry(wildcard bool) Entry {
	rules := make([]*ast.Rule, 0, len(d.variants))
	for _, v := range d.variants {
		rules = append(rules, v.Rule)
	}
	return Entry{Name: d.name, Wildcard: wildcard, Template: d.template, Rules: rules}
}

// Len returns the number of registered patterns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.buckets {
		n += len(b.exactOrder) + len(b.wildcards)
	}
	return n
}
