// Package children implements the lazy child sequences returned by the
// engine's expand operation.
package children

import (
	"sort"
	"strconv"
	"strings"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/host"
)

// RawViewName is the name of the entry that shows a value without rules.
const RawViewName = "Raw View"

// Provider is an indexed sequence of child values. At returns nil for a slot
// whose value is not available.
type Provider interface {
	Count() int
	IndexOf(name string) (int, bool)
	At(index int) host.Value
}

// Truncated is implemented by providers that may have stopped before the end
// of the underlying structure.
type Truncated interface {
	HasMore() bool
}

// IndexName is the default name of the child at index.
func IndexName(index int) string {
	return "[" + strconv.Itoa(index) + "]"
}

func parseIndexName(name string) (int, bool) {
	if !strings.HasPrefix(name, "[") || !strings.HasSuffix(name, "]") {
		return 0, false
	}
	i, err := strconv.Atoi(name[1 : len(name)-1])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

type empty struct{}

func (empty) Count() int                 { return 0 }
func (empty) IndexOf(string) (int, bool) { return 0, false }
func (empty) At(int) host.Value          { return nil }

// Empty has no children.
var Empty Provider = empty{}

// Single holds exactly one child.
type Single struct {
	value host.Value
}

// NewSingle returns a provider for one value.
func NewSingle(v host.Value) *Single {
	return &Single{value: v}
}

func (s *Single) Count() int { return 1 }

func (s *Single) IndexOf(name string) (int, bool) {
	if s.value != nil && s.value.Name() == name {
		return 0, true
	}
	return 0, false
}

func (s *Single) At(index int) host.Value {
	if index != 0 {
		return nil
	}
	return s.value
}

// RawView returns the single "Raw View" entry for v.
func RawView(v host.Value) *Single {
	f := v.Format()
	f.Flags |= ast.FlagRawFormat
	return NewSingle(v.WithName(RawViewName).WithFormat(f))
}

// Indexed produces children on demand from their index. Children are named
// "[i]".
type Indexed struct {
	n       int
	element func(int) host.Value
}

// NewIndexed returns a provider of n children computed by element.
func NewIndexed(n int, element func(int) host.Value) *Indexed {
	if n < 0 {
		n = 0
	}
	return &Indexed{n: n, element: element}
}

func (p *Indexed) Count() int { return p.n }

func (p *Indexed) IndexOf(name string) (int, bool) {
	i, ok := parseIndexName(name)
	if !ok || i >= p.n {
		return 0, false
	}
	return i, true
}

func (p *Indexed) At(index int) host.Value {
	if index < 0 || index >= p.n {
		return nil
	}
	return p.element(index)
}

// List holds a precomputed set of children.
type List struct {
	values  []host.Value
	index   map[string]int
	hasMore bool
}

// NewList returns a provider over values, looked up by their names.
func NewList(values []host.Value, hasMore bool) *List {
	l := &List{values: values, index: make(map[string]int, len(values)), hasMore: hasMore}
	for i, v := range values {
		if v == nil {
			continue
		}
		if _, dup := l.index[v.Name()]; !dup {
			l.index[v.Name()] = i
		}
	}
	return l
}

func (l *List) Count() int { return len(l.values) }

func (l *List) IndexOf(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

func (l *List) At(index int) host.Value {
	if index < 0 || index >= len(l.values) {
		return nil
	}
	return l.values[index]
}

func (l *List) HasMore() bool { return l.hasMore }

// Nodes holds the nodes found by a structure walk. Child values are computed
// from the nodes on first access and cached.
type Nodes struct {
	nodes   []host.Value
	names   []string
	index   map[string]int
	hasMore bool
	value   func(node host.Value, name string) host.Value
	cache   map[int]host.Value
}

// NewNodes returns a provider over nodes. names may be nil, in which case the
// children are named "[i]". A nil node is an unavailable slot.
func NewNodes(nodes []host.Value, names []string, hasMore bool, value func(node host.Value, name string) host.Value) *Nodes {
	p := &Nodes{nodes: nodes, names: names, hasMore: hasMore, value: value, cache: make(map[int]host.Value)}
	if names != nil {
		p.index = make(map[string]int, len(names))
		for i, name := range names {
			if _, dup := p.index[name]; !dup {
				p.index[name] = i
			}
		}
	}
	return p
}

func (p *Nodes) Count() int { return len(p.nodes) }

func (p *Nodes) name(index int) string {
	if p.names != nil && index < len(p.names) && p.names[index] != "" {
		return p.names[index]
	}
	return IndexName(index)
}

func (p *Nodes) IndexOf(name string) (int, bool) {
	if p.index != nil {
		i, ok := p.index[name]
		return i, ok
	}
	i, ok := parseIndexName(name)
	if !ok || i >= len(p.nodes) {
		return 0, false
	}
	return i, true
}

func (p *Nodes) At(index int) host.Value {
	if index < 0 || index >= len(p.nodes) || p.nodes[index] == nil {
		return nil
	}
	if v, ok := p.cache[index]; ok {
		return v
	}
	v := p.value(p.nodes[index], p.name(index))
	p.cache[index] = v
	return v
}

func (p *Nodes) HasMore() bool { return p.hasMore }

// Composite concatenates providers. Children take over the inheritable
// format of the parent value.
type Composite struct {
	providers []Provider
	starts    []int
	count     int
	parent    host.Format
}

// NewComposite concatenates providers in order.
func NewComposite(parent host.Format, providers ...Provider) *Composite {
	c := &Composite{parent: parent}
	for _, p := range providers {
		if p == nil {
			continue
		}
		c.providers = append(c.providers, p)
		c.starts = append(c.starts, c.count)
		c.count += p.Count()
	}
	return c
}

func (c *Composite) Count() int { return c.count }

func (c *Composite) IndexOf(name string) (int, bool) {
	for i, p := range c.providers {
		if local, ok := p.IndexOf(name); ok {
			return c.starts[i] + local, true
		}
	}
	return 0, false
}

func (c *Composite) At(index int) host.Value {
	if index < 0 || index >= c.count {
		return nil
	}
	i := sort.Search(len(c.starts), func(i int) bool { return c.starts[i] > index }) - 1
	v := c.providers[i].At(index - c.starts[i])
	if v == nil {
		return nil
	}
	return v.WithFormat(host.OverlayChild(v.Format(), c.parent))
}

// HasMore reports whether any part was truncated.
func (c *Composite) HasMore() bool {
	for _, p := range c.providers {
		if t, ok := p.(Truncated); ok && t.HasMore() {
			return true
		}
	}
	return false
}
