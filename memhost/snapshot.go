package memhost

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ErrUnknownReference is returned when a snapshot refers to an object id that
// is not defined.
var ErrUnknownReference = errors.New("unknown object reference")

// Snapshot is a set of named root values plus the class hierarchy they need.
//
// In the file form, "objects" maps ids to objects and "roots" maps names to
// values. A string of the form "@id" anywhere in a value refers to an object,
// which allows shared and cyclic structures. "bases" maps a type name to its
// direct base classes.
type Snapshot struct {
	Bases   map[string][]string `yaml:"bases" json:"bases"`
	Objects map[string]any      `yaml:"objects" json:"objects"`
	Roots   map[string]any      `yaml:"roots" json:"roots"`

	resolved map[string]any
}

// LoadSnapshot reads a snapshot file. JSON is selected by the .json
// extension; anything else is read as YAML.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return ParseSnapshotJSON(data)
	}
	return ParseSnapshotYAML(data)
}

// ParseSnapshotYAML decodes a YAML snapshot.
func ParseSnapshotYAML(data []byte) (*Snapshot, error) {
	s := &Snapshot{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing snapshot yaml: %w", err)
	}
	return s, s.link()
}

// ParseSnapshotJSON decodes a JSON snapshot.
func ParseSnapshotJSON(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("parsing snapshot json: invalid document")
	}
	doc := gjson.ParseBytes(data)
	s := &Snapshot{
		Bases:   make(map[string][]string),
		Objects: make(map[string]any),
		Roots:   make(map[string]any),
	}
	doc.Get("bases").ForEach(func(key, value gjson.Result) bool {
		for _, base := range value.Array() {
			s.Bases[key.String()] = append(s.Bases[key.String()], base.String())
		}
		return true
	})
	doc.Get("objects").ForEach(func(key, value gjson.Result) bool {
		s.Objects[key.String()] = fromJSON(value)
		return true
	})
	doc.Get("roots").ForEach(func(key, value gjson.Result) bool {
		s.Roots[key.String()] = fromJSON(value)
		return true
	})
	return s, s.link()
}

func fromJSON(r gjson.Result) any {
	switch {
	case r.IsObject():
		out := make(map[string]any)
		r.ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = fromJSON(value)
			return true
		})
		return out
	case r.IsArray():
		items := r.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = fromJSON(item)
		}
		return out
	}
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		if strings.ContainsAny(r.Raw, ".eE") {
			return r.Float()
		}
		return int(r.Int())
	}
	return r.String()
}

// link converts every object to an Object and replaces references. Objects
// are converted in place so references share identity.
func (s *Snapshot) link() error {
	s.resolved = make(map[string]any, len(s.Objects))
	for id, raw := range s.Objects {
		m, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("object %q: expected a mapping, got %T", id, raw)
		}
		s.resolved[id] = Object(m)
	}
	var errs []error
	for _, obj := range s.resolved {
		if err := s.resolveFields(obj.(Object)); err != nil {
			errs = append(errs, err)
		}
	}
	for name, raw := range s.Roots {
		v, err := s.resolve(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("root %q: %w", name, err))
			continue
		}
		s.Roots[name] = v
	}
	return errors.Join(errs...)
}

func (s *Snapshot) resolveFields(obj Object) error {
	for k, field := range obj {
		if k == TypeKey {
			continue
		}
		v, err := s.resolve(field)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		obj[k] = v
	}
	return nil
}

func (s *Snapshot) resolve(raw any) (any, error) {
	switch d := raw.(type) {
	case string:
		if !strings.HasPrefix(d, "@") || strings.HasPrefix(d, "@@") {
			return strings.TrimPrefix(d, "@"), nil
		}
		obj, ok := s.resolved[d[1:]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, d)
		}
		return obj, nil
	case map[string]any:
		obj := Object(d)
		return obj, s.resolveFields(obj)
	case Object:
		return d, nil
	case []any:
		for i, item := range d {
			v, err := s.resolve(item)
			if err != nil {
				return nil, err
			}
			d[i] = v
		}
		return d, nil
	}
	return raw, nil
}

// Names returns the root names in sorted order.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Roots))
	for name := range s.Roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Root returns the named root as a value.
func (s *Snapshot) Root(name string) (*Value, bool) {
	data, ok := s.Roots[name]
	if !ok {
		return nil, false
	}
	return NewValue(name, data), true
}

// Host returns a host that knows the snapshot's class hierarchy.
func (s *Snapshot) Host(opts ...Option) *Host {
	h := New(opts...)
	for t, bases := range s.Bases {
		h.DeclareBases(t, bases...)
	}
	return h
}
