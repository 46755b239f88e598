package memhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/host"
)

type mapScope map[string]host.Value

func (s mapScope) Lookup(name string) (host.Value, bool) {
	v, ok := s[name]
	return v, ok
}

func (s mapScope) Assign(name string, v host.Value) error {
	s[name] = v
	return nil
}

func (s mapScope) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}

func list() *Value {
	third := NewObject("Node", map[string]any{"value": 3, "next": nil})
	second := NewObject("Node", map[string]any{"value": 2, "next": third})
	first := NewObject("Node", map[string]any{"value": 1, "next": second})
	return NewValue("list", NewObject("List", map[string]any{"head": first, "size": 3}))
}

func TestEvaluateMemberAccess(t *testing.T) {
	h := New()
	v := list()

	res, err := h.Evaluate(v, "head->next->value", host.EvalOptions{})
	require.NoError(t, err)
	n, err := h.Int(res)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "head->next->value", res.Name())

	res, err = h.Evaluate(v, "size * 2", host.EvalOptions{Name: "double"})
	require.NoError(t, err)
	n, err = h.Int(res)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.Equal(t, "double", res.Name())
	assert.Equal(t, "int", res.TypeName())

	res, err = h.Evaluate(v, "head != nullptr && this.size == 3", host.EvalOptions{})
	require.NoError(t, err)
	ok, err := h.Bool(res)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateErrorKinds(t *testing.T) {
	h := New()
	v := list()

	_, err := h.Evaluate(v, "missing + 1", host.EvalOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, host.ErrEvaluation)
	assert.False(t, host.IsRuntime(err))

	_, err = h.Evaluate(v, "size +", host.EvalOptions{})
	require.Error(t, err)
	assert.False(t, host.IsRuntime(err))

	_, err = h.Evaluate(v, "head.next.next.next.value", host.EvalOptions{})
	require.Error(t, err)
	assert.True(t, host.IsRuntime(err))
}

func TestEvaluateAssignments(t *testing.T) {
	h := New()
	v := list()
	scope := mapScope{"i": NewValue("i", 1), "p": NewValue("p", nil)}

	_, err := h.Evaluate(v, "i++", host.EvalOptions{Scope: scope})
	require.NoError(t, err)
	_, err = h.Evaluate(v, "i += size", host.EvalOptions{Scope: scope})
	require.NoError(t, err)
	n, err := h.Int(scope["i"])
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = h.Evaluate(v, "p = head->next", host.EvalOptions{Scope: scope})
	require.NoError(t, err)
	assert.Equal(t, "Node", scope["p"].TypeName())

	res, err := h.Evaluate(v, "p->value == 2", host.EvalOptions{Scope: scope})
	require.NoError(t, err)
	ok, err := h.Bool(res)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = h.Evaluate(v, "j = 1", host.EvalOptions{Scope: scope})
	assert.ErrorIs(t, err, host.ErrEvaluation)

	_, err = h.Evaluate(v, "i = 1", host.EvalOptions{})
	assert.ErrorIs(t, err, host.ErrEvaluation)
}

func TestComparisonIsNotAssignment(t *testing.T) {
	h := New()
	scope := mapScope{"i": NewValue("i", 1)}
	res, err := h.Evaluate(list(), "i == 1", host.EvalOptions{Scope: scope})
	require.NoError(t, err)
	ok, err := h.Bool(res)
	require.NoError(t, err)
	assert.True(t, ok)
	n, err := h.Int(scope["i"])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAddressIdentity(t *testing.T) {
	h := New()
	v := list()
	a, err := h.Evaluate(v, "head", host.EvalOptions{})
	require.NoError(t, err)
	b, err := h.Evaluate(v, "this.head", host.EvalOptions{})
	require.NoError(t, err)
	assert.NotZero(t, a.Address())
	assert.Equal(t, a.Address(), b.Address())

	null, err := h.Evaluate(v, "head->next->next->next", host.EvalOptions{})
	require.NoError(t, err)
	assert.Zero(t, null.Address())
	_, err = h.Dereference(null)
	assert.True(t, host.IsRuntime(err))
}

func TestElementsAndFields(t *testing.T) {
	h := New()
	v := NewValue("vec", NewObject("Vec", map[string]any{"data": []any{10, 20, 30}, "len": 3}))

	data, err := h.Evaluate(v, "data", host.EvalOptions{})
	require.NoError(t, err)
	assert.Equal(t, "int[3]", data.TypeName())
	el, err := h.Element(data, 2, "[2]")
	require.NoError(t, err)
	n, err := h.Int(el)
	require.NoError(t, err)
	assert.Equal(t, int64(30), n)

	_, err = h.Element(data, 3, "[3]")
	assert.True(t, host.IsRuntime(err))

	fields, err := h.Fields(v)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "data", fields[0].Name())
	assert.Equal(t, "len", fields[1].Name())
}

func TestSummaryFormats(t *testing.T) {
	h := New()
	tests := []struct {
		data any
		spec ast.FormatSpec
		want string
	}{
		{data: 255, want: "255"},
		{data: 255, spec: ast.SpecHex, want: "0xff"},
		{data: 255, spec: ast.SpecHexUpper, want: "0xFF"},
		{data: 8, spec: ast.SpecOctal, want: "010"},
		{data: 5, spec: ast.SpecBinary, want: "0b101"},
		{data: 65, spec: ast.SpecCharacter, want: "65 'A'"},
		{data: 1.5, want: "1.5"},
		{data: true, want: "true"},
		{data: "abc", want: `"abc"`},
		{data: "abc", spec: ast.SpecStringNoQuotes, want: "abc"},
		{data: nil, want: "nullptr"},
	}
	for _, tt := range tests {
		v := NewValue("v", tt.data).WithFormat(host.Format{Spec: tt.spec})
		got, ok := h.Summary(v)
		require.True(t, ok)
		assert.Equal(t, tt.want, got)
	}

	_, ok := h.Summary(list())
	assert.False(t, ok)
}

func TestBaseClasses(t *testing.T) {
	h := New()
	h.DeclareBases("Derived", "Base", "Mixin")
	assert.Equal(t, []string{"Base", "Mixin"}, h.BaseClasses("Derived"))
	assert.Equal(t, []string{"Base", "Mixin"}, h.BaseClasses("Derived *"))
	assert.Empty(t, h.BaseClasses("Base"))
}

const yamlSnapshot = `
bases:
  Derived: [Base]
objects:
  a: {$type: Node, value: 1, next: "@b"}
  b: {$type: Node, value: 2, next: "@a"}
roots:
  ring: {$type: Ring, head: "@a"}
  tag: "@@literal"
`

func TestSnapshotYAML(t *testing.T) {
	s, err := ParseSnapshotYAML([]byte(yamlSnapshot))
	require.NoError(t, err)
	assert.Equal(t, []string{"ring", "tag"}, s.Names())

	h := s.Host()
	assert.Equal(t, []string{"Base"}, h.BaseClasses("Derived"))

	ring, ok := s.Root("ring")
	require.True(t, ok)
	head, err := h.Evaluate(ring, "head", host.EvalOptions{})
	require.NoError(t, err)
	back, err := h.Evaluate(ring, "head->next->next", host.EvalOptions{})
	require.NoError(t, err)
	assert.Equal(t, head.Address(), back.Address())

	tag, ok := s.Root("tag")
	require.True(t, ok)
	assert.Equal(t, "@literal", tag.Data())
}

func TestSnapshotJSON(t *testing.T) {
	doc := `{
  "objects": {"n": {"$type": "Node", "value": 7, "weight": 0.5, "next": null}},
  "roots": {"list": {"$type": "List", "head": "@n", "items": [1, 2]}}
}`
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := LoadSnapshot(path)
	require.NoError(t, err)
	h := s.Host()
	list, ok := s.Root("list")
	require.True(t, ok)
	assert.Equal(t, "List", list.TypeName())

	res, err := h.Evaluate(list, "head->value + items[1]", host.EvalOptions{})
	require.NoError(t, err)
	n, err := h.Int(res)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	res, err = h.Evaluate(list, "head->weight", host.EvalOptions{})
	require.NoError(t, err)
	assert.Equal(t, "double", res.TypeName())
}

func TestSnapshotUnknownReference(t *testing.T) {
	_, err := ParseSnapshotYAML([]byte("roots:\n  x: \"@nope\"\n"))
	assert.ErrorIs(t, err, ErrUnknownReference)
}
