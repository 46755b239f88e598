package children

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/host"
)

type fakeValue struct {
	name   string
	data   int
	format host.Format
}

func (v fakeValue) Name() string        { return v.name }
func (v fakeValue) TypeName() string    { return "int" }
func (v fakeValue) Address() uint64     { return uint64(v.data) }
func (v fakeValue) Format() host.Format { return v.format }
func (v fakeValue) WithFormat(f host.Format) host.Value {
	v.format = f
	return v
}
func (v fakeValue) WithName(name string) host.Value {
	v.name = name
	return v
}

func TestSingle(t *testing.T) {
	p := NewSingle(fakeValue{name: "x", data: 1})
	assert.Equal(t, 1, p.Count())

	i, ok := p.IndexOf("x")
	require.True(t, ok)
	assert.Equal(t, 0, i)
	_, ok = p.IndexOf("y")
	assert.False(t, ok)
	assert.Nil(t, p.At(1))
}

func TestIndexed(t *testing.T) {
	calls := 0
	p := NewIndexed(3, func(i int) host.Value {
		calls++
		return fakeValue{name: IndexName(i), data: i * 10}
	})

	assert.Equal(t, 3, p.Count())
	assert.Equal(t, 0, calls)
	assert.Equal(t, 20, p.At(2).(fakeValue).data)
	assert.Nil(t, p.At(3))

	i, ok := p.IndexOf("[1]")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = p.IndexOf("[5]")
	assert.False(t, ok)
	_, ok = p.IndexOf("size")
	assert.False(t, ok)
}

func TestNodesCachesValuesAndPadsUnavailableSlots(t *testing.T) {
	calls := 0
	p := NewNodes([]host.Value{fakeValue{data: 1}, fakeValue{data: 2}, nil}, nil, false, func(node host.Value, name string) host.Value {
		calls++
		return node.WithName(name)
	})

	assert.Equal(t, 3, p.Count())
	assert.Equal(t, "[1]", p.At(1).Name())
	p.At(1)
	assert.Equal(t, 1, calls)
	assert.Nil(t, p.At(2))
	assert.False(t, p.HasMore())
}

func TestNodesCustomNames(t *testing.T) {
	p := NewNodes([]host.Value{fakeValue{data: 1}, fakeValue{data: 2}}, []string{"first", "second"}, true, func(node host.Value, name string) host.Value {
		return node.WithName(name)
	})

	i, ok := p.IndexOf("second")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, "second", p.At(1).Name())
	assert.True(t, p.HasMore())
}

func TestCompositeOffsetsAndFormatOverlay(t *testing.T) {
	parent := host.Format{Spec: ast.SpecHex, Flags: ast.FlagRawFormat | ast.FlagNoAddress}
	first := NewList([]host.Value{fakeValue{name: "a"}, fakeValue{name: "b"}}, false)
	second := NewIndexed(2, func(i int) host.Value { return fakeValue{name: IndexName(i), data: i} })
	p := NewComposite(parent, first, Empty, second)

	assert.Equal(t, 4, p.Count())
	assert.Equal(t, "b", p.At(1).Name())
	assert.Equal(t, "[1]", p.At(3).Name())
	assert.Nil(t, p.At(4))

	i, ok := p.IndexOf("[0]")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	f := p.At(0).Format()
	assert.Equal(t, ast.SpecHex, f.Spec)
	assert.True(t, f.Flags.Has(ast.FlagNoAddress))
	assert.False(t, f.RawView())
}

func TestRawView(t *testing.T) {
	p := RawView(fakeValue{name: "obj"})
	v := p.At(0)
	assert.Equal(t, RawViewName, v.Name())
	assert.True(t, v.Format().RawView())
}

func TestCompositeHasMore(t *testing.T) {
	truncated := NewList(nil, true)
	assert.True(t, NewComposite(host.Format{}, NewSingle(fakeValue{}), truncated).HasMore())
	assert.False(t, NewComposite(host.Format{}, NewSingle(fakeValue{})).HasMore())
}
