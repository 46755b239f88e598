package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/typename"
)

func rule(priority ast.Priority, label string, names ...string) *ast.Rule {
	r := ast.NewRule()
	r.Priority = priority
	text, _ := ast.ParseInterpolated(label, nil)
	r.Summaries = []*ast.Summary{{Text: text}}
	for _, name := range names {
		r.Patterns = append(r.Patterns, &ast.TypeNamePattern{Text: name, Template: typename.MustParse(name)})
	}
	return r
}

func labels(matches []Match) []string {
	var out []string
	for _, m := range matches {
		out = append(out, m.Rule.Summaries[0].Text.Parts[0].Literal)
	}
	return out
}

func TestLookupExactBeforeWildcard(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "wild", "Foo<*>")))
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "exact", "Foo<Bar>")))

	matches := s.Lookup(typename.MustParse("Foo< Bar >"))
	assert.Equal(t, []string{"exact", "wild"}, labels(matches))
	assert.Nil(t, matches[0].Bindings)
	assert.Equal(t, []string{"Bar"}, matches[1].Bindings)

	assert.Equal(t, []string{"exact"}, labels(s.LookupExact(typename.MustParse("Foo<Bar>"))))
	assert.Equal(t, []string{"wild"}, labels(s.LookupWildcard(typename.MustParse("Foo<Bar>"))))
}

func TestSpecificWildcardFirstRegardlessOfInsertionOrder(t *testing.T) {
	orders := [][]*ast.Rule{
		{rule(ast.PriorityMedium, "general", "Foo<*>"), rule(ast.PriorityMedium, "specific", "Foo<Bar<*>>")},
		{rule(ast.PriorityMedium, "specific", "Foo<Bar<*>>"), rule(ast.PriorityMedium, "general", "Foo<*>")},
	}
	for _, rules := range orders {
		s := New()
		for _, r := range rules {
			require.NoError(t, s.Add(r))
		}
		matches := s.Lookup(typename.MustParse("Foo<Bar<int>>"))
		assert.Equal(t, []string{"specific", "general"}, labels(matches))
		assert.Equal(t, []string{"int"}, matches[0].Bindings)
		assert.Equal(t, []string{"Bar<int>"}, matches[1].Bindings)
	}
}

func TestSpecificityBeatsPriority(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityHigh, "general", "Foo<*>")))
	require.NoError(t, s.Add(rule(ast.PriorityLow, "specific", "Foo<Bar<*>>")))

	assert.Equal(t, []string{"specific", "general"}, labels(s.Lookup(typename.MustParse("Foo<Bar<int>>"))))
}

func TestVariantsOrderedByPriorityStable(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityLow, "low", "Point")))
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "first", "Point")))
	require.NoError(t, s.Add(rule(ast.PriorityHigh, "high", "Point")))
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "second", "Point")))

	assert.Equal(t, []string{"high", "first", "second", "low"}, labels(s.Lookup(typename.MustParse("Point"))))
	assert.Equal(t, 1, s.Len())
}

func TestDuplicateVariantsAreMerged(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "same", "Point", "Point")))
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "same", "Point")))

	assert.Len(t, s.Lookup(typename.MustParse("Point")), 1)
}

func TestWildcardDedupByCanonicalName(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "a", "Foo<*>")))
	require.NoError(t, s.Add(rule(ast.PriorityHigh, "b", "Foo< * >")))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"b", "a"}, labels(s.Lookup(typename.MustParse("Foo<int>"))))
}

func TestLookupUnknownType(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "a", "Foo<*>")))

	assert.Empty(t, s.Lookup(typename.MustParse("Bar<int>")))
	assert.Empty(t, s.Lookup(typename.MustParse("Foo")))
}

func TestLookupName(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "vec", "std::vector<*>")))

	matches, err := s.LookupName("std::vector<int,std::allocator<int> >")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"int,std::allocator<int>"}, matches[0].Bindings)

	_, err = s.LookupName("")
	assert.ErrorIs(t, err, typename.ErrEmpty)
}

func TestEntries(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "a", "Foo<*>", "Foo<int>")))
	require.NoError(t, s.Add(rule(ast.PriorityMedium, "b", "Bar")))

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Foo<int>", entries[0].Name)
	assert.False(t, entries[0].Wildcard)
	assert.Equal(t, "Foo<*>", entries[1].Name)
	assert.True(t, entries[1].Wildcard)
	assert.Equal(t, "Bar", entries[2].Name)
}
