package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/natvis-go/internal/testutils"
)

func TestBuildCoverage(t *testing.T) {
	s := testutils.Store(t, `
<Type Name="Point"><DisplayString>p</DisplayString></Type>
<Type Name="Vec&lt;*&gt;"><DisplayString>v</DisplayString></Type>
<Type Name="Vec&lt;bool&gt;"><DisplayString>bits</DisplayString></Type>
<Type Name="Unused"><DisplayString>u</DisplayString></Type>`)

	report := BuildCoverage(s, []string{"Point", "Vec<int>", "Vec<bool>", "Other", "Point", "Bad<"})

	require.Len(t, report.Covered, 3)
	assert.Equal(t, "Point", report.Covered[0].Type)
	assert.Equal(t, "Vec<bool>", report.Covered[1].Type)
	assert.Equal(t, "Vec<bool>", report.Covered[1].Pattern)
	assert.Equal(t, 2, report.Covered[1].Rules)
	assert.Equal(t, "Vec<int>", report.Covered[2].Type)
	assert.Equal(t, "Vec<*>", report.Covered[2].Pattern)
	assert.Equal(t, []string{"int"}, report.Covered[2].Bindings)

	assert.Equal(t, []string{"Other"}, report.Uncovered)
	assert.Equal(t, []string{"Bad<"}, report.Invalid)
	assert.Equal(t, []string{"Unused"}, report.UnusedPatterns)
	assert.InDelta(t, 0.75, report.Ratio(), 1e-9)

	assert.Contains(t, report.Edges, Edge{From: "type:Vec<int>", To: "pattern:Vec<*>", Kind: "wildcard"})
	assert.Contains(t, report.Edges, Edge{From: "type:Point", To: "pattern:Point", Kind: "exact"})
}

func TestBuildCoverageEmpty(t *testing.T) {
	report := BuildCoverage(testutils.Store(t, ``), nil)
	assert.Empty(t, report.Covered)
	assert.Zero(t, report.Ratio())
}
