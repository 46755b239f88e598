package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natvis "github.com/effectus/natvis-go"
	"github.com/effectus/natvis-go/analysis"
	"github.com/effectus/natvis-go/internal/testutils"
	"github.com/effectus/natvis-go/lint"
	"github.com/effectus/natvis-go/manager"
	"github.com/effectus/natvis-go/memhost"
	"github.com/effectus/natvis-go/parser"
	"github.com/effectus/natvis-go/typename"
)

const pointRules = `
<Type Name="Point">
  <DisplayString>({x}, {y})</DisplayString>
  <Expand><Item Name="x">x</Item></Expand>
</Type>`

const snapshotYAML = `
objects:
  a: {$type: Node, value: 1, next: "@b"}
  b: {$type: Node, value: 2, next: "@a"}
roots:
  point: {$type: Point, x: 1, y: 2}
  ring: {$type: Ring, head: "@a"}
`

func TestRenderValue(t *testing.T) {
	snap, err := memhost.ParseSnapshotYAML([]byte(snapshotYAML))
	require.NoError(t, err)
	vis := natvis.New(snap.Host())
	_, err = vis.LoadRules("point", testutils.Natvis(pointRules))
	require.NoError(t, err)

	point, ok := snap.Root("point")
	require.True(t, ok)

	var out bytes.Buffer
	renderValue(&out, vis, point, 1)
	assert.Equal(t, "point = (1, 2)\n  x = 1\n", out.String())

	out.Reset()
	renderValue(&out, vis, point, 0)
	assert.Equal(t, "point = (1, 2)\n", out.String())
}

func TestSnapshotTypesFollowsCycles(t *testing.T) {
	snap, err := memhost.ParseSnapshotYAML([]byte(snapshotYAML))
	require.NoError(t, err)

	types := snapshotTypes(snap)
	assert.Contains(t, types, "Point")
	assert.Contains(t, types, "Ring")
	assert.Contains(t, types, "Node")
	assert.Contains(t, types, "int")
}

func TestWriteCoverage(t *testing.T) {
	snap, err := memhost.ParseSnapshotYAML([]byte(snapshotYAML))
	require.NoError(t, err)
	m := manager.New()
	_, err = m.LoadRules("point", testutils.Natvis(pointRules))
	require.NoError(t, err)

	report := analysis.BuildCoverage(m, snapshotTypes(snap))
	var out bytes.Buffer
	require.NoError(t, writeCoverage(&out, report, "text"))
	assert.Contains(t, out.String(), "covered   Point -> Point")
	assert.Contains(t, out.String(), "uncovered Ring")

	assert.Error(t, writeCoverage(&out, report, "xml"))
}

func TestCollectIssuesReportsParseErrors(t *testing.T) {
	file, err := parser.New().ParseBytes(testutils.Natvis(`<Type><DisplayString>x</DisplayString></Type>`))
	require.NoError(t, err)
	file.Path = "bad.natvis"

	issues := collectIssues([]*parser.File{file}, lint.DefaultOptions())
	require.Len(t, issues, 1)
	assert.Equal(t, "parse", issues[0].Code)
	assert.Equal(t, lint.SeverityError, issues[0].Severity)
	assert.True(t, lint.HasErrors(issues))

	var out bytes.Buffer
	require.NoError(t, writeIssues(&out, nil, "json"))
	assert.Equal(t, "[]\n", out.String())
}

func TestWriteMatches(t *testing.T) {
	m := manager.New()
	_, err := m.LoadRules("pair", testutils.Natvis(`
<Type Name="Pair&lt;*,*&gt;"><DisplayString>pair</DisplayString></Type>`))
	require.NoError(t, err)

	var out bytes.Buffer
	writeMatches(&out, m.Lookup(typename.MustParse("Pair<int,bool>")))
	assert.Equal(t, "1. Pair<*,*> (Priority: Medium, $T: int, bool)\n", out.String())
}

func TestCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "point.natvis")
	require.NoError(t, os.WriteFile(path, testutils.Natvis(pointRules), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"check", path})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, rootCmd.Execute())
	assert.Empty(t, out.String())
}
