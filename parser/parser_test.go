package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/effectus/natvis-go/ast"
)

func natvis(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="utf-8"?>
<AutoVisualizer xmlns="http://schemas.microsoft.com/vstudio/debugger/natvis/2010">` + body + `</AutoVisualizer>`)
}

func parse(t *testing.T, body string) *File {
	t.Helper()
	file, err := New().ParseBytes(natvis(body))
	require.NoError(t, err)
	return file
}

func TestParseSimpleType(t *testing.T) {
	file := parse(t, `
<Type Name="Point" Priority="High" Inheritable="false">
  <DisplayString Condition="x == 0" Optional="true">origin</DisplayString>
  <DisplayString>({x}, {y,x})</DisplayString>
  <Expand HideRawView="true">
    <Item Name="x">x</Item>
    <Item Name="y" ExcludeView="short">y</Item>
  </Expand>
</Type>`)

	require.Empty(t, file.Errors)
	require.Len(t, file.Rules, 1)
	rule := file.Rules[0]

	assert.Equal(t, "Point", rule.Name())
	assert.Equal(t, ast.PriorityHigh, rule.Priority)
	assert.False(t, rule.Inheritable)
	assert.True(t, rule.HasExpand)
	assert.True(t, rule.HideRawView)

	require.Len(t, rule.Summaries, 2)
	assert.Equal(t, "x == 0", rule.Summaries[0].Condition.Expression)
	assert.True(t, rule.Summaries[0].Optional)
	parts := rule.Summaries[1].Text.Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "(", parts[0].Literal)
	assert.Equal(t, "x", parts[0].Expr.Text)
	assert.Equal(t, ast.SpecHex, parts[1].Expr.Spec)
	assert.Equal(t, ")", parts[2].Literal)

	require.Len(t, rule.Items, 2)
	second := rule.Items[1].(*ast.SingleItem)
	assert.Equal(t, "y", second.Name)
	assert.Equal(t, ast.ViewID("short"), second.Condition.ExcludeViewID)
}

func TestParseAlternativeNames(t *testing.T) {
	file := parse(t, `
<Type Name="A|B&lt;*&gt;">
  <AlternativeType Name="C" />
  <DisplayString>x</DisplayString>
</Type>`)

	require.Len(t, file.Rules, 1)
	patterns := file.Rules[0].Patterns
	require.Len(t, patterns, 3)
	assert.Equal(t, "A", patterns[0].Text)
	assert.True(t, patterns[1].Template.HasWildcard())
	assert.Equal(t, "C", patterns[2].Text)
}

func TestParseSkipsBrokenRuleAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := New(WithLogger(zap.New(core)))

	file, err := p.ParseBytes(natvis(`
<Type Name="Good1"><DisplayString>one</DisplayString></Type>
<Type Name="Bad"><Expand><Item>missing name</Item></Expand></Type>
<Type Name="Good2"><DisplayString>two</DisplayString></Type>`))
	require.NoError(t, err)

	require.Len(t, file.Rules, 2)
	assert.Equal(t, "Good1", file.Rules[0].Name())
	assert.Equal(t, "Good2", file.Rules[1].Name())

	require.Len(t, file.Errors, 1)
	assert.ErrorIs(t, file.Errors[0], ErrMissingName)
	var perr *Error
	require.ErrorAs(t, file.Errors[0], &perr)
	assert.Equal(t, "Bad", perr.Rule)
	assert.Equal(t, 1, perr.Index)

	assert.Equal(t, 1, logs.FilterMessage("skipping visualizer").Len())
}

func TestParseRejectsInvalidAttributes(t *testing.T) {
	file := parse(t, `
<Type Name="A" Priority="Urgent"><DisplayString>a</DisplayString></Type>
<Type Name="B" Inheritable="maybe"><DisplayString>b</DisplayString></Type>`)

	assert.Empty(t, file.Rules)
	require.Len(t, file.Errors, 2)
	assert.ErrorIs(t, file.Errors[0], ErrUnknownPriority)
	assert.ErrorIs(t, file.Errors[1], ErrInvalidBool)
}

func TestParseIntrinsics(t *testing.T) {
	file := parse(t, `
<Type Name="Vec">
  <Intrinsic Name="size" Expression="last - first" />
  <Intrinsic Name="empty" Expression="size() == 0" />
  <DisplayString>{{ size={size()} }}</DisplayString>
  <Expand>
    <Item Name="empty">empty()</Item>
  </Expand>
</Type>`)

	require.Len(t, file.Rules, 1)
	rule := file.Rules[0]
	parts := rule.Summaries[0].Text.Parts
	assert.Equal(t, "{ size=", parts[0].Literal)
	assert.Equal(t, "(last - first)", parts[0].Expr.Text)
	assert.Equal(t, " }", parts[1].Literal)

	item := rule.Items[0].(*ast.SingleItem)
	assert.Equal(t, "((last - first) == 0)", item.Value.Text)
}

func TestParseLinkedListRequiresSingleHead(t *testing.T) {
	file := parse(t, `
<Type Name="List">
  <Expand>
    <LinkedListItems>
      <HeadPointer>head</HeadPointer>
      <HeadPointer>other</HeadPointer>
      <NextPointer>next</NextPointer>
      <ValueNode>value</ValueNode>
    </LinkedListItems>
  </Expand>
</Type>`)

	assert.Empty(t, file.Rules)
	require.Len(t, file.Errors, 1)
	assert.ErrorIs(t, file.Errors[0], ErrNodeCount)
}

func TestParseItemProviders(t *testing.T) {
	file := parse(t, `
<Type Name="Everything">
  <Expand>
    <ExpandedItem Optional="true">base</ExpandedItem>
    <ArrayItems>
      <Size Condition="n &gt; 0">n</Size>
      <ValuePointer>data</ValuePointer>
    </ArrayItems>
    <IndexListItems>
      <Size>n</Size>
      <ValueNode>data[$i]</ValueNode>
    </IndexListItems>
    <LinkedListItems>
      <Size>count</Size>
      <HeadPointer>head</HeadPointer>
      <NextPointer>next</NextPointer>
      <ValueNode Name="[{key}]">value</ValueNode>
    </LinkedListItems>
    <TreeItems>
      <HeadPointer>root</HeadPointer>
      <LeftPointer>left</LeftPointer>
      <RightPointer>right</RightPointer>
      <ValueNode Condition="!nil">key</ValueNode>
    </TreeItems>
    <Synthetic Name="ignored"><DisplayString>x</DisplayString></Synthetic>
  </Expand>
</Type>`)

	require.Empty(t, file.Errors)
	items := file.Rules[0].Items
	require.Len(t, items, 5)

	expanded := items[0].(*ast.ExpandedItem)
	assert.True(t, expanded.Optional)

	array := items[1].(*ast.ArrayItems)
	require.Len(t, array.Sizes, 1)
	assert.Equal(t, "n > 0", array.Sizes[0].Condition.Expression)
	assert.Equal(t, "data", array.ValuePointers[0].Value.Text)

	index := items[2].(*ast.IndexListItems)
	assert.Equal(t, "data[$i]", index.Values[0].Value.Text)

	list := items[3].(*ast.LinkedListItems)
	assert.Equal(t, "count", list.Size.Expr)
	assert.Equal(t, "head", list.Head)
	require.NotNil(t, list.Name)
	assert.Equal(t, "key", list.Name.Parts[0].Expr.Text)

	tree := items[4].(*ast.TreeItems)
	assert.Nil(t, tree.Size)
	assert.Equal(t, "!nil", tree.ValueCondition)
}

func TestParseCustomList(t *testing.T) {
	file := parse(t, `
<Type Name="Custom">
  <Expand>
    <CustomListItems MaxItemsPerView="100">
      <Variable Name="node" InitialValue="head" />
      <Size>count</Size>
      <Loop Condition="node != nullptr">
        <If Condition="node.skip">
          <Exec>node = node.next</Exec>
        </If>
        <Elseif Condition="node.stop">
          <Break />
        </Elseif>
        <Else>
          <Item Name="[{node.key}]">node.value</Item>
          <Exec>node = node.next</Exec>
        </Else>
      </Loop>
    </CustomListItems>
  </Expand>
</Type>`)

	require.Empty(t, file.Errors)
	custom := file.Rules[0].Items[0].(*ast.CustomListItems)
	require.Len(t, custom.Variables, 1)
	assert.Equal(t, ast.Variable{Name: "node", InitialValue: "head"}, custom.Variables[0])
	require.Len(t, custom.Sizes, 1)
	require.Len(t, custom.Code, 1)

	loop := custom.Code[0].(*ast.Loop)
	assert.Equal(t, "node != nullptr", loop.Condition)
	require.Len(t, loop.Body, 3)
	assert.IsType(t, &ast.If{}, loop.Body[0])
	assert.IsType(t, &ast.ElseIf{}, loop.Body[1])
	assert.IsType(t, &ast.Else{}, loop.Body[2])
}

func TestParseRejectsBreakOutsideLoop(t *testing.T) {
	file := parse(t, `
<Type Name="Custom">
  <Expand>
    <CustomListItems>
      <If Condition="x"><Break /></If>
    </CustomListItems>
  </Expand>
</Type>`)

	assert.Empty(t, file.Rules)
	require.Len(t, file.Errors, 1)
	assert.ErrorIs(t, file.Errors[0], ErrBreakOutsideLoop)
}

func TestRulesIsLazy(t *testing.T) {
	doc, err := ReadDocument(natvis(`
<Type Name="A"><DisplayString>a</DisplayString></Type>
<Type Name="B"><DisplayString>b</DisplayString></Type>`))
	require.NoError(t, err)

	var seen []string
	for rule, err := range New().Rules(doc) {
		require.NoError(t, err)
		seen = append(seen, rule.Name())
		break
	}
	assert.Equal(t, []string{"A"}, seen)
}

func TestReadDocumentRejectsOtherRoots(t *testing.T) {
	_, err := ReadDocument([]byte(`<Other/>`))
	assert.ErrorIs(t, err, ErrNotNatvis)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.natvis")
	require.NoError(t, os.WriteFile(path, natvis(`<Type Name="A"><DisplayString>a</DisplayString></Type>`), 0o644))

	file, err := New().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)
	assert.Len(t, file.Rules, 1)

	_, err = New().ParseFile(filepath.Join(t.TempDir(), "missing.natvis"))
	assert.Error(t, err)
}
