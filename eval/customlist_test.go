package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/natvis-go/ast"
)

func TestCompileBreakOutsideLoop(t *testing.T) {
	_, err := compile([]ast.Statement{&ast.If{Condition: "x", Body: []ast.Statement{&ast.Break{}}}})
	assert.ErrorIs(t, err, ErrBreakOutsideLoop)
}

func TestCompileConditionalChain(t *testing.T) {
	prog, err := compile([]ast.Statement{
		&ast.If{Condition: "a", Body: []ast.Statement{&ast.Exec{Expr: "one"}}},
		&ast.ElseIf{Condition: "b", Body: []ast.Statement{&ast.Exec{Expr: "two"}}},
		&ast.Else{Body: []ast.Statement{&ast.Exec{Expr: "three"}}},
		&ast.Exec{Expr: "after"},
	})
	require.NoError(t, err)

	entry := prog.code[prog.entry]
	require.Equal(t, opBranch, entry.op)
	assert.Equal(t, "a", entry.cond)

	then := prog.code[entry.then]
	assert.Equal(t, "one", then.code)
	after := prog.code[then.next]
	assert.Equal(t, "after", after.code)
	assert.Equal(t, end, after.next)

	elseIf := prog.code[entry.next]
	assert.Equal(t, "b", elseIf.cond)
	assert.Equal(t, "two", prog.code[elseIf.then].code)
	assert.Equal(t, then.next, prog.code[elseIf.then].next)

	els := prog.code[elseIf.next]
	assert.Equal(t, "three", els.code)
	assert.Equal(t, then.next, els.next)
}

func TestCompileLoopBreak(t *testing.T) {
	prog, err := compile([]ast.Statement{
		&ast.Loop{Body: []ast.Statement{
			&ast.Break{Condition: "done"},
			&ast.Exec{Expr: "step"},
		}},
		&ast.Exec{Expr: "after"},
	})
	require.NoError(t, err)

	loop := prog.code[prog.entry]
	require.Equal(t, opBranch, loop.op)
	brk := prog.code[loop.then]
	assert.Equal(t, "done", brk.cond)
	assert.Equal(t, "after", prog.code[brk.then].code)
	assert.Equal(t, loop.next, brk.then)

	step := prog.code[brk.next]
	assert.Equal(t, "step", step.code)
	assert.Equal(t, prog.entry, step.next)
}

func TestCompileNestedLoopBreakTargetsInnerLoop(t *testing.T) {
	prog, err := compile([]ast.Statement{
		&ast.Loop{Body: []ast.Statement{
			&ast.Break{Condition: "i == 3"},
			&ast.Exec{Expr: "j = 0"},
			&ast.Loop{Body: []ast.Statement{
				&ast.Break{Condition: "j == 2"},
				&ast.Exec{Expr: "j++"},
			}},
			&ast.If{Condition: "i == 0", Body: []ast.Statement{&ast.Exec{Expr: "zero"}}},
			&ast.Else{Body: []ast.Statement{&ast.Exec{Expr: "other"}}},
			&ast.Exec{Expr: "i++"},
		}},
	})
	require.NoError(t, err)

	outer := prog.code[prog.entry]
	require.Equal(t, opBranch, outer.op)
	assert.Equal(t, end, outer.next)
	outerBreak := prog.code[outer.then]
	assert.Equal(t, "i == 3", outerBreak.cond)
	assert.Equal(t, end, outerBreak.then)

	reset := prog.code[outerBreak.next]
	assert.Equal(t, "j = 0", reset.code)
	inner := prog.code[reset.next]
	require.Equal(t, opBranch, inner.op)
	innerBreak := prog.code[inner.then]
	assert.Equal(t, "j == 2", innerBreak.cond)
	assert.Equal(t, inner.next, innerBreak.then)
	assert.Equal(t, reset.next, prog.code[innerBreak.next].next)

	chain := prog.code[inner.next]
	assert.Equal(t, "i == 0", chain.cond)
	last := prog.code[prog.code[chain.then].next]
	assert.Equal(t, "i++", last.code)
	assert.Equal(t, prog.entry, last.next)
	assert.Equal(t, "other", prog.code[chain.next].code)
	assert.Equal(t, prog.code[chain.then].next, prog.code[chain.next].next)
}
