package eval

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/children"
	"github.com/effectus/natvis-go/host"
)

// ErrBreakOutsideLoop is returned when a custom list has a Break that is not
// inside a Loop.
var ErrBreakOutsideLoop = errors.New("Break outside of Loop")

// ErrUnknownVariable is returned when assigning a variable that was never
// declared.
var ErrUnknownVariable = errors.New("unknown variable")

const end = -1

type opcode uint8

const (
	opExec opcode = iota
	opItem
	opBranch
)

// instruction is a node of the custom-list control-flow graph. Edges are
// indices into the program's code; end terminates execution.
type instruction struct {
	op    opcode
	cond  string
	code  string
	name  *ast.InterpolatedString
	value *ast.FormattedExpression
	then  int
	next  int
}

type program struct {
	code  []instruction
	entry int
}

type compiler struct {
	prog   *program
	breaks []int
}

// compile translates a statement list into an instruction graph. Statements
// are processed back to front so every instruction knows its successor.
func compile(code []ast.Statement) (*program, error) {
	c := &compiler{prog: &program{}}
	entry, err := c.block(code, end)
	if err != nil {
		return nil, err
	}
	c.prog.entry = entry
	return c.prog, nil
}

func (c *compiler) emit(ins instruction) int {
	c.prog.code = append(c.prog.code, ins)
	return len(c.prog.code) - 1
}

func (c *compiler) block(stmts []ast.Statement, next int) (int, error) {
	endIf := end
	inChain := false
	for i := len(stmts) - 1; i >= 0; i-- {
		switch st := stmts[i].(type) {
		case *ast.Exec:
			next = c.emit(instruction{op: opExec, cond: st.Condition, code: st.Expr, next: next})
			inChain = false
		case *ast.ItemStmt:
			next = c.emit(instruction{op: opItem, cond: st.Condition, name: st.Name, value: st.Value, next: next})
			inChain = false
		case *ast.Else:
			endIf = next
			inChain = true
			body, err := c.block(st.Body, next)
			if err != nil {
				return end, err
			}
			next = body
		case *ast.ElseIf:
			if !inChain {
				endIf = next
				inChain = true
			}
			then, err := c.block(st.Body, endIf)
			if err != nil {
				return end, err
			}
			next = c.emit(instruction{op: opBranch, cond: st.Condition, then: then, next: next})
		case *ast.If:
			if !inChain {
				endIf = next
			}
			then, err := c.block(st.Body, endIf)
			if err != nil {
				return end, err
			}
			next = c.emit(instruction{op: opBranch, cond: st.Condition, then: then, next: next})
			inChain = false
		case *ast.Loop:
			loop := c.emit(instruction{op: opBranch, cond: st.Condition, then: end, next: next})
			c.breaks = append(c.breaks, next)
			body, err := c.block(st.Body, loop)
			c.breaks = c.breaks[:len(c.breaks)-1]
			if err != nil {
				return end, err
			}
			c.prog.code[loop].then = body
			next = loop
			inChain = false
		case *ast.Break:
			if len(c.breaks) == 0 {
				return end, ErrBreakOutsideLoop
			}
			exit := c.breaks[len(c.breaks)-1]
			if st.Condition != "" {
				next = c.emit(instruction{op: opBranch, cond: st.Condition, then: exit, next: next})
			} else {
				next = exit
			}
			inChain = false
		default:
			return end, fmt.Errorf("unsupported statement %T", st)
		}
	}
	return next, nil
}

// listKey identifies one instantiation of a custom list: the rule, the
// position of the provider in the rule and the wildcard bindings.
type listKey struct {
	rule     uint64
	item     int
	bindings string
}

type variable struct {
	name      string
	synthetic string
	init      string
}

// listState persists across expansions of the same instantiation.
type listState struct {
	prog     *program
	vars     []variable
	declared bool
}

// listScope exposes the variables of one run to the host.
type listScope struct {
	names map[string]string
	cells map[string]host.Value
}

func (s *listScope) Lookup(name string) (host.Value, bool) {
	synthetic, ok := s.names[name]
	if !ok {
		return nil, false
	}
	v, ok := s.cells[synthetic]
	return v, ok
}

func (s *listScope) Assign(name string, v host.Value) error {
	synthetic, ok := s.names[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	s.cells[synthetic] = v
	return nil
}

func (s *listScope) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *evalCtx) listState(it *ast.CustomListItems) (*listState, error) {
	index := -1
	for i, item := range c.rule.Items {
		if item == ast.ItemProvider(it) {
			index = i
			break
		}
	}
	key := listKey{rule: c.rule.ID, item: index, bindings: strings.Join(c.bindings, "\x1f")}

	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if state, ok := c.e.lists[key]; ok {
		return state, nil
	}
	prog, err := compile(it.Code)
	if err != nil {
		return nil, err
	}
	state := &listState{prog: prog}
	for _, v := range it.Variables {
		c.e.varSeq++
		state.vars = append(state.vars, variable{
			name:      v.Name,
			synthetic: "$" + v.Name + strconv.Itoa(c.e.varSeq),
			init:      v.InitialValue,
		})
	}
	c.e.lists[key] = state
	return state, nil
}

func (c *evalCtx) customListItems(it *ast.CustomListItems, v host.Value) (children.Provider, error) {
	state, err := c.listState(it)
	if err != nil {
		return nil, err
	}
	size, declared, err := c.size(it.Sizes, v)
	if err != nil {
		return nil, err
	}
	maxItems := c.e.limits.MaxChildren
	if declared {
		maxItems = c.limit(size)
	}

	scope := &listScope{names: make(map[string]string), cells: make(map[string]host.Value)}
	run := *c
	run.scope = scope
	for _, vr := range state.vars {
		init := vr.init
		if strings.TrimSpace(init) == "" {
			init = "0"
		}
		val, err := run.eval(v, run.resolve(init), vr.synthetic)
		if err != nil {
			return nil, err
		}
		scope.names[vr.name] = vr.synthetic
		scope.cells[vr.synthetic] = val
	}
	if state.declared {
		c.e.logger.Debug("custom list variables reinitialized", zap.Int("count", len(state.vars)))
	} else {
		state.declared = true
		c.e.logger.Debug("custom list variables declared", zap.Int("count", len(state.vars)))
	}

	items, truncated, err := run.execute(state.prog, v, maxItems)
	if err != nil {
		return nil, err
	}
	return children.NewList(items, truncated && !declared), nil
}

// execute runs prog until it ends, maxItems items were produced or the step
// budget is spent. truncated reports that execution did not reach the end.
func (c *evalCtx) execute(prog *program, v host.Value, maxItems int) ([]host.Value, bool, error) {
	var items []host.Value
	pc := prog.entry
	for steps := 0; pc != end && len(items) < maxItems; steps++ {
		if steps >= c.e.limits.MaxInterpreterSteps {
			c.e.logger.Warn("custom list stopped: step budget exhausted",
				zap.String("type", v.TypeName()),
				zap.Int("steps", steps))
			return items, true, nil
		}
		ins := &prog.code[pc]
		pass := true
		if ins.cond != "" {
			var err error
			if pass, err = c.truth(v, ins.cond); err != nil {
				return nil, false, err
			}
		}
		switch ins.op {
		case opExec:
			if pass {
				if _, err := c.eval(v, c.resolve(ins.code), ""); err != nil {
					return nil, false, err
				}
			}
			pc = ins.next
		case opItem:
			if pass {
				item, err := c.item(ins, v, len(items))
				if err != nil {
					return nil, false, err
				}
				items = append(items, item)
			}
			pc = ins.next
		case opBranch:
			if pass {
				pc = ins.then
			} else {
				pc = ins.next
			}
		}
	}
	return items, pc != end, nil
}

func (c *evalCtx) item(ins *instruction, v host.Value, index int) (host.Value, error) {
	name := children.IndexName(index)
	if ins.name != nil {
		rendered, err := c.interpolate(ins.name, v)
		if err != nil {
			return nil, err
		}
		name = rendered
	}
	return c.value(v, ins.value, name, "")
}
