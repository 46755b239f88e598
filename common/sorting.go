package common

import (
	"errors"
	"sort"
)

// ErrCycle is returned by TopoSort when the edges form a cycle.
var ErrCycle = errors.New("cycle detected")

// Prioritized represents an item with a priority for sorting
type Prioritized interface {
	GetPriority() int
}

// SortByPriorityStable sorts a slice by priority using stable sort (preserves order of equal elements)
func SortByPriorityStable[T Prioritized](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].GetPriority() > items[j].GetPriority()
	})
}

// SortByPriorityFuncStable sorts a slice using a priority function with stable sort
func SortByPriorityFuncStable[T any](items []T, getPriority func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		return getPriority(items[i]) > getPriority(items[j])
	})
}

// TopoSort orders items so that every item comes after all items reachable
// through its edges (DFS post-order, visiting items and edges in slice
// order). Edges to items outside the slice are followed as well.
func TopoSort[T comparable](items []T, edges func(T) []T) ([]T, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[T]int, len(items))
	out := make([]T, 0, len(items))

	var visit func(T) error
	visit = func(item T) error {
		switch state[item] {
		case done:
			return nil
		case visiting:
			return ErrCycle
		}
		state[item] = visiting
		for _, next := range edges(item) {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[item] = done
		out = append(out, item)
		return nil
	}

	for _, item := range items {
		if err := visit(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}
