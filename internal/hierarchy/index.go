// Package hierarchy derives trees, option lists, paths and statistics from a
// flat list of categories. Nothing here performs I/O.
package hierarchy

import (
	"finspect/internal/core"
)

// Index holds the lookup maps for one flat list. It is built once per
// rebuild and is read only afterwards, so it is safe for concurrent use.
type Index struct {
	order    []core.ID
	byID     map[core.ID]core.Category
	parent   map[core.ID]core.ID   // resolved parent links, cycles removed
	children map[core.ID][]core.ID // input order
	roots    []core.ID
}

// NewIndex indexes list. The first record wins when an id repeats. A parent
// link is kept only when it resolves to another known category and does not
// close a cycle; every other record becomes a root.
func NewIndex(list []core.Category) *Index {
	idx := &Index{
		order:    make([]core.ID, 0, len(list)),
		byID:     make(map[core.ID]core.Category, len(list)),
		parent:   make(map[core.ID]core.ID, len(list)),
		children: make(map[core.ID][]core.ID),
	}
	position := make(map[core.ID]int, len(list))
	for _, c := range list {
		if _, dup := idx.byID[c.ID]; dup {
			continue
		}
		position[c.ID] = len(idx.order)
		idx.order = append(idx.order, c.ID)
		idx.byID[c.ID] = c
	}

	for _, id := range idx.order {
		c := idx.byID[id]
		if c.ParentID == nil || *c.ParentID == id {
			continue
		}
		if _, ok := idx.byID[*c.ParentID]; ok {
			idx.parent[id] = *c.ParentID
		}
	}
	idx.breakCycles(position)

	for _, id := range idx.order {
		if p, ok := idx.parent[id]; ok {
			idx.children[p] = append(idx.children[p], id)
		} else {
			idx.roots = append(idx.roots, id)
		}
	}
	return idx
}

// breakCycles detaches, for every parent cycle, the member that appears
// first in the input.
func (idx *Index) breakCycles(position map[core.ID]int) {
	const (
		unseen = iota
		onPath
		done
	)
	state := make(map[core.ID]int, len(idx.order))
	for _, start := range idx.order {
		if state[start] != unseen {
			continue
		}
		var path []core.ID
		cur := start
		for {
			if state[cur] == done {
				break
			}
			if state[cur] == onPath {
				// cur..end of path is a cycle
				cut := cur
				for i := len(path) - 1; i >= 0 && path[i] != cur; i-- {
					if position[path[i]] < position[cut] {
						cut = path[i]
					}
				}
				delete(idx.parent, cut)
				break
			}
			state[cur] = onPath
			path = append(path, cur)
			p, ok := idx.parent[cur]
			if !ok {
				break
			}
			cur = p
		}
		for _, id := range path {
			state[id] = done
		}
	}
}

// Len is the number of distinct categories.
func (idx *Index) Len() int { return len(idx.order) }

// Categories returns the distinct categories in input order.
func (idx *Index) Categories() []core.Category {
	out := make([]core.Category, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.byID[id])
	}
	return out
}

// Lookup finds a category by id.
func (idx *Index) Lookup(id core.ID) (core.Category, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// Roots returns the categories that head a tree, in input order.
func (idx *Index) Roots() []core.Category {
	return idx.collect(idx.roots)
}

// Children returns the direct children of id in input order.
func (idx *Index) Children(id core.ID) []core.Category {
	return idx.collect(idx.children[id])
}

// HasChildren reports whether id has at least one child.
func (idx *Index) HasChildren(id core.ID) bool {
	return len(idx.children[id]) > 0
}

// HasActiveChildren reports whether any direct child of id is active.
func (idx *Index) HasActiveChildren(id core.ID) bool {
	for _, cid := range idx.children[id] {
		if idx.byID[cid].IsActive {
			return true
		}
	}
	return false
}

// Descendants returns every id below id, pre-order.
func (idx *Index) Descendants(id core.ID) []core.ID {
	var out []core.ID
	stack := append([]core.ID(nil), reverse(idx.children[id])...)
	seen := map[core.ID]bool{id: true}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		stack = append(stack, reverse(idx.children[cur])...)
	}
	return out
}

func (idx *Index) collect(ids []core.ID) []core.Category {
	out := make([]core.Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, idx.byID[id])
	}
	return out
}

func reverse(ids []core.ID) []core.ID {
	out := make([]core.ID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
