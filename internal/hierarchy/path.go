package hierarchy

import (
	"finspect/internal/apierr"
	"finspect/internal/core"
)

// AncestorPath returns the chain from the root down to id, inclusive.
// An unknown id yields an empty path.
func (idx *Index) AncestorPath(id core.ID) []core.Category {
	c, ok := idx.byID[id]
	if !ok {
		return nil
	}
	path := []core.Category{c}
	seen := map[core.ID]bool{id: true}
	for cur := id; ; {
		p, ok := idx.parent[cur]
		if !ok || seen[p] {
			break
		}
		seen[p] = true
		path = append(path, idx.byID[p])
		cur = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Depth is the number of ancestors of id, or -1 when id is unknown.
func (idx *Index) Depth(id core.ID) int {
	return len(idx.AncestorPath(id)) - 1
}

// IsDescendantOf reports whether candidate is ancestor or lies below it.
// The walk follows the recorded parent ids and stops on repeats, so
// corrupted cyclic data terminates.
func (idx *Index) IsDescendantOf(candidate, ancestor core.ID) bool {
	if candidate == ancestor {
		return true
	}
	seen := map[core.ID]bool{candidate: true}
	cur := candidate
	for {
		c, ok := idx.byID[cur]
		if !ok || c.ParentID == nil {
			return false
		}
		next := *c.ParentID
		if next == ancestor {
			return true
		}
		if seen[next] {
			return false
		}
		seen[next] = true
		cur = next
	}
}

// ValidateParent checks that id may be moved under parent. A nil parent
// is always allowed. id may be unknown when a category is being created.
func (idx *Index) ValidateParent(id *core.ID, parent *core.ID) error {
	if parent == nil {
		return nil
	}
	if _, ok := idx.byID[*parent]; !ok {
		return &apierr.Error{
			Kind:    apierr.Validation,
			Message: "Parent category not found",
			Fields:  map[string]string{"parentId": "parent category does not exist"},
		}
	}
	if id == nil {
		return nil
	}
	if *id == *parent {
		return &apierr.Error{
			Kind:    apierr.Validation,
			Message: core.ErrSelfParent.Error(),
			Fields:  map[string]string{"parentId": core.ErrSelfParent.Error()},
			Err:     core.ErrSelfParent,
		}
	}
	if idx.IsDescendantOf(*parent, *id) {
		return apierr.Conflictf("%s", apierr.MsgCircularReference)
	}
	return nil
}
