package hierarchy

import (
	"strings"

	"finspect/internal/core"
)

// DefaultIndent is prefixed once per depth level to an option label.
const DefaultIndent = "  "

// Option is one row of a selection list.
type Option struct {
	ID          core.ID  `json:"id"`
	DisplayName string   `json:"displayName"`
	Name        string   `json:"name"`
	Depth       int      `json:"depth"`
	ParentID    *core.ID `json:"parentId"`
	ColorCode   string   `json:"colorCode"`
	IsActive    bool     `json:"isActive"`
}

// Flatten lists the forest pre-order with depth indented labels.
func Flatten(forest Forest, indent string) []Option {
	return flatten(forest, indent, nil)
}

// ActiveOptions is Flatten without inactive categories. The subtree under
// an inactive category is left out too.
func ActiveOptions(forest Forest, indent string) []Option {
	return flatten(forest, indent, func(n *Node) bool { return n.IsActive })
}

// ParentOptions lists the categories that may become the parent of
// editing. Editing itself and all of its descendants are left out. With a
// nil editing id every category is a candidate.
func ParentOptions(idx *Index, editing *core.ID, indent string) []Option {
	all := Flatten(idx.Forest(), indent)
	if editing == nil {
		return all
	}
	out := make([]Option, 0, len(all))
	for _, o := range all {
		if idx.IsDescendantOf(o.ID, *editing) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func flatten(forest Forest, indent string, keep func(*Node) bool) []Option {
	out := make([]Option, 0, forest.Count())
	forest.Walk(func(n *Node, depth int) bool {
		if keep != nil && !keep(n) {
			return false
		}
		out = append(out, Option{
			ID:          n.ID,
			DisplayName: strings.Repeat(indent, depth) + n.Name,
			Name:        n.Name,
			Depth:       depth,
			ParentID:    n.ParentID,
			ColorCode:   n.ColorCode,
			IsActive:    n.IsActive,
		})
		return true
	})
	return out
}
