package hierarchy

import "finspect/internal/core"

type (
	// Node is a category with its ordered children.
	Node struct {
		core.Category
		Children []*Node
	}

	// Forest is the ordered list of root nodes.
	Forest []*Node
)

// BuildForest links a flat list into trees. Records whose parent is missing
// become roots; nothing is dropped and input order is kept among siblings.
func BuildForest(list []core.Category) Forest {
	return NewIndex(list).Forest()
}

// Forest builds the node trees for the index.
func (idx *Index) Forest() Forest {
	nodes := make(map[core.ID]*Node, len(idx.order))
	for _, id := range idx.order {
		nodes[id] = &Node{Category: idx.byID[id]}
	}
	for _, id := range idx.order {
		n := nodes[id]
		for _, cid := range idx.children[id] {
			n.Children = append(n.Children, nodes[cid])
		}
	}
	forest := make(Forest, 0, len(idx.roots))
	for _, id := range idx.roots {
		forest = append(forest, nodes[id])
	}
	return forest
}

// HasChildren reports whether the node has subcategories.
func (n *Node) HasChildren() bool { return len(n.Children) > 0 }

// Size counts the node and everything below it.
func (n *Node) Size() int {
	total := 1
	for _, c := range n.Children {
		total += c.Size()
	}
	return total
}

// Walk visits nodes pre-order with their depth. Returning false from fn
// skips the node's children.
func (f Forest) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, root := range f {
		visit(root, 0)
	}
}

// Count is the number of nodes in the forest.
func (f Forest) Count() int {
	total := 0
	for _, root := range f {
		total += root.Size()
	}
	return total
}

// Find returns the node with the given id.
func (f Forest) Find(id core.ID) *Node {
	var found *Node
	f.Walk(func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}
