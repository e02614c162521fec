package layout

// Predicate selects layout nodes.
type Predicate func(*Node) bool

// IsLeaf selects nodes without children.
func IsLeaf(n *Node) bool {
	return len(n.children) == 0
}

// HasOwner selects nodes describing an object, skipping structural nodes.
func HasOwner(n *Node) bool {
	return n.owner != NoOwner
}

// Flatten returns a new tree of depth 1. Its children are copies (without
// children) of all descendants of n for which pred holds, in depth-first
// pre-order; n itself is not tested.
//
// Positions are composed one level at a time: a selected node keeps its own
// position, offset by the position of its parent if the parent has been
// discarded and is not the root. Offsets of ancestors further up are not
// applied; callers flatten repeatedly to collapse deeper trees.
//
// n is not modified. For predicates which do not depend on the children of a
// node, flattening a flat tree yields an equal tree.
func (n *Node) Flatten(pred Predicate) *Node {
	var flat []*Node
	var visit func(node *Node, offset Point)
	visit = func(node *Node, offset Point) {
		for _, ch := range node.children {
			p, _ := ch.Position()
			if pred(ch) {
				flat = append(flat, ch.detached(p.Add(offset)))
				visit(ch, Origin)
			} else {
				visit(ch, p)
			}
		}
	}
	visit(n, Origin)
	root := &Node{
		owner:      n.owner,
		size:       n.size,
		constraint: n.constraint,
		children:   flat,
		flattened:  true,
		gone:       n.gone,
	}
	if p, ok := n.Position(); ok {
		root.position.Store(&p)
	}
	tracer().Debugf("flattened layout of owner %d to %d nodes", n.owner, len(flat))
	return root
}

// FlattenedLeaves flattens n with IsLeaf as predicate.
func (n *Node) FlattenedLeaves() *Node {
	return n.Flatten(IsLeaf)
}

// detached copies a node without its children, placed at p.
func (n *Node) detached(p Point) *Node {
	c := &Node{
		owner:      n.owner,
		size:       n.size,
		constraint: n.constraint,
		gone:       n.gone,
	}
	c.position.Store(&p)
	return c
}
