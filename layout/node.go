package layout

import (
	"context"
	"fmt"
	"sync/atomic"
)

// OwnerKey is a non-owning reference to the object a layout node describes.
type OwnerKey uint64

// NoOwner is the owner key of structural nodes without a described object.
const NoOwner OwnerKey = 0

// Layoutable is implemented by objects which are able to measure themselves.
type Layoutable interface {
	LayoutThatFits(ctx context.Context, constraint SizeRange) (*Node, error)
}

// Node is an immutable node of a layout tree.
//
// A node used as a child always has a position; a root node may lack one,
// meaning it has not yet been placed by a parent.
type Node struct {
	owner      OwnerKey
	size       Size
	position   atomic.Pointer[Point] // set once
	constraint SizeRange
	children   []*Node
	flattened  bool
	gone       bool
	dirty      atomic.Bool
}

// Option configures a node at creation time.
type Option func(*Node)

// At sets the initial position of a node.
func At(p Point) Option {
	return func(n *Node) {
		n.position.Store(&p)
	}
}

// Gone marks a node as invisible and not taking up any space.
func Gone() Option {
	return func(n *Node) {
		n.gone = true
	}
}

// Flattened marks a node as being the root of a flattened tree.
func Flattened() Option {
	return func(n *Node) {
		n.flattened = true
	}
}

// New creates a layout node for an owner. size is clamped to constraint.
// Every child must have a position, otherwise ErrInvalidChildPosition is
// returned.
func New(owner OwnerKey, constraint SizeRange, size Size, children []*Node, opts ...Option) (*Node, error) {
	for i, ch := range children {
		if ch == nil {
			return nil, fmt.Errorf("%w: child #%d is nil", ErrInvalidChildPosition, i)
		}
		if _, ok := ch.Position(); !ok {
			return nil, fmt.Errorf("%w: child #%d of owner %d", ErrInvalidChildPosition, i, owner)
		}
	}
	n := &Node{
		owner:      owner,
		constraint: constraint,
		size:       constraint.Clamp(size),
	}
	if len(children) > 0 {
		n.children = make([]*Node, len(children))
		copy(n.children, children)
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.size != size {
		tracer().P("owner", owner).Debugf("size %v clamped to %v", size, n.size)
	}
	return n, nil
}

// Owner returns the key of the object n describes.
func (n *Node) Owner() OwnerKey {
	return n.owner
}

// Size returns the resolved size of n.
func (n *Node) Size() Size {
	return n.size
}

// Constraint returns the size range n has been measured against.
func (n *Node) Constraint() SizeRange {
	return n.constraint
}

// Position returns the position of n within its parent, if it has been placed.
func (n *Node) Position() (Point, bool) {
	p := n.position.Load()
	if p == nil {
		return Point{}, false
	}
	return *p, true
}

// SetPosition places n. A position may be set only once; subsequent calls
// return ErrPositionAlreadySet.
func (n *Node) SetPosition(p Point) error {
	if !n.position.CompareAndSwap(nil, &p) {
		return fmt.Errorf("%w: owner %d", ErrPositionAlreadySet, n.owner)
	}
	return nil
}

// Children returns the immediate children of n.
func (n *Node) Children() []*Node {
	return n.children
}

// ChildCount returns the number of immediate children.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// IsFlattened is true for the root of a flattened tree.
func (n *Node) IsFlattened() bool {
	return n.flattened
}

// IsGone is true for nodes which take up no space.
func (n *Node) IsGone() bool {
	return n.gone
}

// MarkDirty flags n for regeneration. The flag is advisory.
func (n *Node) MarkDirty() {
	n.dirty.Store(true)
}

// IsDirty returns the dirty flag.
func (n *Node) IsDirty() bool {
	return n.dirty.Load()
}

// Frame returns the rect occupied by n within its parent. Infinite
// components of size or position, as well as a missing position, are
// clamped to zero.
func (n *Node) Frame() Rect {
	var r Rect
	if p, ok := n.Position(); ok {
		r.Origin = p
	}
	r.Size = n.size
	if !isFinite(r.Origin.X) {
		r.Origin.X = 0
	}
	if !isFinite(r.Origin.Y) {
		r.Origin.Y = 0
	}
	if !isFinite(r.Size.W) {
		r.Size.W = 0
	}
	if !isFinite(r.Size.H) {
		r.Size.H = 0
	}
	return r
}

// ContentSize returns the extent covered by the frames of all children which
// are not gone, measured from the origin of n.
func (n *Node) ContentSize() Size {
	var u Rect
	for _, ch := range n.children {
		if ch.gone {
			continue
		}
		u = u.Union(ch.Frame())
	}
	return Size{W: max(0, u.MaxX()), H: max(0, u.MaxY())}
}

// Walk traverses the tree rooted at n depth-first, calling f for every node
// before its children. If f returns false, the children of the node are
// skipped.
func (n *Node) Walk(f func(node *Node, depth int) bool) {
	n.walk(f, 0)
}

func (n *Node) walk(f func(*Node, int) bool, depth int) {
	if !f(n, depth) {
		return
	}
	for _, ch := range n.children {
		ch.walk(f, depth+1)
	}
}

func (n *Node) String() string {
	pos := "–"
	if p, ok := n.Position(); ok {
		pos = p.String()
	}
	return fmt.Sprintf("<layout %d %v @%s #ch=%d>", n.owner, n.size, pos, len(n.children))
}

// Equal compares two layout trees for structural equality: owners, sizes,
// positions, constraints and the flags of all nodes. The dirty flag is
// ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.owner != b.owner || a.size != b.size || a.constraint != b.constraint ||
		a.flattened != b.flattened || a.gone != b.gone || len(a.children) != len(b.children) {
		return false
	}
	pa, oka := a.Position()
	pb, okb := b.Position()
	if oka != okb || pa != pb {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}
