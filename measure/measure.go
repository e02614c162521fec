/*
Package measure builds layout trees from description trees.

A description tree consists of Elements. Measuring an element tree against a
size range happens in two concurrent passes over a mirror of the
description tree: a top-down pass, in which size ranges flow from parents to
children, and a bottom-up pass, in which children are sized first and then
placed by their parent.

Measuring never modifies the elements. Arrangement geometry is left to the
elements themselves; Fixed and Stack are trivial elements provided for
hosts and tests.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package measure

import (
	"context"
	"fmt"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/tree"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'asynclist.measure'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist.measure")
}

// Element is a described object which is able to arrange its children.
type Element interface {
	// ChildConstraint returns the size range for child i, given the size
	// range of the element itself.
	ChildConstraint(self layout.SizeRange, i int) layout.SizeRange
	// Arrange sizes the element given its sized children and returns a
	// position for every child.
	Arrange(self layout.SizeRange, children []*layout.Node) (layout.Size, []layout.Point, error)
	// Children returns the child elements.
	Children() []Element
}

// GoneElement is implemented by elements which may be invisible.
type GoneElement interface {
	Gone() bool
}

// KeyedElement is implemented by elements referring to a described object.
type KeyedElement interface {
	Owner() layout.OwnerKey
}

// cell is the payload of the mirror tree.
type cell struct {
	elem       Element
	constraint layout.SizeRange
	node       *layout.Node
	err        error
}

// Measure measures the element tree below root against constraint and
// returns the root of the resulting layout tree. The root node has no
// position.
func Measure(ctx context.Context, root Element, constraint layout.SizeRange) (*layout.Node, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: cannot measure nil element", contract.ErrMeasurementFailed)
	}
	mirror := mirrorOf(root)
	mirror.Payload.constraint = constraint
	if mirror.ChildCount() == 0 {
		arranged := arrange(ctx)
		if _, err := arranged(mirror, nil, 0); err != nil {
			return nil, err
		}
		return mirror.Payload.node, nil
	}
	_, err := tree.NewWalker(mirror).TopDown(constrain(ctx)).Promise()()
	if err != nil {
		return nil, err
	}
	_, err = tree.NewWalker(mirror).
		DescendentsWith(tree.NodeIsLeaf[*cell]()).
		BottomUp(arrange(ctx)).
		Promise()()
	if mirror.Payload.err != nil {
		return nil, mirror.Payload.err
	}
	if err != nil {
		return nil, err
	}
	tracer().Debugf("measured %v against %v", mirror.Payload.node, constraint)
	return mirror.Payload.node, nil
}

func mirrorOf(e Element) *tree.Node[*cell] {
	n := tree.NewNode(&cell{elem: e})
	for _, ch := range e.Children() {
		if ch != nil {
			n.AddChild(mirrorOf(ch))
		}
	}
	return n
}

// constrain is the top-down action: the size range of a node is derived from
// the size range of its parent.
func constrain(ctx context.Context) tree.Action[*cell] {
	return func(n, parent *tree.Node[*cell], position int) (*tree.Node[*cell], error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if parent != nil {
			p := parent.Payload
			n.Payload.constraint = p.elem.ChildConstraint(p.constraint, position)
		}
		return n, nil
	}
}

// arrange is the bottom-up action: a node is sized and its children are
// placed, once all the children have been sized.
func arrange(ctx context.Context) tree.Action[*cell] {
	return func(n, parent *tree.Node[*cell], position int) (*tree.Node[*cell], error) {
		c := n.Payload
		c.err = layoutCell(ctx, c, n.Children(true))
		if c.err != nil {
			return nil, c.err
		}
		return n, nil
	}
}

func layoutCell(ctx context.Context, c *cell, mirrored []*tree.Node[*cell]) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}
	children := make([]*layout.Node, len(mirrored))
	for i, ch := range mirrored {
		if ch.Payload.err != nil {
			return ch.Payload.err
		}
		children[i] = ch.Payload.node
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in arrange: %v", contract.ErrMeasurementFailed, r)
		}
	}()
	size, positions, err := c.elem.Arrange(c.constraint, children)
	if err != nil {
		return fmt.Errorf("%w: %v", contract.ErrMeasurementFailed, err)
	}
	if len(positions) != len(children) {
		return fmt.Errorf("%w: %d positions for %d children", contract.ErrMeasurementFailed,
			len(positions), len(children))
	}
	for i, ch := range children {
		if err := ch.SetPosition(positions[i]); err != nil {
			return err
		}
	}
	var opts []layout.Option
	if g, ok := c.elem.(GoneElement); ok && g.Gone() {
		opts = append(opts, layout.Gone())
	}
	owner := layout.NoOwner
	if k, ok := c.elem.(KeyedElement); ok {
		owner = k.Owner()
	}
	c.node, err = layout.New(owner, c.constraint, size, children, opts...)
	return err
}

// AsLayoutable wraps an element tree as a layout.Layoutable.
func AsLayoutable(root Element) layout.Layoutable {
	return layoutable{root}
}

type layoutable struct {
	root Element
}

func (l layoutable) LayoutThatFits(ctx context.Context, c layout.SizeRange) (*layout.Node, error) {
	return Measure(ctx, l.root, c)
}
