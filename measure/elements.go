package measure

import (
	"github.com/npillmayer/asynclist/layout"
)

// Fixed is a leaf element with an intrinsic size.
type Fixed struct {
	Key       layout.OwnerKey
	Intrinsic layout.Size
	Invisible bool
}

var _ Element = Fixed{}

func (f Fixed) ChildConstraint(self layout.SizeRange, i int) layout.SizeRange { return self }
func (f Fixed) Children() []Element                                          { return nil }
func (f Fixed) Owner() layout.OwnerKey                                       { return f.Key }
func (f Fixed) Gone() bool                                                   { return f.Invisible }

// Arrange returns the intrinsic size.
func (f Fixed) Arrange(self layout.SizeRange, _ []*layout.Node) (layout.Size, []layout.Point, error) {
	return f.Intrinsic, nil, nil
}

// Relative is a leaf sized relative to the upper bound of its size range.
// Auto dimensions, and fractions of an unbounded dimension, take the
// intrinsic size.
type Relative struct {
	Key       layout.OwnerKey
	Size      layout.RelativeSize
	Intrinsic layout.Size
}

var _ Element = Relative{}

func (r Relative) ChildConstraint(self layout.SizeRange, i int) layout.SizeRange { return self }
func (r Relative) Children() []Element                                          { return nil }
func (r Relative) Owner() layout.OwnerKey                                       { return r.Key }

func (r Relative) Arrange(self layout.SizeRange, _ []*layout.Node) (layout.Size, []layout.Point, error) {
	return r.Size.Resolve(self.Max, r.Intrinsic), nil, nil
}

// Stack places its children one below the other. Children get the width of
// the stack's size range and an unbounded height. Gone children take up no
// space.
type Stack struct {
	Key     layout.OwnerKey
	Items   []Element
	Spacing layout.Size // only H is used
}

var _ Element = Stack{}

func (s Stack) Children() []Element     { return s.Items }
func (s Stack) Owner() layout.OwnerKey { return s.Key }

// ChildConstraint passes on the width bounds and unbinds the height.
func (s Stack) ChildConstraint(self layout.SizeRange, i int) layout.SizeRange {
	return layout.SizeRange{
		Min: layout.Size{W: 0},
		Max: layout.Size{W: self.Max.W, H: layout.Infinity},
	}
}

// Arrange stacks the children vertically.
func (s Stack) Arrange(self layout.SizeRange, children []*layout.Node) (layout.Size, []layout.Point, error) {
	positions := make([]layout.Point, len(children))
	var size layout.Size
	first := true
	for i, ch := range children {
		if ch.IsGone() {
			positions[i] = layout.Point{Y: size.H}
			continue
		}
		if !first {
			size.H += s.Spacing.H
		}
		first = false
		positions[i] = layout.Point{Y: size.H}
		size.H += ch.Size().H
		size.W = max(size.W, ch.Size().W)
	}
	return size, positions, nil
}
