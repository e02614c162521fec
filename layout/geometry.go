package layout

import (
	"fmt"

	"github.com/npillmayer/tyse/core/dimen"
)

// Size is a two-dimensional extent.
type Size struct {
	W, H dimen.DU
}

// Point is a position relative to the origin of a parent.
type Point struct {
	X, Y dimen.DU
}

// Rect is a positioned size.
type Rect struct {
	Origin Point
	Size   Size
}

// Origin is the zero point.
var Origin = Point{}

// IsFinite returns true if neither component of s is infinite.
func (s Size) IsFinite() bool {
	return isFinite(s.W) && isFinite(s.H)
}

func (s Size) String() string {
	return fmt.Sprintf("(%s × %s)", du(s.W), du(s.H))
}

// Add returns p shifted by q.
func (p Point) Add(q Point) Point {
	return Point{X: sum(p.X, q.X), Y: sum(p.Y, q.Y)}
}

func (p Point) String() string {
	return fmt.Sprintf("(%s, %s)", du(p.X), du(p.Y))
}

// MaxX returns the right edge of r.
func (r Rect) MaxX() dimen.DU {
	return sum(r.Origin.X, r.Size.W)
}

// MaxY returns the bottom edge of r.
func (r Rect) MaxY() dimen.DU {
	return sum(r.Origin.Y, r.Size.H)
}

// IsEmpty is true for rects with zero width or height.
func (r Rect) IsEmpty() bool {
	return r.Size.W <= 0 || r.Size.H <= 0
}

// Union returns the smallest rect containing both r and s. Empty rects do not
// contribute.
func (r Rect) Union(s Rect) Rect {
	if r.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return r
	}
	u := Rect{Origin: Point{X: min(r.Origin.X, s.Origin.X), Y: min(r.Origin.Y, s.Origin.Y)}}
	u.Size.W = max(r.MaxX(), s.MaxX()) - u.Origin.X
	u.Size.H = max(r.MaxY(), s.MaxY()) - u.Origin.Y
	return u
}

// Intersects is true if r and s overlap.
func (r Rect) Intersects(s Rect) bool {
	if r.IsEmpty() || s.IsEmpty() {
		return false
	}
	return r.Origin.X < s.MaxX() && s.Origin.X < r.MaxX() &&
		r.Origin.Y < s.MaxY() && s.Origin.Y < r.MaxY()
}

func (r Rect) String() string {
	return fmt.Sprintf("[%v %v]", r.Origin, r.Size)
}

// --- Helpers ---------------------------------------------------------------

func isFinite(x dimen.DU) bool {
	return x < Infinity && x > -Infinity
}

// sum adds two dimensions, saturating at Infinity.
func sum(a, b dimen.DU) dimen.DU {
	if !isFinite(a) || !isFinite(b) {
		return Infinity
	}
	s := int64(a) + int64(b)
	if s >= int64(Infinity) {
		return Infinity
	}
	if s <= -int64(Infinity) {
		return -Infinity
	}
	return dimen.DU(s)
}

func du(x dimen.DU) string {
	if !isFinite(x) {
		return "∞"
	}
	return fmt.Sprintf("%d", int64(x))
}
