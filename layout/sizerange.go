package layout

import (
	"fmt"

	"github.com/npillmayer/tyse/core/dimen"
)

// SizeRange is a constraint for measuring: a minimum and a maximum size.
// Components of Max may be Infinity.
type SizeRange struct {
	Min, Max Size
}

// NewSizeRange creates a size range, checking that min ≤ max component-wise
// and that min is non-negative.
func NewSizeRange(min, max Size) (SizeRange, error) {
	if min.W < 0 || min.H < 0 || min.W > max.W || min.H > max.H {
		return SizeRange{}, fmt.Errorf("%w: min %v, max %v", ErrInvalidSizeRange, min, max)
	}
	return SizeRange{Min: min, Max: max}, nil
}

// Unconstrained is the size range [0…∞] for both dimensions.
func Unconstrained() SizeRange {
	return SizeRange{Max: Size{W: Infinity, H: Infinity}}
}

// Exactly is the size range allowing s only.
func Exactly(s Size) SizeRange {
	return SizeRange{Min: s, Max: s}
}

// normalized returns a range with non-negative min and min ≤ max.
func (r SizeRange) normalized() SizeRange {
	r.Min.W, r.Min.H = max(0, r.Min.W), max(0, r.Min.H)
	r.Max.W, r.Max.H = max(r.Min.W, r.Max.W), max(r.Min.H, r.Max.H)
	return r
}

// Clamp returns s restricted to r. The result is never below Min and never
// above Max. A component of s which is Infinity is clamped to the
// corresponding bound of r: to Max if Max is finite, otherwise to Min.
func (r SizeRange) Clamp(s Size) Size {
	r = r.normalized()
	return Size{
		W: clampDimen(s.W, r.Min.W, r.Max.W),
		H: clampDimen(s.H, r.Min.H, r.Max.H),
	}
}

func clampDimen(x, lo, hi dimen.DU) dimen.DU {
	if !isFinite(x) {
		if isFinite(hi) {
			return hi
		}
		return lo
	}
	return max(lo, min(x, hi))
}

// Contains is true if s fits into r.
func (r SizeRange) Contains(s Size) bool {
	return s.W >= r.Min.W && s.W <= r.Max.W && s.H >= r.Min.H && s.H <= r.Max.H
}

// Intersect returns the range of sizes satisfying both r and s. If the two
// ranges are disjoint in a dimension, s wins for that dimension.
func (r SizeRange) Intersect(s SizeRange) SizeRange {
	i := SizeRange{
		Min: Size{W: max(r.Min.W, s.Min.W), H: max(r.Min.H, s.Min.H)},
		Max: Size{W: min(r.Max.W, s.Max.W), H: min(r.Max.H, s.Max.H)},
	}
	if i.Min.W > i.Max.W {
		i.Min.W, i.Max.W = s.Min.W, s.Max.W
	}
	if i.Min.H > i.Max.H {
		i.Min.H, i.Max.H = s.Min.H, s.Max.H
	}
	return i
}

func (r SizeRange) String() string {
	return fmt.Sprintf("[%v…%v]", r.Min, r.Max)
}
