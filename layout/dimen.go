package layout

import (
	"fmt"

	"github.com/npillmayer/tyse/core/dimen"
)

const (
	dimenNone     uint32 = 0
	dimenAbsolute uint32 = 0x0001
	dimenAuto     uint32 = 0x0002
	dimenFraction uint32 = 0x0004
	kindMask      uint32 = 0x000f
)

// Dimen is an option type for a dimension which may be relative to the size
// of a parent.
//
//     type Dimen
//         = Auto
//         | Just dimen
//         | Fraction f    // of the parent's extent
//
type Dimen struct {
	d     dimen.DU
	f     float64
	flags uint32
}

// Auto is a dimension to be resolved to a fallback extent.
func Auto() Dimen {
	return Dimen{flags: dimenAuto}
}

// Just creates a dimension with a fixed value of x.
func Just(x dimen.DU) Dimen {
	return Dimen{d: x, flags: dimenAbsolute}
}

// Fraction creates a dimension relative to the parent extent, with 1.0 being
// the full extent.
func Fraction(f float64) Dimen {
	return Dimen{f: f, flags: dimenFraction}
}

// IsNone is true for the zero value.
func (d Dimen) IsNone() bool {
	return d.flags == dimenNone
}

// Resolve resolves d against a parent extent. Auto, the zero value and
// fractions of an unbounded parent resolve to auto.
func (d Dimen) Resolve(parent, auto dimen.DU) dimen.DU {
	return DimenPattern[dimen.DU](d).OneOf(DimenPatterns[dimen.DU]{
		Auto:     auto,
		Just:     d.d,
		Fraction: fractionOf(parent, d.f, auto),
		Default:  auto,
	})
}

func fractionOf(parent dimen.DU, f float64, auto dimen.DU) dimen.DU {
	if !isFinite(parent) {
		return auto
	}
	return dimen.DU(float64(parent) * f)
}

func (d Dimen) String() string {
	switch d.flags & kindMask {
	case dimenAuto:
		return "auto"
	case dimenAbsolute:
		return du(d.d)
	case dimenFraction:
		return fmt.Sprintf("%.4g%%", d.f*100)
	}
	return "none"
}

// --- Matching --------------------------------------------------------------

// Match starts a switch on the kind of d:
//
//     var x dimen.DU
//     switch m := d.Match(); m {
//     case m.Just(&x):
//         …
//     case m.IsKind(layout.Auto()):
//         …
//     }
//
func (d Dimen) Match() *Matcher {
	return &Matcher{dimen: d}
}

// Matcher is a helper type for switching on the kind of a Dimen.
type Matcher struct {
	dimen Dimen
}

// IsKind matches if the matched dimension is of the same kind as d.
func (m *Matcher) IsKind(d Dimen) *Matcher {
	if (m.dimen.flags & kindMask) == (d.flags & kindMask) {
		return m
	}
	return nil
}

// Just matches fixed dimensions and extracts the value into du, if non-nil.
func (m *Matcher) Just(du *dimen.DU) *Matcher {
	if m.dimen.flags&dimenAbsolute > 0 {
		if du != nil {
			*du = m.dimen.d
		}
		return m
	}
	return nil
}

// Fraction matches relative dimensions and extracts the fraction into f, if non-nil.
func (m *Matcher) Fraction(f *float64) *Matcher {
	if m.dimen.flags&dimenFraction > 0 {
		if f != nil {
			*f = m.dimen.f
		}
		return m
	}
	return nil
}

// DimenPatterns maps the kinds of a Dimen to values of type T.
type DimenPatterns[T any] struct {
	Auto     T
	Just     T
	Fraction T
	Default  T
}

// DimenPattern starts an expression selecting one of a set of patterns.
func DimenPattern[T any](d Dimen) *MatchExpr[T] {
	return &MatchExpr[T]{dimen: d}
}

// MatchExpr is a helper type for DimenPattern.
type MatchExpr[T any] struct {
	dimen Dimen
}

// OneOf selects the pattern value for the kind of dimension matched.
func (m *MatchExpr[T]) OneOf(patterns DimenPatterns[T]) T {
	switch {
	case m.dimen.flags&dimenAuto > 0:
		return patterns.Auto
	case m.dimen.flags&dimenAbsolute > 0:
		return patterns.Just
	case m.dimen.flags&dimenFraction > 0:
		return patterns.Fraction
	}
	return patterns.Default
}

// --- Relative sizes --------------------------------------------------------

// RelativeSize is a size with dimensions possibly relative to a parent size.
type RelativeSize struct {
	Width, Height Dimen
}

// Resolve resolves r against a parent size, using auto for auto-dimensions.
// It is a pure function.
func (r RelativeSize) Resolve(parent, auto Size) Size {
	return Size{
		W: r.Width.Resolve(parent.W, auto.W),
		H: r.Height.Resolve(parent.H, auto.H),
	}
}

// RelativeSizeRange is a size range with relative bounds.
type RelativeSizeRange struct {
	Min, Max RelativeSize
}

// Resolve resolves both bounds of r against a parent size. Auto bounds
// resolve to the bounds of auto. The result is normalized to min ≤ max.
func (r RelativeSizeRange) Resolve(parent Size, auto SizeRange) SizeRange {
	sr := SizeRange{
		Min: r.Min.Resolve(parent, auto.Min),
		Max: r.Max.Resolve(parent, auto.Max),
	}
	return sr.normalized()
}
