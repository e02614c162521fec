package layout

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/tyse/core/dimen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampStaysWithinBounds(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	ranges := []SizeRange{
		{Min: Size{0, 0}, Max: Size{300, Infinity}},
		{Min: Size{10, 20}, Max: Size{10, 20}},
		{Min: Size{50, 0}, Max: Size{Infinity, Infinity}},
		Unconstrained(),
	}
	sizes := []Size{
		{0, 0}, {-5, -5}, {1000, 1000}, {Infinity, Infinity}, {30, Infinity}, {Infinity, 40},
	}
	for _, r := range ranges {
		for _, s := range sizes {
			c := r.Clamp(s)
			assert.True(t, r.Contains(c), "%v clamped to %v not in %v", s, c, r)
			assert.GreaterOrEqual(t, int64(c.W), int64(0))
			assert.GreaterOrEqual(t, int64(c.H), int64(0))
		}
	}
}

func TestClampInfinity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	r := SizeRange{Min: Size{5, 7}, Max: Size{300, Infinity}}
	c := r.Clamp(Size{Infinity, Infinity})
	assert.Equal(t, dimen.DU(300), c.W, "infinite width clamps to finite max")
	assert.Equal(t, dimen.DU(7), c.H, "infinite height clamps to min if max is unbounded")
}

func TestNewSizeRangeValidates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	_, err := NewSizeRange(Size{10, 10}, Size{5, 20})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSizeRange))
	_, err = NewSizeRange(Size{-1, 0}, Size{5, 20})
	assert.Error(t, err)
	r, err := NewSizeRange(Size{0, 0}, Size{300, Infinity})
	require.NoError(t, err)
	assert.Equal(t, Size{300, Infinity}, r.Max)
}

func TestIntersect(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	a := SizeRange{Min: Size{0, 0}, Max: Size{300, Infinity}}
	b := SizeRange{Min: Size{100, 10}, Max: Size{400, 50}}
	i := a.Intersect(b)
	assert.Equal(t, SizeRange{Min: Size{100, 10}, Max: Size{300, 50}}, i)
}

func TestRelativeSizeResolve(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	parent := Size{W: 200, H: Infinity}
	auto := Size{W: 17, H: 23}
	rs := RelativeSize{Width: Fraction(0.5), Height: Fraction(0.5)}
	assert.Equal(t, Size{W: 100, H: 23}, rs.Resolve(parent, auto))
	rs = RelativeSize{Width: Just(42), Height: Auto()}
	assert.Equal(t, Size{W: 42, H: 23}, rs.Resolve(parent, auto))
	rs = RelativeSize{}
	assert.Equal(t, auto, rs.Resolve(parent, auto))
	//
	rr := RelativeSizeRange{
		Min: RelativeSize{Width: Fraction(1), Height: Auto()},
		Max: RelativeSize{Width: Fraction(1), Height: Auto()},
	}
	sr := rr.Resolve(Size{W: 320, H: 480}, Unconstrained())
	assert.Equal(t, SizeRange{Min: Size{320, 0}, Max: Size{320, Infinity}}, sr)
}

func TestDimenMatch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	ten := Just(dimen.PT * 10)
	var x dimen.DU
	switch m := ten.Match(); m {
	case m.Just(&x):
		t.Logf("x = %v", x)
	default:
		t.Errorf("expected Just(10pt) to be a fixed value, isn't: %#v", ten)
	}
	assert.Equal(t, dimen.PT*10, x)
	half := Fraction(0.5)
	var f float64
	switch m := half.Match(); m {
	case m.IsKind(Auto()):
		t.Errorf("fraction must not match auto")
	case m.Fraction(&f):
		t.Logf("f = %v", f)
	}
	assert.Equal(t, 0.5, f)
	s := DimenPattern[string](Auto()).OneOf(DimenPatterns[string]{
		Auto:    "auto",
		Just:    "just",
		Default: "none",
	})
	assert.Equal(t, "auto", s)
}
