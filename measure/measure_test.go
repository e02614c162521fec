package measure

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/layout/layoutdbg"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureLeaf(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.measure")
	defer teardown()
	//
	c := layout.SizeRange{Max: layout.Size{W: 300, H: layout.Infinity}}
	n, err := Measure(context.Background(), Fixed{Key: 7, Intrinsic: layout.Size{W: 500, H: 40}}, c)
	require.NoError(t, err)
	assert.Equal(t, layout.OwnerKey(7), n.Owner())
	assert.Equal(t, layout.Size{W: 300, H: 40}, n.Size())
	_, placed := n.Position()
	assert.False(t, placed)
}

func TestMeasureRelative(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.measure")
	defer teardown()
	//
	c := layout.SizeRange{Max: layout.Size{W: 300, H: layout.Infinity}}
	half := Relative{
		Key:       3,
		Size:      layout.RelativeSize{Width: layout.Fraction(0.5), Height: layout.Fraction(0.5)},
		Intrinsic: layout.Size{W: 80, H: 24},
	}
	n, err := Measure(context.Background(), half, c)
	require.NoError(t, err)
	assert.Equal(t, layout.Size{W: 150, H: 24}, n.Size(), "unbounded height falls back to intrinsic")
	//
	stack := Stack{Key: 1, Items: []Element{
		Relative{Key: 4, Size: layout.RelativeSize{Width: layout.Fraction(1), Height: layout.Just(10)}},
		Fixed{Key: 5, Intrinsic: layout.Size{W: 50, H: 20}},
	}}
	n, err = Measure(context.Background(), stack, c)
	require.NoError(t, err)
	assert.Equal(t, layout.Size{W: 300, H: 30}, n.Size())
}

func TestMeasureStack(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.measure")
	defer teardown()
	//
	root := Stack{Key: 1, Spacing: layout.Size{H: 5}, Items: []Element{
		Fixed{Key: 2, Intrinsic: layout.Size{W: 100, H: 20}},
		Stack{Key: 3, Items: []Element{
			Fixed{Key: 4, Intrinsic: layout.Size{W: 50, H: 10}},
			Fixed{Key: 5, Intrinsic: layout.Size{W: 80, H: 10}, Invisible: true},
			Fixed{Key: 6, Intrinsic: layout.Size{W: 400, H: 10}},
		}},
	}}
	c := layout.SizeRange{Max: layout.Size{W: 300, H: layout.Infinity}}
	n, err := Measure(context.Background(), root, c)
	require.NoError(t, err)
	t.Log(layoutdbg.String(n))
	// inner stack: 4 at y=0, 5 gone, 6 at y=10 clamped to width 300
	assert.Equal(t, layout.Size{W: 300, H: 20 + 5 + 20}, n.Size())
	require.Equal(t, 2, n.ChildCount())
	inner := n.Children()[1]
	p, ok := inner.Position()
	require.True(t, ok)
	assert.Equal(t, layout.Point{Y: 25}, p)
	var frames []layout.Rect
	for _, ch := range inner.Children() {
		frames = append(frames, ch.Frame())
	}
	want := []layout.Rect{
		{Origin: layout.Point{Y: 0}, Size: layout.Size{W: 50, H: 10}},
		{Origin: layout.Point{Y: 10}, Size: layout.Size{W: 80, H: 10}},
		{Origin: layout.Point{Y: 10}, Size: layout.Size{W: 300, H: 10}},
	}
	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, inner.Children()[1].IsGone())
}

func TestMeasureIsDeterministic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.measure")
	defer teardown()
	//
	items := make([]Element, 50)
	for i := range items {
		items[i] = Fixed{Key: layout.OwnerKey(i + 10), Intrinsic: layout.Size{W: 10, H: 3}}
	}
	root := Stack{Key: 1, Items: items}
	l := AsLayoutable(root)
	a, err := l.LayoutThatFits(context.Background(), layout.Unconstrained())
	require.NoError(t, err)
	b, err := l.LayoutThatFits(context.Background(), layout.Unconstrained())
	require.NoError(t, err)
	assert.True(t, layout.Equal(a, b))
	assert.Equal(t, layout.Size{W: 10, H: 150}, a.Size())
}

type failing struct{ Fixed }

func (f failing) Arrange(self layout.SizeRange, _ []*layout.Node) (layout.Size, []layout.Point, error) {
	panic("boom")
}

func TestMeasureFailureIsReported(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.measure")
	defer teardown()
	//
	root := Stack{Key: 1, Items: []Element{
		Fixed{Key: 2, Intrinsic: layout.Size{W: 10, H: 10}},
		failing{Fixed{Key: 3}},
	}}
	_, err := Measure(context.Background(), root, layout.Unconstrained())
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrMeasurementFailed))
}

func TestMeasureCancelled(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.measure")
	defer teardown()
	//
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := Stack{Key: 1, Items: []Element{Fixed{Key: 2}}}
	_, err := Measure(ctx, root, layout.Unconstrained())
	assert.True(t, errors.Is(err, context.Canceled))
}
