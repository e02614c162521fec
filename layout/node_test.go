package layout

import (
	"errors"
	"sync"
	"testing"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, owner OwnerKey, w, h int, p Point) *Node {
	n, err := New(owner, Unconstrained(), Size{W: dimenOf(w), H: dimenOf(h)}, nil, At(p))
	require.NoError(t, err)
	return n
}

func TestNodeChildWithoutPosition(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	ch, err := New(1, Unconstrained(), Size{10, 10}, nil)
	require.NoError(t, err)
	_, err = New(2, Unconstrained(), Size{10, 10}, []*Node{ch})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidChildPosition))
	assert.True(t, errors.Is(err, contract.ErrProtocolViolation))
	//
	require.NoError(t, ch.SetPosition(Point{1, 2}))
	_, err = New(2, Unconstrained(), Size{10, 10}, []*Node{ch})
	assert.NoError(t, err)
}

func TestNodeSizeIsClamped(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	c := SizeRange{Min: Size{0, 0}, Max: Size{300, Infinity}}
	n, err := New(1, c, Size{W: 500, H: 120}, nil)
	require.NoError(t, err)
	assert.Equal(t, Size{W: 300, H: 120}, n.Size())
	assert.Equal(t, c, n.Constraint())
}

func TestPositionIsSetOnce(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	n, _ := New(1, Unconstrained(), Size{10, 10}, nil)
	_, ok := n.Position()
	assert.False(t, ok)
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- n.SetPosition(Point{X: dimenOf(i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	failed := 0
	for err := range errs {
		if err != nil {
			assert.True(t, errors.Is(err, ErrPositionAlreadySet))
			failed++
		}
	}
	assert.Equal(t, 9, failed)
}

func TestFrameClampsInfinity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	n, _ := New(1, Unconstrained(), Size{W: 100, H: Infinity}, nil)
	// no position: origin is zero; unconstrained height clamps to min 0
	assert.Equal(t, Rect{Size: Size{W: 100}}, n.Frame())
	m, _ := New(2, Unconstrained(), Size{W: 10, H: 10}, nil, At(Point{X: Infinity, Y: 5}))
	assert.Equal(t, Rect{Origin: Point{Y: 5}, Size: Size{10, 10}}, m.Frame())
}

func TestContentSizeIgnoresGone(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	a := leaf(t, 1, 50, 20, Point{0, 0})
	b := leaf(t, 2, 50, 20, Point{0, 20})
	g, _ := New(3, Unconstrained(), Size{500, 500}, nil, At(Point{0, 40}), Gone())
	root, err := New(4, Unconstrained(), Size{100, 100}, []*Node{a, b, g})
	require.NoError(t, err)
	assert.Equal(t, Size{W: 50, H: 40}, root.ContentSize())
	assert.True(t, g.IsGone())
}

func TestDirtyFlag(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	n, _ := New(1, Unconstrained(), Size{10, 10}, nil)
	assert.False(t, n.IsDirty())
	n.MarkDirty()
	assert.True(t, n.IsDirty())
}

func TestWalkPreOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	root := sampleTree(t)
	var owners []OwnerKey
	root.Walk(func(n *Node, depth int) bool {
		owners = append(owners, n.Owner())
		return true
	})
	assert.Equal(t, []OwnerKey{1, 2, 3, 4, 5, 6}, owners)
}

func dimenOf(x int) dimenDU {
	return dimenDU(x)
}
