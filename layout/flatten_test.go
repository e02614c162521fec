package layout

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/tyse/core/dimen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dimenDU = dimen.DU

// sampleTree builds
//
//     1
//     ├── 2 @(10,10)          structural
//     │   ├── 3 @(1,1)        leaf
//     │   └── 4 @(2,2)        structural
//     │       └── 5 @(3,3)    leaf
//     └── 6 @(100,0)          leaf
//
func sampleTree(t *testing.T) *Node {
	n5 := leaf(t, 5, 5, 5, Point{3, 3})
	n4, err := New(4, Unconstrained(), Size{20, 20}, []*Node{n5}, At(Point{2, 2}))
	require.NoError(t, err)
	n3 := leaf(t, 3, 5, 5, Point{1, 1})
	n2, err := New(2, Unconstrained(), Size{50, 50}, []*Node{n3, n4}, At(Point{10, 10}))
	require.NoError(t, err)
	n6 := leaf(t, 6, 5, 5, Point{100, 0})
	n1, err := New(1, Unconstrained(), Size{200, 100}, []*Node{n2, n6})
	require.NoError(t, err)
	return n1
}

func TestFlattenLeaves(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	root := sampleTree(t)
	flat := root.FlattenedLeaves()
	assert.True(t, flat.IsFlattened())
	require.Equal(t, 3, flat.ChildCount())
	var owners []OwnerKey
	var positions []Point
	for _, ch := range flat.Children() {
		assert.Equal(t, 0, ch.ChildCount())
		owners = append(owners, ch.Owner())
		p, ok := ch.Position()
		require.True(t, ok)
		positions = append(positions, p)
	}
	assert.Equal(t, []OwnerKey{3, 5, 6}, owners)
	// 3 is offset by its discarded parent 2; 5 only by its parent 4, not by 2
	assert.Equal(t, []Point{{11, 11}, {5, 5}, {100, 0}}, positions)
}

func TestFlattenDoesNotMutateInput(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	root := sampleTree(t)
	before := sampleTree(t)
	_ = root.Flatten(HasOwner)
	assert.True(t, Equal(root, before))
	assert.False(t, root.IsFlattened())
}

func TestFlattenIsIdempotentOnFlatTree(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	preds := map[string]Predicate{
		"leaf":  IsLeaf,
		"owner": HasOwner,
		"odd":   func(n *Node) bool { return n.Owner()%2 == 1 },
	}
	for name, pred := range preds {
		once := sampleTree(t).Flatten(pred)
		twice := once.Flatten(pred)
		assert.True(t, Equal(once, twice), "flattening with %q is not idempotent", name)
	}
}

func TestFlattenSelectsNodesBelowSelectedNodes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	flat := sampleTree(t).Flatten(HasOwner)
	var owners []OwnerKey
	for _, ch := range flat.Children() {
		owners = append(owners, ch.Owner())
	}
	assert.Equal(t, []OwnerKey{2, 3, 4, 5, 6}, owners)
}
