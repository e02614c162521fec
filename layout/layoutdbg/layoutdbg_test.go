package layoutdbg

import (
	"strings"
	"testing"

	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.layout")
	defer teardown()
	//
	ch, err := layout.New(2, layout.Unconstrained(), layout.Size{W: 10, H: 10}, nil,
		layout.At(layout.Point{X: 5}), layout.Gone())
	require.NoError(t, err)
	root, err := layout.New(1, layout.Unconstrained(), layout.Size{W: 100, H: 20}, []*layout.Node{ch})
	require.NoError(t, err)
	s := String(root)
	t.Log(s)
	assert.True(t, strings.Contains(s, "#1"))
	assert.True(t, strings.Contains(s, "#2"))
	assert.True(t, strings.Contains(s, "gone"))
	assert.Equal(t, "<nil layout>", String(nil))
}
