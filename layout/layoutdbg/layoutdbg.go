/*
Package layoutdbg renders layout trees for debugging.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package layoutdbg

import (
	"fmt"

	"github.com/npillmayer/asynclist/layout"
	tp "github.com/xlab/treeprint"
)

// String renders a layout tree as an indented tree of frames.
func String(root *layout.Node) string {
	if root == nil {
		return "<nil layout>"
	}
	tree := tp.New()
	tree.SetValue(label(root))
	addChildren(tree, root)
	return tree.String()
}

func addChildren(branch tp.Tree, n *layout.Node) {
	for _, ch := range n.Children() {
		if ch.ChildCount() == 0 {
			branch.AddNode(label(ch))
			continue
		}
		addChildren(branch.AddBranch(label(ch)), ch)
	}
}

func label(n *layout.Node) string {
	flags := ""
	if n.IsFlattened() {
		flags += " flat"
	}
	if n.IsGone() {
		flags += " gone"
	}
	if n.IsDirty() {
		flags += " dirty"
	}
	return fmt.Sprintf("#%d %v%s", n.Owner(), n.Frame(), flags)
}
