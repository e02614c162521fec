package tree

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/

import (
	"fmt"
	"sync"
)

// Node is the base type our tree is built of.
//
// Children of a node are guarded by a lock, so the structure of a tree may
// be changed by concurrent workers. Payload and Rank are not guarded: a
// pipeline hands a node to one worker at a time, and parents are processed
// strictly before or after their children.
type Node[T comparable] struct {
	parent   *Node[T]
	mx       sync.RWMutex
	children []*Node[T] // may contain nil entries after Isolate()
	Payload  T          // nodes may carry a payload of arbitrary type
	Rank     uint32     // number of nodes in the subtree; 0 = not calculated
}

// NewNode creates a new tree node with a given payload.
func NewNode[T comparable](payload T) *Node[T] {
	return &Node[T]{Payload: payload}
}

func (node *Node[T]) String() string {
	return fmt.Sprintf("(Node #ch=%d %v)", node.ChildCount(), node.Payload)
}

// AddChild appends a child node and connects it to node as its parent.
// It returns the parent node to allow for chaining.
//
// This operation is concurrency-safe.
func (node *Node[T]) AddChild(ch *Node[T]) *Node[T] {
	if ch == nil {
		return node
	}
	node.mx.Lock()
	defer node.mx.Unlock()
	node.children = append(node.children, ch)
	ch.parent = node
	return node
}

// SetChildAt sets a child at position i, replacing an existing child at that
// position. The slice of children is extended with nil entries if i is
// beyond the current number of children.
//
// This operation is concurrency-safe.
func (node *Node[T]) SetChildAt(i int, ch *Node[T]) *Node[T] {
	if ch == nil || i < 0 {
		return node
	}
	node.mx.Lock()
	defer node.mx.Unlock()
	for len(node.children) <= i {
		node.children = append(node.children, nil)
	}
	node.children[i] = ch
	ch.parent = node
	return node
}

// Parent returns the parent node or nil (for the root of the tree).
func (node *Node[T]) Parent() *Node[T] {
	return node.parent
}

// Isolate removes a node from its parent, leaving an empty slot in the
// parent's children. Isolate returns the isolated node.
func (node *Node[T]) Isolate() *Node[T] {
	if node == nil || node.parent == nil {
		return node
	}
	p := node.parent
	p.mx.Lock()
	defer p.mx.Unlock()
	for i, ch := range p.children {
		if ch == node {
			p.children[i] = nil
			break
		}
	}
	node.parent = nil
	return node
}

// ChildCount returns the number of child slots of a node, including empty ones.
func (node *Node[T]) ChildCount() int {
	node.mx.RLock()
	defer node.mx.RUnlock()
	return len(node.children)
}

// Child returns the child at position n, if present.
func (node *Node[T]) Child(n int) (*Node[T], bool) {
	node.mx.RLock()
	defer node.mx.RUnlock()
	if n < 0 || n >= len(node.children) || node.children[n] == nil {
		return nil, false
	}
	return node.children[n], true
}

// Children returns a copy of the slice of children of a node.
// If omitNilChildren is set, empty slots are not included.
func (node *Node[T]) Children(omitNilChildren bool) []*Node[T] {
	node.mx.RLock()
	defer node.mx.RUnlock()
	children := make([]*Node[T], 0, len(node.children))
	for _, ch := range node.children {
		if ch != nil || !omitNilChildren {
			children = append(children, ch)
		}
	}
	return children
}

// IndexOfChild returns the position of ch within the children of node, or -1.
func (node *Node[T]) IndexOfChild(ch *Node[T]) int {
	node.mx.RLock()
	defer node.mx.RUnlock()
	for i, child := range node.children {
		if child == ch {
			return i
		}
	}
	return -1
}

// liveChildCount counts non-empty child slots.
func (node *Node[T]) liveChildCount() int {
	node.mx.RLock()
	defer node.mx.RUnlock()
	n := 0
	for _, ch := range node.children {
		if ch != nil {
			n++
		}
	}
	return n
}
