package vector

import (
	"fmt"
	"strings"
)

// props holds the shape parameters of the trie a vector is made of.
// A zero props is lazily initialized to the default degree.
type props struct {
	bits   uint32 // degree = 2^bits
	degree uint32
	mask   uint32
	shift  uint32 // level of the root node, multiple of bits
}

const defaultBits uint32 = 3

func (p props) init() props {
	if p.bits == 0 {
		p.bits = defaultBits
		p.degree = 1 << p.bits
		p.mask = p.degree - 1
	}
	if p.shift == 0 {
		p.shift = p.bits
	}
	return p
}

func (p props) withShift(s uint32) props {
	p.shift = s
	return p
}

// vnode represents a node in the trie a vector is made of. Inner nodes carry
// children, leaf nodes carry a full bucket of values.
type vnode[T any] struct {
	children []*vnode[T]
	leafs    []T
}

func innerNode[T any](degree uint32) *vnode[T] {
	return &vnode[T]{children: make([]*vnode[T], degree)}
}

func leafNode[T any](values []T) *vnode[T] {
	return &vnode[T]{leafs: values}
}

func (node *vnode[T]) clone(degree uint32) *vnode[T] {
	if node == nil {
		return innerNode[T](degree)
	}
	n := &vnode[T]{}
	if node.children != nil {
		n.children = make([]*vnode[T], len(node.children))
		copy(n.children, node.children)
	}
	if node.leafs != nil {
		n.leafs = make([]T, len(node.leafs))
		copy(n.leafs, node.leafs)
	}
	return n
}

func (node *vnode[T]) String() string {
	b := strings.Builder{}
	b.WriteByte('[')
	if node.children == nil {
		for i, l := range node.leafs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(fmt.Sprintf("%v", l))
		}
	} else {
		for i, c := range node.children {
			if i > 0 {
				b.WriteByte(',')
			}
			if c == nil {
				b.WriteByte('_')
			} else {
				b.WriteString("▪︎")
			}
		}
	}
	b.WriteByte(']')
	return b.String()
}

// newPath creates a chain of inner nodes down to level 0, where node is
// hung in.
func newPath[T any](level, bits, degree uint32, node *vnode[T]) *vnode[T] {
	if level == 0 {
		return node
	}
	ret := innerNode[T](degree)
	ret.children[0] = newPath(level-bits, bits, degree, node)
	return ret
}

func cloneTail[T any](tail []T, l int) []T {
	newTail := make([]T, l)
	copy(newTail, tail)
	return newTail
}

// --- Helpers ---------------------------------------------------------------

func assertThat(that bool, msg string, msgargs ...interface{}) {
	if !that {
		msg = fmt.Sprintf("vector: "+msg, msgargs...)
		panic(msg)
	}
}
