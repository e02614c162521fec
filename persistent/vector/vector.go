package vector

import (
	"fmt"

	"github.com/npillmayer/asynclist/maybe"
)

// Vector is an immutable persistent vector. The zero value is an empty vector
// ready to use.
type Vector[T any] struct {
	props
	length uint32
	root   *vnode[T]
	tail   []T
}

// Immutable creates an empty vector, optionally configured with options.
func Immutable[T any](opts ...Option) Vector[T] {
	v := Vector[T]{}
	for _, option := range opts {
		v.props = option.config(v.props)
	}
	return v
}

// From creates a vector holding a copy of the values of a slice.
func From[T any](values []T, opts ...Option) Vector[T] {
	v := Immutable[T](opts...)
	for _, x := range values {
		v = v.Push(x)
	}
	return v
}

// Option is a type to help initializing vectors at creation time.
type Option struct {
	config func(props) props
}

// DegreeExponent is an option to indirectly set the degree of the underlying tree for a vector.
// The degree of the tree will be 2^exp. Accepted exponents are [1…5]; default is 3, i.e.
// a degree of 8.
//
// Use it like this:
//
//     vec := vector.Immutable[int](DegreeExponent(5))
//
func DegreeExponent(n int) Option {
	conf := func(p props) props {
		if n <= 0 {
			n = 1
		} else if n > 5 {
			n = 5
		}
		p = props{bits: uint32(n)}
		p.degree = 1 << p.bits
		p.mask = p.degree - 1
		p.shift = p.bits
		return p
	}
	return Option{config: conf}
}

// --- API -------------------------------------------------------------------

// Len returns the number of elements.
func (v Vector[T]) Len() int {
	return int(v.length)
}

// Last returns the last element, if any.
func (v Vector[T]) Last() maybe.Maybe[T] {
	if len(v.tail) == 0 {
		return maybe.Nothing[T]()
	}
	return maybe.Just(v.tail[len(v.tail)-1])
}

// Get returns the element at position i. It panics if i is out of range.
func (v Vector[T]) Get(i int) T {
	assertThat(i >= 0 && uint32(i) < v.length, "index out of bounds: %d with length %d", i, v.length)
	v.props = v.props.init()
	return v.leafsFor(uint32(i))[uint32(i)&v.mask]
}

// Set returns a vector with the element at position i replaced by value.
func (v Vector[T]) Set(i int, value T) Vector[T] {
	assertThat(i >= 0 && uint32(i) < v.length, "index out of bounds: %d with length %d", i, v.length)
	v.props = v.props.init()
	if uint32(i) >= v.tailOffset() {
		newTail := cloneTail(v.tail, len(v.tail))
		newTail[uint32(i)&v.mask] = value
		return Vector[T]{length: v.length, props: v.props, root: v.root, tail: newTail}
	}
	newRoot := v.assoc(v.shift, v.root, uint32(i), value)
	return Vector[T]{length: v.length, props: v.props, root: newRoot, tail: v.tail}
}

func (v Vector[T]) assoc(level uint32, node *vnode[T], i uint32, value T) *vnode[T] {
	ret := node.clone(v.degree)
	if level == 0 {
		ret.leafs[i&v.mask] = value
		return ret
	}
	subidx := (i >> level) & v.mask
	ret.children[subidx] = v.assoc(level-v.bits, node.children[subidx], i, value)
	return ret
}

// Push returns a vector with value appended.
func (v Vector[T]) Push(value T) Vector[T] {
	v.props = v.props.init()
	if v.length-v.tailOffset() < v.degree { // room in tail
		newTail := cloneTail(v.tail, len(v.tail)+1)
		newTail[len(newTail)-1] = value
		return Vector[T]{length: v.length + 1, props: v.props, root: v.root, tail: newTail}
	}
	// tail is full ⇒ have to move tail into tree
	tailNode := leafNode(v.tail)
	shift := v.shift
	var newRoot *vnode[T]
	if (v.length >> v.bits) > (1 << v.shift) { // root overflow ⇒ tree grows by one level
		newRoot = innerNode[T](v.degree)
		newRoot.children[0] = v.root
		newRoot.children[1] = newPath(v.shift, v.bits, v.degree, tailNode)
		shift += v.bits
		tracer().Debugf("vector grows to shift %d", shift)
	} else {
		newRoot = v.pushTail(v.shift, v.root, tailNode)
	}
	return Vector[T]{length: v.length + 1, props: v.props.withShift(shift), root: newRoot, tail: []T{value}}
}

func (v Vector[T]) pushTail(level uint32, parent *vnode[T], tailNode *vnode[T]) *vnode[T] {
	ret := parent.clone(v.degree)
	subidx := ((v.length - 1) >> level) & v.mask
	var insert *vnode[T]
	if level == v.bits {
		insert = tailNode
	} else if child := ret.children[subidx]; child != nil {
		insert = v.pushTail(level-v.bits, child, tailNode)
	} else {
		insert = newPath(level-v.bits, v.bits, v.degree, tailNode)
	}
	ret.children[subidx] = insert
	return ret
}

// Pop returns a vector with the last element removed.
// It panics if v is empty.
func (v Vector[T]) Pop() Vector[T] {
	assertThat(v.length > 0, "attempt to remove item from empty vector")
	v.props = v.props.init()
	if v.length == 1 {
		return Vector[T]{props: v.props.withShift(v.bits)}
	}
	if v.length-v.tailOffset() > 1 {
		newTail := cloneTail(v.tail, len(v.tail)-1)
		return Vector[T]{length: v.length - 1, props: v.props, root: v.root, tail: newTail}
	}
	newTail := v.leafsFor(v.length - 2)
	newRoot := v.popTail(v.shift, v.root)
	shift := v.shift
	if shift > v.bits && newRoot != nil && newRoot.children[1] == nil {
		newRoot = newRoot.children[0]
		shift -= v.bits
	}
	return Vector[T]{length: v.length - 1, props: v.props.withShift(shift), root: newRoot, tail: newTail}
}

func (v Vector[T]) popTail(level uint32, node *vnode[T]) *vnode[T] {
	subidx := ((v.length - 2) >> level) & v.mask
	if level > v.bits {
		newChild := v.popTail(level-v.bits, node.children[subidx])
		if newChild == nil && subidx == 0 {
			return nil
		}
		ret := node.clone(v.degree)
		ret.children[subidx] = newChild
		return ret
	} else if subidx == 0 {
		return nil
	}
	ret := node.clone(v.degree)
	ret.children[subidx] = nil
	return ret
}

// Insert returns a vector with values inserted at position i, shifting
// elements at i and beyond to the right. i may equal Len().
func (v Vector[T]) Insert(i int, values ...T) Vector[T] {
	assertThat(i >= 0 && i <= v.Len(), "insert position out of bounds: %d with length %d", i, v.length)
	rest := v.slice(i, v.Len())
	w := v.truncate(i)
	for _, x := range values {
		w = w.Push(x)
	}
	for _, x := range rest {
		w = w.Push(x)
	}
	return w
}

// Delete returns a vector with n elements removed, starting at position i.
func (v Vector[T]) Delete(i, n int) Vector[T] {
	assertThat(i >= 0 && n >= 0 && i+n <= v.Len(), "delete range out of bounds: [%d,%d) with length %d",
		i, i+n, v.length)
	if n == 0 {
		return v
	}
	rest := v.slice(i+n, v.Len())
	w := v.truncate(i)
	for _, x := range rest {
		w = w.Push(x)
	}
	return w
}

// Slice returns a new vector holding the elements [from, to).
func (v Vector[T]) Slice(from, to int) Vector[T] {
	assertThat(from >= 0 && from <= to && to <= v.Len(), "slice bounds out of range: [%d,%d)", from, to)
	if from == 0 {
		return v.truncate(to)
	}
	w := Vector[T]{props: v.props}
	for _, x := range v.slice(from, to) {
		w = w.Push(x)
	}
	return w
}

// Each calls f for every element in order, until f returns false.
func (v Vector[T]) Each(f func(i int, x T) bool) {
	if v.length == 0 {
		return
	}
	v.props = v.props.init()
	for i := uint32(0); i < v.length; {
		leafs := v.leafsFor(i)
		for j := i & v.mask; j < uint32(len(leafs)) && i < v.length; j++ {
			if !f(int(i), leafs[j]) {
				return
			}
			i++
		}
	}
}

// ToSlice returns the elements as a newly allocated slice.
func (v Vector[T]) ToSlice() []T {
	return v.slice(0, v.Len())
}

func (v Vector[T]) String() string {
	return fmt.Sprintf("%v", v.ToSlice())
}

// --- Internals -------------------------------------------------------------

func (v Vector[T]) slice(from, to int) []T {
	s := make([]T, 0, to-from)
	if from >= to {
		return s
	}
	v.Each(func(i int, x T) bool {
		if i >= to {
			return false
		}
		if i >= from {
			s = append(s, x)
		}
		return true
	})
	return s
}

// truncate returns a vector holding the first n elements.
func (v Vector[T]) truncate(n int) Vector[T] {
	if n == v.Len() {
		return v
	}
	if n < v.Len()-n { // cheaper to rebuild than to pop
		w := Vector[T]{props: v.props}
		for _, x := range v.slice(0, n) {
			w = w.Push(x)
		}
		return w
	}
	for v.Len() > n {
		v = v.Pop()
	}
	return v
}

func (v Vector[T]) leafsFor(i uint32) []T {
	if i >= v.tailOffset() {
		return v.tail
	}
	node := v.root
	for level := v.shift; level > 0; level -= v.bits {
		node = node.children[(i>>level)&v.mask]
	}
	return node.leafs
}

func (v Vector[T]) tailOffset() uint32 {
	if v.length < v.degree {
		return 0
	}
	return ((v.length - 1) >> v.bits) << v.bits
}
