package tree

import (
	"errors"
	"sync"
)

// rankMap counts per node, e.g. the number of children already processed.
type rankMap[T comparable] struct {
	lock  sync.Mutex
	count map[*Node[T]]uint32
}

func newRankMap[T comparable]() *rankMap[T] {
	return &rankMap[T]{count: make(map[*Node[T]]uint32)}
}

// Get returns the current count for n.
func (rmap *rankMap[T]) Get(n *Node[T]) uint32 {
	rmap.lock.Lock()
	defer rmap.lock.Unlock()
	return rmap.count[n]
}

// Inc increments the count for n and returns the new count.
func (rmap *rankMap[T]) Inc(n *Node[T]) (uint32, error) {
	if n == nil {
		return 0, errRankOfNullNode
	}
	rmap.lock.Lock()
	defer rmap.lock.Unlock()
	rmap.count[n]++
	return rmap.count[n], nil
}

var errRankOfNullNode = errors.New("cannot determine rank of null-node")
