package tree

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/

// Walker holds information for operating on trees: finding nodes and
// doing work on them. Clients usually create a Walker for a (sub-)tree
// to search for a selection of nodes matching certain criteria, and
// then perform some operation on this selection.
//
// A Walker will eventually return two client-level values:
// a slice of tree nodes and the last error occured.
// These are accessed through a Promise, which represents future values
// for the two fields.
//
//    w := NewWalker(node)
//    futureResult := w.DescendentsWith(NodeIsLeaf[T]()).BottomUp(action).Promise()
//    nodes, err := futureResult()
//
// You may think of the set of operations to form a small
// Domain Specific Language (DSL), similar in concept to JQuery.
type Walker[T comparable] struct {
	initial   *Node[T]     // initial node of (sub-)tree
	pipe      *pipeline[T] // pipeline of filters to perform work on tree nodes
	promising bool         // client has called Promise()
}

// NewWalker creates a Walker for the initial node of a (sub-)tree.
// The first subsequent call to a node filter function will have this
// initial node as input.
//
// If initial is nil, NewWalker will return a nil-Walker, resulting
// in a NOP-pipeline of operations, resulting in an empty set of nodes
// and an error (ErrEmptyTree).
func NewWalker[T comparable](initial *Node[T]) *Walker[T] {
	if initial == nil {
		return nil
	}
	tracer().Debugf("new tree-walker, initial node = %v", initial)
	return &Walker[T]{initial: initial, pipe: newPipeline[T]()}
}

// appendFilterForTask creates a filter for a task and appends it at the end
// of the pipeline. If processing has not been started yet, it will be started.
func (w *Walker[T]) appendFilterForTask(task workerTask[T], filterdata interface{}, buffered bool) *Walker[T] {
	if w.promising {
		tracer().Errorf(ErrNoMoreFiltersAccepted.Error())
		panic(ErrNoMoreFiltersAccepted)
	}
	first := w.pipe.empty()
	w.pipe.appendFilter(newFilter(task, filterdata, buffered))
	if first {
		var serial uint32
		if w.initial.Rank > 0 {
			serial = 1
		}
		w.pipe.start(w.initial, serial)
	}
	return w
}

// Promise is a future synchronisation point.
// Clients will call the Promise (which is of function type) to receive a
// slice of nodes and a possible error value. Calling the Promise will block
// until all concurrent operations on the tree nodes have finished.
func (w *Walker[T]) Promise() func() ([]*Node[T], error) {
	if w == nil {
		return func() ([]*Node[T], error) {
			return nil, ErrEmptyTree
		}
	}
	w.promising = true
	if w.pipe.empty() { // no operation: the selection is the initial node
		initial := w.initial
		return func() ([]*Node[T], error) {
			return []*Node[T]{initial}, nil
		}
	}
	w.pipe.Lock()
	results := w.pipe.results
	w.pipe.Unlock()
	signal := make(chan struct{})
	var selection []*Node[T]
	go func() {
		defer close(signal)
		selection = waitForCompletion(results, &w.pipe.queuecount)
	}()
	return func() ([]*Node[T], error) {
		<-signal
		return selection, w.pipe.lastError()
	}
}

// ----------------------------------------------------------------------

// Predicate is a function type to match against nodes of a tree.
// test is the node under test, node is the input node of the filter.
type Predicate[T comparable] func(test *Node[T], node *Node[T]) (match *Node[T], err error)

// Whatever is a predicate to match anything (see type Predicate).
func Whatever[T comparable]() Predicate[T] {
	return func(test *Node[T], node *Node[T]) (*Node[T], error) {
		return test, nil
	}
}

// NodeIsLeaf is a predicate to match leafs of a tree.
func NodeIsLeaf[T comparable]() Predicate[T] {
	return func(test *Node[T], node *Node[T]) (*Node[T], error) {
		if test.liveChildCount() == 0 {
			return test, nil
		}
		return nil, nil
	}
}

// Action is a function type to operate on tree nodes.
// Resulting nodes will be pushed to the next pipeline stage, if
// no error occured.
type Action[T comparable] func(n *Node[T], parent *Node[T], position int) (*Node[T], error)

// ----------------------------------------------------------------------

// Parent returns the parent node.
//
// If w is nil, Parent will return nil.
func (w *Walker[T]) Parent() *Walker[T] {
	if w == nil {
		return nil
	}
	return w.appendFilterForTask(parent[T], nil, false)
}

func parent[T comparable](node *Node[T], isBuffered bool, udata userdata, push func(*Node[T], uint32),
	pushBuf func(*Node[T], interface{}, uint32)) error {
	//
	if p := node.Parent(); p != nil {
		push(p, parentSerial(p, node, udata.serial))
	}
	return nil
}

// AncestorWith finds an ancestor matching the given predicate.
// The search does not include the start node.
//
// If w is nil, AncestorWith will return nil.
func (w *Walker[T]) AncestorWith(predicate Predicate[T]) *Walker[T] {
	if w == nil {
		return nil
	}
	if predicate == nil {
		w.pipe.reportError(ErrInvalidFilter)
		return w
	}
	return w.appendFilterForTask(ancestorWith[T], predicate, false)
}

func ancestorWith[T comparable](node *Node[T], isBuffered bool, udata userdata, push func(*Node[T], uint32),
	pushBuf func(*Node[T], interface{}, uint32)) error {
	//
	predicate := udata.filterdata.(Predicate[T])
	serial := udata.serial
	ch := node
	for anc := node.Parent(); anc != nil; anc = anc.Parent() {
		serial = parentSerial(anc, ch, serial)
		matchedNode, err := predicate(anc, node)
		if err != nil {
			return err
		}
		if matchedNode != nil {
			push(matchedNode, serial)
			return nil
		}
		ch = anc
	}
	return nil // no matching ancestor found, not an error
}

// DescendentsWith finds descendents matching a predicate.
// The search does not include the start node.
//
// If w is nil, DescendentsWith will return nil.
func (w *Walker[T]) DescendentsWith(predicate Predicate[T]) *Walker[T] {
	if w == nil {
		return nil
	}
	if predicate == nil {
		w.pipe.reportError(ErrInvalidFilter)
		return w
	}
	return w.appendFilterForTask(descendentsWith[T], predicate, true)
}

func descendentsWith[T comparable](node *Node[T], isBuffered bool, udata userdata, push func(*Node[T], uint32),
	pushBuf func(*Node[T], interface{}, uint32)) error {
	//
	if isBuffered {
		predicate := udata.filterdata.(Predicate[T])
		matchedNode, err := predicate(node, nil)
		if err != nil {
			return err // do not descend further
		}
		if matchedNode != nil {
			push(matchedNode, udata.serial)
		}
	}
	revisitChildrenOf(node, udata.serial, pushBuf)
	return nil
}

// AllDescendents traverses all descendents.
// The traversal does not include the start node.
//
// If w is nil, AllDescendents will return nil.
func (w *Walker[T]) AllDescendents() *Walker[T] {
	return w.DescendentsWith(Whatever[T]())
}

// Filter calls a client-provided function on each node of the selection.
// The user function should return the input node if it is accepted and
// nil otherwise.
//
// If w is nil, Filter will return nil.
func (w *Walker[T]) Filter(f Predicate[T]) *Walker[T] {
	if w == nil {
		return nil
	}
	if f == nil {
		w.pipe.reportError(ErrInvalidFilter)
		return w
	}
	return w.appendFilterForTask(clientFilter[T], f, false)
}

func clientFilter[T comparable](node *Node[T], isBuffered bool, udata userdata, push func(*Node[T], uint32),
	pushBuf func(*Node[T], interface{}, uint32)) error {
	//
	userfunc := udata.filterdata.(Predicate[T])
	n, err := userfunc(node, node)
	if n != nil && err == nil {
		push(n, udata.serial)
	}
	return err
}

// parentAndPosition is node-local data for top-down traversal.
type parentAndPosition[T comparable] struct {
	parent   *Node[T]
	position int
}

// TopDown traverses a tree starting at (and including) the nodes of the
// current selection. The traversal guarantees that parents are always
// processed before their children.
//
// If the action function returns an error for a node,
// descending the branch below this node is aborted.
//
// If w is nil, TopDown will return nil.
func (w *Walker[T]) TopDown(action Action[T]) *Walker[T] {
	if w == nil {
		return nil
	}
	if action == nil {
		w.pipe.reportError(ErrInvalidFilter)
		return w
	}
	return w.appendFilterForTask(topDown[T], action, true)
}

func topDown[T comparable](node *Node[T], isBuffered bool, udata userdata, push func(*Node[T], uint32),
	pushBuf func(*Node[T], interface{}, uint32)) error {
	//
	if !isBuffered { // move incoming nodes over to buffer queue
		var pp parentAndPosition[T]
		if p := node.Parent(); p != nil {
			pp = parentAndPosition[T]{p, p.IndexOfChild(node)}
		}
		pushBuf(node, pp, udata.serial)
		return nil
	}
	action := udata.filterdata.(Action[T])
	pp, _ := udata.nodelocal.(parentAndPosition[T])
	result, err := action(node, pp.parent, pp.position)
	if err != nil {
		return err // do not descend further
	}
	if result != nil {
		push(result, udata.serial)
	}
	revisitChildrenOf(node, udata.serial, pushBuf)
	return nil
}

type bottomUpFilterData[T comparable] struct {
	action       Action[T]
	childrenDict *rankMap[T]
}

// BottomUp traverses a tree starting at the nodes of the current selection,
// up to the root of the tree. The selection is expected to consist of leafs;
// inner nodes arriving from a previous stage are processed as soon as all
// of their children have been processed, and not before.
//
// If the action function returns an error for a node,
// the parent is processed regardless.
//
// If w is nil, BottomUp will return nil.
func (w *Walker[T]) BottomUp(action Action[T]) *Walker[T] {
	if w == nil {
		return nil
	}
	if action == nil {
		w.pipe.reportError(ErrInvalidFilter)
		return w
	}
	filterdata := &bottomUpFilterData[T]{
		action:       action,
		childrenDict: newRankMap[T](),
	}
	return w.appendFilterForTask(bottomUp[T], filterdata, true)
}

func bottomUp[T comparable](node *Node[T], isBuffered bool, udata userdata, push func(*Node[T], uint32),
	pushBuf func(*Node[T], interface{}, uint32)) error {
	//
	if !isBuffered {
		if node.liveChildCount() == 0 {
			pushBuf(node, nil, udata.serial) // move start nodes over to buffer queue
		}
		return nil
	}
	filterdata := udata.filterdata.(*bottomUpFilterData[T])
	parent := node.Parent()
	position := 0
	if parent != nil {
		position = parent.IndexOfChild(node)
	}
	resultNode, err := filterdata.action(node, parent, position)
	if err == nil && resultNode != nil {
		push(resultNode, udata.serial)
	}
	if parent != nil {
		// the last child to finish hands over the parent
		if done, _ := filterdata.childrenDict.Inc(parent); int(done) == parent.liveChildCount() {
			pushBuf(parent, nil, parentSerial(parent, node, udata.serial))
		}
	}
	return err
}

// CalcRank is an action for bottom-up processing. It calculates the 'rank'-member
// for each node, meaning: the number of nodes in the subtree of a node.
// The root node will hold the number of nodes in the entire tree.
// Leaf nodes will have a rank of 1.
func CalcRank[T comparable](n *Node[T], parent *Node[T], position int) (*Node[T], error) {
	r := uint32(1)
	for _, ch := range n.Children(true) {
		r += ch.Rank
	}
	n.Rank = r
	return n, nil
}

// --- Serials ---------------------------------------------------------------

// If ranks are known, serials are positions in depth-first pre-order.
// A serial of 0 denotes an unknown position.

func revisitChildrenOf[T comparable](node *Node[T], serial uint32, pushBuf func(*Node[T], interface{}, uint32)) {
	next := serial + 1
	for position, ch := range node.Children(false) {
		if ch == nil {
			continue
		}
		s := uint32(0)
		if serial > 0 && ch.Rank > 0 {
			s = next
			next += ch.Rank
		}
		pushBuf(ch, parentAndPosition[T]{node, position}, s)
	}
}

// parentSerial derives the serial of a parent from the serial of one of its children.
func parentSerial[T comparable](parent, child *Node[T], childSerial uint32) uint32 {
	if childSerial == 0 {
		return 0
	}
	s := childSerial - 1
	for _, ch := range parent.Children(true) {
		if ch == child {
			return s
		}
		if ch.Rank == 0 || ch.Rank > s {
			return 0
		}
		s -= ch.Rank
	}
	return 0
}
