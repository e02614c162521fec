package tree

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/

import (
	"runtime"
	"sort"
	"sync"
)

// Tree operations will be carried out by concurrent worker goroutines.
// As tree operations may be chained, a pipeline of filter stages is
// constructed. Every chained operation is reflected by a filter stage.
// Filters read nodes from an input channel and put processed nodes on
// an output channel.
//
// An overall counter tracks the number of work packages (i.e. nodes) in the
// pipeline. As soon as it drops to zero, all channels are closed and the
// workers terminate.
//
// Errors occuring in filter tasks are collected by the pipeline; the last
// one is reported to the client.

// Minimum and maximum number of concurrent workers for a filter.
const (
	minWorkerCount int = 3
	maxWorkerCount int = 10
)

// Length of the internal buffer queue of a filter. Pushes never block:
// if a queue is full, the package is handed over asynchronously.
const bufferQueueLength int = 64

// workerTask is the signature of the work a filter performs on a node.
//
// node: input tree node
// isBuffered: is the input node from this stage's buffer queue?
// udata: filter data and node-local data
// push: hand a result node to the next stage
// pushBuf: re-queue a node in this stage's buffer queue
type workerTask[T comparable] func(node *Node[T], isBuffered bool, udata userdata,
	push func(*Node[T], uint32), pushBuf func(*Node[T], interface{}, uint32)) error

// nodePackage is the type which is transported in a pipeline.
// 'nodelocal' is local to a stage and dropped when the package moves on.
type nodePackage[T comparable] struct {
	node      *Node[T]
	nodelocal interface{}
	serial    uint32 // pre-order position of the node, if known
}

// userdata is handed to a task: data global to a filter (filterdata) and
// data acompanying a single node (nodelocal & serial).
type userdata struct {
	filterdata interface{}
	nodelocal  interface{}
	serial     uint32
}

// filter is a stage of a pipeline.
type filter[T comparable] struct {
	input      <-chan nodePackage[T] // connected to predecessor
	results    chan nodePackage[T]   // input of the successor
	queue      chan nodePackage[T]   // helper queue, may be nil
	task       workerTask[T]
	filterdata interface{}
	pipe       *pipeline[T]
}

func newFilter[T comparable](task workerTask[T], filterdata interface{}, buffered bool) *filter[T] {
	f := &filter[T]{task: task, filterdata: filterdata}
	if buffered {
		f.queue = make(chan nodePackage[T], bufferQueueLength)
	}
	return f
}

func workerCount() int {
	n := runtime.NumCPU()
	if n > maxWorkerCount {
		n = maxWorkerCount
	} else if n < minWorkerCount {
		n = minWorkerCount
	}
	return n
}

// start connects a filter to its input and launches its workers.
func (f *filter[T]) start(pipe *pipeline[T], input <-chan nodePackage[T]) {
	f.pipe = pipe
	f.input = input
	f.results = make(chan nodePackage[T], 8)
	for i := 0; i < workerCount(); i++ {
		if f.queue == nil {
			go f.worker(i + 1)
		} else {
			go f.workerWithQueue(i + 1)
		}
	}
}

func (f *filter[T]) worker(wno int) {
	for inNode := range f.input {
		udata := userdata{f.filterdata, nil, inNode.serial}
		if err := f.task(inNode.node, false, udata, f.pushResult, nil); err != nil {
			f.pipe.reportError(err)
		}
		tracer().Debugf("filter worker %d finished task for %v | %d", wno, inNode.node, inNode.serial)
		f.pipe.queuecount.Done()
	}
}

func (f *filter[T]) workerWithQueue(wno int) {
	for {
		var pkg nodePackage[T]
		var buffered bool
		select {
		case pkg = <-f.input:
		case pkg = <-f.queue:
			buffered = true
		}
		if pkg.node == nil { // channels closed
			return
		}
		udata := userdata{f.filterdata, pkg.nodelocal, pkg.serial}
		if err := f.task(pkg.node, buffered, udata, f.pushResult, f.pushBuffer); err != nil {
			f.pipe.reportError(err)
		}
		tracer().Debugf("filter worker %d finished buffered task for %v | %d", wno, pkg.node, pkg.serial)
		f.pipe.queuecount.Done()
	}
}

// pushResult puts a node on the results channel of a filter stage (non-blocking).
func (f *filter[T]) pushResult(node *Node[T], serial uint32) {
	f.pipe.queuecount.Add(1)
	pkg := nodePackage[T]{node: node, serial: serial}
	select {
	case f.results <- pkg:
	default:
		go func() { f.results <- pkg }()
	}
}

// pushBuffer puts a node on the buffer queue of a filter (non-blocking).
func (f *filter[T]) pushBuffer(node *Node[T], nodelocal interface{}, serial uint32) {
	f.pipe.queuecount.Add(1)
	pkg := nodePackage[T]{node: node, nodelocal: nodelocal, serial: serial}
	select {
	case f.queue <- pkg:
	default:
		go func() { f.queue <- pkg }()
	}
}

// --- Pipeline --------------------------------------------------------------

// pipeline is a chain of filters to perform tasks on nodes.
type pipeline[T comparable] struct {
	sync.Mutex
	queuecount sync.WaitGroup      // overall count of work packages
	filters    []*filter[T]        // chain of stages
	input      chan nodePackage[T] // initial workload
	results    chan nodePackage[T] // output of the last stage
	running    bool
	done       bool
	lasterr    error
}

func newPipeline[T comparable]() *pipeline[T] {
	pipe := &pipeline[T]{}
	pipe.input = make(chan nodePackage[T], 4)
	pipe.results = pipe.input // short-circuit until filters are appended
	return pipe
}

func (pipe *pipeline[T]) empty() bool {
	pipe.Lock()
	defer pipe.Unlock()
	return len(pipe.filters) == 0
}

func (pipe *pipeline[T]) reportError(err error) {
	pipe.Lock()
	defer pipe.Unlock()
	pipe.lasterr = err
}

func (pipe *pipeline[T]) lastError() error {
	pipe.Lock()
	defer pipe.Unlock()
	return pipe.lasterr
}

// appendFilter appends a filter as the last stage of the pipeline.
// If the pipeline already ran dry, the filter will not see any input.
func (pipe *pipeline[T]) appendFilter(f *filter[T]) {
	pipe.Lock()
	defer pipe.Unlock()
	if pipe.done {
		f.pipe = pipe
		f.results = make(chan nodePackage[T])
		close(f.results)
		pipe.results = f.results
		return
	}
	f.start(pipe, pipe.results)
	pipe.filters = append(pipe.filters, f)
	pipe.results = f.results
}

// start puts the initial node on the input channel and starts a watchdog,
// which closes all channels as soon as no more work packages are in the
// pipeline.
func (pipe *pipeline[T]) start(initial *Node[T], serial uint32) {
	pipe.Lock()
	defer pipe.Unlock()
	if pipe.running {
		return
	}
	pipe.running = true
	pipe.queuecount.Add(1)
	pipe.input <- nodePackage[T]{node: initial, serial: serial}
	go func() {
		pipe.queuecount.Wait()
		pipe.Lock()
		defer pipe.Unlock()
		close(pipe.input)
		for _, f := range pipe.filters {
			close(f.results)
			if f.queue != nil {
				close(f.queue)
			}
		}
		pipe.done = true
		pipe.running = false
		tracer().Debugf("tree pipeline ran dry")
	}()
}

// waitForCompletion collects the results of the last stage of a pipeline
// into a slice of unique nodes. Results are sorted by serial if every result
// carries one.
func waitForCompletion[T comparable](results <-chan nodePackage[T], counter *sync.WaitGroup) []*Node[T] {
	var selection []*Node[T]
	var serials []uint32
	seen := make(map[*Node[T]]int)
	sortable := true
	for pkg := range results {
		if i, ok := seen[pkg.node]; ok {
			serials[i] = pkg.serial
		} else {
			seen[pkg.node] = len(selection)
			selection = append(selection, pkg.node)
			serials = append(serials, pkg.serial)
		}
		sortable = sortable && pkg.serial > 0
		counter.Done()
	}
	if sortable && len(selection) > 1 {
		sort.Sort(resultSlices[T]{selection, serials})
	}
	return selection
}

// a helper struct for ordering the resulting nodes and their serials
type resultSlices[T comparable] struct {
	nodes   []*Node[T]
	serials []uint32
}

func (rs resultSlices[T]) Len() int           { return len(rs.nodes) }
func (rs resultSlices[T]) Less(i, j int) bool { return rs.serials[i] < rs.serials[j] }
func (rs resultSlices[T]) Swap(i, j int) {
	rs.nodes[i], rs.nodes[j] = rs.nodes[j], rs.nodes[i]
	rs.serials[i], rs.serials[j] = rs.serials[j], rs.serials[i]
}
