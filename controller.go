package asynclist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/asynclist/coord"
	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/maybe"
	"github.com/npillmayer/asynclist/measure"
	"github.com/npillmayer/asynclist/rangectl"
	"github.com/npillmayer/asynclist/section"
	"github.com/npillmayer/asynclist/worker"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// record holds what the controller knows about an item identity.
type record struct {
	id         section.ItemID
	kind       string // supplementary kind, empty for items
	elem       measure.Element
	constraint layout.SizeRange
	node       *layout.Node
	content    any
	hasContent bool
	err        error
	state      ItemState
	job        *worker.Job[section.ItemID] // job in flight, if any
	relayout   bool                        // measure again after job
}

// realized is the outcome of a worker job.
type realized struct {
	node        *layout.Node
	content     any
	withContent bool
}

// generation is a staged batch update waiting for its commit.
type generation struct {
	pending     *section.Pending
	outstanding map[section.ItemID]struct{} // new items with unresolved layout
	jobs        []*worker.Job[section.ItemID]
	completion  func(bool)
}

type itemJob = worker.Job[section.ItemID]

// Controller coordinates identities, measurement and commits for a
// collection. Create it with New and run it with Start.
type Controller struct {
	opts    Options
	ds      DataSource
	reg     *section.Registry
	loop    *coord.Loop
	pool    *worker.Pool[section.ItemID]
	sched   *rangectl.Scheduler
	fetcher *rangectl.BatchFetcher

	mx      sync.RWMutex // guards records, sets and visible
	records map[section.ItemID]*record
	sets    rangectl.RangeSets
	visible []section.ItemID

	// owned by the coordination loop
	view      rangectl.Viewport
	delegate  Delegate
	inspector rangectl.Inspector
	gens      []*generation
	displayed map[section.ItemID]section.IndexPath
	waiters   []chan struct{}

	started   atomic.Bool
	runDone   chan struct{}
	closeOnce sync.Once
}

// New creates a controller for a data source. The controller does not do
// anything before Start is called.
func New(ds DataSource, opts Options) *Controller {
	assertThat(ds != nil, "data source must not be nil")
	c := &Controller{
		opts:      opts,
		ds:        ds,
		reg:       section.NewRegistry(),
		loop:      coord.NewLoop(),
		sched:     rangectl.NewScheduler(opts.tuning(), opts.Directions),
		fetcher:   rangectl.NewBatchFetcher(),
		records:   make(map[section.ItemID]*record),
		view:      rangectl.Viewport{Size: opts.Viewport},
		inspector: rangectl.NewDirectionalInspector(opts.Viewport, opts.Directions),
		displayed: make(map[section.ItemID]section.IndexPath),
		runDone:   make(chan struct{}),
	}
	c.pool = worker.NewPool(worker.Config[section.ItemID]{
		Workers: opts.Workers,
		Notify: func(job *itemJob) {
			c.loop.Post(func(ctx context.Context) {
				c.attach(ctx, job)
			})
		},
	})
	return c
}

// Start runs the coordination loop until ctx is done or Close is called.
// Calling Start more than once has no effect.
func (c *Controller) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.runDone)
		if err := c.loop.Run(ctx); err != nil {
			tracer().Infof("coordination loop ended: %v", err)
		}
	}()
}

// Close stops the controller. Batch updates not yet committed are finished
// with completion(false).
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.loop.Stop()
		g := &errgroup.Group{}
		g.Go(c.pool.Close)
		g.Go(func() error {
			if c.started.Load() {
				<-c.runDone
			}
			return nil
		})
		err = g.Wait()
		for _, gen := range c.gens {
			c.finish(gen, false)
		}
		c.gens = nil
		tracer().Debugf("controller closed")
	})
	return err
}

func (c *Controller) do(ctx context.Context, f func(lctx context.Context) error) error {
	err := c.loop.Do(ctx, f)
	if errors.Is(err, coord.ErrLoopStopped) {
		return ErrClosed
	}
	return err
}

// SetDelegate sets the delegate. d may be nil.
func (c *Controller) SetDelegate(ctx context.Context, d Delegate) error {
	return c.do(ctx, func(lctx context.Context) error {
		c.delegate = d
		rangectl.NotifyDelegateChange(c.inspector, d)
		return nil
	})
}

// SetInspector replaces the constraint inspector. All items are measured
// again with the new constraints.
func (c *Controller) SetInspector(ctx context.Context, insp rangectl.Inspector) error {
	assertThat(insp != nil, "inspector must not be nil")
	return c.do(ctx, func(lctx context.Context) error {
		c.inspector = insp
		c.sched.SetAxis(insp.ScrollableDirections())
		rangectl.NotifyDataSourceChange(insp, c.ds)
		rangectl.NotifyDelegateChange(insp, c.delegate)
		c.relayout(lctx)
		return nil
	})
}

// --- Read paths ------------------------------------------------------------

// Snapshot returns the committed snapshot.
func (c *Controller) Snapshot() *section.Snapshot {
	return c.reg.Committed()
}

// ResolveIndexPath returns the committed index path of an item. Items no
// longer present resolve to Nothing.
func (c *Controller) ResolveIndexPath(id section.ItemID) maybe.Maybe[section.IndexPath] {
	return c.reg.ResolveIndexPath(id)
}

// ItemIdentityAt returns the identity of the committed item at p.
func (c *Controller) ItemIdentityAt(p section.IndexPath) maybe.Maybe[section.ItemID] {
	return c.reg.ItemAt(p)
}

// CurrentLayout returns the layout of a committed item, if it has one.
func (c *Controller) CurrentLayout(id section.ItemID) maybe.Maybe[*layout.Node] {
	if !c.reg.Committed().Contains(id) {
		return maybe.Nothing[*layout.Node]()
	}
	c.mx.RLock()
	defer c.mx.RUnlock()
	if rec, ok := c.records[id]; ok && rec.node != nil {
		return maybe.Just(rec.node)
	}
	return maybe.Nothing[*layout.Node]()
}

// Content returns the realized content of a committed item, if any.
func (c *Controller) Content(id section.ItemID) maybe.Maybe[any] {
	if !c.reg.Committed().Contains(id) {
		return maybe.Nothing[any]()
	}
	c.mx.RLock()
	defer c.mx.RUnlock()
	if rec, ok := c.records[id]; ok && rec.hasContent {
		return maybe.Just(rec.content)
	}
	return maybe.Nothing[any]()
}

// ItemState returns the layout state of an item.
func (c *Controller) ItemState(id section.ItemID) ItemState {
	c.mx.RLock()
	defer c.mx.RUnlock()
	if rec, ok := c.records[id]; ok {
		return rec.state
	}
	return ItemUnknown
}

// VisibleItems returns the items of the Display range, in order.
func (c *Controller) VisibleItems() []section.ItemID {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return slices.Clone(c.visible)
}

// RangeSets returns the range sets of the last evaluation.
func (c *Controller) RangeSets() rangectl.RangeSets {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return rangectl.RangeSets{
		Display: slices.Clone(c.sets.Display),
		Preload: slices.Clone(c.sets.Preload),
		Idle:    slices.Clone(c.sets.Idle),
	}
}

// BatchDiagnostics reports the state of batch fetching.
func (c *Controller) BatchDiagnostics() rangectl.Diagnostics {
	return c.fetcher.Diagnostics()
}

// --- Staging and commits ---------------------------------------------------

// stage runs a batch update on the loop and enqueues the resulting
// generation.
func (c *Controller) stage(lctx context.Context, updates func(*Edit) error, completion func(bool)) (*generation, error) {
	tx, err := c.reg.Begin()
	if err != nil {
		return nil, err
	}
	if updates != nil {
		if err := updates(&Edit{c: c, tx: tx, ctx: lctx}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	p, err := tx.End()
	if err != nil {
		return nil, err
	}
	gen := &generation{
		pending:     p,
		outstanding: make(map[section.ItemID]struct{}),
		completion:  completion,
	}
	for _, id := range p.Deleted {
		c.drop(id)
	}
	news := c.describe(p)
	ranges := c.rangesOf(p.Snapshot)
	c.mx.Lock()
	for _, rec := range news {
		c.records[rec.id] = rec
		if rec.state == ItemFailed {
			continue
		}
		// Supplementary elements have no range. They are always measured,
		// without content, and never evicted.
		r, isItem := ranges[rec.id]
		if c.opts.DeferOutOfRange && isItem && r == rangectl.Idle {
			rec.state = ItemDeferred
			continue
		}
		prio := worker.Preload
		if r == rangectl.Display {
			prio = worker.Display
		}
		gen.outstanding[rec.id] = struct{}{}
		gen.jobs = append(gen.jobs, c.submit(rec, prio, r != rangectl.Idle))
	}
	c.mx.Unlock()
	tracer().P("generation", p.Generation).Debugf("staged: %d new, %d dropped, %d to measure",
		len(p.Inserted), len(p.Deleted), len(gen.outstanding))
	c.gens = append(c.gens, gen)
	c.tryCommit(lctx)
	return gen, nil
}

// describe asks the data source and the inspector for the elements and
// constraints of the new identities of a generation.
func (c *Controller) describe(p *section.Pending) []*record {
	recs := make([]*record, 0, len(p.Inserted))
	for _, id := range p.Inserted {
		rec := &record{id: id, state: ItemPending}
		if at, ok := p.Snapshot.IndexPathOf(id); ok {
			rec.elem = c.ds.ElementFor(at)
			rec.constraint = c.inspector.ConstraintForItem(at)
		} else if sp, ok := p.Snapshot.SupplementaryPathOf(id); ok {
			rec.kind = sp.Kind
			rec.elem = c.ds.SupplementaryElementFor(sp.Kind, sp.IndexPath)
			rec.constraint = rangectl.SupplementaryConstraint(c.inspector, sp.Kind, sp.IndexPath)
		}
		if rec.elem == nil {
			rec.state = ItemFailed
			rec.err = fmt.Errorf("%w: item %d", ErrMissingElement, id)
			tracer().Errorf("%v", rec.err)
		}
		recs = append(recs, rec)
	}
	return recs
}

// submit starts measuring an item. c.mx must be held.
func (c *Controller) submit(rec *record, prio worker.Priority, withContent bool) *itemJob {
	id, elem, constraint, ds := rec.id, rec.elem, rec.constraint, c.ds
	job, _ := c.pool.Submit(id, prio, func(ctx context.Context) (any, error) {
		node, err := measure.Measure(ctx, elem, constraint)
		if err != nil {
			return nil, err
		}
		r := &realized{node: node}
		if withContent {
			content, err := ds.ContentFor(ctx, id, node)
			if err != nil {
				tracer().P("item", id).Errorf("content not realized: %v", err)
			} else {
				r.content, r.withContent = content, true
			}
		}
		return r, nil
	})
	rec.job = job
	if rec.node == nil {
		rec.state = ItemPending
	}
	return job
}

// submitContent starts realizing the content of a measured item. c.mx must
// be held.
func (c *Controller) submitContent(rec *record, prio worker.Priority) {
	id, node, ds := rec.id, rec.node, c.ds
	rec.job, _ = c.pool.Submit(id, prio, func(ctx context.Context) (any, error) {
		content, err := ds.ContentFor(ctx, id, node)
		if err != nil {
			tracer().P("item", id).Errorf("content not realized: %v", err)
			return &realized{}, nil
		}
		return &realized{content: content, withContent: true}, nil
	})
}

// drop cancels the computation of an item which left the editing state.
// Its record stays until no generation references it any more.
func (c *Controller) drop(id section.ItemID) {
	c.mx.Lock()
	defer c.mx.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return
	}
	if rec.job != nil {
		rec.job.Cancel()
		rec.job = nil
		if rec.node == nil {
			rec.state = ItemDeferred
		}
	}
	rec.relayout = false
	c.resolved(id)
}

// resolved removes an item from the outstanding sets of all generations.
func (c *Controller) resolved(id section.ItemID) {
	for _, gen := range c.gens {
		delete(gen.outstanding, id)
	}
}

// attach applies the result of a finished job and commits what has become
// ready.
func (c *Controller) attach(lctx context.Context, job *itemJob) {
	if c.apply(job) {
		c.tryCommit(lctx)
	}
}

// apply attaches a job's result to its item. Results of jobs which are no
// longer the item's current job are discarded; apply then returns false.
func (c *Controller) apply(job *itemJob) bool {
	r, done := job.Result()
	if !done {
		return false
	}
	id := job.Key()
	c.mx.Lock()
	defer c.mx.Unlock()
	rec, ok := c.records[id]
	if !ok || rec.job != job {
		if !ok || job.IsStale() {
			staleResults.Inc()
			tracer().P("item", id).Debugf("discarded stale result")
		}
		return false
	}
	rec.job = nil
	v, err := r.Unwrap()
	switch class := contract.Classify(err); {
	case job.IsStale() || class == contract.ClassStale || class == contract.ClassCancel:
		staleResults.Inc()
		if rec.node == nil {
			rec.state = ItemDeferred
		}
	case err != nil:
		rec.state, rec.err = ItemFailed, err
		tracer().P("item", id).Errorf("measurement failed: %v", err)
	default:
		res := v.(*realized)
		if res.node != nil {
			rec.node, rec.state, rec.err = res.node, ItemReady, nil
		}
		if res.withContent {
			rec.content, rec.hasContent = res.content, true
		}
	}
	c.resolved(id)
	if rec.relayout && rec.state != ItemFailed {
		rec.relayout = false
		c.submit(rec, worker.Preload, rec.hasContent)
	}
	return true
}

// tryCommit commits generations in FIFO order, as long as the head
// generation has no outstanding layouts.
func (c *Controller) tryCommit(lctx context.Context) {
	committed := false
	for len(c.gens) > 0 && len(c.gens[0].outstanding) == 0 {
		gen := c.gens[0]
		c.gens = c.gens[1:]
		if head, ok := c.reg.Head().Get(); ok {
			assertThat(head.Generation == gen.pending.Generation, "generation %d committed out of order, head is %d",
				gen.pending.Generation, head.Generation)
		}
		delta, ok, err := c.reg.CommitNext()
		if err != nil || !ok {
			tracer().Errorf("commit of generation %d failed: %v", gen.pending.Generation, err)
			c.finish(gen, false)
			continue
		}
		commits.Inc()
		committed = true
		c.collectGarbage()
		tracer().P("generation", delta.To).Debugf("committed %s", delta)
		if c.delegate != nil {
			c.delegate.DidCommit(delta)
		}
		c.finish(gen, true)
	}
	if committed {
		c.sched.Invalidate()
		c.sched.ShouldReevaluate(c.view)
		c.reevaluate(lctx)
	}
	if len(c.gens) == 0 {
		for _, w := range c.waiters {
			close(w)
		}
		c.waiters = nil
	}
}

func (c *Controller) finish(gen *generation, committed bool) {
	if gen.completion != nil {
		gen.completion(committed)
	}
}

// collectGarbage removes the records of identities no generation refers to.
func (c *Controller) collectGarbage() {
	live := c.reg.LiveItems()
	c.mx.Lock()
	defer c.mx.Unlock()
	for id, rec := range c.records {
		if _, ok := live[id]; !ok {
			if rec.job != nil {
				rec.job.Cancel()
			}
			delete(c.records, id)
		}
	}
}

// WaitUntilAllUpdatesAreCommitted blocks until every batch update staged so
// far has been committed.
func (c *Controller) WaitUntilAllUpdatesAreCommitted(ctx context.Context) error {
	var ch chan struct{}
	err := c.do(ctx, func(context.Context) error {
		if len(c.gens) > 0 {
			ch = make(chan struct{})
			c.waiters = append(c.waiters, ch)
		}
		return nil
	})
	if err != nil || ch == nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.loop.Done():
		return ErrClosed
	}
}

// --- Ranges ----------------------------------------------------------------

// orderOf lists the items of a snapshot with their last known extents.
func (c *Controller) orderOf(snap *section.Snapshot) []rangectl.ItemRef {
	axis := c.inspector.ScrollableDirections()
	order := make([]rangectl.ItemRef, 0, snap.ItemCountTotal())
	c.mx.RLock()
	defer c.mx.RUnlock()
	snap.EachItem(func(p section.IndexPath, id section.ItemID) bool {
		ref := rangectl.ItemRef{Path: p}
		if rec, ok := c.records[id]; ok && rec.node != nil {
			if axis.IsVertical() || !axis.IsHorizontal() {
				ref.Extent = rec.node.Size().H
			} else {
				ref.Extent = rec.node.Size().W
			}
		}
		order = append(order, ref)
		return true
	})
	return order
}

// rangesOf computes the range of every item of a snapshot for the current
// viewport.
func (c *Controller) rangesOf(snap *section.Snapshot) map[section.ItemID]rangectl.Range {
	sets := c.sched.Compute(c.view, c.orderOf(snap))
	ranges := make(map[section.ItemID]rangectl.Range, snap.ItemCountTotal())
	mark := func(ps []section.IndexPath, r rangectl.Range) {
		for _, p := range ps {
			if id, ok := snap.ItemAt(p); ok {
				ranges[id] = r
			}
		}
	}
	mark(sets.Display, rangectl.Display)
	mark(sets.Preload, rangectl.Preload)
	mark(sets.Idle, rangectl.Idle)
	return ranges
}

// SetViewport reports the visible window. Range sets are re-evaluated if
// the window changed enough.
func (c *Controller) SetViewport(ctx context.Context, view rangectl.Viewport) error {
	return c.do(ctx, func(lctx context.Context) error {
		c.view = view
		if c.sched.ShouldReevaluate(view) {
			c.reevaluate(lctx)
		}
		return nil
	})
}

// Reevaluate re-computes the range sets unconditionally.
func (c *Controller) Reevaluate(ctx context.Context) error {
	return c.do(ctx, func(lctx context.Context) error {
		c.sched.Invalidate()
		c.sched.ShouldReevaluate(c.view)
		c.reevaluate(lctx)
		return nil
	})
}

// reevaluate computes the range sets of the committed snapshot, schedules
// work accordingly and notifies the delegate.
func (c *Controller) reevaluate(lctx context.Context) {
	snap := c.reg.Committed()
	order := c.orderOf(snap)
	sets := c.sched.Compute(c.view, order)
	var forced []*itemJob
	c.mx.Lock()
	for _, p := range sets.Display {
		if rec := c.recordAt(snap, p); rec != nil && rec.state != ItemFailed {
			c.ensure(rec, worker.Display)
			if c.opts.Synchronous && rec.job != nil && rec.node == nil {
				forced = append(forced, rec.job)
			}
		}
	}
	for _, p := range sets.Preload {
		if rec := c.recordAt(snap, p); rec != nil && rec.state != ItemFailed {
			c.ensure(rec, worker.Preload)
		}
	}
	for _, p := range sets.Idle {
		if rec := c.recordAt(snap, p); rec != nil {
			c.evict(rec)
		}
	}
	c.mx.Unlock()
	for _, job := range forced { // Display items have to be there now
		job.Wait(lctx)
		c.apply(job)
	}
	displayed := make(map[section.ItemID]section.IndexPath, len(sets.Display))
	var visible []section.ItemID
	var display []section.IndexPath
	c.mx.Lock()
	for _, p := range sets.Display {
		rec := c.recordAt(snap, p)
		if rec == nil || rec.state == ItemFailed {
			sets.Idle = append(sets.Idle, p)
			continue
		}
		display = append(display, p)
		visible = append(visible, rec.id)
		displayed[rec.id] = p
	}
	slices.SortFunc(sets.Idle, section.IndexPath.Less)
	sets.Display = display
	c.sets, c.visible = sets, visible
	c.mx.Unlock()
	var ended []section.ItemID
	for id := range c.displayed {
		if _, ok := displayed[id]; !ok {
			ended = append(ended, id)
		}
	}
	slices.Sort(ended)
	prev := c.displayed
	c.displayed = displayed
	if c.delegate != nil {
		for _, id := range ended {
			c.delegate.DidEndDisplay(id, c.reg.ResolveIndexPath(id))
		}
		for i, id := range visible {
			if _, ok := prev[id]; !ok {
				c.delegate.WillDisplay(id, display[i])
			}
		}
	}
	c.maybeBatchFetch(order)
}

func (c *Controller) recordAt(snap *section.Snapshot, p section.IndexPath) *record {
	if id, ok := snap.ItemAt(p); ok {
		return c.records[id]
	}
	return nil
}

// ensure schedules whatever an item in range is missing. c.mx must be held.
func (c *Controller) ensure(rec *record, prio worker.Priority) {
	switch {
	case rec.job != nil:
		if prio == worker.Display {
			c.pool.Upgrade(rec.id)
		}
	case rec.node == nil || rec.node.IsDirty():
		c.submit(rec, prio, true)
	case !rec.hasContent:
		c.submitContent(rec, prio)
	}
}

// evict releases the content of an item out of range. If items are
// measured lazily, its preload work is cancelled as well. The last known
// layout is kept. c.mx must be held.
func (c *Controller) evict(rec *record) {
	if c.opts.DeferOutOfRange && rec.job != nil && rec.job.Priority() == worker.Preload {
		rec.job.Cancel()
		rec.job = nil
		rec.relayout = false
		if rec.node == nil {
			rec.state = ItemDeferred
		}
	}
	rec.content, rec.hasContent = nil, false
}

func (c *Controller) maybeBatchFetch(order []rangectl.ItemRef) {
	if c.delegate == nil || c.fetcher.State() == rangectl.BatchFetching {
		return
	}
	if !c.sched.NearTrailingEdge(c.view, order, c.opts.BatchScreens) || !c.delegate.ShouldBatchFetch() {
		return
	}
	if bctx, ok := c.fetcher.Begin(); ok {
		c.delegate.WillBeginBatchFetch(bctx)
	}
}

// --- Helpers ---------------------------------------------------------------

func assertThat(that bool, msg string, msgargs ...interface{}) {
	if !that {
		msg = fmt.Sprintf("asynclist: "+msg, msgargs...)
		panic(msg)
	}
}
