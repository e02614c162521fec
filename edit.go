package asynclist

import (
	"context"

	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/rangectl"
	"github.com/npillmayer/asynclist/section"
	"github.com/npillmayer/asynclist/worker"
	"golang.org/x/sync/errgroup"
)

// Edit stages the changes of a batch update. Index paths are interpreted
// against the editing state at the time of each call, i.e. after all
// previous calls of the same batch.
//
// Items of inserted or reloaded sections are created according to the
// counts the data source reports for the section's new index.
type Edit struct {
	c   *Controller
	tx  *section.Transaction
	ctx context.Context
}

// Context returns the context of the coordination loop the edit is staged
// on. Controller operations called with this context from within the
// update run directly instead of being queued.
func (e *Edit) Context() context.Context {
	return e.ctx
}

// Editing returns the editing snapshot, including the changes staged so far.
func (e *Edit) Editing() *section.Snapshot {
	return e.c.reg.Editing()
}

// InsertSections inserts len(infos) sections at position at, together with
// their items and supplementary elements.
func (e *Edit) InsertSections(at int, infos ...section.SectionInfo) error {
	if _, err := e.tx.InsertSections(at, infos...); err != nil {
		return err
	}
	for i := range infos {
		if err := e.populate(at + i); err != nil {
			return err
		}
	}
	return nil
}

// populate creates the items and supplementary elements of an empty
// section.
func (e *Edit) populate(sect int) error {
	if n := e.c.ds.NumberOfItems(sect); n > 0 {
		if _, err := e.tx.InsertItems(sect, 0, n); err != nil {
			return err
		}
	}
	return e.countSupplementaries(sect)
}

func (e *Edit) countSupplementaries(sect int) error {
	for _, kind := range e.c.opts.SupplementaryKinds {
		if n := rangectl.SupplementaryCount(e.c.inspector, kind, sect); n > 0 {
			if _, err := e.tx.SetSupplementary(sect, kind, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteSections deletes sections with all their items.
func (e *Edit) DeleteSections(idx ...int) error {
	return e.tx.DeleteSections(idx...)
}

// MoveSection moves a section. The section keeps its identity.
func (e *Edit) MoveSection(from, to int) error {
	return e.tx.MoveSection(from, to)
}

// ReloadSections replaces the items of sections by new identities, with
// item counts as reported by the data source.
func (e *Edit) ReloadSections(idx ...int) error {
	if _, err := e.tx.ReloadSections(idx...); err != nil {
		return err
	}
	for _, sect := range idx {
		cur, want := e.Editing().ItemCount(sect), e.c.ds.NumberOfItems(sect)
		if want > cur {
			if _, err := e.tx.InsertItems(sect, cur, want-cur); err != nil {
				return err
			}
		} else if want < cur {
			surplus := make([]section.IndexPath, 0, cur-want)
			for i := want; i < cur; i++ {
				surplus = append(surplus, section.IndexPath{Section: sect, Item: i})
			}
			if err := e.tx.DeleteItems(surplus...); err != nil {
				return err
			}
		}
		if err := e.countSupplementaries(sect); err != nil {
			return err
		}
	}
	return nil
}

// InsertItems inserts new items. Paths denote the positions of the items
// after the insertion.
func (e *Edit) InsertItems(paths ...section.IndexPath) error {
	_, err := e.tx.InsertItemsAt(paths...)
	return err
}

// DeleteItems deletes items.
func (e *Edit) DeleteItems(paths ...section.IndexPath) error {
	return e.tx.DeleteItems(paths...)
}

// MoveItem moves an item. The item keeps its identity.
func (e *Edit) MoveItem(from, to section.IndexPath) error {
	return e.tx.MoveItem(from, to)
}

// ReloadItems replaces items by new identities.
func (e *Edit) ReloadItems(paths ...section.IndexPath) error {
	_, err := e.tx.ReloadItems(paths...)
	return err
}

// SetSupplementary replaces the supplementary elements of a kind in a
// section by n new ones.
func (e *Edit) SetSupplementary(sect int, kind string, n int) error {
	_, err := e.tx.SetSupplementary(sect, kind, n)
	return err
}

// reloadAll replaces all sections by the sections of the data source.
func (e *Edit) reloadAll() error {
	if n := e.Editing().SectionCount(); n > 0 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		if err := e.tx.DeleteSections(idx...); err != nil {
			return err
		}
	}
	if n := e.c.ds.NumberOfSections(); n > 0 {
		return e.InsertSections(0, make([]section.SectionInfo, n)...)
	}
	return nil
}

// --- Batch updates ---------------------------------------------------------

// PerformBatchUpdates stages the changes made by updates as one generation.
// If updates returns an error, nothing is staged. Otherwise the new items
// are measured and the generation is committed after all generations staged
// before it, as soon as the layouts of its new items are resolved.
// completion, if given, is called on the coordination context with true
// after the commit, or with false if the controller is closed before.
//
// Opening a batch update while another one is being staged fails with
// section.ErrTransactionAlreadyOpen.
func (c *Controller) PerformBatchUpdates(ctx context.Context, updates func(*Edit) error, completion func(finished bool)) error {
	return c.do(ctx, func(lctx context.Context) error {
		_, err := c.stage(lctx, updates, completion)
		return err
	})
}

// InsertSections is a batch update inserting sections.
func (c *Controller) InsertSections(ctx context.Context, at int, infos ...section.SectionInfo) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.InsertSections(at, infos...)
	}, nil)
}

// DeleteSections is a batch update deleting sections.
func (c *Controller) DeleteSections(ctx context.Context, idx ...int) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.DeleteSections(idx...)
	}, nil)
}

// ReloadSections is a batch update reloading sections.
func (c *Controller) ReloadSections(ctx context.Context, idx ...int) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.ReloadSections(idx...)
	}, nil)
}

// MoveSection is a batch update moving a section.
func (c *Controller) MoveSection(ctx context.Context, from, to int) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.MoveSection(from, to)
	}, nil)
}

// InsertItems is a batch update inserting items.
func (c *Controller) InsertItems(ctx context.Context, paths ...section.IndexPath) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.InsertItems(paths...)
	}, nil)
}

// DeleteItems is a batch update deleting items.
func (c *Controller) DeleteItems(ctx context.Context, paths ...section.IndexPath) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.DeleteItems(paths...)
	}, nil)
}

// ReloadItems is a batch update reloading items.
func (c *Controller) ReloadItems(ctx context.Context, paths ...section.IndexPath) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.ReloadItems(paths...)
	}, nil)
}

// MoveItem is a batch update moving an item.
func (c *Controller) MoveItem(ctx context.Context, from, to section.IndexPath) error {
	return c.PerformBatchUpdates(ctx, func(e *Edit) error {
		return e.MoveItem(from, to)
	}, nil)
}

// ReloadData replaces the whole collection by the current content of the
// data source and waits until it is committed.
func (c *Controller) ReloadData(ctx context.Context) error {
	var jobs []*itemJob
	err := c.do(ctx, func(lctx context.Context) error {
		gen, err := c.stage(lctx, func(e *Edit) error {
			return e.reloadAll()
		}, nil)
		if gen != nil {
			jobs = gen.jobs
		}
		return err
	})
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			job.Wait(gctx) // failed measurements are not an error of the reload
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return c.WaitUntilAllUpdatesAreCommitted(ctx)
}

// RelayoutItems measures all items again with constraints freshly queried
// from the inspector. Identities do not change. Current layouts are marked
// dirty until they are replaced.
func (c *Controller) RelayoutItems(ctx context.Context) error {
	return c.do(ctx, func(lctx context.Context) error {
		c.relayout(lctx)
		return nil
	})
}

type constrained struct {
	id         section.ItemID
	constraint layout.SizeRange
}

func (c *Controller) relayout(lctx context.Context) {
	snap := c.reg.Committed()
	var targets []constrained
	snap.EachItem(func(p section.IndexPath, id section.ItemID) bool {
		targets = append(targets, constrained{id, c.inspector.ConstraintForItem(p)})
		return true
	})
	for i, sect := range snap.Sections() {
		for _, kind := range snap.Kinds() {
			sect.Supplementary[kind].Each(func(j int, id section.ItemID) bool {
				at := section.IndexPath{Section: i, Item: j}
				targets = append(targets, constrained{id, rangectl.SupplementaryConstraint(c.inspector, kind, at)})
				return true
			})
		}
	}
	c.mx.Lock()
	for _, t := range targets {
		rec, ok := c.records[t.id]
		if !ok || rec.elem == nil {
			continue
		}
		rec.constraint = t.constraint
		if rec.node != nil {
			rec.node.MarkDirty()
		}
		if rec.state == ItemFailed {
			rec.state, rec.err = ItemDeferred, nil
		}
		switch {
		case rec.job != nil:
			rec.relayout = true
		case !c.opts.DeferOutOfRange:
			c.submit(rec, worker.Preload, rec.hasContent)
		}
	}
	c.mx.Unlock()
	tracer().Debugf("relayout of %d elements", len(targets))
	c.sched.Invalidate()
	c.sched.ShouldReevaluate(c.view)
	c.reevaluate(lctx)
}
