package section

import (
	"fmt"

	"github.com/npillmayer/asynclist/persistent/vector"
	"golang.org/x/exp/slices"
)

// Transaction is an open edit transaction. Staging calls modify the editing
// snapshot only. Index paths and section indices are interpreted against
// the editing snapshot at the time of each call.
//
// A transaction is finished by either End or Rollback.
type Transaction struct {
	reg    *Registry
	base   *Snapshot // editing snapshot at begin
	closed bool
}

type sections = vector.Vector[*Section]

// apply derives a new editing snapshot from the current one.
func (t *Transaction) apply(f func(secs sections) (sections, error)) error {
	r := t.reg
	r.mx.Lock()
	defer r.mx.Unlock()
	if t.closed || r.open != t {
		return ErrNoOpenTransaction
	}
	secs, err := f(r.editing.sections)
	if err != nil {
		return err
	}
	r.editing = newSnapshot(r.generation+1, secs)
	return nil
}

// InsertSections inserts empty sections at position at and returns their
// new identities.
func (t *Transaction) InsertSections(at int, infos ...SectionInfo) ([]SectionID, error) {
	var ids []SectionID
	err := t.apply(func(secs sections) (sections, error) {
		if at < 0 || at > secs.Len() {
			return secs, fmt.Errorf("%w: insert section at %d of %d", ErrIndexOutOfRange, at, secs.Len())
		}
		news := make([]*Section, len(infos))
		for i, info := range infos {
			news[i] = &Section{ID: t.reg.newSectionID(), DebugName: info.DebugName}
			ids = append(ids, news[i].ID)
		}
		return secs.Insert(at, news...), nil
	})
	return ids, err
}

// DeleteSections deletes the sections at the given positions, together
// with all of their items.
func (t *Transaction) DeleteSections(idx ...int) error {
	return t.apply(func(secs sections) (sections, error) {
		positions, err := validSections(idx, secs.Len())
		if err != nil {
			return secs, err
		}
		for k := len(positions) - 1; k >= 0; k-- {
			secs = secs.Delete(positions[k], 1)
		}
		return secs, nil
	})
}

// MoveSection moves the section at position from to position to. The section
// keeps its identity and its items.
func (t *Transaction) MoveSection(from, to int) error {
	return t.apply(func(secs sections) (sections, error) {
		if from < 0 || from >= secs.Len() || to < 0 || to >= secs.Len() {
			return secs, fmt.Errorf("%w: move section %d to %d of %d", ErrIndexOutOfRange, from, to, secs.Len())
		}
		s := secs.Get(from)
		return secs.Delete(from, 1).Insert(to, s), nil
	})
}

// ReloadSections replaces the identities of all items and supplementary
// elements of the given sections. It returns the new item identities.
func (t *Transaction) ReloadSections(idx ...int) ([]ItemID, error) {
	var ids []ItemID
	err := t.apply(func(secs sections) (sections, error) {
		positions, err := validSections(idx, secs.Len())
		if err != nil {
			return secs, err
		}
		for _, i := range positions {
			sect := secs.Get(i)
			fresh := t.reg.newItemIDs(sect.Items.Len())
			ids = append(ids, fresh...)
			reloaded := sect.withItems(vector.From(fresh))
			for _, kind := range sortedKinds(sect.Supplementary) {
				n := sect.Supplementary[kind].Len()
				reloaded = reloaded.withSupplementary(kind, vector.From(t.reg.newItemIDs(n)))
			}
			secs = secs.Set(i, reloaded)
		}
		return secs, nil
	})
	return ids, err
}

// InsertItems inserts n new items into a section at position at and returns
// their identities.
func (t *Transaction) InsertItems(section, at, n int) ([]ItemID, error) {
	var ids []ItemID
	err := t.apply(func(secs sections) (sections, error) {
		if section < 0 || section >= secs.Len() {
			return secs, fmt.Errorf("%w: section %d of %d", ErrIndexOutOfRange, section, secs.Len())
		}
		sect := secs.Get(section)
		if at < 0 || at > sect.Items.Len() || n < 0 {
			return secs, fmt.Errorf("%w: insert %d items at %d of %d", ErrIndexOutOfRange, n, at, sect.Items.Len())
		}
		ids = t.reg.newItemIDs(n)
		return secs.Set(section, sect.withItems(sect.Items.Insert(at, ids...))), nil
	})
	return ids, err
}

// InsertItemsAt inserts one new item at each of the given index paths. Paths
// denote positions after the insertion and are applied in ascending order.
// The identities returned correspond to paths.
func (t *Transaction) InsertItemsAt(paths ...IndexPath) ([]ItemID, error) {
	ids := make([]ItemID, len(paths))
	order := make([]int, len(paths))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) bool { return paths[a].Less(paths[b]) })
	err := t.apply(func(secs sections) (sections, error) {
		for _, k := range order {
			p := paths[k]
			if p.Section < 0 || p.Section >= secs.Len() {
				return secs, fmt.Errorf("%w: insert item at %v", ErrIndexOutOfRange, p)
			}
			sect := secs.Get(p.Section)
			if p.Item < 0 || p.Item > sect.Items.Len() {
				return secs, fmt.Errorf("%w: insert item at %v", ErrIndexOutOfRange, p)
			}
			ids[k] = t.reg.newItemIDs(1)[0]
			secs = secs.Set(p.Section, sect.withItems(sect.Items.Insert(p.Item, ids[k])))
		}
		return secs, nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteItems deletes the items at the given index paths.
func (t *Transaction) DeleteItems(paths ...IndexPath) error {
	return t.apply(func(secs sections) (sections, error) {
		ps, err := validPaths(secs, paths)
		if err != nil {
			return secs, err
		}
		for i := len(ps) - 1; i >= 0; i-- {
			p := ps[i]
			sect := secs.Get(p.Section)
			secs = secs.Set(p.Section, sect.withItems(sect.Items.Delete(p.Item, 1)))
		}
		return secs, nil
	})
}

// MoveItem moves an item, keeping its identity. to denotes the position
// after the item has been removed from from.
func (t *Transaction) MoveItem(from, to IndexPath) error {
	return t.apply(func(secs sections) (sections, error) {
		if _, err := validPaths(secs, []IndexPath{from}); err != nil {
			return secs, err
		}
		src := secs.Get(from.Section)
		id := src.Items.Get(from.Item)
		secs = secs.Set(from.Section, src.withItems(src.Items.Delete(from.Item, 1)))
		if to.Section < 0 || to.Section >= secs.Len() {
			return secs, fmt.Errorf("%w: move item to %v", ErrIndexOutOfRange, to)
		}
		dest := secs.Get(to.Section)
		if to.Item < 0 || to.Item > dest.Items.Len() {
			return secs, fmt.Errorf("%w: move item to %v", ErrIndexOutOfRange, to)
		}
		return secs.Set(to.Section, dest.withItems(dest.Items.Insert(to.Item, id))), nil
	})
}

// ReloadItems replaces the identities of the items at the given index paths
// and returns the new identities, corresponding to paths. A path given more
// than once is reloaded once.
func (t *Transaction) ReloadItems(paths ...IndexPath) ([]ItemID, error) {
	ids := make([]ItemID, len(paths))
	err := t.apply(func(secs sections) (sections, error) {
		unique, err := validPaths(secs, paths)
		if err != nil {
			return secs, err
		}
		fresh := t.reg.newItemIDs(len(unique))
		reloaded := make(map[IndexPath]ItemID, len(unique))
		for k, p := range unique {
			sect := secs.Get(p.Section)
			reloaded[p] = fresh[k]
			secs = secs.Set(p.Section, sect.withItems(sect.Items.Set(p.Item, fresh[k])))
		}
		for k, p := range paths {
			ids[k] = reloaded[p]
		}
		return secs, nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SetSupplementary replaces the supplementary elements of a kind in a
// section by n new elements and returns their identities.
func (t *Transaction) SetSupplementary(section int, kind string, n int) ([]ItemID, error) {
	var ids []ItemID
	err := t.apply(func(secs sections) (sections, error) {
		if section < 0 || section >= secs.Len() || n < 0 {
			return secs, fmt.Errorf("%w: supplementary %q for section %d", ErrIndexOutOfRange, kind, section)
		}
		ids = t.reg.newItemIDs(n)
		return secs.Set(section, secs.Get(section).withSupplementary(kind, vector.From(ids))), nil
	})
	return ids, err
}

// End closes the transaction. The editing snapshot is frozen into a new
// generation and queued for commit.
func (t *Transaction) End() (*Pending, error) {
	r := t.reg
	r.mx.Lock()
	defer r.mx.Unlock()
	if t.closed || r.open != t {
		return nil, ErrNoOpenTransaction
	}
	r.generation++
	snap := newSnapshot(r.generation, r.editing.sections)
	p := &Pending{Generation: r.generation, Snapshot: snap}
	p.Inserted, p.Deleted = identityChanges(t.base, snap)
	r.editing = snap
	r.pending = append(r.pending, p)
	r.open = nil
	t.closed = true
	tracer().P("generation", p.Generation).Debugf("closed edit transaction: %d inserted, %d deleted",
		len(p.Inserted), len(p.Deleted))
	return p, nil
}

// Rollback discards all changes staged by the transaction. Calling Rollback
// on a closed transaction does nothing.
func (t *Transaction) Rollback() {
	r := t.reg
	r.mx.Lock()
	defer r.mx.Unlock()
	if t.closed || r.open != t {
		return
	}
	r.editing = t.base
	r.open = nil
	t.closed = true
	tracer().Debugf("edit transaction rolled back")
}

// --- Helpers ---------------------------------------------------------------

// validSections validates section positions and returns them de-duplicated,
// in ascending order.
func validSections(idx []int, n int) ([]int, error) {
	ps := make([]int, 0, len(idx))
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: section %d of %d", ErrIndexOutOfRange, i, n)
		}
		if !slices.Contains(ps, i) {
			ps = append(ps, i)
		}
	}
	slices.Sort(ps)
	return ps, nil
}

// validPaths validates item paths and returns them de-duplicated, in
// ascending order.
func validPaths(secs sections, paths []IndexPath) ([]IndexPath, error) {
	ps := make([]IndexPath, 0, len(paths))
	for _, p := range paths {
		if p.Section < 0 || p.Section >= secs.Len() || p.Item < 0 || p.Item >= secs.Get(p.Section).Items.Len() {
			return nil, fmt.Errorf("%w: item %v", ErrIndexOutOfRange, p)
		}
		if !slices.Contains(ps, p) {
			ps = append(ps, p)
		}
	}
	slices.SortFunc(ps, IndexPath.Less)
	return ps, nil
}

// identityChanges returns the identities present in to but not in from, and
// vice versa. Both lists are in snapshot order.
func identityChanges(from, to *Snapshot) (inserted, deleted []ItemID) {
	collect := func(a, b *Snapshot) []ItemID {
		var ids []ItemID
		a.sections.Each(func(_ int, sect *Section) bool {
			sect.Items.Each(func(_ int, id ItemID) bool {
				if !b.Contains(id) {
					ids = append(ids, id)
				}
				return true
			})
			for _, kind := range sortedKinds(sect.Supplementary) {
				sect.Supplementary[kind].Each(func(_ int, id ItemID) bool {
					if !b.Contains(id) {
						ids = append(ids, id)
					}
					return true
				})
			}
			return true
		})
		return ids
	}
	return collect(to, from), collect(from, to)
}
