package section

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/asynclist/maybe"
	"github.com/npillmayer/asynclist/persistent/vector"
)

// Registry holds the editing and the committed snapshot of a collection,
// together with a FIFO of closed transactions waiting to be committed.
//
// Staging and committing are expected to happen on a single coordination
// context. Reading the committed snapshot is safe from any goroutine.
type Registry struct {
	mx         sync.Mutex
	editing    *Snapshot
	open       *Transaction
	pending    []*Pending
	generation uint64 // generation of the most recent closed transaction
	committed  atomic.Pointer[Snapshot]
	nextItem   atomic.Uint64
	nextSect   atomic.Int64
}

// Pending is a closed transaction waiting to be committed.
type Pending struct {
	Generation uint64
	Snapshot   *Snapshot
	Inserted   []ItemID // identities new to this generation, in order
	Deleted    []ItemID // identities dropped by this generation
}

// NewRegistry creates a registry with empty snapshots of generation 0.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := newSnapshot(0, vector.Immutable[*Section]())
	r.editing = empty
	r.committed.Store(empty)
	return r
}

// Begin opens an edit transaction. Only one transaction may be open at a
// time; otherwise ErrTransactionAlreadyOpen is returned.
func (r *Registry) Begin() (*Transaction, error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.open != nil {
		return nil, ErrTransactionAlreadyOpen
	}
	t := &Transaction{reg: r, base: r.editing}
	r.open = t
	tracer().Debugf("begin edit transaction on generation %d", r.editing.Generation)
	return t, nil
}

// Committed returns the committed snapshot.
func (r *Registry) Committed() *Snapshot {
	return r.committed.Load()
}

// Editing returns the editing snapshot, including changes staged by an open
// transaction.
func (r *Registry) Editing() *Snapshot {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.editing
}

// PendingCount returns the number of closed transactions not yet committed.
func (r *Registry) PendingCount() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.pending)
}

// Head returns the oldest closed transaction not yet committed.
func (r *Registry) Head() maybe.Maybe[*Pending] {
	r.mx.Lock()
	defer r.mx.Unlock()
	if len(r.pending) == 0 {
		return maybe.Nothing[*Pending]()
	}
	return maybe.Just(r.pending[0])
}

// CommitNext commits the oldest closed transaction. Generation N is never
// committed before generation N-1. If no transaction is pending, CommitNext
// returns false.
func (r *Registry) CommitNext() (Delta, bool, error) {
	r.mx.Lock()
	if len(r.pending) == 0 {
		r.mx.Unlock()
		return Delta{}, false, nil
	}
	head := r.pending[0]
	old := r.committed.Load()
	if head.Generation != old.Generation+1 {
		r.mx.Unlock()
		return Delta{}, false, fmt.Errorf("%w: generation %d cannot follow committed generation %d",
			contract.ErrProtocolViolation, head.Generation, old.Generation)
	}
	r.pending[0] = nil
	r.pending = r.pending[1:]
	r.committed.Store(head.Snapshot)
	r.mx.Unlock()
	delta := Diff(old, head.Snapshot)
	tracer().P("generation", head.Generation).Debugf("committed: %s", delta)
	return delta, true, nil
}

// ResolveIndexPath returns the index path of an item in the committed
// snapshot, or Nothing if the item is not part of it.
func (r *Registry) ResolveIndexPath(id ItemID) maybe.Maybe[IndexPath] {
	return maybe.Of(r.Committed().IndexPathOf(id))
}

// ResolveSupplementaryPath returns the location of a supplementary element in
// the committed snapshot.
func (r *Registry) ResolveSupplementaryPath(id ItemID) maybe.Maybe[SupplementaryPath] {
	return maybe.Of(r.Committed().SupplementaryPathOf(id))
}

// ItemAt returns the identity of the item at p in the committed snapshot.
func (r *Registry) ItemAt(p IndexPath) maybe.Maybe[ItemID] {
	return maybe.Of(r.Committed().ItemAt(p))
}

// SectionIndex returns the position of a section in the committed snapshot.
func (r *Registry) SectionIndex(id SectionID) maybe.Maybe[int] {
	return maybe.Of(r.Committed().SectionIndex(id))
}

// SectionEntry is the state of a section in both the editing and the
// committed snapshot.
type SectionEntry struct {
	SectionID      SectionID
	DebugName      string
	EditingItems   []ItemID // nil if the section is not part of the editing snapshot
	CommittedItems []ItemID // nil if the section is not part of the committed snapshot
}

// Entry reports a section by identity. If the section is present in
// neither snapshot, Nothing is returned.
func (r *Registry) Entry(id SectionID) maybe.Maybe[SectionEntry] {
	entry := SectionEntry{SectionID: id}
	found := false
	if sect, ok := sectionByID(r.Committed(), id); ok {
		entry.DebugName = sect.DebugName
		entry.CommittedItems = sect.Items.ToSlice()
		found = true
	}
	if sect, ok := sectionByID(r.Editing(), id); ok {
		entry.DebugName = sect.DebugName
		entry.EditingItems = sect.Items.ToSlice()
		found = true
	}
	if !found {
		return maybe.Nothing[SectionEntry]()
	}
	return maybe.Just(entry)
}

func sectionByID(snap *Snapshot, id SectionID) (*Section, bool) {
	i, ok := snap.SectionIndex(id)
	if !ok {
		return nil, false
	}
	return snap.Section(i), true
}

// LiveItems returns the identities referenced by the committed snapshot, the
// editing snapshot or any pending transaction. Identities not in this set
// may be released.
func (r *Registry) LiveItems() map[ItemID]struct{} {
	r.mx.Lock()
	snaps := []*Snapshot{r.committed.Load(), r.editing}
	for _, p := range r.pending {
		snaps = append(snaps, p.Snapshot)
	}
	r.mx.Unlock()
	live := make(map[ItemID]struct{})
	for _, snap := range snaps {
		idx := snap.index()
		for id := range idx.items {
			live[id] = struct{}{}
		}
		for id := range idx.supps {
			live[id] = struct{}{}
		}
	}
	return live
}

func (r *Registry) newItemIDs(n int) []ItemID {
	ids := make([]ItemID, n)
	for i := range ids {
		ids[i] = ItemID(r.nextItem.Add(1))
	}
	return ids
}

func (r *Registry) newSectionID() SectionID {
	return SectionID(r.nextSect.Add(1) - 1)
}
