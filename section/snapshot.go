package section

import (
	"fmt"
	"sync"

	"github.com/npillmayer/asynclist/persistent/vector"
	tp "github.com/xlab/treeprint"
	"golang.org/x/exp/slices"
)

// Section is the immutable state of a section within one generation.
type Section struct {
	ID            SectionID
	DebugName     string
	Items         vector.Vector[ItemID]
	Supplementary map[string]vector.Vector[ItemID] // never modified after creation
}

func (s *Section) withItems(items vector.Vector[ItemID]) *Section {
	return &Section{ID: s.ID, DebugName: s.DebugName, Items: items, Supplementary: s.Supplementary}
}

func (s *Section) withSupplementary(kind string, ids vector.Vector[ItemID]) *Section {
	supp := make(map[string]vector.Vector[ItemID], len(s.Supplementary)+1)
	for k, v := range s.Supplementary {
		supp[k] = v
	}
	if ids.Len() == 0 {
		delete(supp, kind)
	} else {
		supp[kind] = ids
	}
	return &Section{ID: s.ID, DebugName: s.DebugName, Items: s.Items, Supplementary: supp}
}

func (s *Section) String() string {
	if s.DebugName != "" {
		return fmt.Sprintf("section#%d[%s]", s.ID, s.DebugName)
	}
	return fmt.Sprintf("section#%d", s.ID)
}

// Snapshot is an immutable generation of the sections of a collection.
type Snapshot struct {
	Generation uint64
	sections   vector.Vector[*Section]
	once       sync.Once
	idx        *snapshotIndex
}

// snapshotIndex maps identities to locations. It is built lazily, once per
// snapshot.
type snapshotIndex struct {
	items    map[ItemID]IndexPath
	supps    map[ItemID]SupplementaryPath
	sections map[SectionID]int
}

func newSnapshot(gen uint64, sections vector.Vector[*Section]) *Snapshot {
	return &Snapshot{Generation: gen, sections: sections}
}

// SectionCount returns the number of sections.
func (s *Snapshot) SectionCount() int {
	return s.sections.Len()
}

// Section returns the section at index i. It panics if i is out of range.
func (s *Snapshot) Section(i int) *Section {
	return s.sections.Get(i)
}

// Sections returns all sections in order.
func (s *Snapshot) Sections() []*Section {
	return s.sections.ToSlice()
}

// ItemCount returns the number of items in section i, or 0 if i is out of range.
func (s *Snapshot) ItemCount(i int) int {
	if i < 0 || i >= s.sections.Len() {
		return 0
	}
	return s.sections.Get(i).Items.Len()
}

// ItemAt returns the identity of the item at p.
func (s *Snapshot) ItemAt(p IndexPath) (ItemID, bool) {
	if !s.valid(p, false) {
		return NoItem, false
	}
	return s.sections.Get(p.Section).Items.Get(p.Item), true
}

// IndexPathOf returns the location of an item.
func (s *Snapshot) IndexPathOf(id ItemID) (IndexPath, bool) {
	p, ok := s.index().items[id]
	return p, ok
}

// SupplementaryPathOf returns the location of a supplementary element.
func (s *Snapshot) SupplementaryPathOf(id ItemID) (SupplementaryPath, bool) {
	p, ok := s.index().supps[id]
	return p, ok
}

// SectionIndex returns the position of a section.
func (s *Snapshot) SectionIndex(id SectionID) (int, bool) {
	i, ok := s.index().sections[id]
	return i, ok
}

// Contains is true if id is an item or a supplementary element of s.
func (s *Snapshot) Contains(id ItemID) bool {
	idx := s.index()
	if _, ok := idx.items[id]; ok {
		return true
	}
	_, ok := idx.supps[id]
	return ok
}

// ItemCountTotal returns the number of items in all sections.
func (s *Snapshot) ItemCountTotal() int {
	return len(s.index().items)
}

// EachItem calls f for every item in order, until f returns false.
func (s *Snapshot) EachItem(f func(p IndexPath, id ItemID) bool) {
	cont := true
	s.sections.Each(func(i int, sect *Section) bool {
		sect.Items.Each(func(j int, id ItemID) bool {
			cont = f(IndexPath{Section: i, Item: j}, id)
			return cont
		})
		return cont
	})
}

// Kinds returns the sorted kinds of supplementary elements present in s.
func (s *Snapshot) Kinds() []string {
	seen := make(map[string]bool)
	var kinds []string
	s.sections.Each(func(_ int, sect *Section) bool {
		for k := range sect.Supplementary {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
		return true
	})
	slices.Sort(kinds)
	return kinds
}

func (s *Snapshot) valid(p IndexPath, atEnd bool) bool {
	if p.Section < 0 || p.Section >= s.sections.Len() || p.Item < 0 {
		return false
	}
	n := s.sections.Get(p.Section).Items.Len()
	return p.Item < n || (atEnd && p.Item == n)
}

func (s *Snapshot) index() *snapshotIndex {
	s.once.Do(func() {
		idx := &snapshotIndex{
			items:    make(map[ItemID]IndexPath),
			supps:    make(map[ItemID]SupplementaryPath),
			sections: make(map[SectionID]int, s.sections.Len()),
		}
		s.sections.Each(func(i int, sect *Section) bool {
			idx.sections[sect.ID] = i
			sect.Items.Each(func(j int, id ItemID) bool {
				idx.items[id] = IndexPath{Section: i, Item: j}
				return true
			})
			for kind, ids := range sect.Supplementary {
				ids.Each(func(j int, id ItemID) bool {
					idx.supps[id] = SupplementaryPath{Kind: kind, IndexPath: IndexPath{Section: i, Item: j}}
					return true
				})
			}
			return true
		})
		s.idx = idx
	})
	return s.idx
}

// Dump renders a snapshot as a tree, for debugging.
func (s *Snapshot) Dump() string {
	t := tp.New()
	t.SetValue(fmt.Sprintf("generation %d", s.Generation))
	s.sections.Each(func(_ int, sect *Section) bool {
		b := t.AddBranch(sect.String())
		b.AddNode(fmt.Sprintf("items %v", sect.Items))
		for _, kind := range sortedKinds(sect.Supplementary) {
			b.AddNode(fmt.Sprintf("%s %v", kind, sect.Supplementary[kind]))
		}
		return true
	})
	return t.String()
}

func sortedKinds(m map[string]vector.Vector[ItemID]) []string {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
