package section

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Delta describes the changes between two snapshots in terms of stable
// identities. Deletions refer to index paths of the old snapshot,
// insertions to index paths of the new one.
type Delta struct {
	From, To         uint64 // generations
	DeletedSections  []int
	InsertedSections []int
	MovedSections    []SectionMove
	Deleted          []IndexPath
	Inserted         []IndexPath
	Moved            []ItemMove
}

// SectionMove is a section which changed its relative position.
type SectionMove struct {
	ID       SectionID
	From, To int
}

// ItemMove is an item which changed its section or its relative position.
type ItemMove struct {
	ID       ItemID
	From, To IndexPath
}

// IsEmpty is true if there are no changes.
func (d Delta) IsEmpty() bool {
	return len(d.DeletedSections) == 0 && len(d.InsertedSections) == 0 && len(d.MovedSections) == 0 &&
		len(d.Deleted) == 0 && len(d.Inserted) == 0 && len(d.Moved) == 0
}

func (d Delta) String() string {
	return fmt.Sprintf("Δ[%d→%d sections -%d +%d ~%d, items -%d +%d ~%d]", d.From, d.To,
		len(d.DeletedSections), len(d.InsertedSections), len(d.MovedSections),
		len(d.Deleted), len(d.Inserted), len(d.Moved))
}

// Diff computes the changes from snapshot old to snapshot cur.
//
// Items (and sections) present in both snapshots are reported as moved if
// they changed their section, or if their order relative to the other
// surviving items changed. Shifts caused by insertions or deletions are not
// moves. Items of deleted or inserted sections are not reported
// individually.
func Diff(old, cur *Snapshot) Delta {
	d := Delta{From: old.Generation, To: cur.Generation}
	// sections
	var survivingSects []int // new positions, in old order
	var survivingIDs []SectionID
	old.sections.Each(func(i int, sect *Section) bool {
		if j, ok := cur.SectionIndex(sect.ID); ok {
			survivingSects = append(survivingSects, j)
			survivingIDs = append(survivingIDs, sect.ID)
		} else {
			d.DeletedSections = append(d.DeletedSections, i)
		}
		return true
	})
	cur.sections.Each(func(j int, sect *Section) bool {
		if _, ok := old.SectionIndex(sect.ID); !ok {
			d.InsertedSections = append(d.InsertedSections, j)
		}
		return true
	})
	stable := longestIncreasing(survivingSects)
	for k, j := range survivingSects {
		if !stable[k] {
			i, _ := old.SectionIndex(survivingIDs[k])
			d.MovedSections = append(d.MovedSections, SectionMove{ID: survivingIDs[k], From: i, To: j})
		}
	}
	// items: group surviving items by their section in the new snapshot
	type survivor struct {
		id       ItemID
		from, to IndexPath
	}
	bySection := make(map[int][]survivor)
	old.EachItem(func(p IndexPath, id ItemID) bool {
		oldSect := old.Section(p.Section)
		if _, ok := cur.SectionIndex(oldSect.ID); !ok {
			return true // section deleted
		}
		q, ok := cur.IndexPathOf(id)
		if !ok {
			d.Deleted = append(d.Deleted, p)
			return true
		}
		if cur.Section(q.Section).ID != oldSect.ID {
			d.Moved = append(d.Moved, ItemMove{ID: id, From: p, To: q})
			return true
		}
		bySection[q.Section] = append(bySection[q.Section], survivor{id, p, q})
		return true
	})
	cur.EachItem(func(q IndexPath, id ItemID) bool {
		if _, ok := old.SectionIndex(cur.Section(q.Section).ID); !ok {
			return true // section inserted
		}
		if _, ok := old.IndexPathOf(id); !ok {
			d.Inserted = append(d.Inserted, q)
		}
		return true
	})
	for _, survivors := range bySection {
		positions := make([]int, len(survivors))
		for k, s := range survivors {
			positions[k] = s.to.Item
		}
		stable := longestIncreasing(positions)
		for k, s := range survivors {
			if !stable[k] {
				d.Moved = append(d.Moved, ItemMove{ID: s.id, From: s.from, To: s.to})
			}
		}
	}
	slices.SortFunc(d.Moved, func(a, b ItemMove) bool { return a.To.Less(b.To) })
	return d
}

// longestIncreasing marks the elements of a longest strictly increasing
// subsequence of xs.
func longestIncreasing(xs []int) []bool {
	marks := make([]bool, len(xs))
	if len(xs) == 0 {
		return marks
	}
	tails := make([]int, 0, len(xs)) // indices into xs
	prev := make([]int, len(xs))
	for i, x := range xs {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if xs[tails[mid]] < x {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		marks[i] = true
	}
	return marks
}
