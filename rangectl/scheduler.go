package rangectl

import (
	"fmt"
	"sync"

	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/section"
	"github.com/npillmayer/tyse/core/dimen"
	"golang.org/x/exp/slices"
)

// Tuning configures the range computation.
type Tuning struct {
	Lookahead  float64  // screenfuls to preload in scroll direction
	Trailing   float64  // screenfuls to preload against scroll direction; < 0 means Lookahead
	Hysteresis dimen.DU // scroll distance to ignore between re-evaluations
}

// DefaultTuning preloads two screens ahead and one screen behind.
func DefaultTuning() Tuning {
	return Tuning{Lookahead: 2, Trailing: 1}
}

func (t Tuning) trailing() float64 {
	if t.Trailing < 0 {
		return t.Lookahead
	}
	return t.Trailing
}

// Viewport is the visible window of a collection, as reported by the host.
type Viewport struct {
	Offset    layout.Point        // scroll offset
	Size      layout.Size         // extent of the visible window
	Visible   []section.IndexPath // visible items, in any order
	Direction ScrollDirection     // current scroll direction, if any
}

// ItemRef is an item in the ordered list of known items.
type ItemRef struct {
	Path   section.IndexPath
	Extent dimen.DU // last known extent along the scroll axis; 0 if unknown
}

// Range is the range set an item belongs to.
type Range int

const (
	Idle Range = iota
	Preload
	Display
)

func (r Range) String() string {
	switch r {
	case Display:
		return "display"
	case Preload:
		return "preload"
	}
	return "idle"
}

// RangeSets partitions the known items. Every set is in item order.
type RangeSets struct {
	Display, Preload, Idle []section.IndexPath
}

// RangeOf returns the range set containing p. Unknown paths are Idle.
func (rs RangeSets) RangeOf(p section.IndexPath) Range {
	if slices.Contains(rs.Display, p) {
		return Display
	}
	if slices.Contains(rs.Preload, p) {
		return Preload
	}
	return Idle
}

func (rs RangeSets) String() string {
	return fmt.Sprintf("display=%v preload=%v idle=#%d", rs.Display, rs.Preload, len(rs.Idle))
}

// Scheduler computes range sets. It is safe for concurrent use.
type Scheduler struct {
	mx     sync.Mutex
	tuning Tuning
	axis   ScrollDirection
	last   *Viewport // viewport of the last accepted re-evaluation
}

// NewScheduler creates a scheduler for a collection scrolling along axis.
func NewScheduler(tuning Tuning, axis ScrollDirection) *Scheduler {
	return &Scheduler{tuning: tuning, axis: axis}
}

// SetAxis changes the scrollable directions, e.g. after an inspector change.
func (s *Scheduler) SetAxis(axis ScrollDirection) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.axis = axis
	s.last = nil
}

// Invalidate forces the next call to ShouldReevaluate to return true.
func (s *Scheduler) Invalidate() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.last = nil
}

func (s *Scheduler) settings() (Tuning, ScrollDirection) {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.tuning, s.axis
}

// ShouldReevaluate is true if view differs from the viewport of the last
// accepted re-evaluation by a changed visible set, a changed size or a
// scroll distance beyond the hysteresis. If true is returned, view is
// accepted as the new reference.
func (s *Scheduler) ShouldReevaluate(view Viewport) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.last == nil || s.last.Size != view.Size || !samePaths(s.last.Visible, view.Visible) ||
		scrolled(s.last.Offset, view.Offset, s.axis) > s.tuning.Hysteresis {
		v := view
		v.Visible = slices.Clone(view.Visible)
		s.last = &v
		return true
	}
	return false
}

func scrolled(from, to layout.Point, axis ScrollDirection) dimen.DU {
	var d dimen.DU
	if axis.IsVertical() {
		d = abs(to.Y - from.Y)
	}
	if axis.IsHorizontal() {
		if dx := abs(to.X - from.X); dx > d {
			d = dx
		}
	}
	return d
}

func abs(x dimen.DU) dimen.DU {
	if x < 0 {
		return -x
	}
	return x
}

func samePaths(a, b []section.IndexPath) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[section.IndexPath]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := set[p]; !ok {
			return false
		}
	}
	return true
}

// Compute partitions order into range sets, given the visible window. It
// does not change the state of the scheduler. Visible paths which are not
// part of order are ignored.
func (s *Scheduler) Compute(view Viewport, order []ItemRef) RangeSets {
	rangeEvaluations.Inc()
	tuning, axis := s.settings()
	rs := RangeSets{}
	visible := make(map[section.IndexPath]struct{}, len(view.Visible))
	for _, p := range view.Visible {
		visible[p] = struct{}{}
	}
	first, last := visibleSpan(visible, order)
	if first < 0 {
		for _, item := range order {
			rs.Idle = append(rs.Idle, item.Path)
		}
		return rs
	}
	screen := float64(screenExtent(view.Size, axis))
	ahead, behind := tuning.Lookahead, tuning.trailing()
	switch {
	case view.Direction.forward() && view.Direction.backward(), view.Direction == NoDirection:
		behind = ahead
	case view.Direction.backward():
		ahead, behind = behind, ahead
	}
	est := estimateExtent(order, screen)
	lo := reach(order, first-1, -1, behind*screen, est)
	hi := reach(order, last+1, 1, ahead*screen, est)
	for i, item := range order {
		if _, ok := visible[item.Path]; ok {
			rs.Display = append(rs.Display, item.Path)
		} else if i >= lo && i <= hi {
			rs.Preload = append(rs.Preload, item.Path)
		} else {
			rs.Idle = append(rs.Idle, item.Path)
		}
	}
	tracer().Debugf("range sets: %s", rs)
	return rs
}

// NearTrailingEdge is true if less than screens screenfuls of known items
// follow the last visible item, or if there are no items at all.
func (s *Scheduler) NearTrailingEdge(view Viewport, order []ItemRef, screens float64) bool {
	if len(order) == 0 {
		return true
	}
	_, axis := s.settings()
	visible := make(map[section.IndexPath]struct{}, len(view.Visible))
	for _, p := range view.Visible {
		visible[p] = struct{}{}
	}
	_, last := visibleSpan(visible, order)
	if last < 0 {
		return false
	}
	if last == len(order)-1 {
		return true
	}
	screen := float64(screenExtent(view.Size, axis))
	est := estimateExtent(order, screen)
	remaining := 0.0
	for _, item := range order[last+1:] {
		remaining += extentOf(item, est)
		if remaining >= screens*screen {
			return false
		}
	}
	return true
}

func visibleSpan(visible map[section.IndexPath]struct{}, order []ItemRef) (int, int) {
	first, last := -1, -1
	for i, item := range order {
		if _, ok := visible[item.Path]; ok {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

// screenExtent is the extent of the viewport along the scroll axis. A
// viewport scrolling in both axes uses the vertical extent.
func screenExtent(size layout.Size, axis ScrollDirection) dimen.DU {
	var e dimen.DU
	switch {
	case axis.IsVertical():
		e = size.H
	case axis.IsHorizontal():
		e = size.W
	}
	if e < 0 || e >= layout.Infinity {
		return 0
	}
	return e
}

// estimateExtent is the mean of the known extents, used for items without
// a layout yet.
func estimateExtent(order []ItemRef, screen float64) float64 {
	var sum float64
	n := 0
	for _, item := range order {
		if item.Extent > 0 && item.Extent < layout.Infinity {
			sum += float64(item.Extent)
			n++
		}
	}
	if n > 0 {
		return sum / float64(n)
	}
	if screen > 0 {
		return screen / 4
	}
	return 1
}

func extentOf(item ItemRef, est float64) float64 {
	if item.Extent > 0 && item.Extent < layout.Infinity {
		return float64(item.Extent)
	}
	return est
}

// reach walks from start in direction step until budget is used up and
// returns the index of the last item reached.
func reach(order []ItemRef, start, step int, budget, est float64) int {
	i, acc := start, 0.0
	for i >= 0 && i < len(order) && acc < budget {
		acc += extentOf(order[i], est)
		i += step
	}
	return i - step
}
