package rangectl

import (
	"strings"

	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/section"
)

// ScrollDirection is a set of directions.
type ScrollDirection uint8

const (
	Up ScrollDirection = 1 << iota
	Down
	Left
	Right
)

const (
	NoDirection ScrollDirection = 0
	Vertical                    = Up | Down
	Horizontal                  = Left | Right
)

// IsVertical is true if d contains a vertical direction.
func (d ScrollDirection) IsVertical() bool {
	return d&Vertical != 0
}

// IsHorizontal is true if d contains a horizontal direction.
func (d ScrollDirection) IsHorizontal() bool {
	return d&Horizontal != 0
}

// forward is true for directions which move towards the end of the data.
func (d ScrollDirection) forward() bool {
	return d&(Down|Right) != 0
}

func (d ScrollDirection) backward() bool {
	return d&(Up|Left) != 0
}

func (d ScrollDirection) String() string {
	if d == NoDirection {
		return "none"
	}
	var names []string
	for i, n := range []string{"up", "down", "left", "right"} {
		if d&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	return strings.Join(names, "|")
}

// Capability is a set of optional inspector capabilities.
type Capability uint8

const (
	CapSupplementaryConstraints Capability = 1 << iota
	CapSupplementaryCounts
	CapDelegateChange
	CapDataSourceChange
)

// Has is true if c contains all of caps.
func (c Capability) Has(caps Capability) bool {
	return c&caps == caps
}

// Inspector provides size constraints for items. ConstraintForItem and
// ScrollableDirections are required; all other methods are consulted only if
// announced by Capabilities. Embed BaseInspector to get defaults for them.
type Inspector interface {
	ConstraintForItem(at section.IndexPath) layout.SizeRange
	ScrollableDirections() ScrollDirection
	Capabilities() Capability
	ConstraintForSupplementary(kind string, at section.IndexPath) layout.SizeRange
	SupplementaryCount(kind string, sect int) int
	DidChangeDelegate(delegate any)
	DidChangeDataSource(dataSource any)
}

// BaseInspector implements the optional part of Inspector without any
// capabilities.
type BaseInspector struct{}

func (BaseInspector) Capabilities() Capability { return 0 }

func (BaseInspector) ConstraintForSupplementary(string, section.IndexPath) layout.SizeRange {
	return layout.Unconstrained()
}

func (BaseInspector) SupplementaryCount(string, int) int { return 0 }
func (BaseInspector) DidChangeDelegate(any)              {}
func (BaseInspector) DidChangeDataSource(any)            {}

// SupplementaryConstraint asks insp for the constraint of a supplementary
// element. Without the capability, the item constraint at the same index
// path is used.
func SupplementaryConstraint(insp Inspector, kind string, at section.IndexPath) layout.SizeRange {
	if insp.Capabilities().Has(CapSupplementaryConstraints) {
		return insp.ConstraintForSupplementary(kind, at)
	}
	return insp.ConstraintForItem(at)
}

// SupplementaryCount asks insp for the number of supplementary elements of
// a kind in a section. Without the capability, the count is 0.
func SupplementaryCount(insp Inspector, kind string, sect int) int {
	if insp.Capabilities().Has(CapSupplementaryCounts) {
		if n := insp.SupplementaryCount(kind, sect); n > 0 {
			return n
		}
	}
	return 0
}

// NotifyDelegateChange forwards a delegate change to insp, if it wants to
// know.
func NotifyDelegateChange(insp Inspector, delegate any) {
	if insp.Capabilities().Has(CapDelegateChange) {
		insp.DidChangeDelegate(delegate)
	}
}

// NotifyDataSourceChange forwards a data source change to insp, if it wants
// to know.
func NotifyDataSourceChange(insp Inspector, dataSource any) {
	if insp.Capabilities().Has(CapDataSourceChange) {
		insp.DidChangeDataSource(dataSource)
	}
}

// --- Default inspector -----------------------------------------------------

// DirectionalInspector constrains every item to the viewport along the
// axes which do not scroll and leaves scrollable axes unbounded. A viewport
// extent of 0 leaves its axis unbounded as well.
type DirectionalInspector struct {
	BaseInspector
	viewport layout.Size
	dirs     ScrollDirection
}

var _ Inspector = (*DirectionalInspector)(nil)

// NewDirectionalInspector creates the default inspector for a viewport.
func NewDirectionalInspector(viewport layout.Size, dirs ScrollDirection) *DirectionalInspector {
	return &DirectionalInspector{viewport: viewport, dirs: dirs}
}

// ConstraintForItem returns the same constraint for every item.
func (di *DirectionalInspector) ConstraintForItem(section.IndexPath) layout.SizeRange {
	r := layout.Unconstrained()
	if !di.dirs.IsHorizontal() && di.viewport.W > 0 {
		r.Min.W, r.Max.W = di.viewport.W, di.viewport.W
	}
	if !di.dirs.IsVertical() && di.viewport.H > 0 {
		r.Min.H, r.Max.H = di.viewport.H, di.viewport.H
	}
	return r
}

// ScrollableDirections returns the directions the inspector has been
// created for.
func (di *DirectionalInspector) ScrollableDirections() ScrollDirection {
	return di.dirs
}
