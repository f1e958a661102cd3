// Package foothold implements the FootholdTreeClient side of the
// external foothold R-tree (spec.md §2, §4.3.4, §9 "Foothold R-tree
// updates"). The tree itself is built offline from static map geometry
// and is immutable once constructed, so it is safe to share by reference
// across every worker simulating the map (spec.md §9).
//
// Footholds are represented as 2D line segments using go-geom, the same
// geometry library the rest of the example corpus reaches for when it
// needs planar primitives.
package foothold

import (
	"sort"

	"github.com/twpayne/go-geom"
)

// Foothold is one walkable ledge: a line segment from (X1,Y1) to
// (X2,Y2), plus its static id.
type Foothold struct {
	ID       int32
	Line     *geom.LineString
	minX, maxX, minY, maxY float64
}

// NewFoothold builds a Foothold from two endpoints.
func NewFoothold(id int32, x1, y1, x2, y2 float64) Foothold {
	ls := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{x1, y1}, {x2, y2}})
	fh := Foothold{ID: id, Line: ls}
	fh.minX, fh.maxX = minmax(x1, x2)
	fh.minY, fh.maxY = minmax(y1, y2)
	return fh
}

func minmax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}

// yAt returns the segment's y-coordinate at the given x, assuming x is
// within [minX, maxX]. Vertical segments (minX == maxX) return their
// lower endpoint, matching the "snaps to the foothold's lower y"
// boundary behavior (spec.md §8).
func (f Foothold) yAt(x float64) float64 {
	c := f.Line.Coords()
	x1, y1 := c[0][0], c[0][1]
	x2, y2 := c[1][0], c[1][1]
	if x2 == x1 {
		if y1 > y2 {
			return y1
		}
		return y2
	}
	t := (x - x1) / (x2 - x1)
	return y1 + t*(y2-y1)
}

// Tree is the in-memory index over a map's static footholds, sorted by
// minX so Below can binary-search past every foothold that starts to
// the right of the point instead of scanning them all.
type Tree struct {
	footholds []Foothold
}

// NewTree builds an (immutable once returned) index over the given
// footholds.
func NewTree(footholds []Foothold) *Tree {
	fhs := append([]Foothold(nil), footholds...)
	sort.Slice(fhs, func(i, j int) bool { return fhs[i].minX < fhs[j].minX })
	return &Tree{footholds: fhs}
}

// Point is a 2D coordinate in map space.
type Point struct {
	X, Y float64
}

// Below finds the nearest foothold strictly below point, i.e. the
// foothold whose x-range contains point.X and whose y at that x is
// greater than point.Y (map y grows downward), minimizing the vertical
// gap. Returns ok=false if no foothold qualifies.
func (t *Tree) Below(p Point) (Foothold, float64, bool) {
	var (
		best   Foothold
		bestY  float64
		bestGap = float64(0)
		found  bool
	)

	// Binary search for the first foothold that starts right of p.X,
	// then linear-scan the minX-sorted prefix before it. This keeps the
	// index simple (no R-tree rebalancing) while skipping every foothold
	// that lies wholly to the right of the point.
	end := sort.Search(len(t.footholds), func(i int) bool {
		return t.footholds[i].minX > p.X
	})

	for i := 0; i < end; i++ {
		fh := t.footholds[i]
		if p.X > fh.maxX {
			continue
		}
		y := fh.yAt(p.X)
		if y <= p.Y {
			continue // strictly below means foothold y must be > point y
		}
		gap := y - p.Y
		if !found || gap < bestGap {
			best, bestY, bestGap, found = fh, y, gap, true
		}
	}

	return best, bestY, found
}

// LandingPoint computes a drop's ground position per spec.md §3: snap
// (x, y-85) onto the foothold below.
func (t *Tree) LandingPoint(x, y int16) (int16, int16, bool) {
	fh, landY, ok := t.Below(Point{X: float64(x), Y: float64(y) - 85})
	if !ok {
		return x, y, false
	}
	_ = fh
	return x, int16(landY), true
}
