/*
Copyright © 2024 the SeisMap authors.
This file is part of SeisMap.

SeisMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SeisMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SeisMap.  If not, see <http://www.gnu.org/licenses/>.
*/

package seismap

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Cell is one axis-aligned rectangle of a partition. W and E are the
// western and eastern bounds [degrees longitude], S and N the southern
// and northern bounds [degrees latitude]. Index is the cell's position
// in its owning Grid. The embedded geometry is the cell footprint.
type Cell struct {
	geom.Polygonal

	W, E, S, N float64
	Index      int
}

// NewCell creates a cell from the given bounds [degrees], ordered
// west, south, east, north. Longitudes must lie within [-180, 180] and
// latitudes within [-90, 90]; cells crossing the antimeridian are not
// representable and need to be split by the caller before use.
func NewCell(w, s, e, n float64) (*Cell, error) {
	for _, v := range []float64{w, s, e, n} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("seismap: cell bounds (%g,%g,%g,%g) are not finite", w, s, e, n)
		}
	}
	if !(w < e) {
		return nil, fmt.Errorf("seismap: cell lon_min %g must be less than lon_max %g", w, e)
	}
	if !(s < n) {
		return nil, fmt.Errorf("seismap: cell lat_min %g must be less than lat_max %g", s, n)
	}
	if w < -180 || e > 180 {
		return nil, fmt.Errorf("seismap: cell longitude range [%g, %g] outside [-180, 180]", w, e)
	}
	if s < -90 || n > 90 {
		return nil, fmt.Errorf("seismap: cell latitude range [%g, %g] outside [-90, 90]", s, n)
	}
	c := &Cell{W: w, E: e, S: s, N: n}
	c.Polygonal = &geom.Bounds{
		Min: geom.Point{X: w, Y: s},
		Max: geom.Point{X: e, Y: n},
	}
	return c, nil
}

// Area returns the geodesic surface area of the cell [km²].
func (c *Cell) Area() float64 {
	return rectArea(c.W, c.S, c.E, c.N)
}

// Contains reports whether o lies entirely within c. The comparison is
// closed-interval: a cell touching c's boundary from the inside counts
// as contained, so that aligned grids consume cells exactly once.
func (c *Cell) Contains(o *Cell) bool {
	return o.W >= c.W && o.S >= c.S && o.E <= c.E && o.N <= c.N
}

// Overlaps reports whether c and o share interior area. Cells that only
// touch along an edge or at a corner do not overlap.
func (c *Cell) Overlaps(o *Cell) bool {
	return c.W < o.E && c.E > o.W && c.S < o.N && c.N > o.S
}

// intersect returns the bounds of the shared rectangle of c and o.
// ok is false when the cells share no interior area.
func (c *Cell) intersect(o *Cell) (w, s, e, n float64, ok bool) {
	w = math.Max(c.W, o.W)
	e = math.Min(c.E, o.E)
	s = math.Max(c.S, o.S)
	n = math.Min(c.N, o.N)
	if w >= e || s >= n {
		return 0, 0, 0, 0, false
	}
	return w, s, e, n, true
}

// intersectArea returns the geodesic surface area [km²] shared by c
// and o, or zero when they share no interior area.
func (c *Cell) intersectArea(o *Cell) float64 {
	w, s, e, n, ok := c.intersect(o)
	if !ok {
		return 0
	}
	return rectArea(w, s, e, n)
}

// Copy copies a cell.
func (c *Cell) Copy() *Cell {
	o := *c
	return &o
}

// Polygon returns the cell footprint as a closed ring.
func (c *Cell) Polygon() geom.Polygon {
	return geom.Polygon{{
		{X: c.W, Y: c.S},
		{X: c.E, Y: c.S},
		{X: c.E, Y: c.N},
		{X: c.W, Y: c.N},
		{X: c.W, Y: c.S},
	}}
}

// sameBounds reports whether two cells have literally identical bounds.
func (c *Cell) sameBounds(o *Cell) bool {
	return c.W == o.W && c.E == o.E && c.S == o.S && c.N == o.N
}
