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
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	goshp "github.com/jonas-p/go-shp"
)

// Grid is an ordered partition of some footprint into non-overlapping
// cells. Rate matrices are keyed to a grid by cell position: row i of a
// matrix belongs to Cells[i].
type Grid struct {
	Name   string
	Nx, Ny int
	Dx, Dy float64
	X0, Y0 float64
	Cells  []*Cell
	Extent *geom.Bounds

	// Irregular reports that the cells do not form a uniform grid.
	Irregular bool

	// Quadkeys holds the tile keys a quadtree grid was built from,
	// in cell order. It is nil for other grids.
	Quadkeys []string

	index *rtree.Rtree
}

// NewGridRegular creates a regular grid of nx × ny equally sized cells,
// with the cell size dx × dy [degrees] and the lower-left corner at
// (x0, y0). Cells are ordered west to east, with latitude varying
// fastest within each column of constant longitude.
func NewGridRegular(name string, nx, ny int, dx, dy, x0, y0 float64) (*Grid, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("seismap: grid %s: cell counts (%d, %d) must be positive", name, nx, ny)
	}
	grid := &Grid{
		Name: name,
		Nx:   nx, Ny: ny,
		Dx: dx, Dy: dy,
		X0: x0, Y0: y0,
		Cells: make([]*Cell, nx*ny),
		index: rtree.NewTree(25, 50),
	}
	i := 0
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			w := x0 + float64(ix)*dx
			s := y0 + float64(iy)*dy
			cell, err := NewCell(w, s, w+dx, s+dy)
			if err != nil {
				return nil, fmt.Errorf("seismap: grid %s: %v", name, err)
			}
			cell.Index = i
			grid.index.Insert(cell)
			grid.Cells[i] = cell
			i++
		}
	}
	grid.Extent = &geom.Bounds{
		Min: geom.Point{X: x0, Y: y0},
		Max: geom.Point{X: x0 + dx*float64(nx), Y: y0 + dy*float64(ny)},
	}
	return grid, nil
}

// NewGridGlobal creates the global grid with cell size dh [degrees]:
// cell origins every dh degrees from -180 to 180-dh longitude and from
// -90 to 90-dh latitude. dh must divide evenly into 360 and 180.
func NewGridGlobal(dh float64) (*Grid, error) {
	if dh <= 0 {
		return nil, fmt.Errorf("seismap: global grid: cell size %g must be positive", dh)
	}
	nx := round(360 / dh)
	ny := round(180 / dh)
	if float64(nx)*dh != 360 || float64(ny)*dh != 180 {
		return nil, fmt.Errorf("seismap: global grid: cell size %g does not evenly divide the globe", dh)
	}
	return NewGridRegular("global", nx, ny, dh, dh, -180, -90)
}

func round(v float64) int { return int(v + 0.5) }

// NewGridIrregular creates a grid from an arbitrary list of cells,
// keeping the given order. The cells must be pairwise non-overlapping
// and free of duplicates; edge-touching neighbors are allowed.
func NewGridIrregular(name string, cells []*Cell) (*Grid, error) {
	grid := &Grid{
		Name:      name,
		Irregular: true,
		Nx:        1,
		Ny:        len(cells),
		Cells:     make([]*Cell, len(cells)),
		index:     rtree.NewTree(25, 50),
	}
	for i, cell := range cells {
		if cell == nil {
			return nil, fmt.Errorf("seismap: grid %s: cell %d is nil", name, i)
		}
		if err := grid.addCell(cell, i); err != nil {
			return nil, err
		}
	}
	return grid, nil
}

// addCell checks cell against the cells already indexed, then claims
// position i for it. The incremental check keeps partition validation
// near O(n log n) instead of comparing every pair.
func (grid *Grid) addCell(cell *Cell, i int) error {
	for _, cI := range grid.index.SearchIntersect(cell.Bounds()) {
		c := cI.(*Cell)
		if c.sameBounds(cell) {
			return fmt.Errorf("seismap: grid %s: cells %d and %d have duplicate bounds (%g,%g,%g,%g)",
				grid.Name, c.Index, i, cell.W, cell.S, cell.E, cell.N)
		}
		if c.Overlaps(cell) {
			return fmt.Errorf("seismap: grid %s: cells %d and %d overlap", grid.Name, c.Index, i)
		}
	}
	cc := cell.Copy()
	cc.Index = i
	grid.index.Insert(cc)
	grid.Cells[i] = cc
	if grid.Extent == nil {
		grid.Extent = cc.Bounds().Copy()
	} else {
		grid.Extent.Extend(cc.Bounds())
	}
	return nil
}

// subgrid creates a grid from the cells of g at the given positions,
// reindexed to their new order. The cells are already known to be
// valid and disjoint, so no checking is performed.
func (g *Grid) subgrid(keep []int) *Grid {
	o := &Grid{
		Name:      g.Name,
		Irregular: true,
		Nx:        1,
		Ny:        len(keep),
		Cells:     make([]*Cell, len(keep)),
		index:     rtree.NewTree(25, 50),
	}
	for j, i := range keep {
		cell := g.Cells[i].Copy()
		cell.Index = j
		o.Cells[j] = cell
		o.index.Insert(cell)
		if o.Extent == nil {
			o.Extent = cell.Bounds().Copy()
		} else {
			o.Extent.Extend(cell.Bounds())
		}
	}
	return o
}

// Len returns the number of cells in the grid.
func (g *Grid) Len() int { return len(g.Cells) }

// Bounds returns the bounding box of the grid footprint.
func (g *Grid) Bounds() *geom.Bounds {
	if g.Extent == nil {
		return geom.NewBounds()
	}
	return g.Extent
}

// TotalArea returns the geodesic surface area [km²] of the grid
// footprint, the sum over all cells.
func (g *Grid) TotalArea() float64 {
	var a float64
	for _, c := range g.Cells {
		a += c.Area()
	}
	return a
}

// GetIndex returns the positions of the cells containing point p.
// withinGrid is false if p is outside the grid. Usually a point falls
// in one cell, but a point on a shared edge belongs to every cell that
// touches it.
func (g *Grid) GetIndex(p geom.Point) (indices []int, withinGrid bool) {
	for _, cI := range g.index.SearchIntersect(p.Bounds()) {
		c := cI.(*Cell)
		indices = append(indices, c.Index)
	}
	if len(indices) > 0 {
		withinGrid = true
	}
	return
}

// searchIntersect returns the cells whose bounding boxes intersect b,
// including edge-touching neighbors.
func (g *Grid) searchIntersect(b *geom.Bounds) []*Cell {
	hits := g.index.SearchIntersect(b)
	cells := make([]*Cell, len(hits))
	for i, cI := range hits {
		cells[i] = cI.(*Cell)
	}
	return cells
}

// WriteShapefile writes the grid definition to a shapefile in
// directory outdir.
func (g *Grid) WriteShapefile(outdir string) error {
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(filepath.Join(outdir, g.Name+ext))
	}
	fields := make([]goshp.Field, 2)
	fields[0] = goshp.NumberField("index", 10)
	fields[1] = goshp.FloatField("area_km2", 16, 6)
	shpf, err := shp.NewEncoderFromFields(filepath.Join(outdir, g.Name+".shp"),
		goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("seismap: writing grid %s to shapefile: %v", g.Name, err)
	}
	for _, cell := range g.Cells {
		data := []interface{}{cell.Index, cell.Area()}
		if err := shpf.EncodeFields(cell.Polygon(), data...); err != nil {
			return fmt.Errorf("seismap: writing grid %s to shapefile: %v", g.Name, err)
		}
	}
	shpf.Close()
	return nil
}
