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
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func TestNewGridGlobal(t *testing.T) {
	g, err := NewGridGlobal(10)
	if err != nil {
		t.Fatal(err)
	}
	if g.Nx != 36 || g.Ny != 18 {
		t.Fatalf("have %d x %d cells, want 36 x 18", g.Nx, g.Ny)
	}
	if g.Len() != 648 {
		t.Fatalf("have %d cells, want 648", g.Len())
	}

	// Cells are ordered west to east with latitude varying fastest.
	first := g.Cells[0]
	if first.W != -180 || first.S != -90 || first.E != -170 || first.N != -80 {
		t.Errorf("first cell is (%g,%g,%g,%g), want (-180,-90,-170,-80)",
			first.W, first.S, first.E, first.N)
	}
	if g.Cells[1].S != -80 || g.Cells[1].W != -180 {
		t.Errorf("second cell is (%g,%g), want (-180,-80)", g.Cells[1].W, g.Cells[1].S)
	}
	if g.Cells[g.Ny].W != -170 || g.Cells[g.Ny].S != -90 {
		t.Errorf("second column starts at (%g,%g), want (-170,-90)",
			g.Cells[g.Ny].W, g.Cells[g.Ny].S)
	}
	last := g.Cells[g.Len()-1]
	if last.E != 180 || last.N != 90 {
		t.Errorf("last cell ends at (%g,%g), want (180,90)", last.E, last.N)
	}

	// The grid tiles the sphere.
	sphere := 4 * math.Pi * EarthRadius * EarthRadius
	if a := g.TotalArea(); different(a, sphere, testTolerance) {
		t.Errorf("total area %g, want %g", a, sphere)
	}

	b := g.Bounds()
	if b.Min.X != -180 || b.Min.Y != -90 || b.Max.X != 180 || b.Max.Y != 90 {
		t.Errorf("bounds %+v don't cover the globe", b)
	}
}

func TestNewGridGlobalErrors(t *testing.T) {
	for _, dh := range []float64{0, -1, 7, 360.1} {
		if _, err := NewGridGlobal(dh); err == nil {
			t.Errorf("NewGridGlobal(%g): should be an error", dh)
		}
	}
}

func TestNewGridRegular(t *testing.T) {
	g, err := NewGridRegular("test", 3, 2, 10, 5, -30, 40)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 6 {
		t.Fatalf("have %d cells, want 6", g.Len())
	}
	for i, c := range g.Cells {
		if c.Index != i {
			t.Errorf("cell %d has index %d", i, c.Index)
		}
	}
	want := [6][2]float64{
		{-30, 40}, {-30, 45}, {-20, 40}, {-20, 45}, {-10, 40}, {-10, 45},
	}
	for i, c := range g.Cells {
		if c.W != want[i][0] || c.S != want[i][1] {
			t.Errorf("cell %d origin (%g,%g), want (%g,%g)", i, c.W, c.S, want[i][0], want[i][1])
		}
	}

	if _, err := NewGridRegular("bad", 0, 2, 10, 5, 0, 0); err == nil {
		t.Error("zero nx: should be an error")
	}
	// A grid reaching past the pole is rejected through its cells.
	if _, err := NewGridRegular("bad", 1, 2, 10, 50, 0, 0); err == nil {
		t.Error("grid extending past the pole: should be an error")
	}
}

func TestNewGridIrregular(t *testing.T) {
	cells := []*Cell{
		cell(0, 0, 10, 10),
		cell(10, 0, 20, 10), // touching is allowed
		cell(0, 10, 20, 20), // different size is allowed
	}
	g, err := NewGridIrregular("patch", cells)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Irregular {
		t.Error("grid should be marked irregular")
	}
	if g.Len() != 3 {
		t.Fatalf("have %d cells, want 3", g.Len())
	}
	b := g.Bounds()
	if b.Min.X != 0 || b.Min.Y != 0 || b.Max.X != 20 || b.Max.Y != 20 {
		t.Errorf("bounds %+v, want (0,0)-(20,20)", b)
	}

	// The input cells are copied, not aliased.
	cells[0].W = -999
	if g.Cells[0].W != 0 {
		t.Error("grid aliases the input cells")
	}
}

func TestNewGridIrregularInvalid(t *testing.T) {
	_, err := NewGridIrregular("dup", []*Cell{
		cell(0, 0, 10, 10),
		cell(0, 0, 10, 10),
	})
	if err == nil {
		t.Error("duplicate cells: should be an error")
	}

	_, err = NewGridIrregular("overlap", []*Cell{
		cell(0, 0, 10, 10),
		cell(5, 5, 15, 15),
	})
	if err == nil {
		t.Error("overlapping cells: should be an error")
	}

	_, err = NewGridIrregular("contained", []*Cell{
		cell(0, 0, 20, 20),
		cell(5, 5, 10, 10),
	})
	if err == nil {
		t.Error("nested cells: should be an error")
	}

	_, err = NewGridIrregular("nil", []*Cell{nil})
	if err == nil {
		t.Error("nil cell: should be an error")
	}
}

func TestGridEmpty(t *testing.T) {
	g, err := NewGridIrregular("empty", nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 0 {
		t.Errorf("have %d cells, want 0", g.Len())
	}
	if a := g.TotalArea(); a != 0 {
		t.Errorf("total area %g, want 0", a)
	}
	if _, within := g.GetIndex(geom.Point{X: 0, Y: 0}); within {
		t.Error("no point is within an empty grid")
	}
}

func TestGridGetIndex(t *testing.T) {
	g, err := NewGridRegular("test", 2, 2, 10, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	indices, within := g.GetIndex(geom.Point{X: 5, Y: 5})
	if !within {
		t.Fatal("(5,5) should be within the grid")
	}
	if len(indices) != 1 || indices[0] != 0 {
		t.Errorf("(5,5): have %v, want [0]", indices)
	}

	indices, within = g.GetIndex(geom.Point{X: 15, Y: 15})
	if !within || len(indices) != 1 || indices[0] != 3 {
		t.Errorf("(15,15): have %v within=%v, want [3]", indices, within)
	}

	if _, within := g.GetIndex(geom.Point{X: -5, Y: 5}); within {
		t.Error("(-5,5) should be outside the grid")
	}

	// A point on a shared edge belongs to both neighbors.
	indices, within = g.GetIndex(geom.Point{X: 10, Y: 5})
	if !within || len(indices) != 2 {
		t.Errorf("(10,5): have %v, want two cells", indices)
	}
}
