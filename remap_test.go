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
	"context"
	"testing"

	"github.com/ctessum/sparse"
)

// forecastOn builds a forecast over an irregular grid from explicit
// cells and rate rows. For tests only.
func forecastOn(name string, cells []*Cell, rows [][]float64, mags []float64) *Forecast {
	g, err := NewGridIrregular(name, cells)
	if err != nil {
		panic(err)
	}
	rates := sparse.ZerosDense(len(rows), len(mags))
	for i, row := range rows {
		for m, v := range row {
			rates.Set(v, i, m)
		}
	}
	f, err := NewForecast(name, g, rates, mags)
	if err != nil {
		panic(err)
	}
	return f
}

// Two source cells merge into one target cell that exactly tiles them;
// the rates add without any area arithmetic.
func TestRemapAggregate(t *testing.T) {
	f := forecastOn("pair",
		[]*Cell{cell(0, 0, 10, 10), cell(10, 0, 20, 10)},
		[][]float64{{4, 0}, {2, 0}}, []float64{5, 6})
	target, err := NewGridIrregular("merged", []*Cell{cell(0, 0, 20, 10)})
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, target, 1)
	if err != nil {
		t.Fatal(err)
	}
	if have := o.Rates.Get(0, 0); have != 6 {
		t.Errorf("first bin: have %g, want 6", have)
	}
	if have := o.Rates.Get(0, 1); have != 0 {
		t.Errorf("second bin: have %g, want 0", have)
	}
}

// One source cell splits across two target cells that halve it along a
// meridian. Halving a longitude span halves the area exactly in
// floating point, so the split rates are exact.
func TestRemapSplit(t *testing.T) {
	f := forecastOn("whole",
		[]*Cell{cell(0, 0, 10, 10)},
		[][]float64{{8, 0}}, []float64{5, 6})
	target, err := NewGridIrregular("halves",
		[]*Cell{cell(0, 0, 5, 10), cell(5, 0, 10, 10)})
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, target, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if have := o.Rates.Get(i, 0); have != 4 {
			t.Errorf("cell %d first bin: have %g, want 4", i, have)
		}
		if have := o.Rates.Get(i, 1); have != 0 {
			t.Errorf("cell %d second bin: have %g, want 0", i, have)
		}
	}
}

// A target cell offset by half a cell width overlaps two source cells
// and collects half the rate of each.
func TestRemapHalfOffset(t *testing.T) {
	f := forecastOn("pair",
		[]*Cell{cell(0, 0, 10, 10), cell(10, 0, 20, 10)},
		[][]float64{{4}, {2}}, []float64{5})
	target, err := NewGridIrregular("offset", []*Cell{cell(5, 0, 15, 10)})
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, target, 1)
	if err != nil {
		t.Fatal(err)
	}
	if have := o.Rates.Get(0, 0); have != 3 {
		t.Errorf("have %g, want 3", have)
	}
}

func TestRemapIdentity(t *testing.T) {
	g, err := NewGridGlobal(30)
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewForecast("self", g,
		denseRates(g.Len(), 2, func(i, m int) float64 {
			return float64(i)*0.37 + float64(m)*0.11
		}), []float64{5, 6})
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, g, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range o.Rates.Elements {
		if v != f.Rates.Elements[i] {
			t.Fatalf("element %d: have %g, want %g", i, v, f.Rates.Elements[i])
		}
	}
}

func TestRemapConservation(t *testing.T) {
	src, err := NewGridGlobal(10)
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewForecast("global", src,
		denseRates(src.Len(), 3, func(i, m int) float64 {
			return float64(i%13)*0.7 + float64(m)*0.2
		}), []float64{5, 6, 7})
	if err != nil {
		t.Fatal(err)
	}

	// Aligned coarsening: every source cell lies within a target cell,
	// so only the containment phase runs.
	coarse, err := NewGridGlobal(30)
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, coarse, 1)
	if err != nil {
		t.Fatal(err)
	}
	if o.Grid.Len() != 72 {
		t.Fatalf("coarse result has %d rows, want 72", o.Grid.Len())
	}
	if different(o.TotalRate(), f.TotalRate(), testTolerance) {
		t.Errorf("coarsening: have total %g, want %g", o.TotalRate(), f.TotalRate())
	}

	// A 15° grid keeps some 10° cells whole and splits others, so both
	// phases run. The target still covers the globe, so no mass leaks.
	mixed, err := NewGridRegular("mixed", 24, 12, 15, 15, -180, -90)
	if err != nil {
		t.Fatal(err)
	}
	o, err = Remap(context.Background(), f, mixed, 1)
	if err != nil {
		t.Fatal(err)
	}
	if different(o.TotalRate(), f.TotalRate(), testTolerance) {
		t.Errorf("mixed phases: have total %g, want %g", o.TotalRate(), f.TotalRate())
	}
}

func TestRemapQuadtree(t *testing.T) {
	src, err := NewGridQuadtreeLevel("level2", 2)
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewForecast("tiles", src,
		denseRates(src.Len(), 2, func(i, m int) float64 {
			return float64(i+1) * 0.25
		}), []float64{5, 6})
	if err != nil {
		t.Fatal(err)
	}
	target, err := NewGridGlobal(45)
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, target, 2)
	if err != nil {
		t.Fatal(err)
	}
	if different(o.TotalRate(), f.TotalRate(), testTolerance) {
		t.Errorf("have total %g, want %g", o.TotalRate(), f.TotalRate())
	}
}

// The worker count must not change the result in any bit.
func TestRemapDeterminism(t *testing.T) {
	src, err := NewGridGlobal(5)
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewForecast("global", src,
		denseRates(src.Len(), 2, func(i, m int) float64 {
			return float64(i%17)*0.3 + float64(m)
		}), []float64{5, 6})
	if err != nil {
		t.Fatal(err)
	}
	target, err := NewGridRegular("offset", 16, 8, 22.5, 22.5, -180, -90)
	if err != nil {
		t.Fatal(err)
	}

	var want []float64
	for _, workers := range []int{1, 3, 8, 0} {
		o, err := Remap(context.Background(), f, target, workers)
		if err != nil {
			t.Fatal(err)
		}
		if want == nil {
			want = o.Rates.Elements
			continue
		}
		for i, v := range o.Rates.Elements {
			if v != want[i] {
				t.Fatalf("%d workers: element %d is %g, want %g", workers, i, v, want[i])
			}
		}
	}
}

func TestRemapEmptyTarget(t *testing.T) {
	f := forecastOn("src", []*Cell{cell(0, 0, 10, 10)},
		[][]float64{{5, 1}}, []float64{5, 6})
	target, err := NewGridIrregular("empty", nil)
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, target, 1)
	if err != nil {
		t.Fatal(err)
	}
	if o.Grid.Len() != 0 || len(o.Rates.Elements) != 0 {
		t.Errorf("empty target should give an empty forecast, have %d cells", o.Grid.Len())
	}
	if o.TotalRate() != 0 {
		t.Errorf("have total %g, want 0", o.TotalRate())
	}
}

func TestRemapNoCoverage(t *testing.T) {
	f := forecastOn("src", []*Cell{cell(0, 0, 10, 10)},
		[][]float64{{5}}, []float64{5})
	target, err := NewGridIrregular("elsewhere", []*Cell{cell(50, 50, 60, 60)})
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, target, 1)
	if err != nil {
		t.Fatal(err)
	}
	if have := o.Rates.Get(0, 0); have != 0 {
		t.Errorf("disjoint grids: have %g, want 0", have)
	}
}

func TestRemapMetadata(t *testing.T) {
	f := forecastOn("helsinki", []*Cell{cell(0, 0, 10, 10), cell(10, 0, 20, 10)},
		[][]float64{{4, 1}, {2, 3}}, []float64{5, 6})
	f.DepthRange = [2]float64{0, 30}
	before := make([]float64, len(f.Rates.Elements))
	copy(before, f.Rates.Elements)

	target, err := NewGridIrregular("t", []*Cell{cell(5, 0, 15, 10)})
	if err != nil {
		t.Fatal(err)
	}
	o, err := Remap(context.Background(), f, target, 1)
	if err != nil {
		t.Fatal(err)
	}
	if o.Name != "helsinki" {
		t.Errorf("have name %q, want %q", o.Name, "helsinki")
	}
	if o.Grid != target {
		t.Error("result should reference the target grid")
	}
	if len(o.Magnitudes) != 2 || o.Magnitudes[0] != 5 || o.Magnitudes[1] != 6 {
		t.Errorf("magnitude bins changed: %v", o.Magnitudes)
	}
	if o.DepthRange != f.DepthRange {
		t.Errorf("have depth range %v, want %v", o.DepthRange, f.DepthRange)
	}
	for i, v := range f.Rates.Elements {
		if v != before[i] {
			t.Fatal("remapping modified the source forecast")
		}
	}
}

func TestRemapErrors(t *testing.T) {
	f := forecastOn("src", []*Cell{cell(0, 0, 10, 10), cell(10, 0, 20, 10)},
		[][]float64{{4, 0}, {2, 0}}, []float64{5, 6})
	target, err := NewGridIrregular("t", []*Cell{cell(0, 0, 20, 10)})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := Remap(ctx, nil, target, 1); err == nil {
		t.Error("nil forecast: should be an error")
	}
	if _, err := Remap(ctx, &Forecast{}, target, 1); err == nil {
		t.Error("incomplete forecast: should be an error")
	}
	if _, err := Remap(ctx, f, nil, 1); err == nil {
		t.Error("nil target: should be an error")
	}

	bad := f.Copy()
	bad.Rates = sparse.ZerosDense(3, 2)
	if _, err := Remap(ctx, bad, target, 1); err == nil {
		t.Error("row count mismatch: should be an error")
	}
	bad = f.Copy()
	bad.Rates = sparse.ZerosDense(4)
	if _, err := Remap(ctx, bad, target, 1); err == nil {
		t.Error("one-dimensional rates: should be an error")
	}
	bad = f.Copy()
	bad.Magnitudes = []float64{5}
	if _, err := Remap(ctx, bad, target, 1); err == nil {
		t.Error("magnitude count mismatch: should be an error")
	}
}

func TestRemapCancel(t *testing.T) {
	src, err := NewGridGlobal(5)
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewForecast("global", src, sparse.ZerosDense(src.Len(), 1), []float64{5})
	if err != nil {
		t.Fatal(err)
	}
	target, err := NewGridGlobal(10)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Remap(ctx, f, target, 2); err == nil {
		t.Error("canceled context: should be an error")
	}
}
