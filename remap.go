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
	"fmt"
	"runtime"
	"sort"

	"github.com/ctessum/sparse"
)

// Remap transfers the forecast f onto the target grid, preserving the
// total rate over any region both partitions tile exactly. The
// transfer runs in two phases: source cells fully contained in a
// target cell move whole, and the remaining cells, those straddling
// target boundaries, are split among the target cells they overlap in
// proportion to shared geodesic area. Rate density is assumed uniform
// within a source cell. Source mass outside the target footprint is
// dropped.
//
// The result has one rate row per target cell, in target order, with
// the magnitude bins and depth range of f. Neither f nor target is
// modified. workers sets how many goroutines process target cells;
// values below 1 select runtime.GOMAXPROCS(-1). The worker count has
// no effect on the result.
func Remap(ctx context.Context, f *Forecast, target *Grid, workers int) (*Forecast, error) {
	if f == nil || f.Grid == nil || f.Rates == nil {
		return nil, fmt.Errorf("seismap: remap: source forecast is nil or incomplete")
	}
	if target == nil {
		return nil, fmt.Errorf("seismap: remap: target grid is nil")
	}
	if err := checkShape(f.Grid, f.Rates); err != nil {
		return nil, fmt.Errorf("seismap: remap %s: %v", f.Name, err)
	}
	if len(f.Magnitudes) != f.Rates.Shape[1] {
		return nil, fmt.Errorf("seismap: remap %s: %d magnitude bins but %d rate columns",
			f.Name, len(f.Magnitudes), f.Rates.Shape[1])
	}

	rates, consumed, err := PartitionExact(ctx, target, f.Grid, f.Rates, workers)
	if err != nil {
		return nil, err
	}

	if remaining := complementIndices(consumed, f.Grid.Len()); len(remaining) > 0 {
		sub := f.Grid.subgrid(remaining)
		subRates := subsetRows(f.Rates, remaining)
		overlap, err := DistributeOverlap(ctx, target, sub, subRates, workers)
		if err != nil {
			return nil, err
		}
		rates.AddDense(overlap)
	}

	o, err := NewForecast(f.Name, target, rates, f.Magnitudes)
	if err != nil {
		return nil, err
	}
	o.DepthRange = f.DepthRange
	return o, nil
}

// PartitionExact runs the containment phase of a remap: for each
// target cell it sums the rate rows of the source cells lying entirely
// within the target cell's bounds. Containment is closed-interval, so
// a source cell on the target boundary counts as contained and grids
// that align consume their cells here rather than in the overlap
// phase. For a non-overlapping target partition every source cell is
// consumed by at most one target cell.
//
// It returns one partial rate row per target cell and the sorted set
// of consumed source cell positions.
func PartitionExact(ctx context.Context, target, source *Grid, rates *sparse.DenseArray, workers int) (*sparse.DenseArray, []int, error) {
	if err := checkShape(source, rates); err != nil {
		return nil, nil, fmt.Errorf("seismap: containment phase: %v", err)
	}
	nm := rates.Shape[1]
	partial := sparse.ZerosDense(target.Len(), nm)
	consumedBy := make([][]int, target.Len())

	err := eachCell(ctx, target.Len(), workers, func(i int) {
		t := target.Cells[i]
		var contained []int
		for _, s := range source.searchIntersect(t.Bounds()) {
			if t.Contains(s) {
				contained = append(contained, s.Index)
			}
		}
		// Accumulate in source order so the result does not depend
		// on index structure or scheduling.
		sort.Ints(contained)
		for _, j := range contained {
			for m := 0; m < nm; m++ {
				partial.AddVal(rates.Get(j, m), i, m)
			}
		}
		consumedBy[i] = contained
	})
	if err != nil {
		return nil, nil, err
	}

	var consumed []int
	for _, ii := range consumedBy {
		consumed = append(consumed, ii...)
	}
	sort.Ints(consumed)
	// An overlapping target partition could claim a source cell twice;
	// report each position once.
	uniq := consumed[:0]
	for i, v := range consumed {
		if i == 0 || v != consumed[i-1] {
			uniq = append(uniq, v)
		}
	}
	return partial, uniq, nil
}

// DistributeOverlap runs the overlap phase of a remap: every source
// cell straddling target boundaries contributes to each target cell it
// shares interior area with, in proportion to the shared geodesic area
// divided by the source cell's own area. Cells meeting only along an
// edge or at a corner contribute nothing. Target cells receiving no
// contribution keep zero-filled rows, so the result always has one row
// per target cell.
func DistributeOverlap(ctx context.Context, target, source *Grid, rates *sparse.DenseArray, workers int) (*sparse.DenseArray, error) {
	if err := checkShape(source, rates); err != nil {
		return nil, fmt.Errorf("seismap: overlap phase: %v", err)
	}
	nm := rates.Shape[1]
	out := sparse.ZerosDense(target.Len(), nm)

	err := eachCell(ctx, target.Len(), workers, func(i int) {
		t := target.Cells[i]
		cands := source.searchIntersect(t.Bounds())
		sort.Slice(cands, func(a, b int) bool { return cands[a].Index < cands[b].Index })
		for _, s := range cands {
			shared := t.intersectArea(s)
			if shared == 0 {
				continue
			}
			frac := shared / s.Area()
			for m := 0; m < nm; m++ {
				out.AddVal(rates.Get(s.Index, m)*frac, i, m)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkShape verifies that a rate matrix matches a grid.
func checkShape(g *Grid, rates *sparse.DenseArray) error {
	if len(rates.Shape) != 2 {
		return fmt.Errorf("rate matrix has %d dimensions but must have 2", len(rates.Shape))
	}
	if rates.Shape[0] != g.Len() {
		return fmt.Errorf("rate matrix has %d rows but grid %s has %d cells", rates.Shape[0], g.Name, g.Len())
	}
	return nil
}

// complementIndices returns the positions in [0, n) that are not in
// the sorted list consumed.
func complementIndices(consumed []int, n int) []int {
	remaining := make([]int, 0, n-len(consumed))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(consumed) && consumed[j] == i {
			j++
			continue
		}
		remaining = append(remaining, i)
	}
	return remaining
}

// subsetRows copies the given rows of a rate matrix into a new matrix.
func subsetRows(rates *sparse.DenseArray, rows []int) *sparse.DenseArray {
	nm := rates.Shape[1]
	o := sparse.ZerosDense(len(rows), nm)
	for j, i := range rows {
		for m := 0; m < nm; m++ {
			o.Set(rates.Get(i, m), j, m)
		}
	}
	return o
}

// eachCell calls fn(i) for every i in [0, n), distributing the calls
// over a pool of workers. fn must only write to state owned by slot i.
// If ctx is canceled, undispatched calls are abandoned and the
// context's error is returned after in-flight calls finish.
func eachCell(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(-1)
	}
	cellIndexChan := make(chan int)
	errChan := make(chan error)
	for p := 0; p < workers; p++ {
		go func() {
			for i := range cellIndexChan {
				fn(i)
			}
			errChan <- nil
		}()
	}
	var err error
feed:
	for i := 0; i < n; i++ {
		select {
		case cellIndexChan <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(cellIndexChan)
	for p := 0; p < workers; p++ {
		<-errChan
	}
	return err
}
