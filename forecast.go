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

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Forecast is a gridded rate forecast: one expected event rate per
// grid cell and magnitude bin. Rates has shape
// [len(Grid.Cells), len(Magnitudes)]; row i belongs to Grid.Cells[i].
// Magnitudes holds the lower edge of each magnitude bin. DepthRange is
// the depth extent [km] the rates cover; it is carried through
// remapping unchanged.
type Forecast struct {
	Name       string
	Grid       *Grid
	Magnitudes []float64
	DepthRange [2]float64
	Rates      *sparse.DenseArray
}

// NewForecast creates a forecast from a grid, a rate matrix, and
// magnitude bin labels, checking that the three agree in shape.
func NewForecast(name string, grid *Grid, rates *sparse.DenseArray, magnitudes []float64) (*Forecast, error) {
	if grid == nil {
		return nil, fmt.Errorf("seismap: forecast %s: grid is nil", name)
	}
	if rates == nil {
		return nil, fmt.Errorf("seismap: forecast %s: rate matrix is nil", name)
	}
	if len(magnitudes) == 0 {
		return nil, fmt.Errorf("seismap: forecast %s: no magnitude bins", name)
	}
	if len(rates.Shape) != 2 {
		return nil, fmt.Errorf("seismap: forecast %s: rate matrix has %d dimensions but must have 2",
			name, len(rates.Shape))
	}
	if rates.Shape[0] != grid.Len() {
		return nil, fmt.Errorf("seismap: forecast %s: rate matrix has %d rows but grid has %d cells",
			name, rates.Shape[0], grid.Len())
	}
	if rates.Shape[1] != len(magnitudes) {
		return nil, fmt.Errorf("seismap: forecast %s: rate matrix has %d columns but there are %d magnitude bins",
			name, rates.Shape[1], len(magnitudes))
	}
	return &Forecast{
		Name:       name,
		Grid:       grid,
		Magnitudes: magnitudes,
		Rates:      rates,
	}, nil
}

// Copy returns a deep copy of the forecast's rates and magnitudes.
// The grid is immutable and shared.
func (f *Forecast) Copy() *Forecast {
	o := &Forecast{
		Name:       f.Name,
		Grid:       f.Grid,
		Magnitudes: make([]float64, len(f.Magnitudes)),
		DepthRange: f.DepthRange,
		Rates:      f.Rates.Copy(),
	}
	copy(o.Magnitudes, f.Magnitudes)
	return o
}

// Scale returns a copy of f with every rate multiplied by factor.
// Time-independent models are issued as rates per year; scaling by a
// forecast horizon in years yields expected counts for that window.
func (f *Forecast) Scale(factor float64) *Forecast {
	o := f.Copy()
	o.Rates.Scale(factor)
	return o
}

// TotalRate returns the sum of the rates over all cells and magnitude
// bins, the total number of events the forecast expects.
func (f *Forecast) TotalRate() float64 {
	return floats.Sum(f.Rates.Elements)
}

// RateVector returns the rates of cell i, one value per magnitude bin.
// The returned slice is a view into the forecast's rate matrix.
func (f *Forecast) RateVector(i int) []float64 {
	nm := f.Rates.Shape[1]
	return f.Rates.Elements[i*nm : (i+1)*nm]
}

// Coarsen aggregates a forecast on a regular grid into blocks of k × k
// cells, summing the rates within each block. The cell counts of the
// grid must be divisible by k. Coarsening conserves the total rate by
// construction.
func (f *Forecast) Coarsen(k int) (*Forecast, error) {
	g := f.Grid
	if g.Irregular {
		return nil, fmt.Errorf("seismap: coarsening %s: grid %s is not regular", f.Name, g.Name)
	}
	if k < 1 {
		return nil, fmt.Errorf("seismap: coarsening %s: block factor %d must be positive", f.Name, k)
	}
	if g.Nx%k != 0 || g.Ny%k != 0 {
		return nil, fmt.Errorf("seismap: coarsening %s: block factor %d must evenly divide the %d × %d grid",
			f.Name, k, g.Nx, g.Ny)
	}
	nx, ny := g.Nx/k, g.Ny/k
	coarse, err := NewGridRegular(g.Name, nx, ny, g.Dx*float64(k), g.Dy*float64(k), g.X0, g.Y0)
	if err != nil {
		return nil, fmt.Errorf("seismap: coarsening %s: %v", f.Name, err)
	}
	nm := len(f.Magnitudes)
	rates := sparse.ZerosDense(nx*ny, nm)
	for tx := 0; tx < nx; tx++ {
		for ty := 0; ty < ny; ty++ {
			dst := tx*ny + ty
			for bx := 0; bx < k; bx++ {
				for by := 0; by < k; by++ {
					src := (tx*k+bx)*g.Ny + ty*k + by
					for m := 0; m < nm; m++ {
						rates.AddVal(f.Rates.Get(src, m), dst, m)
					}
				}
			}
		}
	}
	o, err := NewForecast(f.Name, coarse, rates, f.Magnitudes)
	if err != nil {
		return nil, err
	}
	o.DepthRange = f.DepthRange
	return o, nil
}
