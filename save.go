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
	"encoding/gob"
	"fmt"
	"io"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

func init() {
	gob.Register(&geom.Bounds{})
	gob.Register(geom.Polygon{})
}

// Save writes the forecast to w as a gob snapshot (format description
// at https://golang.org/pkg/encoding/gob/), for fast reloading with
// Load.
func (f *Forecast) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("seismap: saving forecast %s: %v", f.Name, err)
	}
	return nil
}

// Load reads a forecast previously written with Save.
func Load(r io.Reader) (*Forecast, error) {
	f := new(Forecast)
	if err := gob.NewDecoder(r).Decode(f); err != nil {
		return nil, fmt.Errorf("seismap: loading forecast: %v", err)
	}
	if err := f.restore(); err != nil {
		return nil, fmt.Errorf("seismap: loading forecast: %v", err)
	}
	return f, nil
}

// restore rebuilds the unexported state gob encoding drops: the rate
// matrix bookkeeping and the grid's spatial index.
func (f *Forecast) restore() error {
	if f.Grid == nil || f.Rates == nil {
		return fmt.Errorf("forecast %s is incomplete", f.Name)
	}
	f.Rates.Fix()
	f.Grid.restoreIndex()
	return nil
}

// restoreIndex rebuilds the grid's spatial index and any cell
// geometries after decoding.
func (g *Grid) restoreIndex() {
	g.index = rtree.NewTree(25, 50)
	for _, c := range g.Cells {
		if c.Polygonal == nil {
			c.Polygonal = &geom.Bounds{
				Min: geom.Point{X: c.W, Y: c.S},
				Max: geom.Point{X: c.E, Y: c.N},
			}
		}
		g.index.Insert(c)
	}
}
