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

	"github.com/ctessum/geom/index/rtree"
)

// maxQuadtreeLevel bounds single-resolution quadtree grids to 4^12
// (about 16.8 million) cells.
const maxQuadtreeLevel = 12

// quadkeyToTile decodes a quadkey into Web-Mercator tile coordinates.
// Each key digit selects one quadrant of the parent tile, so the zoom
// level is the key length. The empty key is the whole world tile.
func quadkeyToTile(quadkey string) (x, y, z int, err error) {
	z = len(quadkey)
	for _, digit := range quadkey {
		x <<= 1
		y <<= 1
		switch digit {
		case '0':
		case '1':
			x++
		case '2':
			y++
		case '3':
			x++
			y++
		default:
			return 0, 0, 0, fmt.Errorf("seismap: quadkey %q: invalid digit %q", quadkey, digit)
		}
	}
	return x, y, z, nil
}

// tileLon returns the longitude [degrees] of the western edge of tile
// column x at zoom z.
func tileLon(x, z int) float64 {
	return float64(x)/math.Exp2(float64(z))*360 - 180
}

// tileLat returns the latitude [degrees] of the northern edge of tile
// row y at zoom z.
func tileLat(y, z int) float64 {
	yn := math.Pi * (1 - 2*float64(y)/math.Exp2(float64(z)))
	return math.Atan(math.Sinh(yn)) * 180 / math.Pi
}

// TileBounds returns the geographic bounds [degrees], ordered west,
// south, east, north, of the Web-Mercator tile named by quadkey. The
// empty key covers the full Mercator extent, longitude ±180 and
// latitude about ±85.05.
func TileBounds(quadkey string) (w, s, e, n float64, err error) {
	x, y, z, err := quadkeyToTile(quadkey)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	w = tileLon(x, z)
	e = tileLon(x+1, z)
	s = tileLat(y+1, z)
	n = tileLat(y, z)
	return w, s, e, n, nil
}

// QuadkeyArea returns the geodesic surface area [km²] of the tile
// named by quadkey.
func QuadkeyArea(quadkey string) (float64, error) {
	w, s, e, n, err := TileBounds(quadkey)
	if err != nil {
		return 0, err
	}
	return rectArea(w, s, e, n), nil
}

// NewGridQuadtree creates a grid from a list of quadkeys, keeping the
// given order. The keys may mix zoom levels but must describe disjoint
// tiles: a key given together with one of its ancestors is rejected,
// as is any repeated key.
func NewGridQuadtree(name string, quadkeys []string) (*Grid, error) {
	grid := &Grid{
		Name:      name,
		Irregular: true,
		Nx:        1,
		Ny:        len(quadkeys),
		Cells:     make([]*Cell, len(quadkeys)),
		Quadkeys:  make([]string, len(quadkeys)),
		index:     rtree.NewTree(25, 50),
	}
	for i, key := range quadkeys {
		w, s, e, n, err := TileBounds(key)
		if err != nil {
			return nil, fmt.Errorf("seismap: grid %s: %v", name, err)
		}
		cell, err := NewCell(w, s, e, n)
		if err != nil {
			return nil, fmt.Errorf("seismap: grid %s: quadkey %q: %v", name, key, err)
		}
		if err := grid.addCell(cell, i); err != nil {
			return nil, err
		}
		grid.Quadkeys[i] = key
	}
	return grid, nil
}

// NewGridQuadtreeLevel creates the single-resolution quadtree grid at
// zoom level, containing every level-length quadkey in lexicographic
// order.
func NewGridQuadtreeLevel(name string, level int) (*Grid, error) {
	if level < 0 || level > maxQuadtreeLevel {
		return nil, fmt.Errorf("seismap: grid %s: quadtree level %d outside [0, %d]", name, level, maxQuadtreeLevel)
	}
	n := 1 << (2 * uint(level))
	quadkeys := make([]string, n)
	digits := make([]byte, level)
	for i := 0; i < n; i++ {
		v := i
		for j := level - 1; j >= 0; j-- {
			digits[j] = byte('0' + v&3)
			v >>= 2
		}
		quadkeys[i] = string(digits)
	}
	return NewGridQuadtree(name, quadkeys)
}
