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

package forecastio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/seismodel/seismap"
)

// WriteGridded writes f in the gridded text format read by
// ReadGridded, one row per cell in grid order.
func WriteGridded(w io.Writer, f *seismap.Forecast) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# lon_min lon_max lat_min lat_max depth_min depth_max")
	for _, m := range f.Magnitudes {
		fmt.Fprintf(bw, " %g", m)
	}
	fmt.Fprintln(bw)
	for i, c := range f.Grid.Cells {
		fmt.Fprintf(bw, "%g %g %g %g %g %g", c.W, c.E, c.S, c.N,
			f.DepthRange[0], f.DepthRange[1])
		for _, v := range f.RateVector(i) {
			fmt.Fprintf(bw, " %.16e", v)
		}
		fmt.Fprintln(bw)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("forecastio: writing %s: %v", f.Name, err)
	}
	return nil
}

// WriteQuadtreeCSV writes f in the quadtree CSV format read by
// ReadQuadtreeCSV. The forecast's grid must carry quadkeys, so it must
// have been built by one of the quadtree grid constructors.
func WriteQuadtreeCSV(w io.Writer, f *seismap.Forecast) error {
	if f.Grid.Quadkeys == nil {
		return fmt.Errorf("forecastio: writing %s: grid %s has no quadkeys", f.Name, f.Grid.Name)
	}
	cw := csv.NewWriter(w)
	header := []string{"Quadkey", "depth_min", "depth_max"}
	for _, m := range f.Magnitudes {
		header = append(header, strconv.FormatFloat(m, 'g', -1, 64))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("forecastio: writing %s: %v", f.Name, err)
	}
	record := make([]string, len(header))
	for i, key := range f.Grid.Quadkeys {
		record[0] = key
		record[1] = strconv.FormatFloat(f.DepthRange[0], 'g', -1, 64)
		record[2] = strconv.FormatFloat(f.DepthRange[1], 'g', -1, 64)
		for j, v := range f.RateVector(i) {
			record[3+j] = strconv.FormatFloat(v, 'e', 16, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("forecastio: writing %s: %v", f.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("forecastio: writing %s: %v", f.Name, err)
	}
	return nil
}
