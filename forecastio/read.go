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

// Package forecastio reads and writes gridded earthquake forecasts in
// the formats the forecasting community exchanges them in: the
// space-separated gridded text format, quadtree CSV, NetCDF, GeoJSON,
// and gob snapshots.
package forecastio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/seismodel/seismap"
)

// ReadGridded reads a forecast in the gridded text format: a header
// line of the form
//
//	# lon_min lon_max lat_min lat_max depth_min depth_max M0 M1 ...
//
// where the magnitude bin labels follow the six column names, and one
// space-separated row per cell holding the four cell bounds, the depth
// range, and one rate per magnitude bin. The grid is built from the
// cells listed in the file, in file order.
func ReadGridded(r io.Reader, name string) (*seismap.Forecast, error) {
	cells, depths, mags, rates, err := readGriddedRows(r, name)
	if err != nil {
		return nil, err
	}
	grid, err := seismap.NewGridIrregular(name, cells)
	if err != nil {
		return nil, err
	}
	return assemble(name, grid, depths, mags, rates)
}

// ReadGlobal reads a forecast in the gridded text format that is known
// to be on the global grid with cell size dh, in the global grid's
// cell order. The cell bounds in the file are only checked for count,
// not used: text formats round bounds, and the global grid's computed
// bounds are exact.
func ReadGlobal(r io.Reader, name string, dh float64) (*seismap.Forecast, error) {
	grid, err := seismap.NewGridGlobal(dh)
	if err != nil {
		return nil, err
	}
	_, depths, mags, rates, err := readGriddedRows(r, name)
	if err != nil {
		return nil, err
	}
	if rows := len(rates) / len(mags); rows != grid.Len() {
		return nil, fmt.Errorf("forecastio: reading %s: %d rows but the global %g° grid has %d cells",
			name, rows, dh, grid.Len())
	}
	return assemble(name, grid, depths, mags, rates)
}

// readGriddedRows parses the gridded text format into cells, the depth
// range, magnitude bin labels, and a flat row-major rate slice.
func readGriddedRows(r io.Reader, name string) ([]*seismap.Cell, [2]float64, []float64, []float64, error) {
	var depths [2]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: empty file", name)
	}
	header := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(header, "#") {
		return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: missing '#' header line", name)
	}
	fields := strings.Fields(strings.TrimPrefix(header, "#"))
	if len(fields) < 7 {
		return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: header has %d columns but at least 7 are needed",
			name, len(fields))
	}
	mags := make([]float64, len(fields)-6)
	for i, s := range fields[6:] {
		m, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: magnitude bin %q: %v", name, s, err)
		}
		mags[i] = m
	}

	var cells []*seismap.Cell
	var rates []float64
	row := make([]float64, 6+len(mags))
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(row) {
			return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: line %d has %d columns but the header has %d",
				name, line, len(fields), len(row))
		}
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: line %d: %v", name, line, err)
			}
			row[i] = v
		}
		cell, err := seismap.NewCell(row[0], row[2], row[1], row[3])
		if err != nil {
			return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: line %d: %v", name, line, err)
		}
		if len(cells) == 0 {
			depths = [2]float64{row[4], row[5]}
		}
		cells = append(cells, cell)
		rates = append(rates, row[6:]...)
	}
	if err := scanner.Err(); err != nil {
		return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
	}
	if len(cells) == 0 {
		return nil, depths, nil, nil, fmt.Errorf("forecastio: reading %s: no data rows", name)
	}
	return cells, depths, mags, rates, nil
}

// ReadQuadtreeCSV reads a forecast in the quadtree CSV format: a
// header of the form
//
//	Quadkey,depth_min,depth_max,M0,M1,...
//
// where the magnitude bin labels follow the three column names, and
// one row per cell holding the cell's quadkey, the depth range, and
// one rate per magnitude bin.
func ReadQuadtreeCSV(r io.Reader, name string) (*seismap.Forecast, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
	}
	if len(header) < 4 {
		return nil, fmt.Errorf("forecastio: reading %s: header has %d columns but at least 4 are needed",
			name, len(header))
	}
	mags := make([]float64, len(header)-3)
	for i, s := range header[3:] {
		m, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("forecastio: reading %s: magnitude bin %q: %v", name, s, err)
		}
		mags[i] = m
	}

	var depths [2]float64
	var quadkeys []string
	var rates []float64
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
		}
		quadkeys = append(quadkeys, strings.TrimSpace(record[0]))
		row := make([]float64, len(record)-1)
		for i, s := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("forecastio: reading %s: quadkey %s: %v", name, record[0], err)
			}
			row[i] = v
		}
		if len(quadkeys) == 1 {
			depths = [2]float64{row[0], row[1]}
		}
		rates = append(rates, row[2:]...)
	}
	if len(quadkeys) == 0 {
		return nil, fmt.Errorf("forecastio: reading %s: no data rows", name)
	}
	grid, err := seismap.NewGridQuadtree(name, quadkeys)
	if err != nil {
		return nil, err
	}
	return assemble(name, grid, depths, mags, rates)
}

// assemble builds a forecast from parsed parts.
func assemble(name string, grid *seismap.Grid, depths [2]float64, mags, rates []float64) (*seismap.Forecast, error) {
	m := sparse.ZerosDense(len(rates)/len(mags), len(mags))
	copy(m.Elements, rates)
	f, err := seismap.NewForecast(name, grid, m, mags)
	if err != nil {
		return nil, err
	}
	f.DepthRange = depths
	return f, nil
}
