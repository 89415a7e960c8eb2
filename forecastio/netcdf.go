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
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/seismodel/seismap"
)

// WriteNetCDF writes f to the netcdf file w. The file stores the cell
// bounds, the magnitude bins, and the rate matrix, plus enough grid
// metadata to reconstruct regular and quadtree grids exactly.
func WriteNetCDF(w *os.File, f *seismap.Forecast) error {
	g := f.Grid
	h := cdf.NewHeader(
		[]string{"cell", "bin"},
		[]int{g.Len(), len(f.Magnitudes)})
	h.AddAttribute("", "comment", "SeisMap gridded earthquake forecast file")
	h.AddAttribute("", "name", f.Name)
	h.AddAttribute("", "data_version", seismap.DataVersion)
	h.AddAttribute("", "depth_min", []float64{f.DepthRange[0]})
	h.AddAttribute("", "depth_max", []float64{f.DepthRange[1]})

	h.AddAttribute("", "grid_name", g.Name)
	irregular := int32(0)
	if g.Irregular {
		irregular = 1
	}
	h.AddAttribute("", "irregular", []int32{irregular})
	h.AddAttribute("", "nx", []int32{int32(g.Nx)})
	h.AddAttribute("", "ny", []int32{int32(g.Ny)})
	h.AddAttribute("", "dx", []float64{g.Dx})
	h.AddAttribute("", "dy", []float64{g.Dy})
	h.AddAttribute("", "x0", []float64{g.X0})
	h.AddAttribute("", "y0", []float64{g.Y0})
	h.AddAttribute("", "quadkeys", strings.Join(g.Quadkeys, ","))

	for _, v := range []string{"lon_min", "lon_max", "lat_min", "lat_max"} {
		h.AddVariable(v, []string{"cell"}, []float64{0.})
		h.AddAttribute(v, "description", fmt.Sprintf("%s grid cell edge", v))
		h.AddAttribute(v, "units", "degrees")
	}
	h.AddVariable("magnitudes", []string{"bin"}, []float64{0.})
	h.AddAttribute("magnitudes", "description", "lower edges of the magnitude bins")
	h.AddVariable("rates", []string{"cell", "bin"}, []float64{0.})
	h.AddAttribute("rates", "description", "expected earthquake rates per cell and magnitude bin")
	h.AddAttribute("rates", "units", "events per forecast period")
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("forecastio: creating netcdf header for %s: %v", f.Name, err)
	}

	ff, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("forecastio: creating netcdf file for %s: %v", f.Name, err)
	}

	bounds := make(map[string][]float64)
	for _, v := range []string{"lon_min", "lon_max", "lat_min", "lat_max"} {
		bounds[v] = make([]float64, g.Len())
	}
	for i, c := range g.Cells {
		bounds["lon_min"][i] = c.W
		bounds["lon_max"][i] = c.E
		bounds["lat_min"][i] = c.S
		bounds["lat_max"][i] = c.N
	}
	for _, v := range []string{"lon_min", "lon_max", "lat_min", "lat_max"} {
		if err := writeVar64(ff, v, bounds[v]); err != nil {
			return fmt.Errorf("forecastio: writing variable %s for %s: %v", v, f.Name, err)
		}
	}
	if err := writeVar64(ff, "magnitudes", f.Magnitudes); err != nil {
		return fmt.Errorf("forecastio: writing variable magnitudes for %s: %v", f.Name, err)
	}
	if err := writeVar64(ff, "rates", f.Rates.Elements); err != nil {
		return fmt.Errorf("forecastio: writing variable rates for %s: %v", f.Name, err)
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("forecastio: finalizing netcdf file for %s: %v", f.Name, err)
	}
	return nil
}

func writeVar64(f *cdf.File, v string, data []float64) error {
	end := f.Header.Lengths(v)
	n := 1
	for _, d := range end {
		n *= d
	}
	if len(data) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data))
	}
	start := make([]int, len(end))
	w := f.Writer(v, start, end)
	_, err := w.Write(data)
	return err
}

// ReadNetCDF reads a forecast from a netcdf file written by
// WriteNetCDF.
func ReadNetCDF(rw cdf.ReaderWriterAt) (*seismap.Forecast, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("forecastio: opening netcdf file: %v", err)
	}

	dataVersion := f.Header.GetAttribute("", "data_version").(string)
	if dataVersion != seismap.DataVersion {
		return nil, fmt.Errorf("forecastio: netcdf data version %s is incompatible "+
			"with the required version %s", dataVersion, seismap.DataVersion)
	}
	name := f.Header.GetAttribute("", "name").(string)
	gridName := f.Header.GetAttribute("", "grid_name").(string)
	depthMin := f.Header.GetAttribute("", "depth_min").([]float64)[0]
	depthMax := f.Header.GetAttribute("", "depth_max").([]float64)[0]
	irregular := f.Header.GetAttribute("", "irregular").([]int32)[0] != 0
	quadkeys := f.Header.GetAttribute("", "quadkeys").(string)

	var grid *seismap.Grid
	switch {
	case quadkeys != "":
		grid, err = seismap.NewGridQuadtree(gridName, strings.Split(quadkeys, ","))
		if err != nil {
			return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
		}
	case !irregular:
		nx := int(f.Header.GetAttribute("", "nx").([]int32)[0])
		ny := int(f.Header.GetAttribute("", "ny").([]int32)[0])
		dx := f.Header.GetAttribute("", "dx").([]float64)[0]
		dy := f.Header.GetAttribute("", "dy").([]float64)[0]
		x0 := f.Header.GetAttribute("", "x0").([]float64)[0]
		y0 := f.Header.GetAttribute("", "y0").([]float64)[0]
		grid, err = seismap.NewGridRegular(gridName, nx, ny, dx, dy, x0, y0)
		if err != nil {
			return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
		}
	default:
		bounds := make(map[string][]float64)
		for _, v := range []string{"lon_min", "lon_max", "lat_min", "lat_max"} {
			bounds[v], err = readVar64(f, v)
			if err != nil {
				return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
			}
		}
		cells := make([]*seismap.Cell, len(bounds["lon_min"]))
		for i := range cells {
			cells[i], err = seismap.NewCell(bounds["lon_min"][i], bounds["lat_min"][i],
				bounds["lon_max"][i], bounds["lat_max"][i])
			if err != nil {
				return nil, fmt.Errorf("forecastio: reading %s: cell %d: %v", name, i, err)
			}
		}
		grid, err = seismap.NewGridIrregular(gridName, cells)
		if err != nil {
			return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
		}
	}

	mags, err := readVar64(f, "magnitudes")
	if err != nil {
		return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
	}
	rateData, err := readVar64(f, "rates")
	if err != nil {
		return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
	}
	dims := f.Header.Lengths("rates")
	rates := sparse.ZerosDense(dims...)
	if len(rateData) != len(rates.Elements) {
		return nil, fmt.Errorf("forecastio: reading %s: dims are %d but "+
			"array length is %d", name, len(rates.Elements), len(rateData))
	}
	copy(rates.Elements, rateData)

	out, err := seismap.NewForecast(name, grid, rates, mags)
	if err != nil {
		return nil, fmt.Errorf("forecastio: reading %s: %v", name, err)
	}
	out.DepthRange = [2]float64{depthMin, depthMax}
	return out, nil
}

// readVar64 reads a full float64 variable and returns it as a
// []float64.
func readVar64(f *cdf.File, v string) ([]float64, error) {
	r := f.Reader(v, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	data, ok := buf.([]float64)
	if !ok {
		return nil, fmt.Errorf("variable %s is %T, not []float64", v, buf)
	}
	return data, nil
}
