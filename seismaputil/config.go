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

package seismaputil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/seismodel/seismap"
	"github.com/seismodel/seismap/forecastio"
)

// ParseGridSpec builds a grid from a specification string. The
// accepted forms are:
//
//	global:<dh>                          the global grid with dh-degree cells
//	regular:<nx>:<ny>:<dx>:<dy>:<x0>:<y0>  a regular grid
//	level:<L>                            the full quadtree grid at zoom level L
//
// Any other string is treated as the path or URL of a forecast file,
// and the grid of that forecast is returned.
func ParseGridSpec(ctx context.Context, spec string) (*seismap.Grid, error) {
	switch {
	case spec == "":
		return nil, fmt.Errorf("seismaputil: empty grid specification")
	case strings.HasPrefix(spec, "global:"):
		dh, err := cast.ToFloat64E(strings.TrimPrefix(spec, "global:"))
		if err != nil {
			return nil, fmt.Errorf("seismaputil: parsing grid specification %s: %v", spec, err)
		}
		return seismap.NewGridGlobal(dh)
	case strings.HasPrefix(spec, "regular:"):
		parts := strings.Split(strings.TrimPrefix(spec, "regular:"), ":")
		if len(parts) != 6 {
			return nil, fmt.Errorf("seismaputil: grid specification %s has %d fields but regular grids need 6",
				spec, len(parts))
		}
		nx, err := cast.ToIntE(parts[0])
		if err != nil {
			return nil, fmt.Errorf("seismaputil: parsing grid specification %s: %v", spec, err)
		}
		ny, err := cast.ToIntE(parts[1])
		if err != nil {
			return nil, fmt.Errorf("seismaputil: parsing grid specification %s: %v", spec, err)
		}
		g := make([]float64, 4)
		for i, p := range parts[2:] {
			g[i], err = cast.ToFloat64E(p)
			if err != nil {
				return nil, fmt.Errorf("seismaputil: parsing grid specification %s: %v", spec, err)
			}
		}
		return seismap.NewGridRegular("regular", nx, ny, g[0], g[1], g[2], g[3])
	case strings.HasPrefix(spec, "level:"):
		level, err := cast.ToIntE(strings.TrimPrefix(spec, "level:"))
		if err != nil {
			return nil, fmt.Errorf("seismaputil: parsing grid specification %s: %v", spec, err)
		}
		return seismap.NewGridQuadtreeLevel(fmt.Sprintf("level%d", level), level)
	default:
		f, err := ReadForecastFile(ctx, spec, "auto", "")
		if err != nil {
			return nil, err
		}
		return f.Grid, nil
	}
}

// formatFromExt guesses a forecast file format from the file name.
func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		return "gob"
	case ".nc", ".ncf":
		return "nc"
	case ".csv":
		return "csv"
	default:
		return "gridded"
	}
}

// ReadForecastFile reads the forecast stored at path, downloading it
// first if path is a URL. format chooses the file format ("gridded",
// "csv", "nc", or "gob"); "auto" or the empty string chooses based on
// the file extension. For the gridded text format, a gridSpec of the
// form "global:<dh>" reads the file onto the exact global grid instead
// of rebuilding cells from the rounded bounds in the file.
func ReadForecastFile(ctx context.Context, path, format, gridSpec string) (*seismap.Forecast, error) {
	if path == "" {
		return nil, fmt.Errorf("seismaputil: no input file specified")
	}
	local, err := forecastio.MaybeDownload(ctx, path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(local), filepath.Ext(local))
	if format == "" || format == "auto" {
		format = formatFromExt(local)
	}
	r, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("seismaputil: opening %s: %v", path, err)
	}
	defer r.Close()
	switch format {
	case "gob":
		return seismap.Load(r)
	case "nc":
		return forecastio.ReadNetCDF(r)
	case "csv":
		return forecastio.ReadQuadtreeCSV(r, name)
	case "gridded":
		if strings.HasPrefix(gridSpec, "global:") {
			dh, err := cast.ToFloat64E(strings.TrimPrefix(gridSpec, "global:"))
			if err != nil {
				return nil, fmt.Errorf("seismaputil: parsing grid specification %s: %v", gridSpec, err)
			}
			return forecastio.ReadGlobal(r, name, dh)
		}
		return forecastio.ReadGridded(r, name)
	default:
		return nil, fmt.Errorf("seismaputil: unknown forecast format %s", format)
	}
}

// WriteForecastFile writes f to path in the format implied by the file
// extension: ".gob", ".nc" or ".ncf", ".csv", ".geojson" or ".json",
// or the gridded text format for anything else.
func WriteForecastFile(f *seismap.Forecast, path string) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("seismaputil: creating %s: %v", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		err = f.Save(w)
	case ".nc", ".ncf":
		err = forecastio.WriteNetCDF(w, f)
	case ".csv":
		err = forecastio.WriteQuadtreeCSV(w, f)
	case ".geojson", ".json":
		err = forecastio.WriteGeoJSON(w, f)
	default:
		err = forecastio.WriteGridded(w, f)
	}
	if err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="remapped.dat")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("seismap: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}
