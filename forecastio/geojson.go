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
	"encoding/json"
	"fmt"
	"io"

	"github.com/ctessum/geom/encoding/geojson"

	"github.com/seismodel/seismap"
	"gonum.org/v1/gonum/floats"
)

// featureCollection is the subset of the GeoJSON format that forecast
// output uses.
type featureCollection struct {
	Type     string     `json:"type"`
	CRS      crs        `json:"crs"`
	Features []*feature `json:"features"`
}

// crs is a GeoJSON coordinate reference system.
type crs struct {
	Type       string   `json:"type"`
	Properties crsProps `json:"properties"`
}

type crsProps struct {
	Name string `json:"name"`
}

type feature struct {
	Type       string             `json:"type"`
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties map[string]float64 `json:"properties"`
}

// WriteGeoJSON writes f as a GeoJSON feature collection in WGS84
// coordinates, one polygon feature per cell. Each feature carries one
// property per magnitude bin, named for the bin's lower edge, plus the
// cell's total rate.
func WriteGeoJSON(w io.Writer, f *seismap.Forecast) error {
	o := &featureCollection{
		Type:     "FeatureCollection",
		CRS:      crs{Type: "name", Properties: crsProps{Name: "EPSG:4326"}},
		Features: make([]*feature, f.Grid.Len()),
	}
	for i, c := range f.Grid.Cells {
		g, err := geojson.ToGeoJSON(c.Polygon())
		if err != nil {
			return fmt.Errorf("forecastio: writing %s as geojson: cell %d: %v", f.Name, i, err)
		}
		rates := f.RateVector(i)
		props := make(map[string]float64, len(rates)+1)
		for j, m := range f.Magnitudes {
			props[fmt.Sprintf("M%g", m)] = rates[j]
		}
		props["total"] = floats.Sum(rates)
		o.Features[i] = &feature{
			Type:       "Feature",
			Geometry:   g,
			Properties: props,
		}
	}
	e := json.NewEncoder(w)
	if err := e.Encode(o); err != nil {
		return fmt.Errorf("forecastio: writing %s as geojson: %v", f.Name, err)
	}
	return nil
}
