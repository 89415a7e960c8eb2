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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ctessum/geom/encoding/geojson"

	"github.com/seismodel/seismap"
)

func TestWriteGeoJSON(t *testing.T) {
	f := testForecast("pair",
		[]*seismap.Cell{
			testCell(0, 0, 10, 10),
			testCell(10, 0, 20, 10),
		},
		[][]float64{{4, 1}, {2, 3}},
		[]float64{5, 6})

	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, f); err != nil {
		t.Fatal(err)
	}
	var fc featureCollection
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("have type %q, want %q", fc.Type, "FeatureCollection")
	}
	if fc.CRS.Properties.Name != "EPSG:4326" {
		t.Errorf("have CRS %q, want %q", fc.CRS.Properties.Name, "EPSG:4326")
	}
	if len(fc.Features) != 2 {
		t.Fatalf("have %d features, want 2", len(fc.Features))
	}
	sum := func(prop string) float64 {
		s := 0.
		for _, ft := range fc.Features {
			s += ft.Properties[prop]
		}
		return s
	}
	if s := sum("M5"); s != 6 {
		t.Errorf("M5 sum is %g, want 6", s)
	}
	if s := sum("M6"); s != 4 {
		t.Errorf("M6 sum is %g, want 4", s)
	}
	if s := sum("total"); s != 10 {
		t.Errorf("total sum is %g, want 10", s)
	}
	g, err := geojson.FromGeoJSON(fc.Features[0].Geometry)
	if err != nil {
		t.Fatal(err)
	}
	b := g.Bounds()
	if b.Min.X != 0 || b.Min.Y != 0 || b.Max.X != 10 || b.Max.Y != 10 {
		t.Errorf("feature 0 bounds are %v, want (0, 0) to (10, 10)", b)
	}
}
