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
)

// EarthRadius is the radius of the spherical earth model [km].
const EarthRadius = 6371.

// Area returns the surface area [km²] of the axis-aligned rectangle
// with the given bounds [degrees] on a spherical earth. The area of a
// latitude band is the difference of two spherical caps, scaled by the
// fraction of the full circle the longitude span covers, so the result
// depends only on the latitude band and the longitude span, not on
// absolute longitude. It returns an error if the bounds do not describe
// a valid rectangle.
func Area(w, s, e, n float64) (float64, error) {
	if !(e > w) {
		return 0, fmt.Errorf("seismap: rectangle area: lon_max %g must be greater than lon_min %g", e, w)
	}
	if !(n > s) {
		return 0, fmt.Errorf("seismap: rectangle area: lat_max %g must be greater than lat_min %g", n, s)
	}
	if s < -90 || n > 90 {
		return 0, fmt.Errorf("seismap: rectangle area: latitude band [%g, %g] outside [-90, 90]", s, n)
	}
	return rectArea(w, s, e, n), nil
}

// rectArea is Area without bounds checking, for use on cells that have
// already been validated.
func rectArea(w, s, e, n float64) float64 {
	const rad = math.Pi / 180
	return EarthRadius * EarthRadius * (math.Sin(n*rad) - math.Sin(s*rad)) * (e - w) * rad
}
