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

// Package seismap transfers gridded earthquake forecasts between
// spatial partitions of the globe. A forecast is a set of axis-aligned
// longitude/latitude cells, each carrying one expected event rate per
// magnitude bin; competing forecasts are often issued on incompatible
// partitions (uniform grids at different resolutions, or quadtree
// partitions), and must be re-expressed on a common target partition
// before they can be compared. The remapping preserves the total
// forecast rate: rates of source cells fully contained in a target cell
// transfer whole, and cells straddling target boundaries are split in
// proportion to geographic area.
package seismap

// Version gives the version number of this version of SeisMap.
const Version = "0.3.1"

// DataVersion is the version of the forecast data format used by this
// version of SeisMap. It is written to and checked against stored
// forecast files.
const DataVersion = "1"
