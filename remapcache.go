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
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/ctessum/requestcache"

	"github.com/seismodel/seismap/internal/hash"
)

// Remapper runs remaps through a result cache, so that repeated
// requests for the same forecast and target grid, for example one per
// evaluation time window, are only computed once. The zero value is
// ready to use and caches in memory only.
type Remapper struct {
	// Workers is the worker count passed to Remap.
	Workers int

	// CacheLoc is a directory for caching results between program
	// runs. If it is empty, results are only cached in memory.
	CacheLoc string

	// MaxCacheEntries is the memory cache capacity. Values below 1
	// select a default of 10.
	MaxCacheEntries int

	loadOnce sync.Once
	cache    *requestcache.Cache
}

type remapRequest struct {
	forecast *Forecast
	target   *Grid
	workers  int
}

// key identifies a request by its remap-relevant content: the source
// partition, rates and magnitude bins, and the target partition. The
// grid indexes and names are irrelevant to the result and unexported
// fields are skipped by the hash.
func (r *remapRequest) key() string {
	return "remap_" + hash.Hash([]interface{}{
		r.forecast.Grid.Cells,
		r.forecast.Rates.Elements,
		r.forecast.Magnitudes,
		r.target.Cells,
	})
}

// Remap is equivalent to the package-level Remap, but serves repeated
// requests from the cache. The returned forecast is shared with the
// cache and must not be modified by the caller.
func (r *Remapper) Remap(ctx context.Context, f *Forecast, target *Grid) (*Forecast, error) {
	r.loadOnce.Do(func() {
		entries := r.MaxCacheEntries
		if entries < 1 {
			entries = 10
		}
		if r.CacheLoc == "" {
			r.cache = requestcache.NewCache(r.run, 1,
				requestcache.Deduplicate(), requestcache.Memory(entries))
		} else {
			r.cache = requestcache.NewCache(r.run, 1,
				requestcache.Deduplicate(), requestcache.Memory(entries),
				requestcache.Disk(r.CacheLoc, marshalForecast, unmarshalForecast))
		}
	})
	if f == nil || f.Grid == nil || f.Rates == nil {
		return nil, fmt.Errorf("seismap: remap: source forecast is nil or incomplete")
	}
	if target == nil {
		return nil, fmt.Errorf("seismap: remap: target grid is nil")
	}
	req := &remapRequest{forecast: f, target: target, workers: r.Workers}
	result, err := r.cache.NewRequest(ctx, req, req.key()).Result()
	if err != nil {
		return nil, err
	}
	return result.(*Forecast), nil
}

// run computes a remap request; it is the processor at the end of the
// cache pipeline.
func (r *Remapper) run(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(*remapRequest)
	return Remap(ctx, req.forecast, req.target, req.workers)
}

// marshalForecast gob-encodes a remap result; the data argument is a
// pointer to the result as required for a Disk cache marshalFunc.
func marshalForecast(data interface{}) ([]byte, error) {
	f := (*data.(*interface{})).(*Forecast)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("seismap: caching remap result: %v", err)
	}
	return buf.Bytes(), nil
}

func unmarshalForecast(b []byte) (interface{}, error) {
	f := new(Forecast)
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(f); err != nil {
		return nil, fmt.Errorf("seismap: reading cached remap result: %v", err)
	}
	if err := f.restore(); err != nil {
		return nil, fmt.Errorf("seismap: reading cached remap result: %v", err)
	}
	return f, nil
}
