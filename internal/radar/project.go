package radar

import (
	"math"
	"runtime"
	"sync"
)

// CartesianRaster is a square PPI grid centered on the radar site, north
// up, produced by Project. Each requested parameter becomes one layer of
// Size*Size cells (flat row-major, row*Size+col); cells outside the
// projected sweep hold NoData. Rasters are read-only once built and owned
// by the caller that requested them.
type CartesianRaster struct {
	Site       Site
	Elevation  float64
	Size       int     // cells per side
	Resolution float64 // meters per cell
	MaxRange   float64 // meters from site to grid edge
	Layers     map[string][]float64
}

// Index returns the flat layer index of (row, col).
func (r *CartesianRaster) Index(row, col int) int { return row*r.Size + col }

// At returns the value of param at (row, col), or NoData when the layer
// is absent.
func (r *CartesianRaster) At(param string, row, col int) float64 {
	layer, ok := r.Layers[param]
	if !ok {
		return NoData
	}
	return layer[r.Index(row, col)]
}

// Project resamples the named scan parameters onto a Cartesian raster of
// the given half-extent and cell size. For each output cell the polar
// coordinates of the cell center select a source cell by nearest
// neighbour: ray = round(azimuth/AzimuthStep) mod Rays (azimuth wraps
// modulo 360 deg), bin = floor(range/RangeStep). Cells beyond maxRange or
// beyond the scan's last bin are NoData. A cell whose center coincides
// exactly with the site has undefined azimuth and is NoData by convention.
//
// The projection is flat-earth: slant range is treated as ground range.
// At the ranges this service renders (<=150 km at low elevation) the
// planimetric error stays under one range bin; callers needing height
// use BeamHeight. The function is pure: identical inputs always produce
// identical rasters. The cell loop runs in parallel over disjoint row
// stripes, which does not affect the result.
//
// It fails with an InvalidExtentError for non-positive or inconsistent
// extents, a NotFoundError for an unknown parameter, and a
// GeometryMismatchError for an array that disagrees with the scan.
func Project(scan *Scan, params []string, maxRange, resolution float64) (*CartesianRaster, error) {
	switch {
	case maxRange <= 0:
		return nil, &InvalidExtentError{MaxRange: maxRange, Resolution: resolution, Reason: "max range must be positive"}
	case resolution <= 0:
		return nil, &InvalidExtentError{MaxRange: maxRange, Resolution: resolution, Reason: "resolution must be positive"}
	case resolution > maxRange:
		return nil, &InvalidExtentError{MaxRange: maxRange, Resolution: resolution, Reason: "resolution exceeds max range"}
	case len(params) == 0:
		return nil, &InvalidExtentError{MaxRange: maxRange, Resolution: resolution, Reason: "no parameters requested"}
	}

	sources := make([][]float64, len(params))
	for i, name := range params {
		arr, err := scanArray(scan, name)
		if err != nil {
			return nil, err
		}
		sources[i] = arr
	}

	size := int(math.Ceil(2 * maxRange / resolution))
	// Site identity lives on the volume, not the scan; callers that carry
	// volume context fill raster.Site after projection.
	raster := &CartesianRaster{
		Elevation:  scan.Elevation,
		Size:       size,
		Resolution: resolution,
		MaxRange:   maxRange,
		Layers:     make(map[string][]float64, len(params)),
	}
	layers := make([][]float64, len(params))
	for i, name := range params {
		layer := make([]float64, size*size)
		for j := range layer {
			layer[j] = NoData
		}
		layers[i] = layer
		raster.Layers[name] = layer
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > size {
		workers = size
	}
	stripe := (size + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < size; start += stripe {
		end := start + stripe
		if end > size {
			end = size
		}
		wg.Add(1)
		go func(row0, row1 int) {
			defer wg.Done()
			projectRows(scan, sources, layers, raster, row0, row1)
		}(start, end)
	}
	wg.Wait()

	return raster, nil
}

// projectRows fills raster rows [row0, row1). Each worker writes a
// disjoint stripe of every layer, so no synchronization is needed.
func projectRows(scan *Scan, sources, layers [][]float64, raster *CartesianRaster, row0, row1 int) {
	for row := row0; row < row1; row++ {
		y := raster.MaxRange - (float64(row)+0.5)*raster.Resolution
		for col := 0; col < raster.Size; col++ {
			x := (float64(col)+0.5)*raster.Resolution - raster.MaxRange

			ray, bin, ok := locate(scan, x, y, raster.MaxRange)
			if !ok {
				continue
			}

			src := scan.Index(ray, bin)
			dst := raster.Index(row, col)
			for i := range sources {
				layers[i][dst] = sources[i][src]
			}
		}
	}
}

// locate maps a Cartesian offset (x east, y north) from the site to the
// polar cell containing it. ok is false beyond maxRange, beyond the
// scan's last bin, and at the site itself where azimuth is undefined.
func locate(scan *Scan, x, y, maxRange float64) (ray, bin int, ok bool) {
	r := math.Hypot(x, y)
	if r == 0 || r > maxRange {
		return 0, 0, false
	}
	bin = int(r / scan.RangeStep)
	if bin >= scan.Bins {
		return 0, 0, false
	}

	// Azimuth clockwise from north: atan2(east, north), wrapped to [0,360).
	az := math.Atan2(x, y) * (180 / math.Pi)
	if az < 0 {
		az += 360
	}
	ray = int(math.Round(az/scan.AzimuthStep)) % scan.Rays
	return ray, bin, true
}

// effectiveEarthRadius is the 4/3 earth-radius model radius in meters,
// the standard approximation for microwave refraction in the troposphere.
const effectiveEarthRadius = 4.0 / 3.0 * 6371000

// BeamHeight returns the height above sea level, in meters, of the beam
// center at the given slant range and elevation angle, for a radar at
// siteAltitude, under the 4/3 effective-earth-radius model.
func BeamHeight(slantRange, elevationDeg, siteAltitude float64) float64 {
	el := elevationDeg * (math.Pi / 180)
	return siteAltitude - effectiveEarthRadius +
		math.Sqrt(slantRange*slantRange+
			effectiveEarthRadius*effectiveEarthRadius+
			2*slantRange*effectiveEarthRadius*math.Sin(el))
}
