package radar

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// NoData is the reserved sentinel for missing or out-of-range samples.
// It is a conventional radar fill value well below any valid measurement
// of the supported quantities and must never be coerced to zero.
const NoData float64 = -9999

// IsNoData reports whether v is the missing-sample sentinel.
func IsNoData(v float64) bool { return v == NoData }

// DefaultElevationTolerance is the scan-selection tolerance in degrees.
// Elevation angles are measured floating point; reported angles commonly
// wobble by a few thousandths of a degree between volumes.
const DefaultElevationTolerance = 0.01

// Standard ODIM parameter names plus the classifier-added products.
const (
	ParamDBZH    = "DBZH"    // horizontal reflectivity factor (dBZ)
	ParamVRADH   = "VRADH"   // horizontal radial velocity (m/s)
	ParamRHOHV   = "RHOHV"   // copolar correlation coefficient
	ParamWeather = "WEATHER" // precipitation probability [0,1]
	ParamBiology = "BIOLOGY" // biological-scatter probability [0,1]
	ParamCell    = "CELL"    // discrete precipitation-cell id
)

// Site identifies the radar that produced a volume.
type Site struct {
	Code     string  `json:"code"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Altitude float64 `json:"altitude_m"`
}

// PolarVolume is one full collection cycle: the site, the nominal
// collection time, and one scan per elevation angle, ordered by angle.
type PolarVolume struct {
	Site    Site
	Nominal time.Time
	Scans   []*Scan
}

// Scan is a single elevation sweep: a polar grid of Rays x Bins cells
// carrying named parameter arrays that all share that geometry.
type Scan struct {
	Elevation   float64 // degrees above horizontal
	AzimuthStep float64 // degrees per ray, clockwise from true north
	RangeStep   float64 // meters per bin
	Rays        int
	Bins        int
	Params      map[string][]float64 // flat row-major, ray*Bins+bin
}

// Index returns the flat array index of (ray, bin).
func (s *Scan) Index(ray, bin int) int { return ray*s.Bins + bin }

// At returns the value of param at (ray, bin), or NoData when the
// parameter is absent.
func (s *Scan) At(param string, ray, bin int) float64 {
	arr, ok := s.Params[param]
	if !ok {
		return NoData
	}
	return arr[s.Index(ray, bin)]
}

// ParamNames returns the scan's parameter names in sorted order.
func (s *Scan) ParamNames() []string {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// clone returns a shallow copy of the scan with its own parameter map.
// The arrays themselves are shared: they are never mutated, so sharing
// is safe and keeps enrichment cheap.
func (s *Scan) clone() *Scan {
	out := *s
	out.Params = make(map[string][]float64, len(s.Params)+1)
	for name, arr := range s.Params {
		out.Params[name] = arr
	}
	return &out
}

// validate checks the scan's geometry and every parameter array against it.
func (s *Scan) validate() error {
	if s.Rays <= 0 || s.Bins <= 0 {
		return &FormatError{Reason: fmt.Sprintf("scan at %.2f deg: non-positive geometry %dx%d", s.Elevation, s.Rays, s.Bins)}
	}
	if s.AzimuthStep <= 0 || s.RangeStep <= 0 {
		return &FormatError{Reason: fmt.Sprintf("scan at %.2f deg: non-positive resolution (azimuth %.3f deg, range %.1f m)", s.Elevation, s.AzimuthStep, s.RangeStep)}
	}
	for name, arr := range s.Params {
		if len(arr) != s.Rays*s.Bins {
			return &GeometryMismatchError{
				Param:     name,
				Elevation: s.Elevation,
				Rays:      s.Rays,
				Bins:      s.Bins,
				Len:       len(arr),
			}
		}
	}
	return nil
}

// clone returns a copy of the volume with its own scan slice. Scans are
// cloned shallowly; see Scan.clone.
func (v *PolarVolume) clone() *PolarVolume {
	out := *v
	out.Scans = make([]*Scan, len(v.Scans))
	for i, s := range v.Scans {
		out.Scans[i] = s.clone()
	}
	return &out
}

// validate checks site identity, scan ordering, and per-scan geometry.
func (v *PolarVolume) validate() error {
	if v.Site.Code == "" {
		return &FormatError{Reason: "missing site code"}
	}
	if len(v.Scans) == 0 {
		return &FormatError{Reason: "volume has no scans"}
	}
	seen := make(map[float64]bool, len(v.Scans))
	for _, s := range v.Scans {
		if err := s.validate(); err != nil {
			return err
		}
		if seen[s.Elevation] {
			return &FormatError{Reason: fmt.Sprintf("duplicate elevation angle %.2f deg", s.Elevation)}
		}
		seen[s.Elevation] = true
	}
	return nil
}

// Elevations returns the volume's elevation angles in scan order.
func (v *PolarVolume) Elevations() []float64 {
	angles := make([]float64, len(v.Scans))
	for i, s := range v.Scans {
		angles[i] = s.Elevation
	}
	return angles
}

// SelectScan returns the scan whose elevation is nearest to angle within
// tol degrees. A non-positive tol falls back to DefaultElevationTolerance.
// When no scan qualifies it fails with a NotFoundError listing the
// volume's angles.
func (v *PolarVolume) SelectScan(angle, tol float64) (*Scan, error) {
	if tol <= 0 {
		tol = DefaultElevationTolerance
	}

	var best *Scan
	bestDist := math.Inf(1)
	for _, s := range v.Scans {
		d := math.Abs(s.Elevation - angle)
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	if best == nil || bestDist > tol {
		return nil, &NotFoundError{
			What:      "scan",
			Elevation: angle,
			Tolerance: tol,
			Available: formatAngles(v.Elevations()),
		}
	}
	return best, nil
}

func formatAngles(angles []float64) []string {
	out := make([]string, len(angles))
	for i, a := range angles {
		out[i] = fmt.Sprintf("%.2f", a)
	}
	return out
}
