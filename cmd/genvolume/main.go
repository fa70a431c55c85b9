// Command genvolume generates a synthetic polar volume fixture: a uniform
// biological background with an embedded rain cell and a ring of roost
// departures. It uses the actual radar domain package so the fixture
// round-trips through the same decoder the pipeline uses.
//
// Usage:
//
//	go run ./cmd/genvolume \
//	  -site KTST -elevations 0.5,1.5,2.5 \
//	  -out data/mock/ktst_240426_1510.json
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

var nominal = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	site := flag.String("site", "KTST", "radar site code")
	elevations := flag.String("elevations", "0.5,1.5,2.5", "comma-separated elevation angles in degrees")
	rays := flag.Int("rays", 360, "rays per scan")
	bins := flag.Int("bins", 300, "range bins per ray")
	rangeStep := flag.Float64("range-step", 500, "range bin size in meters")
	out := flag.String("out", "", "output path for the volume JSON fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	angles, err := parseElevations(*elevations)
	if err != nil {
		return err
	}

	vol := &radar.PolarVolume{
		Site:    radar.Site{Code: *site, Lat: 35.333, Lon: -97.278, Altitude: 370},
		Nominal: nominal,
		Scans:   make([]*radar.Scan, 0, len(angles)),
	}
	for _, angle := range angles {
		vol.Scans = append(vol.Scans, synthesizeScan(angle, *rays, *bins, *rangeStep))
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := radar.EncodeVolume(f, vol); err != nil {
		return fmt.Errorf("encoding volume: %w", err)
	}

	log.Printf("%s: %d scans, %dx%d cells each", *out, len(angles), *rays, *bins)
	return nil
}

func parseElevations(s string) ([]float64, error) {
	var angles []float64
	for _, part := range strings.Split(s, ",") {
		angle, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad elevation %q: %w", part, err)
		}
		angles = append(angles, angle)
	}
	return angles, nil
}

// synthesizeScan builds one sweep. The scene has three components:
//
//   - a diffuse biological background filling ranges below 60 km, fading
//     with range and elevation the way insect layers do
//   - a convective cell centered 40 km out at azimuth 240, with strong
//     reflectivity and high correlation
//   - a roost ring at 25 km around azimuth 60, low RHOHV
func synthesizeScan(elevation float64, rays, bins int, rangeStep float64) *radar.Scan {
	azStep := 360.0 / float64(rays)
	n := rays * bins

	dbzh := make([]float64, n)
	vradh := make([]float64, n)
	rhohv := make([]float64, n)

	for ray := 0; ray < rays; ray++ {
		az := float64(ray) * azStep
		for bin := 0; bin < bins; bin++ {
			i := ray*bins + bin
			r := (float64(bin) + 0.5) * rangeStep

			d, v, rho := background(r, elevation)
			if cd, cv, crho, ok := rainCell(az, r); ok {
				d, v, rho = cd, cv, crho
			} else if rd, rv, rrho, ok := roostRing(az, r); ok {
				d, v, rho = rd, rv, rrho
			}

			dbzh[i] = d
			vradh[i] = v
			rhohv[i] = rho
		}
	}

	return &radar.Scan{
		Elevation:   elevation,
		AzimuthStep: azStep,
		RangeStep:   rangeStep,
		Rays:        rays,
		Bins:        bins,
		Params: map[string][]float64{
			radar.ParamDBZH:  dbzh,
			radar.ParamVRADH: vradh,
			radar.ParamRHOHV: rhohv,
		},
	}
}

// background is the diffuse bioscatter layer. Beyond 60 km the beam
// overshoots it and cells are missing.
func background(r, elevation float64) (dbzh, vradh, rhohv float64) {
	if r > 60000 || radar.BeamHeight(r, elevation, 0) > 3000 {
		return radar.NoData, radar.NoData, radar.NoData
	}
	fade := 1 - r/80000
	return 5 + 10*fade, -4, 0.75
}

// rainCell is a gaussian-ish reflectivity core at azimuth 240, 40 km.
func rainCell(az, r float64) (dbzh, vradh, rhohv float64, ok bool) {
	dAz := angleDiff(az, 240)
	dR := (r - 40000) / 8000
	dist := dAz*dAz/100 + dR*dR
	if dist > 1 {
		return 0, 0, 0, false
	}
	return 55 - 20*dist, 8, 0.99, true
}

// roostRing is a thin annulus of departing birds at 25 km, azimuth 60.
func roostRing(az, r float64) (dbzh, vradh, rhohv float64, ok bool) {
	if math.Abs(r-25000) > 2000 || angleDiff(az, 60) > 45 {
		return 0, 0, 0, false
	}
	return 18, -12, 0.55, true
}

// angleDiff returns the absolute angular distance in degrees, wrapped.
func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
