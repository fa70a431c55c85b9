package classifier

import (
	"context"

	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

// RuleBased implements radar.Classifier with a dual-polarization
// threshold: a gate is precipitation when its copolar correlation
// coefficient and reflectivity both clear the configured minima.
// Meteorological scatterers are near-uniform in shape (RHOHV close to 1)
// while birds and insects depolarize the return, so a high RHOHV cut
// separates the two reasonably well without a model server.
type RuleBased struct {
	RhohvMin float64 // correlation coefficient at or above which a gate can be precipitation
	DbzhMin  float64 // reflectivity (dBZ) at or above which a gate can be precipitation
}

// NewRuleBased returns the strategy with conventional dual-pol
// thresholds: RHOHV >= 0.95 and DBZH >= 0 dBZ.
func NewRuleBased() *RuleBased {
	return &RuleBased{RhohvMin: 0.95, DbzhMin: 0}
}

// Classify returns a copy of vol with a WEATHER probability parameter
// (hard 0/1) attached to every scan that carries both RHOHV and DBZH;
// scans lacking either input are passed through unclassified. Gates
// where either input is missing stay NoData. The input volume is never
// modified.
func (r *RuleBased) Classify(ctx context.Context, vol *radar.PolarVolume) (*radar.PolarVolume, error) {
	out := &radar.PolarVolume{
		Site:    vol.Site,
		Nominal: vol.Nominal,
		Scans:   make([]*radar.Scan, len(vol.Scans)),
	}

	for i, s := range vol.Scans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scan := &radar.Scan{
			Elevation:   s.Elevation,
			AzimuthStep: s.AzimuthStep,
			RangeStep:   s.RangeStep,
			Rays:        s.Rays,
			Bins:        s.Bins,
			Params:      make(map[string][]float64, len(s.Params)+1),
		}
		for name, arr := range s.Params {
			scan.Params[name] = arr
		}
		out.Scans[i] = scan

		rhohv, okR := s.Params[radar.ParamRHOHV]
		dbzh, okD := s.Params[radar.ParamDBZH]
		if !okR || !okD {
			continue
		}

		weather := make([]float64, s.Rays*s.Bins)
		for j := range weather {
			switch {
			case radar.IsNoData(rhohv[j]) || radar.IsNoData(dbzh[j]):
				weather[j] = radar.NoData
			case rhohv[j] >= r.RhohvMin && dbzh[j] >= r.DbzhMin:
				weather[j] = 1
			default:
				weather[j] = 0
			}
		}
		scan.Params[radar.ParamWeather] = weather
	}

	return out, nil
}
