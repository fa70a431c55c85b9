package radar

import (
	"context"
	"fmt"
	"math"
)

// Classifier separates biological scatter from precipitation. An
// implementation reads a polar volume and returns a new volume with one
// or more classification parameters appended to its scans; the input is
// never modified. Implementations may be slow (model inference) and must
// honor ctx cancellation.
//
// The concrete model is opaque to this package: today an external neural
// model served over HTTP, with a rule-based threshold strategy as the
// in-process alternative. See internal/adapter/classifier.
type Classifier interface {
	Classify(ctx context.Context, vol *PolarVolume) (*PolarVolume, error)
}

// probabilityParams are classification products constrained to [0,1].
var probabilityParams = map[string]bool{
	ParamWeather: true,
	ParamBiology: true,
}

// discreteParams are classification products constrained to integral ids.
var discreteParams = map[string]bool{
	ParamCell: true,
}

// ValidateClassification checks a classifier's output against the volume
// it was given: the scan list must be unchanged in length and elevation
// order, every added parameter must match its scan's geometry,
// probability products must lie in [0,1] or be NoData, and discrete
// products must be integral or NoData. Any violation fails with a
// ClassificationError; callers then decide whether to fall back to the
// unclassified input.
func ValidateClassification(orig, classified *PolarVolume) error {
	if len(classified.Scans) != len(orig.Scans) {
		return &ClassificationError{Reason: fmt.Sprintf("scan count changed from %d to %d", len(orig.Scans), len(classified.Scans))}
	}

	for i, cs := range classified.Scans {
		os := orig.Scans[i]
		if cs.Elevation != os.Elevation {
			return &ClassificationError{Reason: fmt.Sprintf("scan %d elevation changed from %.2f to %.2f deg", i, os.Elevation, cs.Elevation)}
		}
		if cs.Rays != os.Rays || cs.Bins != os.Bins {
			return &ClassificationError{
				Elevation: cs.Elevation,
				Reason:    fmt.Sprintf("geometry changed from %dx%d to %dx%d", os.Rays, os.Bins, cs.Rays, cs.Bins),
			}
		}

		for name, arr := range cs.Params {
			if _, existing := os.Params[name]; existing {
				continue
			}
			if err := validateAddedParam(cs, name, arr); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateAddedParam(scan *Scan, name string, arr []float64) error {
	if len(arr) != scan.Rays*scan.Bins {
		return &ClassificationError{
			Param:     name,
			Elevation: scan.Elevation,
			Reason:    fmt.Sprintf("geometry %dx%d requires %d samples, array has %d", scan.Rays, scan.Bins, scan.Rays*scan.Bins, len(arr)),
		}
	}

	switch {
	case probabilityParams[name]:
		for i, v := range arr {
			if IsNoData(v) {
				continue
			}
			if v < 0 || v > 1 {
				return &ClassificationError{
					Param:     name,
					Elevation: scan.Elevation,
					Reason:    fmt.Sprintf("probability %g out of [0,1] at index %d", v, i),
				}
			}
		}
	case discreteParams[name]:
		for i, v := range arr {
			if IsNoData(v) {
				continue
			}
			if v != math.Trunc(v) {
				return &ClassificationError{
					Param:     name,
					Elevation: scan.Elevation,
					Reason:    fmt.Sprintf("discrete id %g not integral at index %d", v, i),
				}
			}
		}
	}
	return nil
}

// MergeClassification returns a copy of vol with the added parameters of
// classified attached to the matching scans. It assumes the pair already
// passed ValidateClassification.
func MergeClassification(vol, classified *PolarVolume) *PolarVolume {
	out := vol.clone()
	for i, cs := range classified.Scans {
		for name, arr := range cs.Params {
			if _, existing := out.Scans[i].Params[name]; !existing {
				out.Scans[i].Params[name] = arr
			}
		}
	}
	return out
}
