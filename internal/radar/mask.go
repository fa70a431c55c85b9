package radar

import "fmt"

// Predicate decides, from a predicate-parameter value, whether a cell
// should be excised from the derived product.
type Predicate func(float64) bool

// AtLeast returns a Predicate satisfied by values >= threshold. NoData
// cells never satisfy it, so unclassified gates keep their source value.
func AtLeast(threshold float64) Predicate {
	return func(v float64) bool {
		return !IsNoData(v) && v >= threshold
	}
}

// DeriveParameter returns a new scan carrying newName: a copy of
// sourceParam in which every cell whose predicateParam value satisfies
// pred is replaced with NoData, and every other cell copies the source
// value unchanged. The input scan and its arrays are never modified;
// existing parameters are shared with the result so originals stay
// available for comparison and audit.
//
// It fails with a NotFoundError when either parameter is absent, and
// with a GeometryMismatchError when either array disagrees with the
// scan's geometry.
func DeriveParameter(scan *Scan, newName, sourceParam, predicateParam string, pred Predicate) (*Scan, error) {
	if _, exists := scan.Params[newName]; exists {
		return nil, &FormatError{Reason: fmt.Sprintf("derived parameter %q already present on %.2f deg scan", newName, scan.Elevation)}
	}

	src, err := scanArray(scan, sourceParam)
	if err != nil {
		return nil, err
	}
	prd, err := scanArray(scan, predicateParam)
	if err != nil {
		return nil, err
	}

	derived := make([]float64, len(src))
	for i, v := range src {
		if pred(prd[i]) {
			derived[i] = NoData
			continue
		}
		derived[i] = v
	}

	out := scan.clone()
	out.Params[newName] = derived
	return out, nil
}

// scanArray fetches a named parameter array and checks it against the
// scan geometry.
func scanArray(scan *Scan, name string) ([]float64, error) {
	arr, ok := scan.Params[name]
	if !ok {
		return nil, &NotFoundError{What: "parameter", Name: name, Available: scan.ParamNames()}
	}
	if len(arr) != scan.Rays*scan.Bins {
		return nil, &GeometryMismatchError{
			Param:     name,
			Elevation: scan.Elevation,
			Rays:      scan.Rays,
			Bins:      scan.Bins,
			Len:       len(arr),
		}
	}
	return arr, nil
}
