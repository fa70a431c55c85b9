package radar

import (
	"fmt"
	"strings"
)

// FormatError reports an unparseable or structurally invalid volume document.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid volume document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid volume document: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NotFoundError reports a missing scan or parameter. What is "scan" or
// "parameter"; Available summarizes what the volume or scan does contain.
type NotFoundError struct {
	What      string
	Name      string  // parameter name, when What == "parameter"
	Elevation float64 // requested angle, when What == "scan"
	Tolerance float64
	Available []string
}

func (e *NotFoundError) Error() string {
	avail := strings.Join(e.Available, ", ")
	if e.What == "scan" {
		return fmt.Sprintf("no scan within %.3g deg of elevation %.2f deg (have: %s)",
			e.Tolerance, e.Elevation, avail)
	}
	return fmt.Sprintf("parameter %q not present (have: %s)", e.Name, avail)
}

// GeometryMismatchError reports a parameter array whose length does not
// match its scan's rays x bins geometry.
type GeometryMismatchError struct {
	Param     string
	Elevation float64
	Rays      int
	Bins      int
	Len       int
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("parameter %q on %.2f deg scan: geometry %dx%d requires %d samples, array has %d",
		e.Param, e.Elevation, e.Rays, e.Bins, e.Rays*e.Bins, e.Len)
}

// InvalidExtentError reports unusable projection parameters.
type InvalidExtentError struct {
	MaxRange   float64
	Resolution float64
	Reason     string
}

func (e *InvalidExtentError) Error() string {
	return fmt.Sprintf("invalid projection extent (max range %.0f m, resolution %.0f m): %s",
		e.MaxRange, e.Resolution, e.Reason)
}

// ClassificationError reports malformed output from an external classifier.
type ClassificationError struct {
	Param     string
	Elevation float64
	Reason    string
	Err       error
}

func (e *ClassificationError) Error() string {
	msg := fmt.Sprintf("classifier output rejected: %s", e.Reason)
	if e.Param != "" {
		msg = fmt.Sprintf("classifier output rejected: parameter %q on %.2f deg scan: %s",
			e.Param, e.Elevation, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ClassificationError) Unwrap() error { return e.Err }
