// Package radar models weather-surveillance-radar polar volumes and the
// derived products built from them.
//
// # Data Source
//
// Polar volumes arrive as interchange JSON documents published by the
// upstream collector service, which downloads site archive files on a cron
// schedule and converts them from the site-specific binary format. One
// document holds one full volume: the radar site, the nominal collection
// time, and one scan per elevation angle.
//
// # Geometry Conventions
//
// A scan is a 2D polar grid of rays x bins. Rays step clockwise from true
// north in increments of AzimuthStep degrees (0.5 deg and 720 rays for a
// typical full sweep); bins step outward from the site in increments of
// RangeStep meters (250 m and up to 1201 bins for 300 km coverage). Every
// parameter array of a scan is a flat row-major []float64 of length
// rays*bins, indexed ray*bins+bin. All arrays of one scan share that
// geometry; this is validated at construction and never assumed.
//
// # Parameters
//
// Parameter names follow the ODIM quantity vocabulary:
//
//	DBZH   horizontal reflectivity factor (dBZ)
//	VRADH  horizontal radial velocity (m/s)
//	RHOHV  copolar correlation coefficient (0-1)
//
// The classifier boundary appends its own parameters (WEATHER precipitation
// probability in [0,1], CELL discrete precipitation-cell id, BIOLOGY
// biological-scatter probability). The parameter map is deliberately open:
// new products attach to a scan without touching the model types. Derived
// (masked) products conventionally carry a suffix, e.g. DBZH_BIO is
// reflectivity with classified precipitation excised.
//
// # Missing Data
//
// Missing and out-of-range samples carry the reserved sentinel NoData
// (-9999), a conventional radar-format fill value. The sentinel survives
// every transformation in this package; it is never coerced to zero, and
// no valid measurement of any supported quantity reaches it.
//
// # Mutation Model
//
// Volumes and scans are never modified in place. Enrichment (classifier
// output, masking) returns a new value sharing the untouched source
// arrays, so earlier products stay available for comparison and audit and
// a failed transformation can always be discarded safely.
package radar
