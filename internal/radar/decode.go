package radar

import (
	"encoding/json"
	"io"
	"time"
)

// Interchange document types. The collector emits this JSON shape after
// converting the site-specific archive format; field names are part of
// the wire contract with the collector and the classifier service.

type volumeDocument struct {
	Site    Site           `json:"site"`
	Nominal time.Time      `json:"nominal_time"`
	Scans   []scanDocument `json:"scans"`
}

type scanDocument struct {
	Elevation   float64              `json:"elevation_deg"`
	AzimuthStep float64              `json:"azimuth_step_deg"`
	RangeStep   float64              `json:"range_step_m"`
	Rays        int                  `json:"rays"`
	Bins        int                  `json:"bins"`
	Params      map[string][]float64 `json:"params"`
}

// LoadVolume decodes a polar-volume interchange document and validates it.
// It fails with a FormatError on malformed JSON, missing site identity,
// empty or duplicate-elevation scan lists, or any parameter array whose
// length disagrees with its scan's geometry.
func LoadVolume(r io.Reader) (*PolarVolume, error) {
	var doc volumeDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &FormatError{Reason: "decode", Err: err}
	}

	vol := &PolarVolume{
		Site:    doc.Site,
		Nominal: doc.Nominal,
		Scans:   make([]*Scan, len(doc.Scans)),
	}
	for i, sd := range doc.Scans {
		params := sd.Params
		if params == nil {
			params = map[string][]float64{}
		}
		vol.Scans[i] = &Scan{
			Elevation:   sd.Elevation,
			AzimuthStep: sd.AzimuthStep,
			RangeStep:   sd.RangeStep,
			Rays:        sd.Rays,
			Bins:        sd.Bins,
			Params:      params,
		}
	}

	if err := vol.validate(); err != nil {
		return nil, err
	}
	return vol, nil
}

// EncodeVolume writes v as an interchange document. Inverse of LoadVolume;
// used by the fixture generator and when posting a volume to the
// classifier service.
func EncodeVolume(w io.Writer, v *PolarVolume) error {
	doc := volumeDocument{
		Site:    v.Site,
		Nominal: v.Nominal,
		Scans:   make([]scanDocument, len(v.Scans)),
	}
	for i, s := range v.Scans {
		doc.Scans[i] = scanDocument{
			Elevation:   s.Elevation,
			AzimuthStep: s.AzimuthStep,
			RangeStep:   s.RangeStep,
			Rays:        s.Rays,
			Bins:        s.Bins,
			Params:      s.Params,
		}
	}
	return json.NewEncoder(w).Encode(doc)
}
