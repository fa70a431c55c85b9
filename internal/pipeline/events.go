package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

// RawEvent is an unprocessed message from the source topic: one
// polar-volume interchange document plus its Kafka coordinates.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Product is the PPI product document published to the sink topic: the
// projected raster layers for one sweep plus provenance.
type Product struct {
	ID              string               `json:"id"`
	Site            radar.Site           `json:"site"`
	NominalTime     time.Time            `json:"nominal_time"`
	Elevation       float64              `json:"elevation_deg"`
	MaxRange        float64              `json:"max_range_m"`
	Resolution      float64              `json:"resolution_m"`
	Size            int                  `json:"size"`
	Classified      bool                 `json:"classified"`
	BiologyFraction float64              `json:"biology_fraction"`
	Layers          map[string][]float64 `json:"layers"`
	ProcessedAt     time.Time            `json:"processed_at"`
}

// Summary is the raster-free slice of a Product kept for the archive and
// the /stats endpoint.
type Summary struct {
	ID              string    `json:"id"`
	SiteCode        string    `json:"site_code"`
	NominalTime     time.Time `json:"nominal_time"`
	Elevation       float64   `json:"elevation_deg"`
	Classified      bool      `json:"classified"`
	BiologyFraction float64   `json:"biology_fraction"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// Summary strips the layers from a product.
func (p Product) Summary() Summary {
	return Summary{
		ID:              p.ID,
		SiteCode:        p.Site.Code,
		NominalTime:     p.NominalTime,
		Elevation:       p.Elevation,
		Classified:      p.Classified,
		BiologyFraction: p.BiologyFraction,
		ProcessedAt:     p.ProcessedAt,
	}
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
	Summary Summary
}
