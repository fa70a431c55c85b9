package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/radar-ppi-etl/internal/observability"
	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

// Derived (precipitation-excised) product names.
const (
	ParamDBZHBio  = "DBZH_BIO"
	ParamVRADHBio = "VRADH_BIO"
)

// Options controls which sweep is rendered and how.
type Options struct {
	Elevation          float64 // degrees
	ElevationTolerance float64 // degrees
	MaxRange           float64 // meters
	Resolution         float64 // meters per raster cell
	WeatherThreshold   float64 // precipitation probability above which gates are excised
	ClassifyTimeout    time.Duration
}

// VolumeTransformer implements Transformer: decode the volume, apply the
// classifier when configured, derive masked products, and project the
// configured sweep onto a PPI raster. Pass a nil classifier to publish
// unclassified products.
type VolumeTransformer struct {
	classifier radar.Classifier
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewTransformer creates a VolumeTransformer.
func NewTransformer(classifier radar.Classifier, opts Options, logger *slog.Logger, metrics *observability.Metrics) *VolumeTransformer {
	return &VolumeTransformer{
		classifier: classifier,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

func (t *VolumeTransformer) Transform(ctx context.Context, raw RawEvent) (OutputEvent, error) {
	vol, err := radar.LoadVolume(bytes.NewReader(raw.Value))
	if err != nil {
		return OutputEvent{}, err
	}

	// Classification is best-effort: a failed or malformed model response
	// downgrades the product to unclassified rather than dropping the
	// volume. The caller of the pipeline sees this only in metrics.
	classified := false
	if t.classifier != nil {
		merged, err := t.classify(ctx, vol)
		if err != nil {
			t.logger.Warn("classification failed, publishing unclassified product",
				"error", err, "site", vol.Site.Code, "nominal_time", vol.Nominal)
			t.metrics.ClassifierFallbacks.Inc()
		} else {
			vol = merged
			classified = true
		}
	}

	scan, err := vol.SelectScan(t.opts.Elevation, t.opts.ElevationTolerance)
	if err != nil {
		return OutputEvent{}, err
	}

	params := presentParams(scan, radar.ParamDBZH, radar.ParamVRADH, radar.ParamRHOHV, radar.ParamWeather, radar.ParamCell)
	bioFraction := 0.0

	if classified {
		scan, err = t.deriveBioProducts(scan)
		if err != nil {
			return OutputEvent{}, err
		}
		if derived, ok := scan.Params[ParamDBZHBio]; ok {
			params = append(params, ParamDBZHBio)
			bioFraction = keptFraction(scan.Params[radar.ParamDBZH], derived)
		}
		if _, ok := scan.Params[ParamVRADHBio]; ok {
			params = append(params, ParamVRADHBio)
		}
	}

	start := time.Now()
	raster, err := radar.Project(scan, params, t.opts.MaxRange, t.opts.Resolution)
	if err != nil {
		return OutputEvent{}, err
	}
	t.metrics.ProjectionDuration.Observe(time.Since(start).Seconds())
	raster.Site = vol.Site

	product := Product{
		ID:              productID(vol.Site.Code, vol.Nominal, scan.Elevation),
		Site:            vol.Site,
		NominalTime:     vol.Nominal,
		Elevation:       scan.Elevation,
		MaxRange:        raster.MaxRange,
		Resolution:      raster.Resolution,
		Size:            raster.Size,
		Classified:      classified,
		BiologyFraction: bioFraction,
		Layers:          raster.Layers,
		ProcessedAt:     clock.Now(),
	}

	value, err := json.Marshal(product)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize product: %w", err)
	}

	return OutputEvent{
		Key:   []byte(product.ID),
		Value: value,
		Headers: map[string]string{
			"site":          product.Site.Code,
			"elevation_deg": fmt.Sprintf("%.2f", product.Elevation),
		},
		Summary: product.Summary(),
	}, nil
}

// classify runs the external classifier under the configured timeout and
// validates its output against the input volume.
func (t *VolumeTransformer) classify(ctx context.Context, vol *radar.PolarVolume) (*radar.PolarVolume, error) {
	if t.opts.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.ClassifyTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := t.classifier.Classify(ctx, vol)
	t.metrics.ClassifyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if err := radar.ValidateClassification(vol, out); err != nil {
		return nil, err
	}
	return radar.MergeClassification(vol, out), nil
}

// deriveBioProducts excises classified precipitation from reflectivity
// and radial velocity. WEATHER probability is preferred; volumes carrying
// only discrete CELL ids mask cells with id >= 1.
func (t *VolumeTransformer) deriveBioProducts(scan *radar.Scan) (*radar.Scan, error) {
	var predParam string
	var pred radar.Predicate
	switch {
	case hasParam(scan, radar.ParamWeather):
		predParam = radar.ParamWeather
		pred = radar.AtLeast(t.opts.WeatherThreshold)
	case hasParam(scan, radar.ParamCell):
		predParam = radar.ParamCell
		pred = radar.AtLeast(1)
	default:
		return scan, nil
	}

	derivations := []struct{ src, derived string }{
		{radar.ParamDBZH, ParamDBZHBio},
		{radar.ParamVRADH, ParamVRADHBio},
	}
	for _, d := range derivations {
		if !hasParam(scan, d.src) {
			continue
		}
		out, err := radar.DeriveParameter(scan, d.derived, d.src, predParam, pred)
		if err != nil {
			return nil, err
		}
		scan = out
	}
	return scan, nil
}

func hasParam(scan *radar.Scan, name string) bool {
	_, ok := scan.Params[name]
	return ok
}

// presentParams filters the candidate names down to those the scan carries.
func presentParams(scan *radar.Scan, candidates ...string) []string {
	out := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if hasParam(scan, name) {
			out = append(out, name)
		}
	}
	return out
}

// keptFraction returns the fraction of valid source gates that survive
// masking, i.e. the share of echo the classifier attributes to biology.
func keptFraction(src, derived []float64) float64 {
	valid, kept := 0, 0
	for i, v := range src {
		if radar.IsNoData(v) {
			continue
		}
		valid++
		if !radar.IsNoData(derived[i]) {
			kept++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(kept) / float64(valid)
}

// productID produces a deterministic ID from the product's key fields.
// Deterministic IDs enable idempotent upserts downstream (ON CONFLICT DO
// NOTHING) and replay safety: reprocessing the same volume produces the
// same ID.
func productID(siteCode string, nominal time.Time, elevation float64) string {
	input := fmt.Sprintf("%s|%s|%.2f", siteCode, nominal.UTC().Format(time.RFC3339), elevation)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if siteCode == "" {
		return short
	}
	return strings.ToLower(siteCode) + "-" + short
}
