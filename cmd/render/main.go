// Command render projects a single polar volume file to a Cartesian PPI
// raster without going through Kafka. Useful for inspecting volumes and
// debugging classification offline.
//
// Usage:
//
//	go run ./cmd/render \
//	  -in data/ktst_240426_1510.json \
//	  -out ktst_ppi.json \
//	  -elevation 0.5 -max-range 150000 -resolution 500 \
//	  -classify
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/radar-ppi-etl/internal/adapter/classifier"
	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

func main() {
	in := flag.String("in", "", "input polar volume JSON file (- for stdin)")
	out := flag.String("out", "", "output raster JSON file (default stdout)")
	elevation := flag.Float64("elevation", 0.5, "target elevation angle in degrees")
	tolerance := flag.Float64("tolerance", radar.DefaultElevationTolerance, "elevation match tolerance in degrees")
	maxRange := flag.Float64("max-range", 150000, "maximum slant range in meters")
	resolution := flag.Float64("resolution", 500, "raster cell size in meters")
	threshold := flag.Float64("threshold", 0.5, "weather probability above which cells are excised")
	classify := flag.Bool("classify", false, "run the built-in rule-based classifier before masking")
	classifierURL := flag.String("classifier-url", "", "classify via a model server instead of the built-in rules")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*in, *out, options{
		elevation:     *elevation,
		tolerance:     *tolerance,
		maxRange:      *maxRange,
		resolution:    *resolution,
		threshold:     *threshold,
		classify:      *classify,
		classifierURL: *classifierURL,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	elevation     float64
	tolerance     float64
	maxRange      float64
	resolution    float64
	threshold     float64
	classify      bool
	classifierURL string
}

func run(in, out string, opts options) error {
	vol, err := readVolume(in)
	if err != nil {
		return err
	}

	if opts.classify || opts.classifierURL != "" {
		classified, err := classifyVolume(vol, opts)
		if err != nil {
			return fmt.Errorf("classify: %w", err)
		}
		vol = classified
	}

	scan, err := vol.SelectScan(opts.elevation, opts.tolerance)
	if err != nil {
		return err
	}

	params := []string{radar.ParamDBZH}
	if _, ok := scan.Params[radar.ParamWeather]; ok {
		masked, err := radar.DeriveParameter(scan, "DBZH_BIO", radar.ParamDBZH,
			radar.ParamWeather, radar.AtLeast(opts.threshold))
		if err != nil {
			return err
		}
		scan = masked
		params = append(params, "DBZH_BIO", radar.ParamWeather)
	}

	raster, err := radar.Project(scan, params, opts.maxRange, opts.resolution)
	if err != nil {
		return err
	}
	raster.Site = vol.Site

	return writeRaster(out, raster)
}

func readVolume(path string) (*radar.PolarVolume, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return radar.LoadVolume(r)
}

func classifyVolume(vol *radar.PolarVolume, opts options) (*radar.PolarVolume, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var clf radar.Classifier = classifier.NewRuleBased()
	if opts.classifierURL != "" {
		clf = classifier.NewClient(opts.classifierURL, 30*time.Second, slog.Default())
	}

	out, err := clf.Classify(ctx, vol)
	if err != nil {
		return nil, err
	}
	if err := radar.ValidateClassification(vol, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeRaster(path string, raster *radar.CartesianRaster) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raster)
}
