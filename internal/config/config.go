package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Sweep selection and projection parameters.
	Elevation          float64 // degrees; the sweep rendered per volume
	ElevationTolerance float64 // degrees
	MaxRange           float64 // meters
	RasterResolution   float64 // meters per raster cell

	// Classifier boundary configuration.
	ClassifierURL     string
	ClassifierEnabled bool
	ClassifierTimeout time.Duration
	WeatherThreshold  float64 // precipitation probability above which gates are excised

	// Optional SQLite product archive; empty disables it.
	ArchivePath string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	flushInterval, err := envDuration("BATCH_FLUSH_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	classifierTimeout, err := envDuration("CLASSIFIER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	batchSize, err := envInt("BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}

	elevation, err := envFloat("ELEVATION_ANGLE", 0.5)
	if err != nil {
		return nil, err
	}
	elevationTol, err := envFloat("ELEVATION_TOLERANCE", 0.05)
	if err != nil {
		return nil, err
	}
	maxRange, err := envFloat("MAX_RANGE_M", 150000)
	if err != nil {
		return nil, err
	}
	resolution, err := envFloat("RASTER_RESOLUTION_M", 500)
	if err != nil {
		return nil, err
	}
	weatherThreshold, err := envFloat("WEATHER_THRESHOLD", 0.5)
	if err != nil {
		return nil, err
	}

	classifierURL := os.Getenv("CLASSIFIER_URL")
	classifierEnabled := classifierURL != ""
	if v := os.Getenv("CLASSIFIER_ENABLED"); v != "" {
		classifierEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "raw-polar-volumes"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "ppi-products"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "radar-ppi-etl"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Elevation:          elevation,
		ElevationTolerance: elevationTol,
		MaxRange:           maxRange,
		RasterResolution:   resolution,

		ClassifierURL:     classifierURL,
		ClassifierEnabled: classifierEnabled,
		ClassifierTimeout: classifierTimeout,
		WeatherThreshold:  weatherThreshold,

		ArchivePath: os.Getenv("ARCHIVE_PATH"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MaxRange <= 0 || cfg.RasterResolution <= 0 || cfg.RasterResolution > cfg.MaxRange {
		return nil, errors.New("MAX_RANGE_M and RASTER_RESOLUTION_M must be positive with resolution <= max range")
	}
	if cfg.WeatherThreshold < 0 || cfg.WeatherThreshold > 1 {
		return nil, errors.New("WEATHER_THRESHOLD must be within [0,1]")
	}
	if cfg.ClassifierEnabled && cfg.ClassifierURL == "" {
		return nil, errors.New("CLASSIFIER_ENABLED is true but CLASSIFIER_URL is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
