package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed and refresh configuration.
	FeedURL         string
	FeedTimeout     time.Duration
	RefreshInterval time.Duration
	RefreshSchedule string // optional cron spec; overrides RefreshInterval

	// Normalization defaults.
	DefaultCity       string
	DefaultCountry    string
	ClassifierGapBand domain.Band

	// Heatmap configuration.
	TrafficSeed      int64 // 0 seeds from the clock
	ProfileCacheSize int // initial capacity, grows with the zone count
	GeohashPrecision int

	// Snapshot publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Tracing configuration.
	TracingEnabled     bool
	TracingExporter    string
	TracingEndpoint    string
	TracingSampleRatio float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	refreshSchedule := os.Getenv("REFRESH_SCHEDULE")
	if refreshSchedule != "" {
		if _, err := cron.ParseStandard(refreshSchedule); err != nil {
			return nil, fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
		}
	}

	gapBand, err := domain.ParseGapBand(sharedcfg.EnvOrDefault("CLASSIFIER_GAP_BAND", "good"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFIER_GAP_BAND: %w", err)
	}

	trafficSeed, err := parseSeed()
	if err != nil {
		return nil, err
	}

	precision := parsePositiveInt("HEATMAP_GEOHASH_PRECISION", 6)
	if precision > 12 {
		return nil, errors.New("HEATMAP_GEOHASH_PRECISION must be between 1 and 12")
	}

	sampleRatio, err := parseSampleRatio()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedURL:         sharedcfg.EnvOrDefault("FEED_URL", "http://localhost:3000/api/parking"),
		FeedTimeout:     feedTimeout,
		RefreshInterval: refreshInterval,
		RefreshSchedule: refreshSchedule,

		DefaultCity:       sharedcfg.EnvOrDefault("DEFAULT_CITY", "Timișoara"),
		DefaultCountry:    sharedcfg.EnvOrDefault("DEFAULT_COUNTRY", "Romania"),
		ClassifierGapBand: gapBand,

		TrafficSeed:      trafficSeed,
		ProfileCacheSize: parsePositiveInt("PROFILE_CACHE_SIZE", 1000),
		GeohashPrecision: precision,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "parking-zone-snapshots"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),

		TracingEnabled:     os.Getenv("TRACING_ENABLED") == "true",
		TracingExporter:    sharedcfg.EnvOrDefault("TRACING_EXPORTER", "stdout"),
		TracingEndpoint:    os.Getenv("TRACING_ENDPOINT"),
		TracingSampleRatio: sampleRatio,
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("FEED_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func parseSeed() (int64, error) {
	s := os.Getenv("TRAFFIC_SEED")
	if s == "" {
		return 0, nil
	}
	seed, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid TRAFFIC_SEED")
	}
	return seed, nil
}

func parseSampleRatio() (float64, error) {
	s := os.Getenv("TRACING_SAMPLE_RATIO")
	if s == "" {
		return 1, nil
	}
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 0, errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}
	return ratio, nil
}
