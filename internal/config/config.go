package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Enrollment source kinds accepted by ENROLLMENT_SOURCE.
const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceKafka  = "kafka"
)

const defaultMapStyleURL = "https://basemaps.cartocdn.com/gl/positron-gl-style/style.json"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Enrollment data source.
	EnrollmentSource     string
	EnrollmentFile       string
	KafkaBrokers         []string
	KafkaEnrollmentTopic string
	KafkaLoadTimeout     time.Duration

	// Initial map view handed to the renderer.
	MapStyleURL string
	MapZoom     float64
	MapPitch    float64

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	GeocodeRegion   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	kafkaLoadTimeout, err := parsePositiveDuration("KAFKA_LOAD_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	zoom, err := parseFloat("MAP_ZOOM", "5.2")
	if err != nil {
		return nil, err
	}

	pitch, err := parseFloat("MAP_PITCH", "30")
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

		EnrollmentSource:     sharedcfg.EnvOrDefault("ENROLLMENT_SOURCE", SourceStatic),
		EnrollmentFile:       os.Getenv("ENROLLMENT_FILE"),
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEnrollmentTopic: sharedcfg.EnvOrDefault("KAFKA_ENROLLMENT_TOPIC", "student-enrollment"),
		KafkaLoadTimeout:     kafkaLoadTimeout,

		MapStyleURL: sharedcfg.EnvOrDefault("MAP_STYLE_URL", defaultMapStyleURL),
		MapZoom:     zoom,
		MapPitch:    pitch,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		GeocodeRegion:   sharedcfg.EnvOrDefault("GEOCODE_REGION", "Colombia"),
	}

	switch cfg.EnrollmentSource {
	case SourceStatic:
	case SourceFile:
		if cfg.EnrollmentFile == "" {
			return nil, errors.New("ENROLLMENT_FILE is required when ENROLLMENT_SOURCE=file")
		}
	case SourceKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when ENROLLMENT_SOURCE=kafka")
		}
		if cfg.KafkaEnrollmentTopic == "" {
			return nil, errors.New("KAFKA_ENROLLMENT_TOPIC is required when ENROLLMENT_SOURCE=kafka")
		}
	default:
		return nil, fmt.Errorf("invalid ENROLLMENT_SOURCE %q: want static, file or kafka", cfg.EnrollmentSource)
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

func parseFloat(key, def string) (float64, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
