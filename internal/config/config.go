package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
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

	// Station catalog source and refresh.
	CatalogSource          string // file path or http(s) URL
	CatalogRefreshInterval time.Duration
	CatalogFetchTimeout    time.Duration

	// Station matching.
	StationAliases     domain.AliasTable
	MatchTrace         bool
	MatchCacheSize     int
	WeakMatchThreshold float64

	// Interpolation defaults for the grid endpoint.
	IDWPower       float64
	GridResolution int
	GridBounds     domain.BoundingBox
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("CATALOG_REFRESH_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parsePositiveDuration("CATALOG_FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	aliases, err := domain.ParseAliases(sharedcfg.EnvOrDefault("STATION_ALIASES", domain.DefaultAliases().String()))
	if err != nil {
		return nil, fmt.Errorf("invalid STATION_ALIASES: %w", err)
	}

	cacheSize, err := parsePositiveInt("MATCH_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	weakThreshold, err := parseFloat("WEAK_MATCH_THRESHOLD", 0)
	if err != nil {
		return nil, err
	}
	if weakThreshold < 0 || weakThreshold > 1 {
		return nil, errors.New("invalid WEAK_MATCH_THRESHOLD: must be within [0, 1]")
	}

	power, err := parseFloat("IDW_POWER", domain.DefaultPower)
	if err != nil {
		return nil, err
	}
	if power < 0 || math.IsNaN(power) || math.IsInf(power, 0) {
		return nil, errors.New("invalid IDW_POWER: must be a finite non-negative number")
	}

	resolution, err := parsePositiveInt("GRID_RESOLUTION", domain.DefaultGridResolution)
	if err != nil {
		return nil, err
	}

	bounds, err := domain.ParseBoundingBox(sharedcfg.EnvOrDefault("GRID_BBOX", domain.NetherlandsBounds.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid GRID_BBOX: %w", err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-station-measurements"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "station-observations"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "station-observation-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		CatalogSource:          sharedcfg.EnvOrDefault("CATALOG_SOURCE", "data/stations.csv"),
		CatalogRefreshInterval: refreshInterval,
		CatalogFetchTimeout:    fetchTimeout,

		StationAliases:     aliases,
		MatchTrace:         os.Getenv("MATCH_TRACE") == "true",
		MatchCacheSize:     cacheSize,
		WeakMatchThreshold: weakThreshold,

		IDWPower:       power,
		GridResolution: resolution,
		GridBounds:     bounds,
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
	if cfg.CatalogSource == "" {
		return nil, errors.New("CATALOG_SOURCE is required")
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

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
