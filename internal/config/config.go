package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

const dateLayout = "2006-01-02"

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

	// StationDir is the directory station file names in requests resolve against.
	StationDir string
	// SQLitePath enables the results store when set.
	SQLitePath string
	// Export writes CSV tables next to each station file.
	Export bool
	// StationCacheSize bounds the parsed series kept in memory; 0 disables caching.
	StationCacheSize int

	// Detection defaults applied to requests that leave options unset.
	Detection domain.Options
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
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

	detection, err := parseDetection()
	if err != nil {
		return nil, err
	}

	export, err := parseBool("EXPORT", false)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseStationCacheSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "heatwave-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "heatwave-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "heatwave-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		StationDir:         sharedcfg.EnvOrDefault("STATION_DIR", "./data"),
		SQLitePath:         os.Getenv("SQLITE_PATH"),
		Export:             export,
		StationCacheSize:   cacheSize,
		Detection:          detection,
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

	return cfg, nil
}

func parseDetection() (domain.Options, error) {
	opts := domain.DefaultOptions()

	start, err := parseDate("REFERENCE_START", opts.ReferenceStart)
	if err != nil {
		return domain.Options{}, err
	}
	end, err := parseDate("REFERENCE_END", opts.ReferenceEnd)
	if err != nil {
		return domain.Options{}, err
	}
	if end.Before(start) {
		return domain.Options{}, errors.New("REFERENCE_END must not be before REFERENCE_START")
	}
	opts.ReferenceStart, opts.ReferenceEnd = start, end

	if s, ok := os.LookupEnv("SEASON_MONTHS"); ok {
		season, err := domain.ParseSeason(s)
		if err != nil {
			return domain.Options{}, fmt.Errorf("invalid SEASON_MONTHS: %w", err)
		}
		opts.Season = season
	}

	if opts.ComputeMetrics, err = parseBool("COMPUTE_METRICS", opts.ComputeMetrics); err != nil {
		return domain.Options{}, err
	}

	if s := os.Getenv("MAX_MISSING_DAYS_PCT"); s != "" {
		pct, err := strconv.ParseFloat(s, 64)
		if err != nil || pct < 0 || pct > 100 {
			return domain.Options{}, errors.New("invalid MAX_MISSING_DAYS_PCT: must be between 0 and 100")
		}
		opts.MaxMissingDaysPct = pct
	}

	return opts, nil
}

func parseStationCacheSize() (int, error) {
	s := os.Getenv("STATION_CACHE_SIZE")
	if s == "" {
		return 64, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid STATION_CACHE_SIZE: must be a non-negative integer")
	}
	return n, nil
}

func parseDate(key string, fallback time.Time) (time.Time, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: want YYYY-MM-DD", key)
	}
	return t, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
