// Package config loads service settings from environment variables, applying
// defaults where unset and validating the rest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaGroupID    string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// BatchSize bounds how many alerts one scheduled run drains from the
	// feed; FetchWait is how long the drain waits for a further message
	// before calling the snapshot complete.
	BatchSize int
	FetchWait time.Duration

	// DBPath is the SQLite database file holding alerts and provenance.
	DBPath string

	// Reference dataset paths (region↔postal crosswalk, postal centroids,
	// postal gazetteer), loaded once per process.
	CrosswalkPath string
	CentroidPath  string
	GazetteerPath string

	// RatioThreshold is the inclusive residential-ratio cutoff τ for the
	// baseline strategy.
	RatioThreshold float64

	// DamageKeywords configures the default keyword classifier; empty keeps
	// the built-in list.
	DamageKeywords []string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchWait, err := parseDuration("FETCH_WAIT", "2s")
	if err != nil {
		return nil, err
	}
	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}
	threshold, err := parseRatioThreshold()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:    splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "hazard-alerts"),
		KafkaGroupID:    envOrDefault("KAFKA_GROUP_ID", "alert-enrichment"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		BatchSize:       batchSize,
		FetchWait:       fetchWait,
		DBPath:          envOrDefault("DB_PATH", "data/alerts.db"),
		CrosswalkPath:   envOrDefault("CROSSWALK_PATH", "data/ref/county_zip_crosswalk.csv"),
		CentroidPath:    envOrDefault("CENTROID_PATH", "data/ref/zip_centroids.csv"),
		GazetteerPath:   envOrDefault("GAZETTEER_PATH", "data/ref/zip_gazetteer.csv"),
		RatioThreshold:  threshold,
		DamageKeywords:  splitList(os.Getenv("DAMAGE_KEYWORDS")),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, fmt.Errorf("KAFKA_ALERT_TOPIC is required")
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	s := envOrDefault("BATCH_SIZE", "200")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5000 {
		return 0, fmt.Errorf("invalid BATCH_SIZE (want 1..5000)")
	}
	return n, nil
}

func parseRatioThreshold() (float64, error) {
	s := envOrDefault("RATIO_THRESHOLD", "0.5")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 1 {
		return 0, fmt.Errorf("invalid RATIO_THRESHOLD (want (0,1])")
	}
	return v, nil
}
