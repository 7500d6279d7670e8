package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Mode selects what the query string means.
type Mode string

const (
	ModeCity   Mode = "city"   // query is a city name
	ModeURL    Mode = "url"    // query is a full search URL
	ModeSingle Mode = "single" // query is one listing URL
)

const (
	// DefaultWorkers is used when the requested worker count cannot be parsed.
	DefaultWorkers = 3

	// MinWorkers and MaxWorkers bound the pool regardless of what was asked for.
	MinWorkers = 1
	MaxWorkers = 10
)

// Config holds all runtime configuration for the scraper.
type Config struct {
	Mode        Mode
	Query       string
	MaxListings int
	Workers     int
	Sequential  bool

	OutFile        string
	ScreenshotPath string
	Headless       bool
	UserAgent      string
	Locale         string
	Timezone       string

	// Timing
	NavTimeout    time.Duration
	SettleTimeout time.Duration
	ScrollDelay   time.Duration
	DetailTimeout time.Duration
	GlobalTimeout time.Duration

	// Discovery bounds
	MaxScrolls        int
	NoChangeThreshold int

	// PostgreSQL (optional sink)
	DBEnabled  bool
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// Default returns a Config populated with sensible defaults, with env
// overrides applied. A .env file next to the binary is honoured when present.
func Default() Config {
	_ = godotenv.Load()

	return Config{
		Mode:        ModeCity,
		Query:       "Paris",
		MaxListings: 20,
		Workers:     DefaultWorkers,
		Sequential:  false,

		OutFile:        "airbnb_listings.csv",
		ScreenshotPath: "search_debug.png",
		Headless:       getEnvBool("HEADLESS", true),
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		Locale:   "en-US",
		Timezone: "Europe/London",

		NavTimeout:    45 * time.Second,
		SettleTimeout: 10 * time.Second,
		ScrollDelay:   1200 * time.Millisecond,
		DetailTimeout: 60 * time.Second,
		GlobalTimeout: 90 * time.Minute,

		MaxScrolls:        150,
		NoChangeThreshold: 8,

		DBEnabled:  getEnvBool("DB_ENABLED", false),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5433),
		DBUser:     getEnv("DB_USER", "airbnb"),
		DBPassword: getEnv("DB_PASSWORD", "airbnb"),
		DBName:     getEnv("DB_NAME", "airbnb_analytics"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// ClampWorkers parses a requested worker count and bounds it to
// [MinWorkers, MaxWorkers]. Anything unparseable falls back to DefaultWorkers.
func ClampWorkers(requested string) int {
	n, err := strconv.Atoi(requested)
	if err != nil {
		n = DefaultWorkers
	}
	return ClampWorkerCount(n)
}

// ClampWorkerCount bounds an already-numeric worker count.
func ClampWorkerCount(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// BatchDelay is the longer pause between independent query batches
// (e.g. between cities in a multi-city run).
func BatchDelay() time.Duration {
	return 5 * time.Second
}

// CityBatch is an optional YAML file listing cities for a multi-query run.
type CityBatch struct {
	Cities []string `yaml:"cities"`
}

// LoadCityBatch reads a YAML city list, e.g.
//
//	cities:
//	  - Amsterdam
//	  - Athens
func LoadCityBatch(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city batch %s: %w", path, err)
	}
	var batch CityBatch
	if err := yaml.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("parse city batch %s: %w", path, err)
	}
	if len(batch.Cities) == 0 {
		return nil, fmt.Errorf("city batch %s lists no cities", path)
	}
	return batch.Cities, nil
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
