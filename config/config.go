package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/reviewworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Crawl target
	City               string
	ListingURLTemplate string
	ListingOffsetPages int
	MaxReviewPages     int
	SelectorsFile      string

	// Crawl driver
	ConcurrentRequests     int
	RequestsPerSecond      float64
	MaxConsecutiveFailures int
	CrawlInterval          time.Duration

	// Fetcher / HTTP cache
	HTTPCacheEnabled bool
	HTTPCacheTTL     time.Duration
	CacheBackend     string
	MemcacheAddr     string
	BlockTime        time.Duration
	ProxyURL         string

	// Sink
	Sink       string
	OutputFile string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// MySQL configuration
	MySQLDSN string

	// Observability
	MetricsAddr    string
	FailureLogFile string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	city := getEnv("CITY", "atlanta")

	return &Config{
		City:                   city,
		ListingURLTemplate:     getEnv("LISTING_URL_TEMPLATE", "https://www.tripadvisor.com/Attractions-g60898-Activities-oa{offset}-Atlanta_Georgia.html"),
		ListingOffsetPages:     getEnvInt("LISTING_OFFSET_PAGES", 6),
		MaxReviewPages:         getEnvInt("MAX_REVIEW_PAGES", 20),
		SelectorsFile:          getEnv("SELECTORS_FILE", ""),
		ConcurrentRequests:     getEnvInt("CONCURRENT_REQUESTS", 3),
		RequestsPerSecond:      getEnvFloat("REQUESTS_PER_SECOND", 0),
		MaxConsecutiveFailures: getEnvInt("MAX_CONSECUTIVE_FAILURES", 3),
		CrawlInterval:          time.Duration(getEnvInt("CRAWL_INTERVAL_SECONDS", 0)) * time.Second,
		HTTPCacheEnabled:       getEnvBool("HTTP_CACHE_ENABLED", true),
		HTTPCacheTTL:           time.Duration(getEnvInt("HTTP_CACHE_TTL_SECONDS", 86400)) * time.Second,
		CacheBackend:           getEnv("CACHE_BACKEND", "memory"),
		MemcacheAddr:           getEnv("MEMCACHE_ADDR", "localhost:11211"),
		BlockTime:              time.Duration(getEnvInt("BLOCK_TIME_SECONDS", 500)) * time.Second,
		ProxyURL:               getEnv("PROXY_URL", ""),
		Sink:                   getEnv("SINK", "file"),
		OutputFile:             getEnv("OUTPUT_FILE", "reviews_"+strings.ToLower(city)+".jsonl"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		RedisStream:            getEnv("REDIS_STREAM", "reviews"),
		RedisStreamCount:       getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength:   getEnvInt("REDIS_STREAM_MAX_LENGTH", 100000),
		MySQLDSN:               getEnv("MYSQL_DSN", ""),
		MetricsAddr:            getEnv("METRICS_ADDR", ""),
		FailureLogFile:         getEnv("FAILURE_LOG_FILE", "failed_urls.log"),
		Environment:            getEnv("REVIEW_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the crawl cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.City) == "" {
		return errors.NewConfiguration("CITY must not be empty", nil)
	}
	if !strings.Contains(c.ListingURLTemplate, "{offset}") {
		return errors.NewConfiguration("LISTING_URL_TEMPLATE must contain {offset}", nil)
	}
	if c.ListingOffsetPages < 0 {
		return errors.NewConfiguration("LISTING_OFFSET_PAGES must not be negative", nil)
	}
	if c.MaxReviewPages < 1 {
		return errors.NewConfiguration("MAX_REVIEW_PAGES must be at least 1", nil)
	}
	if c.ConcurrentRequests < 1 {
		return errors.NewConfiguration("CONCURRENT_REQUESTS must be at least 1", nil)
	}
	if c.RequestsPerSecond < 0 {
		return errors.NewConfiguration("REQUESTS_PER_SECOND must not be negative", nil)
	}

	if c.HTTPCacheEnabled && c.HTTPCacheTTL <= 0 {
		return errors.NewConfiguration("HTTP_CACHE_TTL_SECONDS must be positive when the HTTP cache is enabled", nil)
	}
	if c.BlockTime <= 0 {
		return errors.NewConfiguration("BLOCK_TIME_SECONDS must be positive", nil)
	}

	switch c.CacheBackend {
	case "memory", "memcache":
	default:
		return errors.NewConfiguration("unknown CACHE_BACKEND "+c.CacheBackend, nil)
	}

	switch c.Sink {
	case "file":
		if c.OutputFile == "" {
			return errors.NewConfiguration("OUTPUT_FILE is required for the file sink", nil)
		}
	case "redis":
		if c.RedisStreamCount < 1 {
			return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
		}
	case "mysql":
		if c.MySQLDSN == "" {
			return errors.NewConfiguration("MYSQL_DSN is required for the mysql sink", nil)
		}
	default:
		return errors.NewConfiguration("unknown SINK "+c.Sink, nil)
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
