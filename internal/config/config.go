package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/snapit/price-scraper/internal/models"
)

type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Zepto     PlatformConfig
	Blinkit   PlatformConfig
	Instamart PlatformConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ScraperBinary   string
	ScrapeTimeout   time.Duration
	ShutdownTimeout time.Duration
}

type BrowserConfig struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration
}

// PlatformConfig holds one storefront's storage targets and scrape knobs.
type PlatformConfig struct {
	MongoURI     string
	Database     string
	MaxResults   int
	OutputFile   string
	LastTermFile string
	Latitude     float64
	Longitude    float64
}

type AuthConfig struct {
	MongoURI   string
	Database   string
	Collection string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	mongoURI := getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "5000"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ScraperBinary:   getEnvOrDefault("SCRAPER_BINARY", "./scraper"),
			ScrapeTimeout:   getDurationOrDefault("SCRAPE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Browser: BrowserConfig{
			Headless:  getBoolOrDefault("HEADLESS", true),
			UserAgent: getEnvOrDefault("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			Timeout:   getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			MongoURI:   mongoURI,
			Database:   getEnvOrDefault("AUTH_DB", "snapit_auth"),
			Collection: getEnvOrDefault("AUTH_COLLECTION", "users"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
		Zepto: PlatformConfig{
			MongoURI:     mongoURI,
			Database:     getEnvOrDefault("MONGO_DB", "snapit_zepto"),
			MaxResults:   getIntOrDefault("ZEPTO_MAX_RESULTS", 12),
			OutputFile:   getEnvOrDefault("OUTPUT_FILE", "scraped_data.json"),
			LastTermFile: "last_search_term.txt",
		},
		Blinkit: PlatformConfig{
			MongoURI:     getEnvOrDefault("BLINKIT_MONGO_URI", mongoURI),
			Database:     getEnvOrDefault("BLINKIT_DB", "snapit_blinkit"),
			MaxResults:   getIntOrDefault("BLINKIT_MAX_RESULTS", 12),
			OutputFile:   getEnvOrDefault("BLINKIT_OUTPUT_FILE", "scraped_blinkit.json"),
			LastTermFile: "last_search_term_blinkit.txt",
			Latitude:     getFloatOrDefault("BLINKIT_LAT", 12.9716),
			Longitude:    getFloatOrDefault("BLINKIT_LNG", 77.5946),
		},
		Instamart: PlatformConfig{
			MongoURI:     getEnvOrDefault("INSTAMART_MONGO_URI", mongoURI),
			Database:     getEnvOrDefault("INSTAMART_DB", "snapit_instamart"),
			MaxResults:   getIntOrDefault("INSTAMART_MAX_RESULTS", 5),
			OutputFile:   getEnvOrDefault("INSTAMART_OUTPUT_FILE", "scraped_instamart.json"),
			LastTermFile: "last_search_term_instamart.txt",
			Latitude:     getFloatOrDefault("INSTAMART_LAT", 12.9716),
			Longitude:    getFloatOrDefault("INSTAMART_LNG", 77.5946),
		},
	}

	return cfg, nil
}

// Platform returns the per-storefront section for p.
func (c *Config) Platform(p models.Platform) PlatformConfig {
	switch p {
	case models.PlatformBlinkit:
		return c.Blinkit
	case models.PlatformInstamart:
		return c.Instamart
	default:
		return c.Zepto
	}
}

func (c *Config) Validate() error {
	for _, pc := range []PlatformConfig{c.Zepto, c.Blinkit, c.Instamart} {
		if pc.MaxResults < 1 {
			return fmt.Errorf("max results must be at least 1")
		}
		if pc.MongoURI == "" {
			return fmt.Errorf("mongo URI must not be empty")
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
