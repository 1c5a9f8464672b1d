package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Storage  StorageConfig
	Export   ExportConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type ScraperConfig struct {
	Query         string
	Pages         int
	MaxLinks      int
	RateLimitMin  time.Duration
	RateLimitMax  time.Duration
	SearchSettle  time.Duration
	ResultsWait   time.Duration
	ScrollTimes   int
	ScrollPause   time.Duration
	NextPageWait  time.Duration
	PageSettle    time.Duration
	NextPageLoad  time.Duration
	ProductSettle time.Duration
	SelectorsFile string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgent      string
	ProxyServer    string
}

type StorageConfig struct {
	LinksBackend string
	LinksFile    string
	LinksKey     string
}

type ExportConfig struct {
	CatalogFile  string
	FilteredFile string
	MinRating    float64
	MaxPrice     int
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	EventsEnabled  bool
	ProductsStream string
}

type MetricsConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level         string
	Format        string
	File          string
	FileMaxSizeMB int
	FileBackups   int
	FileMaxAge    int
}

const (
	LinksBackendFile  = "file"
	LinksBackendRedis = "redis"
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
		},
		Scraper: ScraperConfig{
			Query:         getEnvOrDefault("SCRAPER_QUERY", "пальто из натуральной шерсти"),
			Pages:         getIntOrDefault("SCRAPER_PAGES", 2),
			MaxLinks:      getIntOrDefault("SCRAPER_MAX_LINKS", 15),
			RateLimitMin:  getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 2*time.Second),
			RateLimitMax:  getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 4*time.Second),
			SearchSettle:  getDurationOrDefault("SCRAPER_SEARCH_SETTLE", 5*time.Second),
			ResultsWait:   getDurationOrDefault("SCRAPER_RESULTS_WAIT", 4*time.Second),
			ScrollTimes:   getIntOrDefault("SCRAPER_SCROLL_TIMES", 3),
			ScrollPause:   getDurationOrDefault("SCRAPER_SCROLL_PAUSE", 2*time.Second),
			NextPageWait:  getDurationOrDefault("SCRAPER_NEXT_PAGE_WAIT", 5*time.Second),
			PageSettle:    getDurationOrDefault("SCRAPER_PAGE_SETTLE", 3*time.Second),
			NextPageLoad:  getDurationOrDefault("SCRAPER_NEXT_PAGE_LOAD", 10*time.Second),
			ProductSettle: getDurationOrDefault("SCRAPER_PRODUCT_SETTLE", 3*time.Second),
			SelectorsFile: getEnvOrDefault("SCRAPER_SELECTORS_FILE", ""),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "ru-RU,ru;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Moscow"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "ru-RU"),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Storage: StorageConfig{
			LinksBackend: getEnvOrDefault("LINKS_BACKEND", LinksBackendFile),
			LinksFile:    getEnvOrDefault("LINKS_FILE", "product_links.json"),
			LinksKey:     getEnvOrDefault("LINKS_REDIS_KEY", "wb:product_links"),
		},
		Export: ExportConfig{
			CatalogFile:  getEnvOrDefault("EXPORT_CATALOG_FILE", "wildberries_catalog.xlsx"),
			FilteredFile: getEnvOrDefault("EXPORT_FILTERED_FILE", "filtered_catalog.xlsx"),
			MinRating:    getFloatOrDefault("FILTER_MIN_RATING", 4.5),
			MaxPrice:     getIntOrDefault("FILTER_MAX_PRICE", 10000),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "wb_catalog"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: getIntOrDefault("DB_MAX_CONNS", 4),
		},
		Redis: RedisConfig{
			Addr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:       getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:             getIntOrDefault("REDIS_DB", 0),
			EventsEnabled:  getBoolOrDefault("REDIS_EVENTS_ENABLED", false),
			ProductsStream: getEnvOrDefault("REDIS_PRODUCTS_STREAM", "stream:wb_products"),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:         getEnvOrDefault("LOG_LEVEL", "info"),
			Format:        getEnvOrDefault("LOG_FORMAT", "text"),
			File:          getEnvOrDefault("LOG_FILE", ""),
			FileMaxSizeMB: getIntOrDefault("LOG_FILE_MAX_SIZE_MB", 50),
			FileBackups:   getIntOrDefault("LOG_FILE_MAX_BACKUPS", 3),
			FileMaxAge:    getIntOrDefault("LOG_FILE_MAX_AGE_DAYS", 14),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a port number, got %q", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Scraper.Query == "" {
		return fmt.Errorf("SCRAPER_QUERY must not be empty")
	}

	if c.Scraper.Pages < 1 {
		return fmt.Errorf("SCRAPER_PAGES must be at least 1")
	}

	if c.Scraper.MaxLinks < 1 {
		return fmt.Errorf("SCRAPER_MAX_LINKS must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Scraper.ScrollTimes < 0 {
		return fmt.Errorf("SCRAPER_SCROLL_TIMES cannot be negative")
	}

	switch c.Storage.LinksBackend {
	case LinksBackendFile:
		if c.Storage.LinksFile == "" {
			return fmt.Errorf("LINKS_FILE is required for the file backend")
		}
	case LinksBackendRedis:
		if c.Storage.LinksKey == "" {
			return fmt.Errorf("LINKS_REDIS_KEY is required for the redis backend")
		}
	default:
		return fmt.Errorf("LINKS_BACKEND must be %q or %q, got %q", LinksBackendFile, LinksBackendRedis, c.Storage.LinksBackend)
	}

	if c.Export.CatalogFile == "" || c.Export.FilteredFile == "" {
		return fmt.Errorf("EXPORT_CATALOG_FILE and EXPORT_FILTERED_FILE are required")
	}

	if c.Export.MinRating < 0 || c.Export.MinRating > 5 {
		return fmt.Errorf("FILTER_MIN_RATING must be between 0 and 5")
	}

	if c.Export.MaxPrice < 0 {
		return fmt.Errorf("FILTER_MAX_PRICE cannot be negative")
	}

	if c.Database.Enabled && c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}

	return nil
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Addr returns the API listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

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

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
