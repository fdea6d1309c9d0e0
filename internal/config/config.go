package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for Shelfie.
type Config struct {
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Export  ExportConfig  `mapstructure:"export"  yaml:"export"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// BrowserConfig controls the page session used by a crawl run.
type BrowserConfig struct {
	// Fetcher selects the session implementation: "browser" drives headless
	// Chromium, "http" fetches server-rendered HTML without scripting.
	Fetcher           string        `mapstructure:"fetcher"            yaml:"fetcher"`
	Headless          bool          `mapstructure:"headless"           yaml:"headless"`
	Stealth           bool          `mapstructure:"stealth"            yaml:"stealth"`
	BinPath           string        `mapstructure:"bin_path"           yaml:"bin_path"`
	WindowSize        string        `mapstructure:"window_size"        yaml:"window_size"`
	UserAgent         string        `mapstructure:"user_agent"         yaml:"user_agent"`
	Language          string        `mapstructure:"language"           yaml:"language"`
	Proxies           []string      `mapstructure:"proxies"            yaml:"proxies"`
	ProxyRotation     string        `mapstructure:"proxy_rotation"     yaml:"proxy_rotation"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout"       yaml:"wait_timeout"`
	MaxBodySize       int64         `mapstructure:"max_body_size"      yaml:"max_body_size"`
}

// CrawlConfig controls the per-run crawl loop.
type CrawlConfig struct {
	// MaxPages caps the number of pages crawled; 0 means no cap.
	MaxPages      int           `mapstructure:"max_pages"      yaml:"max_pages"`
	MinDelay      time.Duration `mapstructure:"min_delay"      yaml:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"      yaml:"max_delay"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"    yaml:"retry_delay"`
	ScrollSteps   int           `mapstructure:"scroll_steps"   yaml:"scroll_steps"`
	ScrollPause   time.Duration `mapstructure:"scroll_pause"   yaml:"scroll_pause"`
	CategoryPause time.Duration `mapstructure:"category_pause" yaml:"category_pause"`
	ProbeAttempts int           `mapstructure:"probe_attempts" yaml:"probe_attempts"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"  yaml:"probe_timeout"`
	DefaultPages  int           `mapstructure:"default_pages"  yaml:"default_pages"`
}

// ExportConfig controls tabular output files.
type ExportConfig struct {
	Formats   []string `mapstructure:"formats"    yaml:"formats"`
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir"`
	Prefix    string   `mapstructure:"prefix"     yaml:"prefix"`
}

// StorageConfig controls database sinks.
type StorageConfig struct {
	Mongo MongoConfig `mapstructure:"mongo" yaml:"mongo"`
}

// MongoConfig controls the MongoDB product sink.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// ServerConfig controls the control-plane HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Mode string `mapstructure:"mode" yaml:"mode"`
	// StartRate is the number of run starts allowed per second per client.
	StartRate  float64 `mapstructure:"start_rate"  yaml:"start_rate"`
	StartBurst int     `mapstructure:"start_burst" yaml:"start_burst"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
	// Port serves metrics during CLI crawls. The control plane serves
	// them on its own address instead.
	Port int `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Fetcher:           "browser",
			Headless:          true,
			Stealth:           true,
			WindowSize:        "1920,1080",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Language:          "en-US",
			ProxyRotation:     "round_robin",
			NavigationTimeout: 30 * time.Second,
			WaitTimeout:       10 * time.Second,
			MaxBodySize:       10 * 1024 * 1024, // 10MB
		},
		Crawl: CrawlConfig{
			MinDelay:      2 * time.Second,
			MaxDelay:      5 * time.Second,
			RetryDelay:    3 * time.Second,
			ScrollSteps:   10,
			ScrollPause:   500 * time.Millisecond,
			CategoryPause: 5 * time.Second,
			ProbeAttempts: 30,
			ProbeTimeout:  5 * time.Second,
			DefaultPages:  10,
		},
		Export: ExportConfig{
			Formats:   []string{"xlsx"},
			OutputDir: "./output",
			Prefix:    "shelfie",
		},
		Storage: StorageConfig{
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "shelfie",
				Collection: "products",
			},
		},
		Server: ServerConfig{
			Addr:       ":5000",
			Mode:       "release",
			StartRate:  0.2,
			StartBurst: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
	}
}
