package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("SHELFIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shelfie")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".shelfie"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so that env overrides work
// for keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("browser.fetcher", cfg.Browser.Fetcher)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin_path", cfg.Browser.BinPath)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)
	v.SetDefault("browser.language", cfg.Browser.Language)
	v.SetDefault("browser.proxy_rotation", cfg.Browser.ProxyRotation)
	v.SetDefault("browser.navigation_timeout", cfg.Browser.NavigationTimeout)
	v.SetDefault("browser.wait_timeout", cfg.Browser.WaitTimeout)
	v.SetDefault("browser.max_body_size", cfg.Browser.MaxBodySize)

	v.SetDefault("crawl.max_pages", cfg.Crawl.MaxPages)
	v.SetDefault("crawl.min_delay", cfg.Crawl.MinDelay)
	v.SetDefault("crawl.max_delay", cfg.Crawl.MaxDelay)
	v.SetDefault("crawl.retry_delay", cfg.Crawl.RetryDelay)
	v.SetDefault("crawl.scroll_steps", cfg.Crawl.ScrollSteps)
	v.SetDefault("crawl.scroll_pause", cfg.Crawl.ScrollPause)
	v.SetDefault("crawl.category_pause", cfg.Crawl.CategoryPause)
	v.SetDefault("crawl.probe_attempts", cfg.Crawl.ProbeAttempts)
	v.SetDefault("crawl.probe_timeout", cfg.Crawl.ProbeTimeout)
	v.SetDefault("crawl.default_pages", cfg.Crawl.DefaultPages)

	v.SetDefault("export.formats", cfg.Export.Formats)
	v.SetDefault("export.output_dir", cfg.Export.OutputDir)
	v.SetDefault("export.prefix", cfg.Export.Prefix)

	v.SetDefault("storage.mongo.enabled", cfg.Storage.Mongo.Enabled)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.mode", cfg.Server.Mode)
	v.SetDefault("server.start_rate", cfg.Server.StartRate)
	v.SetDefault("server.start_burst", cfg.Server.StartBurst)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
}
