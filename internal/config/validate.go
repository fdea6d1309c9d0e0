package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Browser.Fetcher != "browser" && cfg.Browser.Fetcher != "http" {
		return fmt.Errorf("browser.fetcher must be 'browser' or 'http', got %q", cfg.Browser.Fetcher)
	}
	if cfg.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if cfg.Browser.WaitTimeout <= 0 {
		return fmt.Errorf("browser.wait_timeout must be > 0")
	}
	if cfg.Browser.MaxBodySize <= 0 {
		return fmt.Errorf("browser.max_body_size must be > 0")
	}
	if len(cfg.Browser.Proxies) > 0 {
		if cfg.Browser.ProxyRotation != "round_robin" && cfg.Browser.ProxyRotation != "random" {
			return fmt.Errorf("browser.proxy_rotation must be 'round_robin' or 'random', got %q", cfg.Browser.ProxyRotation)
		}
		for _, proxyURL := range cfg.Browser.Proxies {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if cfg.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.MinDelay < 0 || cfg.Crawl.MaxDelay < cfg.Crawl.MinDelay {
		return fmt.Errorf("crawl delays must satisfy 0 <= min_delay <= max_delay, got %s..%s", cfg.Crawl.MinDelay, cfg.Crawl.MaxDelay)
	}
	if cfg.Crawl.RetryDelay < 0 {
		return fmt.Errorf("crawl.retry_delay must be >= 0")
	}
	if cfg.Crawl.ScrollSteps < 0 {
		return fmt.Errorf("crawl.scroll_steps must be >= 0, got %d", cfg.Crawl.ScrollSteps)
	}
	if cfg.Crawl.ProbeAttempts < 1 {
		return fmt.Errorf("crawl.probe_attempts must be >= 1, got %d", cfg.Crawl.ProbeAttempts)
	}
	if cfg.Crawl.DefaultPages < 1 {
		return fmt.Errorf("crawl.default_pages must be >= 1, got %d", cfg.Crawl.DefaultPages)
	}

	validFormats := map[string]bool{
		"xlsx": true, "csv": true, "json": true, "jsonl": true,
	}
	if len(cfg.Export.Formats) == 0 && !cfg.Storage.Mongo.Enabled {
		return fmt.Errorf("export.formats must name at least one format when mongo storage is disabled")
	}
	for _, f := range cfg.Export.Formats {
		if !validFormats[strings.ToLower(f)] {
			return fmt.Errorf("export format %q is not supported (valid: xlsx, csv, json, jsonl)", f)
		}
	}

	if cfg.Storage.Mongo.Enabled {
		if cfg.Storage.Mongo.URI == "" || cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "" {
			return fmt.Errorf("storage.mongo requires uri, database and collection when enabled")
		}
	}

	if cfg.Server.StartRate < 0 || cfg.Server.StartBurst < 0 {
		return fmt.Errorf("server rate limit values must be >= 0")
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
		}
		if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", cfg.Metrics.Port)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
