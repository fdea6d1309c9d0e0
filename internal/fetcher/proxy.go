package fetcher

import (
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync/atomic"
)

// ProxyRotator hands out proxies to new sessions. A session keeps its proxy
// for its whole lifetime, so rotation happens per crawl run.
type ProxyRotator struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
	logger   *slog.Logger
}

// NewProxyRotator parses raw proxy URLs, skipping invalid ones.
func NewProxyRotator(rawURLs []string, rotation string, logger *slog.Logger) *ProxyRotator {
	pr := &ProxyRotator{
		proxies:  make([]*url.URL, 0, len(rawURLs)),
		rotation: rotation,
		logger:   logger.With("component", "proxy_rotator"),
	}

	for _, rawURL := range rawURLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			pr.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pr.proxies = append(pr.proxies, u)
	}

	pr.logger.Info("proxy rotator initialized", "count", len(pr.proxies), "rotation", rotation)
	return pr
}

// Next returns the next proxy, or nil for a direct connection.
func (pr *ProxyRotator) Next() *url.URL {
	if pr == nil || len(pr.proxies) == 0 {
		return nil
	}
	if pr.rotation == "random" {
		return pr.proxies[rand.Intn(len(pr.proxies))]
	}
	idx := (pr.index.Add(1) - 1) % int64(len(pr.proxies))
	return pr.proxies[idx]
}

// Count returns the number of usable proxies.
func (pr *ProxyRotator) Count() int {
	if pr == nil {
		return 0
	}
	return len(pr.proxies)
}

// fixedProxy pins an http.Transport to one proxy.
func fixedProxy(u *url.URL) func(*http.Request) (*url.URL, error) {
	if u == nil {
		return nil
	}
	return http.ProxyURL(u)
}
