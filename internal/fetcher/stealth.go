package fetcher

import (
	"fmt"
	"math/rand"
	"strings"
)

// StealthConfig is the fingerprint a browser session presents.
type StealthConfig struct {
	UserAgent           string
	Language            string
	Platform            string
	WindowSize          string
	HardwareConcurrency int
	DeviceMemory        int
}

// NewStealthConfig builds a desktop fingerprint around the configured user
// agent and window size.
func NewStealthConfig(userAgent, language, windowSize string) *StealthConfig {
	platform := "Win32"
	switch {
	case strings.Contains(userAgent, "Macintosh"):
		platform = "MacIntel"
	case strings.Contains(userAgent, "Linux"):
		platform = "Linux x86_64"
	}
	if language == "" {
		language = "en-US"
	}

	return &StealthConfig{
		UserAgent:           userAgent,
		Language:            language,
		Platform:            platform,
		WindowSize:          windowSize,
		HardwareConcurrency: 4 + rand.Intn(13), // 4-16 cores
		DeviceMemory:        8,
	}
}

// StealthJS returns the script injected into every document before page
// scripts run.
func (sc *StealthConfig) StealthJS() string {
	return fmt.Sprintf(`(() => {
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'platform', { get: () => '%s' });
Object.defineProperty(navigator, 'language', { get: () => '%s' });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
window.chrome = window.chrome || { runtime: {} };
})();`, sc.Platform, sc.Language, sc.Language, sc.HardwareConcurrency, sc.DeviceMemory)
}

// AcceptLanguage returns an Accept-Language header matching the fingerprint.
func (sc *StealthConfig) AcceptLanguage() string {
	base := strings.SplitN(sc.Language, "-", 2)[0]
	if base == sc.Language {
		return sc.Language + ";q=0.9"
	}
	return fmt.Sprintf("%s,%s;q=0.9", sc.Language, base)
}
