package config

import (
	"os"
	"time"
)

// CatalogConfig tunes the proxy in front of the external event-catalog
// search API. The defaults match the upstream contract: at most 3
// requests in flight, 10 requests per rolling 30 seconds, responses
// cached for 15 seconds, a 10 second timeout per upstream call.
type CatalogConfig struct {
	BaseURL       string        // upstream search endpoint
	Token         string        // bearer token; empty means unconfigured
	MaxInFlight   int           // concurrency cap on upstream calls
	WindowLimit   int           // max upstream requests per window
	Window        time.Duration // rolling window size
	CacheTTL      time.Duration // lifetime of cached search payloads
	ClientTimeout time.Duration // per-request upstream timeout
}

// LoadCatalogConfig reads environment variables to build a
// CatalogConfig. Only the token has no default; the gateway reports a
// configuration error when a search is attempted without one.
func LoadCatalogConfig() CatalogConfig {
	cfg := CatalogConfig{
		BaseURL:       getenv("CATALOG_SEARCH_URL", "https://api.viagogo.net/catalog/events/search"),
		Token:         os.Getenv("CATALOG_API_TOKEN"),
		MaxInFlight:   envInt("CATALOG_MAX_IN_FLIGHT", 3),
		WindowLimit:   envInt("CATALOG_WINDOW_LIMIT", 10),
		Window:        envDur("CATALOG_WINDOW", 30*time.Second),
		CacheTTL:      envDur("CATALOG_CACHE_TTL", 15*time.Second),
		ClientTimeout: envDur("CATALOG_CLIENT_TIMEOUT", 10*time.Second),
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	if cfg.WindowLimit < 1 {
		cfg.WindowLimit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = 30 * time.Second
	}
	return cfg
}
