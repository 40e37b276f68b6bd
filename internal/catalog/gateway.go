// Package catalog proxies the external event-catalog search API. The
// upstream quota is scarce, so the gateway layers four guards in front
// of it: a response cache with a short TTL, a counting semaphore on
// in-flight calls, a sliding-window rate limit, and per-session
// debouncing so overlapping requests from one client only ever deliver
// the latest result.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/config"
)

// ErrSuperseded is not a failure: it signals that a newer request was
// registered for the same debounce session while this one was in
// flight, so this result must not be delivered. The HTTP layer maps it
// to 204 No Content.
var ErrSuperseded = errors.New("request superseded by a newer one for this session")

// ErrMissingCredentials marks a configuration problem (no API token),
// distinguished from transient upstream failures.
var ErrMissingCredentials = errors.New("catalog API token not configured")

// ErrUpstream wraps any non-2xx or network failure from the catalog.
var ErrUpstream = errors.New("catalog upstream failure")

type cacheEntry struct {
	at      time.Time
	payload *SearchResult
}

// Gateway is an explicit stateful service: cache, session tokens and
// the rate window are fields, not package globals, so tests construct
// isolated instances. Each structure has its own lock and the locks
// are never nested with each other.
type Gateway struct {
	cfg    config.CatalogConfig
	client *http.Client
	log    zerolog.Logger

	sem chan struct{} // counting semaphore on in-flight upstream calls

	winMu  sync.Mutex
	window []time.Time // admission timestamps inside the rolling window

	cacheMu sync.Mutex
	cache   map[string]cacheEntry

	sessMu   sync.Mutex
	sessions map[string]int64 // session id -> latest registered token

	tokenSeq atomic.Int64

	now func() time.Time // injectable for tests
}

// New builds a Gateway. A nil client gets a default one with the
// configured upstream timeout.
func New(cfg config.CatalogConfig, client *http.Client, log zerolog.Logger) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.ClientTimeout}
	}
	return &Gateway{
		cfg:      cfg,
		client:   client,
		log:      log,
		sem:      make(chan struct{}, cfg.MaxInFlight),
		cache:    map[string]cacheEntry{},
		sessions: map[string]int64{},
		now:      time.Now,
	}
}

// Search resolves a query against the catalog, honoring the cache,
// quota guards and debounce session. sessionID may be empty, in which
// case no debouncing applies. Returns ErrSuperseded when a newer
// request for the same session registered before this one delivered.
func (g *Gateway) Search(ctx context.Context, query, sessionID string) (*SearchResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	var token int64
	if sessionID != "" {
		token = g.registerSession(sessionID)
	}

	cacheKey := strings.ToLower(strings.TrimSpace(query))
	if cached := g.cached(cacheKey); cached != nil {
		if !g.sessionIsCurrent(sessionID, token) {
			return nil, ErrSuperseded
		}
		g.clearSession(sessionID, token)
		return cached, nil
	}

	// A newer request may have registered while we checked the cache.
	if !g.sessionIsCurrent(sessionID, token) {
		return nil, ErrSuperseded
	}

	if g.cfg.Token == "" {
		return nil, ErrMissingCredentials
	}

	payload, err := g.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	g.cacheMu.Lock()
	g.cache[cacheKey] = cacheEntry{at: g.now(), payload: payload}
	g.cacheMu.Unlock()

	// The fetch and cache write above complete even for a superseded
	// request; only delivery is suppressed, so the newer request can
	// still hit the warm cache.
	if !g.sessionIsCurrent(sessionID, token) {
		return nil, ErrSuperseded
	}
	g.clearSession(sessionID, token)
	return payload, nil
}

// cached returns the payload for the key when its age is under the
// TTL, nil otherwise. Stale entries are left for the next write to
// overwrite.
func (g *Gateway) cached(key string) *SearchResult {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	entry, ok := g.cache[key]
	if !ok || g.now().Sub(entry.at) >= g.cfg.CacheTTL {
		return nil
	}
	return entry.payload
}

// registerSession records a fresh token as the session's latest,
// replacing any prior one. Only the latest token may deliver.
func (g *Gateway) registerSession(sessionID string) int64 {
	token := g.tokenSeq.Add(1)
	g.sessMu.Lock()
	g.sessions[sessionID] = token
	g.sessMu.Unlock()
	return token
}

func (g *Gateway) sessionIsCurrent(sessionID string, token int64) bool {
	if sessionID == "" {
		return true
	}
	g.sessMu.Lock()
	defer g.sessMu.Unlock()
	return g.sessions[sessionID] == token
}

// clearSession drops the session entry if it still maps to the token
// that just delivered.
func (g *Gateway) clearSession(sessionID string, token int64) {
	if sessionID == "" {
		return
	}
	g.sessMu.Lock()
	if g.sessions[sessionID] == token {
		delete(g.sessions, sessionID)
	}
	g.sessMu.Unlock()
}

// fetch performs the guarded upstream call: semaphore first, then the
// window admission, then HTTP. The semaphore is held until the call
// completes so the window never admits more than MaxInFlight callers
// into the HTTP stage at once.
func (g *Gateway) fetch(ctx context.Context, query string) (*SearchResult, error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.sem }()

	if err := g.admit(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(g.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base url: %v", ErrUpstream, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("exclude_parking_passes", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	req.Header.Set("Accept", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		g.log.Warn().Int("status", res.StatusCode).Str("query", query).Msg("catalog search failed")
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope upstreamEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	return formatResult(query, envelope), nil
}

// admit blocks until the sliding window has room, then records this
// request's timestamp. The wait is a loop, not a fixed sleep: several
// waiters may race for the slot freed when the oldest timestamp leaves
// the window, and each must re-check under the lock.
func (g *Gateway) admit(ctx context.Context) error {
	for {
		g.winMu.Lock()
		now := g.now()
		cutoff := now.Add(-g.cfg.Window)
		i := 0
		for i < len(g.window) && !g.window[i].After(cutoff) {
			i++
		}
		g.window = g.window[i:]

		if len(g.window) < g.cfg.WindowLimit {
			g.window = append(g.window, now)
			g.winMu.Unlock()
			return nil
		}
		sleepFor := g.cfg.Window - now.Sub(g.window[0])
		g.winMu.Unlock()

		if sleepFor < 0 {
			sleepFor = 0
		}
		timer := time.NewTimer(sleepFor)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// formatResult flattens the upstream envelope and orders items by
// parsed start timestamp ascending, unparseable or missing dates last.
// The sort is stable so equal keys keep the upstream order.
func formatResult(query string, envelope upstreamEnvelope) *SearchResult {
	items := make([]EventItem, 0, len(envelope.Embedded.Items))
	for _, raw := range envelope.Embedded.Items {
		venue := raw.Embedded.Venue

		item := EventItem{
			ID:             raw.ID,
			EventName:      "Unnamed event",
			Venue:          "Unknown venue",
			City:           venue.City,
			State:          venue.StateProvince,
			PostalCode:     venue.PostalCode,
			Country:        venue.Embedded.Country.Name,
			CountryCode:    venue.Embedded.Country.Code,
			Latitude:       venue.Latitude,
			Longitude:      venue.Longitude,
			StartTimestamp: raw.StartDate,
			OnSaleDate:     raw.OnSaleDate,
			Status:         raw.Status,
			MinTicketPrice: raw.MinTicketPrice,
			Webpage:        raw.Links.Webpage.Href,
			startTS:        parseStartTS(raw.StartDate),
		}
		if raw.Name != nil && *raw.Name != "" {
			item.EventName = *raw.Name
		}
		if venue.Name != nil && *venue.Name != "" {
			item.Venue = *venue.Name
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].startTS, items[j].startTS
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	links := envelope.Links
	if links == nil {
		links = json.RawMessage(`{}`)
	}
	return &SearchResult{
		Query:      query,
		TotalItems: envelope.TotalItems,
		Items:      items,
		Links:      links,
	}
}

func parseStartTS(iso *string) *time.Time {
	if iso == nil || *iso == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, *iso); err == nil {
			return &ts
		}
	}
	return nil
}
