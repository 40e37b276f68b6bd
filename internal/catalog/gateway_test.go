package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/config"
)

const upstreamBody = `{
	"total_items": 2,
	"_embedded": {"items": [
		{"id": 2, "name": "Later show", "start_date": "2026-10-02T20:00:00",
		 "_embedded": {"venue": {"name": "Arena", "city": "Austin", "state_province": "TX"}}},
		{"id": 1, "name": "Earlier show", "start_date": "2026-10-01T19:30:00",
		 "_embedded": {"venue": {"name": "Hall", "city": "Dallas", "state_province": "TX"}}}
	]},
	"_links": {"next": {"href": "/page2"}}
}`

func testConfig(baseURL string) config.CatalogConfig {
	return config.CatalogConfig{
		BaseURL:       baseURL,
		Token:         "test-token",
		MaxInFlight:   3,
		WindowLimit:   10,
		Window:        30 * time.Second,
		CacheTTL:      15 * time.Second,
		ClientTimeout: 5 * time.Second,
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := New(testConfig(srv.URL), srv.Client(), zerolog.Nop())
	return g, srv
}

func countingHandler(calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamBody))
	}
}

func TestSearchCachesWithinTTL(t *testing.T) {
	var calls atomic.Int64
	g, _ := newTestGateway(t, countingHandler(&calls))

	first, err := g.Search(context.Background(), "Taylor", "")
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	// Key normalization: different spacing and case must hit the same
	// cache entry.
	second, err := g.Search(context.Background(), "  taylor ", "")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("upstream called %d times, want 1", got)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("cache hit returned different payload:\n%s\n%s", a, b)
	}
}

func TestSearchCacheExpires(t *testing.T) {
	var calls atomic.Int64
	g, _ := newTestGateway(t, countingHandler(&calls))

	base := time.Now()
	current := base
	var mu sync.Mutex
	g.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	if _, err := g.Search(context.Background(), "expo", ""); err != nil {
		t.Fatalf("first search: %v", err)
	}
	mu.Lock()
	current = base.Add(16 * time.Second)
	mu.Unlock()
	if _, err := g.Search(context.Background(), "expo", ""); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("upstream called %d times after TTL expiry, want 2", got)
	}
}

func TestSearchSupersededStillWarmsCache(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		close(entered)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamBody))
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := g.Search(context.Background(), "stale", "sess-1")
		errCh <- err
	}()

	<-entered
	// A newer request for the same session arrives while the first is
	// still in flight.
	g.registerSession("sess-1")
	close(release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("superseded request returned %v, want ErrSuperseded", err)
	}

	// The suppressed result must have been cached anyway, so the newer
	// request is served without another upstream call.
	if _, err := g.Search(context.Background(), "stale", "sess-1"); err != nil {
		t.Fatalf("follow-up search: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("upstream called %d times, want 1", got)
	}
}

func TestSearchMissingToken(t *testing.T) {
	g, _ := newTestGateway(t, countingHandler(new(atomic.Int64)))
	g.cfg.Token = ""

	if _, err := g.Search(context.Background(), "anything", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("got %v, want ErrMissingCredentials", err)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	if _, err := g.Search(context.Background(), "boom", ""); !errors.Is(err, ErrUpstream) {
		t.Fatalf("got %v, want ErrUpstream", err)
	}
}

func TestSemaphoreCapsInFlight(t *testing.T) {
	var inFlight, peak atomic.Int64
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamBody))
	})
	g.cfg.WindowLimit = 100

	queries := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			if _, err := g.Search(context.Background(), q, ""); err != nil {
				t.Errorf("search %q: %v", q, err)
			}
		}(q)
	}
	wg.Wait()

	if p := peak.Load(); p > 3 {
		t.Fatalf("observed %d concurrent upstream calls, cap is 3", p)
	}
}

func TestAdmitBlocksWhenWindowFull(t *testing.T) {
	g := New(config.CatalogConfig{
		Token:       "t",
		MaxInFlight: 3,
		WindowLimit: 2,
		Window:      250 * time.Millisecond,
		CacheTTL:    time.Second,
	}, http.DefaultClient, zerolog.Nop())

	ctx := context.Background()
	if err := g.admit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.admit(ctx); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := g.admit(ctx); err != nil {
		t.Fatal(err)
	}
	if waited := time.Since(start); waited < 150*time.Millisecond {
		t.Fatalf("third admission waited only %v, window should have blocked it", waited)
	}
}

func TestAdmitHonorsCancellation(t *testing.T) {
	g := New(config.CatalogConfig{
		Token:       "t",
		MaxInFlight: 3,
		WindowLimit: 1,
		Window:      time.Minute,
		CacheTTL:    time.Second,
	}, http.DefaultClient, zerolog.Nop())

	if err := g.admit(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.admit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestFormatResultSortsByStartNullsLast(t *testing.T) {
	raw := `{
		"total_items": 3,
		"_embedded": {"items": [
			{"id": 1, "name": "No date"},
			{"id": 2, "name": "October", "start_date": "2026-10-05T20:00:00"},
			{"id": 3, "name": "September", "start_date": "2026-09-05T20:00:00"}
		]}
	}`
	var envelope upstreamEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		t.Fatal(err)
	}
	res := formatResult("q", envelope)

	want := []string{"September", "October", "No date"}
	if len(res.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(res.Items), len(want))
	}
	for i, name := range want {
		if res.Items[i].EventName != name {
			t.Errorf("item %d: got %q, want %q", i, res.Items[i].EventName, name)
		}
	}
	if res.Items[0].Venue != "Unknown venue" {
		t.Errorf("missing venue name should default, got %q", res.Items[0].Venue)
	}
	if res.TotalItems != 3 {
		t.Errorf("total items: got %d, want 3", res.TotalItems)
	}
}
