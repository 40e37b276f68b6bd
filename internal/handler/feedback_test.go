package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func streamCtx(t *testing.T, target string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestParseStreamParamsDefaults(t *testing.T) {
	lookback, interval, ok := parseStreamParams(streamCtx(t, "/"))
	if !ok {
		t.Fatal("defaults should parse")
	}
	if lookback != 24*time.Hour {
		t.Errorf("lookback = %v, want 24h", lookback)
	}
	if interval != 3*time.Second {
		t.Errorf("interval = %v, want 3s", interval)
	}
}

func TestParseStreamParamsClampsFloors(t *testing.T) {
	lookback, interval, ok := parseStreamParams(streamCtx(t, "/?timeframe=0.25&interval=0.5"))
	if !ok {
		t.Fatal("numeric params should parse")
	}
	if lookback != time.Hour {
		t.Errorf("lookback = %v, want clamp to 1h", lookback)
	}
	if interval != 3*time.Second {
		t.Errorf("interval = %v, want clamp to 3s", interval)
	}
}

func TestParseStreamParamsHistoryAlias(t *testing.T) {
	lookback, _, ok := parseStreamParams(streamCtx(t, "/?history=48"))
	if !ok || lookback != 48*time.Hour {
		t.Fatalf("lookback = %v (ok=%v), want 48h via history alias", lookback, ok)
	}
}

func TestParseStreamParamsRejectsMalformed(t *testing.T) {
	for _, target := range []string{"/?timeframe=tomorrow", "/?interval=fast"} {
		if _, _, ok := parseStreamParams(streamCtx(t, target)); ok {
			t.Errorf("%s should be rejected", target)
		}
	}
}
