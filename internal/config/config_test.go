package config

import (
	"reflect"
	"testing"
	"time"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b", []string{"a", "b"}},
		{"", []string{}},
		{" , ", []string{}},
	}
	for _, tc := range cases {
		if got := splitList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCompanyGroups(t *testing.T) {
	c := Config{
		ResaleCompanyIDs: []string{"101", "102"},
		AssetCompanyIDs:  []string{"201"},
	}
	if !c.IsResaleCompany("101") || c.IsResaleCompany("201") {
		t.Error("resale group membership wrong")
	}
	if !c.IsAssetCompany("201") || c.IsAssetCompany("102") {
		t.Error("asset group membership wrong")
	}
	if c.IsResaleCompany("") || c.IsAssetCompany("") {
		t.Error("empty id must not belong to any group")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if got := envInt("TEST_ENV_INT", 7); got != 42 {
		t.Errorf("envInt = %d, want 42", got)
	}
	t.Setenv("TEST_ENV_INT", "not a number")
	if got := envInt("TEST_ENV_INT", 7); got != 7 {
		t.Errorf("envInt on malformed = %d, want default 7", got)
	}
	if got := envInt("TEST_ENV_INT_UNSET", 7); got != 7 {
		t.Errorf("envInt on unset = %d, want default 7", got)
	}
}

func TestEnvDur(t *testing.T) {
	t.Setenv("TEST_ENV_DUR", "90s")
	if got := envDur("TEST_ENV_DUR", time.Second); got != 90*time.Second {
		t.Errorf("envDur = %v, want 90s", got)
	}
	t.Setenv("TEST_ENV_DUR", "ninety seconds")
	if got := envDur("TEST_ENV_DUR", time.Second); got != time.Second {
		t.Errorf("envDur on malformed = %v, want default 1s", got)
	}
}

func TestEnvBool(t *testing.T) {
	truthy := []string{"1", "true", "TRUE", "yes", "on"}
	for _, v := range truthy {
		t.Setenv("TEST_ENV_BOOL", v)
		if !envBool("TEST_ENV_BOOL", false) {
			t.Errorf("envBool(%q) = false, want true", v)
		}
	}
	falsy := []string{"0", "false", "no", "OFF"}
	for _, v := range falsy {
		t.Setenv("TEST_ENV_BOOL", v)
		if envBool("TEST_ENV_BOOL", true) {
			t.Errorf("envBool(%q) = true, want false", v)
		}
	}
	t.Setenv("TEST_ENV_BOOL", "maybe")
	if !envBool("TEST_ENV_BOOL", true) {
		t.Error("envBool on unrecognized value must return the default")
	}
}

func TestLoadCatalogConfigDefaults(t *testing.T) {
	for _, k := range []string{"CATALOG_MAX_IN_FLIGHT", "CATALOG_WINDOW_LIMIT", "CATALOG_WINDOW", "CATALOG_CACHE_TTL"} {
		t.Setenv(k, "")
	}
	cfg := LoadCatalogConfig()
	if cfg.MaxInFlight != 3 {
		t.Errorf("MaxInFlight = %d, want 3", cfg.MaxInFlight)
	}
	if cfg.WindowLimit != 10 {
		t.Errorf("WindowLimit = %d, want 10", cfg.WindowLimit)
	}
	if cfg.Window != 30*time.Second {
		t.Errorf("Window = %v, want 30s", cfg.Window)
	}
	if cfg.CacheTTL != 15*time.Second {
		t.Errorf("CacheTTL = %v, want 15s", cfg.CacheTTL)
	}
}

func TestLoadCatalogConfigClampsNonsense(t *testing.T) {
	t.Setenv("CATALOG_MAX_IN_FLIGHT", "0")
	t.Setenv("CATALOG_WINDOW_LIMIT", "-3")
	cfg := LoadCatalogConfig()
	if cfg.MaxInFlight != 1 {
		t.Errorf("MaxInFlight = %d, want clamp to 1", cfg.MaxInFlight)
	}
	if cfg.WindowLimit != 1 {
		t.Errorf("WindowLimit = %d, want clamp to 1", cfg.WindowLimit)
	}
}

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, Post ,")
	if !m["GET"] || !m["POST"] || len(m) != 2 {
		t.Errorf("parseMethods = %v, want GET and POST", m)
	}
}
