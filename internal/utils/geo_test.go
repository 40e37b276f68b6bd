package utils

import (
	"math"
	"testing"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Dallas to Houston is roughly 362 km.
	got := Haversine(32.7767, -96.7970, 29.7604, -95.3698)
	if math.Abs(got-362) > 10 {
		t.Fatalf("Dallas-Houston distance = %.1f km, want about 362", got)
	}
}

func TestHaversineZero(t *testing.T) {
	if got := Haversine(40.0, -75.0, 40.0, -75.0); got != 0 {
		t.Fatalf("identical points should give 0, got %f", got)
	}
}

func TestParseLatLng(t *testing.T) {
	cases := []struct {
		in       string
		lat, lng float64
		ok       bool
	}{
		{"32.7767,-96.7970", 32.7767, -96.7970, true},
		{" 32.7767 , -96.7970 ", 32.7767, -96.7970, true},
		{"", 0, 0, false},
		{"32.7767", 0, 0, false},
		{"north,south", 0, 0, false},
		{"1,2,3", 0, 0, false},
	}
	for _, tc := range cases {
		lat, lng, ok := ParseLatLng(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseLatLng(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && (lat != tc.lat || lng != tc.lng) {
			t.Errorf("ParseLatLng(%q) = (%f, %f), want (%f, %f)", tc.in, lat, lng, tc.lat, tc.lng)
		}
	}
}

func TestNearbyStates(t *testing.T) {
	tx := NearbyStates("TX")
	want := map[string]bool{"NM": true, "OK": true, "AR": true, "LA": true}
	if len(tx) != len(want) {
		t.Fatalf("NearbyStates(TX) = %v", tx)
	}
	for _, s := range tx {
		if !want[s] {
			t.Errorf("unexpected neighbor %q for TX", s)
		}
	}

	if got := NearbyStates("HI"); len(got) != 0 {
		t.Errorf("Hawaii has no neighbors, got %v", got)
	}
	if got := NearbyStates("ZZ"); got != nil && len(got) != 0 {
		t.Errorf("unknown state should have no neighbors, got %v", got)
	}
}
