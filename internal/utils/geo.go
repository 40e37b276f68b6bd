// Package utils holds small geography helpers shared by the ranking
// and worker packages.
package utils

import (
	"math"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between
// two (lat, lng) coordinate pairs.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ParseLatLng parses a "lat,lng" string. ok is false for malformed or
// empty input.
func ParseLatLng(s string) (lat, lng float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// stateNeighbors maps a state abbreviation to its geographically
// neighboring states. Used for the proximity tier: tier 2 means the
// account sits in a state adjacent to the event's state.
var stateNeighbors = map[string][]string{
	"AL": {"TN", "GA", "FL", "MS"},
	"AK": {},
	"AZ": {"CA", "NV", "UT", "CO", "NM"},
	"AR": {"MO", "TN", "MS", "LA", "TX", "OK"},
	"CA": {"OR", "NV", "AZ"},
	"CO": {"WY", "NE", "KS", "OK", "NM", "UT"},
	"CT": {"NY", "RI", "MA"},
	"DE": {"PA", "MD", "NJ"},
	"FL": {"GA", "AL"},
	"GA": {"FL", "AL", "TN", "NC", "SC"},
	"HI": {},
	"ID": {"MT", "WY", "UT", "NV", "OR", "WA"},
	"IL": {"WI", "IA", "MO", "KY", "IN"},
	"IN": {"MI", "OH", "KY", "IL"},
	"IA": {"MN", "WI", "IL", "MO", "NE", "SD"},
	"KS": {"NE", "MO", "OK", "CO"},
	"KY": {"IL", "IN", "OH", "WV", "VA", "TN", "MO"},
	"LA": {"TX", "AR", "MS"},
	"ME": {"NH", "MA"},
	"MD": {"PA", "DE", "VA", "WV"},
	"MA": {"NY", "CT", "RI", "NH"},
	"MI": {"OH", "IN", "WI"},
	"MN": {"ND", "SD", "IA", "WI"},
	"MS": {"LA", "AR", "TN", "AL"},
	"MO": {"IA", "IL", "KY", "TN", "AR", "OK", "KS", "NE"},
	"MT": {"ND", "SD", "WY", "ID"},
	"NE": {"SD", "IA", "MO", "KS", "CO", "WY"},
	"NV": {"ID", "UT", "AZ", "CA", "OR"},
	"NH": {"VT", "MA", "ME"},
	"NJ": {"NY", "PA", "DE"},
	"NM": {"CO", "OK", "TX", "AZ", "UT"},
	"NY": {"PA", "NJ", "CT", "MA", "VT"},
	"NC": {"VA", "TN", "GA", "SC"},
	"ND": {"MT", "SD", "MN"},
	"OH": {"MI", "IN", "KY", "WV", "PA"},
	"OK": {"KS", "MO", "AR", "TX", "NM", "CO"},
	"OR": {"WA", "ID", "NV", "CA"},
	"PA": {"NY", "NJ", "DE", "MD", "WV", "OH"},
	"RI": {"CT", "MA"},
	"SC": {"NC", "GA"},
	"SD": {"ND", "MN", "IA", "NE", "WY", "MT"},
	"TN": {"KY", "VA", "NC", "GA", "AL", "MS", "AR", "MO"},
	"TX": {"NM", "OK", "AR", "LA"},
	"UT": {"ID", "WY", "CO", "AZ", "NV"},
	"VT": {"NY", "NH", "MA"},
	"VA": {"MD", "DC", "WV", "KY", "TN", "NC"},
	"WA": {"ID", "OR"},
	"WV": {"OH", "PA", "MD", "VA", "KY"},
	"WI": {"MI", "MN", "IA", "IL"},
	"WY": {"MT", "SD", "NE", "CO", "UT", "ID"},
	"DC": {"MD", "VA"},
}

// NearbyStates returns the neighboring states for the given
// abbreviation, or an empty slice for unknown states.
func NearbyStates(state string) []string {
	if n, ok := stateNeighbors[strings.ToUpper(strings.TrimSpace(state))]; ok {
		return n
	}
	return []string{}
}
