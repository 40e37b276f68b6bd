package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
	"time"    // time parses duration-valued variables
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The types reflect how the values are used
// in the application: strings for identifiers and secrets, slices for
// id lists.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify bearer tokens

	ResaleCompanyIDs []string // company ids ranked with ticket limits and cooloffs
	AssetCompanyIDs  []string // company ids ranked without either

	IntlBuylistAccount string // buylist account id routed to the StubHub POS

	SweepCompanyID     string // company the worker ranks for USD/CAD buylist rows
	SweepIntlCompanyID string // company the worker ranks for other currencies
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		ResaleCompanyIDs: splitList(must("RESALE_COMPANY_IDS")),
		AssetCompanyIDs:  splitList(must("ASSET_COMPANY_IDS")),

		IntlBuylistAccount: os.Getenv("INTL_BUYLIST_ACCOUNT"),

		SweepCompanyID:     os.Getenv("SWEEP_COMPANY_ID"),
		SweepIntlCompanyID: os.Getenv("SWEEP_INTL_COMPANY_ID"),
	}
}

// SweepInterval is the period of the suggestion worker's sweep loop.
func SweepInterval() time.Duration {
	return envDur("SWEEP_INTERVAL", 5*time.Second)
}

// IsResaleCompany reports whether the id belongs to the company group
// ranked with ticket limits and cooloffs.
func (c Config) IsResaleCompany(id string) bool { return contains(c.ResaleCompanyIDs, id) }

// IsAssetCompany reports whether the id belongs to the asset group.
func (c Config) IsAssetCompany(id string) bool { return contains(c.AssetCompanyIDs, id) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// Helper functions shared by the other loaders in this package.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}
