// Package repository implements the data access layer over the
// collaborator stores: the account management schema, the usage and
// purchase history, the app-config table, and the buylist tables this
// service owns (cooloff ledger, feedback log, stored suggestions).
// Sentinel errors defined here let higher layers distinguish failure
// scenarios without string matching.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no rows. Callers that
// treat absence as "use the default" (ticket limits, config values)
// consume it silently; everything else should surface it.
var ErrNotFound = errors.New("not found")
