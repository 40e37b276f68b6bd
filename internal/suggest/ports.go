// Package suggest implements the account-suggestion core: the cooloff
// ledger, the ticket-limit resolver, the ranking algorithm and the
// bulk fan-out orchestrator. Storage is consumed through narrow
// interfaces so the ranking logic can be tested against stubs.
package suggest

import (
	"context"
	"time"

	"github.com/tixops/suggest-api/internal/model"
)

// AccountStore reads candidate accounts from the account management
// store.
type AccountStore interface {
	GetAccountsByCompany(ctx context.Context, companyID string, pos *string) ([]model.Account, error)
}

// UsageStore reads purchase history used to enrich candidates.
type UsageStore interface {
	GetEventUsage(ctx context.Context, eventCode string) (map[string]int, error)
	GetLastUsed(ctx context.Context, nicknames []string) (map[string]time.Time, error)
	GetEventPurchasersByEmail(ctx context.Context, eventCode string) (map[string]int, error)
	GetLastPurchaseByEmail(ctx context.Context, emails []string) (map[string]time.Time, error)
	GetForwardEventCounts(ctx context.Context, emails []string) (map[string]int, error)
}

// ConfigStore reads operator-managed settings.
type ConfigStore interface {
	GetValue(ctx context.Context, key string) (string, error)
}

// CooloffStore persists the penalty ledger.
type CooloffStore interface {
	RecordOffense(ctx context.Context, nickname, reason string, baseMinutes int) error
	ActiveNicknames(ctx context.Context) ([]string, error)
}

// LimitStore reads stored per-event ticket limits.
type LimitStore interface {
	GetByEventCodes(ctx context.Context, queries []model.TicketLimitQuery) ([]model.TicketLimit, error)
}

// TagStore reads account tag assignments for the bulk filter.
type TagStore interface {
	GetTagsForAccounts(ctx context.Context, accountIDs []string) (map[string][]string, error)
}

// CompanyGrouper decides which ranking variant a company gets.
// Satisfied by config.Config.
type CompanyGrouper interface {
	IsResaleCompany(id string) bool
	IsAssetCompany(id string) bool
}
