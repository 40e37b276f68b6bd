package suggest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/model"
	"github.com/tixops/suggest-api/internal/repository"
)

const (
	defaultTicketLimitKey = "default_ticket_limit"

	fallbackTicketLimit = 4
)

// TicketLimitResolver decides how many tickets a single account may
// hold for an event. A stored per-event limit only applies when it is
// at least the operator default: limits below the default are treated
// as stale and the default wins.
type TicketLimitResolver struct {
	limits   LimitStore
	settings ConfigStore
	log      zerolog.Logger
}

// NewTicketLimitResolver builds a resolver over the given stores.
func NewTicketLimitResolver(limits LimitStore, settings ConfigStore, log zerolog.Logger) *TicketLimitResolver {
	return &TicketLimitResolver{limits: limits, settings: settings, log: log}
}

// DefaultLimit reads the operator default, falling back to a built-in
// value when the setting is absent or malformed.
func (r *TicketLimitResolver) DefaultLimit(ctx context.Context) int {
	raw, err := r.settings.GetValue(ctx, defaultTicketLimitKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.log.Warn().Err(err).Msg("reading default ticket limit, using fallback")
		}
		return fallbackTicketLimit
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		r.log.Warn().Str("value", raw).Msg("malformed default ticket limit, using fallback")
		return fallbackTicketLimit
	}
	return v
}

// Resolve returns the effective per-account limit for one event.
func (r *TicketLimitResolver) Resolve(ctx context.Context, eventID string, defaultLimit int) (int, error) {
	m, err := r.ResolveBatch(ctx, []model.TicketLimitQuery{{ID: eventID, EventCode: eventID}}, defaultLimit)
	if err != nil {
		return 0, err
	}
	return m[eventID], nil
}

// ResolveBatch resolves effective limits for a set of events at once.
// Every query id is present in the result; events with no stored limit
// (or a stored limit below the default) map to defaultLimit.
func (r *TicketLimitResolver) ResolveBatch(ctx context.Context, queries []model.TicketLimitQuery, defaultLimit int) (map[string]int, error) {
	out := make(map[string]int, len(queries))
	for _, q := range queries {
		out[q.ID] = defaultLimit
	}
	if len(queries) == 0 {
		return out, nil
	}
	stored, err := r.limits.GetByEventCodes(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("resolve ticket limits: %w", err)
	}
	for _, tl := range stored {
		if tl.LimitValue >= defaultLimit {
			out[tl.ID] = tl.LimitValue
		}
	}
	return out, nil
}
