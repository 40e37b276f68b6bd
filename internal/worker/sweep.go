// Package worker keeps stored suggestion snapshots fresh. A periodic
// sweep precomputes suggestions for new unbought buylist rows so the
// purchase automation never waits on a ranking pass, and a refetch
// rebuilds snapshots whose top picks just landed in cooloff.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/config"
	"github.com/tixops/suggest-api/internal/model"
	"github.com/tixops/suggest-api/internal/queue"
	"github.com/tixops/suggest-api/internal/repository"
	"github.com/tixops/suggest-api/internal/suggest"
	"github.com/tixops/suggest-api/internal/utils"
)

// storedWindow is how far back a last purchase may be for an account
// to make it into a stored snapshot.
const storedWindow = 7 * 24 * time.Hour

// storedTopN caps the nickname shortlist kept alongside a snapshot.
const storedTopN = 10

// Worker owns the sweep loop and the penalty-driven refetch.
type Worker struct {
	suggestions *repository.SuggestionRepo
	events      *repository.EventRepo
	ranker      *suggest.Ranker
	resolver    *suggest.TicketLimitResolver
	ledger      *suggest.CooloffLedger
	cfg         config.Config
	log         zerolog.Logger
	interval    time.Duration
}

// New builds a worker. interval is the sweep period; values below one
// second are raised to one second.
func New(suggestions *repository.SuggestionRepo, events *repository.EventRepo, ranker *suggest.Ranker, resolver *suggest.TicketLimitResolver, ledger *suggest.CooloffLedger, cfg config.Config, log zerolog.Logger, interval time.Duration) *Worker {
	if interval < time.Second {
		interval = time.Second
	}
	return &Worker{
		suggestions: suggestions,
		events:      events,
		ranker:      ranker,
		resolver:    resolver,
		ledger:      ledger,
		cfg:         cfg,
		log:         log,
		interval:    interval,
	}
}

// Run sweeps until ctx is cancelled. A failing pass is logged and the
// next tick retries; the loop itself never stops on an error.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.sweep(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("suggestion sweep failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sweep finds today's unbought buylist rows without a stored snapshot
// and computes one for each.
func (w *Worker) sweep(ctx context.Context) error {
	items, err := w.suggestions.UnboughtToday(ctx)
	if err != nil {
		return fmt.Errorf("unbought buylist rows: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	missing, err := w.suggestions.MissingSuggestionIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("missing snapshots: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}
	missingSet := make(map[string]bool, len(missing))
	for _, id := range missing {
		missingSet[id] = true
	}
	var todo []model.BuylistItem
	for _, it := range items {
		if missingSet[it.ID] {
			todo = append(todo, it)
		}
	}

	w.log.Info().Int("count", len(todo)).Strs("ids", missing).Msg("computing suggestions for new buylist rows")
	return w.storeSuggestions(ctx, todo)
}

// HandleFeedback is the broker-side entry point: after a penalty it
// rebuilds every recent snapshot whose top picks include a cooled-off
// account.
func (w *Worker) HandleFeedback(ctx context.Context, ev queue.FeedbackRecordedEvent) error {
	cooloffs, err := w.ledger.ActiveCooloffs(ctx)
	if err != nil {
		return err
	}
	if len(cooloffs) == 0 {
		w.log.Info().Msg("no active cooloffs, skipping suggestion refetch")
		return nil
	}
	nicknames := make([]string, 0, len(cooloffs))
	for n := range cooloffs {
		nicknames = append(nicknames, n)
	}
	items, err := w.suggestions.ItemsToRefetch(ctx, nicknames)
	if err != nil {
		return fmt.Errorf("rows to refetch: %w", err)
	}
	if len(items) == 0 {
		w.log.Info().Str("nickname", ev.Nickname).Msg("no stored suggestions to refetch")
		return nil
	}
	w.log.Info().Int("count", len(items)).Str("nickname", ev.Nickname).Msg("refetching stored suggestions after penalty")
	return w.storeSuggestions(ctx, items)
}

// storeSuggestions resolves ticket limits for the batch in one query,
// then ranks and upserts a snapshot per row.
func (w *Worker) storeSuggestions(ctx context.Context, items []model.BuylistItem) error {
	queries := make([]model.TicketLimitQuery, 0, len(items))
	for i := range items {
		if invalidEventCode(items[i].EventCode) {
			continue
		}
		queries = append(queries, model.TicketLimitQuery{
			ID:          items[i].ID,
			EventCode:   deref(items[i].EventCode),
			VenueID:     deref(items[i].VenueID),
			PerformerID: deref(items[i].PerformerID),
		})
	}
	def := w.resolver.DefaultLimit(ctx)
	limits, err := w.resolver.ResolveBatch(ctx, queries, def)
	if err != nil {
		return err
	}

	for i := range items {
		if err := w.storeOne(ctx, items[i], limits, def); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) storeOne(ctx context.Context, item model.BuylistItem, limits map[string]int, defaultLimit int) error {
	if invalidEventCode(item.EventCode) {
		// A row with no usable event code still gets an empty snapshot
		// so the sweep stops re-selecting it.
		w.log.Warn().Str("id", item.ID).Msg("buylist row has no usable event code, storing empty snapshot")
		return w.suggestions.Upsert(ctx, item.ID, nil, nil)
	}

	details, err := w.events.GetEventDetails(ctx, *item.EventCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.log.Warn().Str("id", item.ID).Str("event_code", *item.EventCode).Msg("event code unmapped, storing empty snapshot")
			return w.suggestions.Upsert(ctx, item.ID, nil, nil)
		}
		return fmt.Errorf("event details for %q: %w", *item.EventCode, err)
	}

	state := ""
	if details.VenueState != nil {
		state = *details.VenueState
	}
	var latLng *string
	if details.Lat != nil && details.Lng != nil {
		s := fmt.Sprintf("%v,%v", *details.Lat, *details.Lng)
		latLng = &s
	}
	ectx := suggest.EventContext{
		EventID:      *item.EventCode,
		State:        state,
		NearbyStates: utils.NearbyStates(state),
		LatLng:       latLng,
	}

	limit, ok := limits[item.ID]
	if !ok {
		limit = defaultLimit
	}
	pos := w.posFor(item)
	company := w.companyFor(item)

	ranked, err := w.ranker.RankResale(ctx, ectx, company, &pos, limit)
	if err != nil {
		return fmt.Errorf("rank buylist row %q: %w", item.ID, err)
	}

	// Keep only accounts active in the last week; stale accounts are
	// not worth handing to the purchase automation.
	cutoff := time.Now().UTC().Add(-storedWindow)
	var current []model.Suggestion
	for _, s := range ranked {
		if s.LastPurchaseDate != nil && s.LastPurchaseDate.After(cutoff) {
			current = append(current, s)
		}
	}
	nicknames := make([]string, 0, storedTopN)
	for _, s := range current {
		if len(nicknames) == storedTopN {
			break
		}
		nicknames = append(nicknames, s.Nickname)
	}
	return w.suggestions.Upsert(ctx, item.ID, nicknames, current)
}

// posFor infers the point of sale for a buylist row: the international
// buylist account purchases through StubHub, everything else through
// SkyBox.
func (w *Worker) posFor(item model.BuylistItem) string {
	if w.cfg.IntlBuylistAccount != "" && item.AccountID == w.cfg.IntlBuylistAccount {
		return "StubHub"
	}
	return "SkyBox"
}

// companyFor routes a row to the domestic or international purchasing
// company by currency.
func (w *Worker) companyFor(item model.BuylistItem) string {
	switch strings.ToUpper(item.CurrencyCode) {
	case "USD", "CAD":
		return w.cfg.SweepCompanyID
	default:
		return w.cfg.SweepIntlCompanyID
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func invalidEventCode(code *string) bool {
	return code == nil || strings.TrimSpace(*code) == "" || strings.Contains(*code, "?")
}
