package suggest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/model"
	"github.com/tixops/suggest-api/internal/utils"
)

const (
	// Internal smoke-test account, never surfaced to clients.
	excludedNickname = "ZONE TEVO"

	recentPurchaseWindow = 7 * 24 * time.Hour

	unknownName  = "Unknown Name"
	unknownEmail = "Unknown Email"
	unknownCity  = "Unknown City"
)

// EventContext identifies the event a ranking pass targets.
type EventContext struct {
	EventID      string
	State        string
	NearbyStates []string
	LatLng       *string
}

// Ranker turns candidate accounts into an ordered, filtered suggestion
// list. Two variants share the pipeline: the resale variant keys
// purchase usage by nickname and honors ticket limits and cooloffs;
// the asset variant keys usage by email and has neither concept.
type Ranker struct {
	accounts AccountStore
	usage    UsageStore
	ledger   *CooloffLedger
	log      zerolog.Logger

	// Overridable in tests to pin the tie-break and the 7-day window.
	randFn func() float64
	now    func() time.Time
}

// NewRanker builds a ranker over the given stores.
func NewRanker(accounts AccountStore, usage UsageStore, ledger *CooloffLedger, log zerolog.Logger) *Ranker {
	return &Ranker{
		accounts: accounts,
		usage:    usage,
		ledger:   ledger,
		log:      log,
		randFn:   rand.Float64,
		now:      time.Now,
	}
}

// RankResale ranks a company's accounts for event purchasing. Usage is
// keyed by account nickname; accounts at or over ticketLimit sort last,
// as do accounts under an active cooloff. The limit is attached to
// every surviving row.
func (r *Ranker) RankResale(ctx context.Context, ev EventContext, companyID string, pos *string, ticketLimit int) ([]model.Suggestion, error) {
	usage, err := r.usage.GetEventUsage(ctx, ev.EventID)
	if err != nil {
		return nil, fmt.Errorf("event usage for %q: %w", ev.EventID, err)
	}
	excluded, err := r.ledger.ActiveCooloffs(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := r.accounts.GetAccountsByCompany(ctx, companyID, pos)
	if err != nil {
		return nil, fmt.Errorf("accounts for company %q: %w", companyID, err)
	}

	rows := r.buildRows(ev, accounts, func(a model.Account) int { return usage[a.Nickname] }, excluded)

	nicknames := make([]string, 0, len(rows))
	for i := range rows {
		nicknames = append(nicknames, rows[i].s.Nickname)
	}
	lastUsed, err := r.usage.GetLastUsed(ctx, nicknames)
	if err != nil {
		return nil, fmt.Errorf("last-used lookup: %w", err)
	}
	forward, err := r.usage.GetForwardEventCounts(ctx, knownEmails(rows))
	if err != nil {
		return nil, fmt.Errorf("forward-event lookup: %w", err)
	}
	for i := range rows {
		if t, ok := lastUsed[rows[i].s.Nickname]; ok {
			tc := t
			rows[i].s.LastPurchaseDate = &tc
		}
		if n, ok := forward[strings.ToLower(rows[i].s.Email)]; ok {
			nc := n
			rows[i].s.ForwardEvents = &nc
		}
	}
	r.markNameMatches(rows)

	r.sortRows(rows, &ticketLimit)
	out := finalize(rows, &ticketLimit, nil)
	return out, nil
}

// RankAsset ranks accounts for asset-style purchasing. Usage is keyed
// by email, there is no ticket limit and no cooloff. A non-nil
// freshLimit restricts the result to accounts with no purchase history
// for the event at all, truncated to that many entries.
func (r *Ranker) RankAsset(ctx context.Context, ev EventContext, companyID string, pos *string, freshLimit *int) ([]model.Suggestion, error) {
	usage, err := r.usage.GetEventPurchasersByEmail(ctx, ev.EventID)
	if err != nil {
		return nil, fmt.Errorf("event purchasers for %q: %w", ev.EventID, err)
	}
	accounts, err := r.accounts.GetAccountsByCompany(ctx, companyID, pos)
	if err != nil {
		return nil, fmt.Errorf("accounts for company %q: %w", companyID, err)
	}

	rows := r.buildRows(ev, accounts, func(a model.Account) int {
		if a.Email == nil {
			return 0
		}
		return usage[strings.ToLower(*a.Email)]
	}, nil)

	emails := knownEmails(rows)
	lastPurchase, err := r.usage.GetLastPurchaseByEmail(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("last-purchase lookup: %w", err)
	}
	forward, err := r.usage.GetForwardEventCounts(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("forward-event lookup: %w", err)
	}
	for i := range rows {
		key := strings.ToLower(rows[i].s.Email)
		if t, ok := lastPurchase[key]; ok {
			tc := t
			rows[i].s.LastPurchaseDate = &tc
		}
		if n, ok := forward[key]; ok {
			nc := n
			rows[i].s.ForwardEvents = &nc
		}
	}
	r.markNameMatches(rows)

	r.sortRows(rows, nil)
	out := finalize(rows, nil, freshLimit)
	return out, nil
}

// row pairs a suggestion-in-progress with its precomputed sort key.
type row struct {
	s   model.Suggestion
	key sortKey
}

type sortKey struct {
	overLimit bool
	cooloff   bool
	nameMatch bool
	purchased int
	notRecent bool
	distance  float64
	proximity int
	forward   int
	random    float64
	lastAt    time.Time
	state     string
	city      string
}

func (r *Ranker) buildRows(ev EventContext, accounts []model.Account, purchasedFor func(model.Account) int, excluded map[string]bool) []row {
	var evLat, evLng float64
	evCoords := false
	if ev.LatLng != nil {
		evLat, evLng, evCoords = utils.ParseLatLng(*ev.LatLng)
	}
	nearby := make(map[string]bool, len(ev.NearbyStates))
	for _, st := range ev.NearbyStates {
		nearby[st] = true
	}

	rows := make([]row, 0, len(accounts))
	for _, a := range accounts {
		s := model.Suggestion{
			ID:         a.ID,
			StatusCode: a.StatusCode,
			Nickname:   a.Nickname,
			Name:       unknownName,
			Email:      unknownEmail,
			Location:   model.Location{City: unknownCity, State: a.State},
		}
		if a.FullName != nil && *a.FullName != "" {
			s.Name = *a.FullName
		}
		if a.Email != nil && *a.Email != "" {
			s.Email = *a.Email
		}
		if a.MetroArea != nil && *a.MetroArea != "" {
			s.Location.City = *a.MetroArea
		}
		s.HasPurchasedEvent = purchasedFor(a)

		switch {
		case a.State == ev.State:
			s.Proximity = 1
		case nearby[a.State]:
			s.Proximity = 2
		default:
			s.Proximity = 3
		}
		if evCoords && a.LatLng != nil {
			if lat, lng, ok := utils.ParseLatLng(*a.LatLng); ok {
				d := utils.Haversine(lat, lng, evLat, evLng)
				s.Distance = &d
			}
		}
		if excluded != nil {
			c := excluded[a.Nickname]
			s.Cooloff = &c
		}
		rows = append(rows, row{s: s})
	}
	return rows
}

// markNameMatches flags accounts whose display name also appears on an
// account that has already purchased the event.
func (r *Ranker) markNameMatches(rows []row) {
	purchasers := make(map[string]bool)
	for i := range rows {
		if rows[i].s.HasPurchasedEvent > 0 && rows[i].s.Name != unknownName {
			purchasers[rows[i].s.Name] = true
		}
	}
	for i := range rows {
		rows[i].s.NamePurchasedEvent = purchasers[rows[i].s.Name]
	}
}

// sortRows computes the sort key for every row and orders them. A
// non-nil ticketLimit enables the resale-only terms (limit saturation
// and cooloff).
func (r *Ranker) sortRows(rows []row, ticketLimit *int) {
	cutoff := r.now().Add(-recentPurchaseWindow)
	for i := range rows {
		s := &rows[i].s
		k := sortKey{
			nameMatch: s.NamePurchasedEvent,
			purchased: s.HasPurchasedEvent,
			notRecent: true,
			distance:  math.Inf(1),
			proximity: s.Proximity,
			forward:   -1,
			state:     s.Location.State,
			city:      s.Location.City,
		}
		if ticketLimit != nil {
			k.overLimit = s.HasPurchasedEvent >= *ticketLimit
			k.cooloff = s.Cooloff != nil && *s.Cooloff
		}
		if s.LastPurchaseDate != nil {
			k.lastAt = *s.LastPurchaseDate
			if s.LastPurchaseDate.After(cutoff) {
				k.notRecent = false
				// Shuffle only the recently-active accounts so the
				// same few names do not monopolize the top slots.
				k.random = r.randFn()
			}
		}
		if s.Distance != nil {
			k.distance = *s.Distance
		}
		if s.ForwardEvents != nil {
			k.forward = *s.ForwardEvents
		}
		rows[i].key = k
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].key.less(rows[j].key)
	})
}

func (k sortKey) less(o sortKey) bool {
	if k.overLimit != o.overLimit {
		return !k.overLimit
	}
	if k.cooloff != o.cooloff {
		return !k.cooloff
	}
	if k.nameMatch != o.nameMatch {
		return !k.nameMatch
	}
	if k.purchased != o.purchased {
		return k.purchased < o.purchased
	}
	if k.notRecent != o.notRecent {
		return !k.notRecent
	}
	if k.distance != o.distance {
		return k.distance < o.distance
	}
	if k.proximity != o.proximity {
		return k.proximity < o.proximity
	}
	if k.forward != o.forward {
		return k.forward < o.forward
	}
	if k.random != o.random {
		return k.random < o.random
	}
	if !k.lastAt.Equal(o.lastAt) {
		return k.lastAt.Before(o.lastAt)
	}
	if k.state != o.state {
		return k.state < o.state
	}
	return k.city < o.city
}

// finalize filters the sorted rows, assigns 1-based ranks and attaches
// the ticket limit when one applies.
func finalize(rows []row, ticketLimit *int, freshLimit *int) []model.Suggestion {
	out := make([]model.Suggestion, 0, len(rows))
	for i := range rows {
		s := rows[i].s
		if s.StatusCode != model.AccountStatusActive {
			continue
		}
		if s.LastPurchaseDate == nil {
			continue
		}
		if s.Nickname == excludedNickname {
			continue
		}
		if freshLimit != nil && (s.NamePurchasedEvent || s.HasPurchasedEvent > 0) {
			continue
		}
		if ticketLimit != nil {
			tl := *ticketLimit
			s.TicketLimit = &tl
		}
		s.Rank = len(out) + 1
		out = append(out, s)
		if freshLimit != nil && len(out) >= *freshLimit {
			break
		}
	}
	return out
}

func knownEmails(rows []row) []string {
	out := make([]string, 0, len(rows))
	for i := range rows {
		if rows[i].s.Email != unknownEmail {
			out = append(out, rows[i].s.Email)
		}
	}
	return out
}
