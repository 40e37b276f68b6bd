package suggest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/model"
	"github.com/tixops/suggest-api/internal/utils"
)

// Tag filter operators accepted by RankMany.
const (
	TagOperatorAnd = "AND"
	TagOperatorOr  = "OR"

	TagPresenceHas    = "HAS"
	TagPresenceHasNot = "DOES NOT HAVE"
)

// BulkEvent is one event in a bulk suggestion request.
type BulkEvent struct {
	EventID   string  `json:"eventId"`
	State     string  `json:"state"`
	LatLng    *string `json:"latLng"`
	EventName *string `json:"eventName"`
}

// TagFilter restricts a merged bulk result to accounts matching a tag
// predicate.
type TagFilter struct {
	Tags             []string
	LogicalOperator  string
	PresenceOperator string
}

// Orchestrator fans bulk suggestion requests out across (event,
// company) pairs, merges each event's per-company results, and applies
// the optional tag filter to the merged lists.
type Orchestrator struct {
	ranker   *Ranker
	resolver *TicketLimitResolver
	tags     TagStore
	groups   CompanyGrouper
	log      zerolog.Logger
}

// NewOrchestrator builds an orchestrator over the given collaborators.
func NewOrchestrator(ranker *Ranker, resolver *TicketLimitResolver, tags TagStore, groups CompanyGrouper, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{ranker: ranker, resolver: resolver, tags: tags, groups: groups, log: log}
}

// RankMany ranks every (event, company) pair concurrently and returns
// one merged, ordered list per event id. Within an event the
// per-company lists are concatenated in company order; across events
// nothing is shared. Any ranking failure fails the whole call.
func (o *Orchestrator) RankMany(ctx context.Context, events []BulkEvent, companies []string, filter *TagFilter) (map[string][]model.Suggestion, error) {
	limits, err := o.resolveLimits(ctx, events, companies)
	if err != nil {
		return nil, err
	}

	type result struct {
		eventIdx int
		compIdx  int
		suggs    []model.Suggestion
		err      error
	}
	results := make(chan result, len(events)*len(companies))
	var wg sync.WaitGroup
	for ei, ev := range events {
		ectx := EventContext{
			EventID:      ev.EventID,
			State:        ev.State,
			NearbyStates: utils.NearbyStates(ev.State),
			LatLng:       ev.LatLng,
		}
		for ci, company := range companies {
			wg.Add(1)
			go func(ei, ci int, ectx EventContext, company string) {
				defer wg.Done()
				suggs, err := o.rankOne(ctx, ectx, company, limits[ectx.EventID])
				results <- result{eventIdx: ei, compIdx: ci, suggs: suggs, err: err}
			}(ei, ci, ectx, company)
		}
	}
	wg.Wait()
	close(results)

	// Reassemble in (event, company) order so responses are stable
	// regardless of goroutine completion order.
	perPair := make([][][]model.Suggestion, len(events))
	for i := range perPair {
		perPair[i] = make([][]model.Suggestion, len(companies))
	}
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		perPair[res.eventIdx][res.compIdx] = res.suggs
	}

	merged := make(map[string][]model.Suggestion, len(events))
	for ei, ev := range events {
		var list []model.Suggestion
		for ci := range companies {
			list = append(list, perPair[ei][ci]...)
		}
		merged[ev.EventID] = list
	}

	if filter != nil && len(filter.Tags) > 0 {
		if err := o.applyTagFilter(ctx, merged, filter); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// resolveLimits batches the ticket-limit lookup for all events at
// once. The default is read a single time, and only when some company
// actually ranks with limits.
func (o *Orchestrator) resolveLimits(ctx context.Context, events []BulkEvent, companies []string) (map[string]int, error) {
	needed := false
	for _, c := range companies {
		if o.groups.IsResaleCompany(c) {
			needed = true
			break
		}
	}
	if !needed {
		return map[string]int{}, nil
	}
	def := o.resolver.DefaultLimit(ctx)
	queries := make([]model.TicketLimitQuery, 0, len(events))
	for i := range events {
		queries = append(queries, model.TicketLimitQuery{ID: events[i].EventID, EventCode: events[i].EventID})
	}
	return o.resolver.ResolveBatch(ctx, queries, def)
}

func (o *Orchestrator) rankOne(ctx context.Context, ectx EventContext, company string, limit int) ([]model.Suggestion, error) {
	switch {
	case o.groups.IsResaleCompany(company):
		return o.ranker.RankResale(ctx, ectx, company, nil, limit)
	case o.groups.IsAssetCompany(company):
		return o.ranker.RankAsset(ctx, ectx, company, nil, nil)
	default:
		return nil, fmt.Errorf("company %q is not assigned to a suggestion group", company)
	}
}

// applyTagFilter fetches tags for every account id appearing in any
// merged list in one batch, then filters each list in place. Accounts
// without an id never pass the filter.
func (o *Orchestrator) applyTagFilter(ctx context.Context, merged map[string][]model.Suggestion, filter *TagFilter) error {
	idSet := make(map[string]bool)
	for _, list := range merged {
		for i := range list {
			if list[i].ID != "" {
				idSet[list[i].ID] = true
			}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	tagsByID, err := o.tags.GetTagsForAccounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("tag lookup: %w", err)
	}

	for eventID, list := range merged {
		kept := list[:0]
		for i := range list {
			if list[i].ID == "" {
				continue
			}
			if matchesTagFilter(tagsByID[list[i].ID], filter) {
				list[i].Rank = len(kept) + 1
				kept = append(kept, list[i])
			}
		}
		merged[eventID] = kept
	}
	return nil
}

func matchesTagFilter(accountTags []string, filter *TagFilter) bool {
	have := make(map[string]bool, len(accountTags))
	for _, t := range accountTags {
		have[t] = true
	}
	wantPresent := filter.PresenceOperator != TagPresenceHasNot

	matched := 0
	for _, t := range filter.Tags {
		if have[t] == wantPresent {
			matched++
		}
	}
	if filter.LogicalOperator == TagOperatorOr {
		return matched > 0
	}
	return matched == len(filter.Tags)
}
