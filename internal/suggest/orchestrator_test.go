package suggest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/config"
	"github.com/tixops/suggest-api/internal/model"
)

func newTestOrchestrator(accounts *stubAccounts, usage *stubUsage, tags *stubTags) *Orchestrator {
	settings := &stubSettings{values: map[string]string{defaultTicketLimitKey: "4"}}
	r := newTestRanker(accounts, usage, nil)
	resolver := NewTicketLimitResolver(&stubLimits{}, settings, zerolog.Nop())
	cfg := config.Config{
		ResaleCompanyIDs: []string{"resale-co"},
		AssetCompanyIDs:  []string{"asset-co"},
	}
	return NewOrchestrator(r, resolver, tags, cfg, zerolog.Nop())
}

func bulkFixtures() (*stubAccounts, *stubUsage) {
	old := fixedNow().Add(-20 * 24 * time.Hour)
	accounts := &stubAccounts{accounts: []model.Account{
		account("alpha", "TX"),
		account("beta", "OK"),
	}}
	usage := &stubUsage{
		eventUsage: map[string]int{},
		lastUsed: map[string]time.Time{
			"alpha": old,
			"beta":  old,
		},
	}
	return accounts, usage
}

func TestRankManyMergesPerEvent(t *testing.T) {
	accounts, usage := bulkFixtures()
	o := newTestOrchestrator(accounts, usage, &stubTags{})

	events := []BulkEvent{
		{EventID: "EV1", State: "TX"},
		{EventID: "EV2", State: "OK"},
	}
	got, err := o.RankMany(context.Background(), events, []string{"resale-co"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	for _, ev := range events {
		list := got[ev.EventID]
		if len(list) != 2 {
			t.Fatalf("event %s: got %d suggestions, want 2", ev.EventID, len(list))
		}
		for i, s := range list {
			if s.Rank != i+1 {
				t.Errorf("event %s: position %d has rank %d", ev.EventID, i, s.Rank)
			}
			if s.TicketLimit == nil || *s.TicketLimit != 4 {
				t.Errorf("event %s: %q missing the shared default limit", ev.EventID, s.Nickname)
			}
		}
	}
	// Proximity follows each event's own state.
	if got["EV1"][0].Nickname != "alpha" {
		t.Errorf("EV1 should rank the Texas account first, got %v", nicknamesOf(got["EV1"]))
	}
	if got["EV2"][0].Nickname != "beta" {
		t.Errorf("EV2 should rank the Oklahoma account first, got %v", nicknamesOf(got["EV2"]))
	}
}

func TestRankManyUnknownCompanyFails(t *testing.T) {
	accounts, usage := bulkFixtures()
	o := newTestOrchestrator(accounts, usage, &stubTags{})

	_, err := o.RankMany(context.Background(),
		[]BulkEvent{{EventID: "EV1", State: "TX"}},
		[]string{"mystery-co"}, nil)
	if err == nil {
		t.Fatal("expected error for a company in no suggestion group")
	}
}

func TestRankManyTagFilter(t *testing.T) {
	accounts, usage := bulkFixtures()
	tags := &stubTags{tags: map[string][]string{
		"id-alpha": {"vip", "west"},
		"id-beta":  {"west"},
	}}
	o := newTestOrchestrator(accounts, usage, tags)
	events := []BulkEvent{{EventID: "EV1", State: "TX"}}

	t.Run("AND HAS", func(t *testing.T) {
		got, err := o.RankMany(context.Background(), events, []string{"resale-co"}, &TagFilter{
			Tags:             []string{"vip", "west"},
			LogicalOperator:  TagOperatorAnd,
			PresenceOperator: TagPresenceHas,
		})
		if err != nil {
			t.Fatal(err)
		}
		list := got["EV1"]
		if len(list) != 1 || list[0].Nickname != "alpha" {
			t.Fatalf("got %v, want only alpha", nicknamesOf(list))
		}
		if list[0].Rank != 1 {
			t.Errorf("rank not reassigned after filter: %d", list[0].Rank)
		}
	})

	t.Run("OR HAS", func(t *testing.T) {
		got, err := o.RankMany(context.Background(), events, []string{"resale-co"}, &TagFilter{
			Tags:             []string{"vip", "west"},
			LogicalOperator:  TagOperatorOr,
			PresenceOperator: TagPresenceHas,
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(got["EV1"]) != 2 {
			t.Fatalf("got %v, want both accounts", nicknamesOf(got["EV1"]))
		}
	})

	t.Run("AND DOES NOT HAVE", func(t *testing.T) {
		got, err := o.RankMany(context.Background(), events, []string{"resale-co"}, &TagFilter{
			Tags:             []string{"vip"},
			LogicalOperator:  TagOperatorAnd,
			PresenceOperator: TagPresenceHasNot,
		})
		if err != nil {
			t.Fatal(err)
		}
		list := got["EV1"]
		if len(list) != 1 || list[0].Nickname != "beta" {
			t.Fatalf("got %v, want only beta", nicknamesOf(list))
		}
	})
}
