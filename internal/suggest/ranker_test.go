package suggest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func newTestRanker(accounts *stubAccounts, usage *stubUsage, active []string) *Ranker {
	ledger := NewCooloffLedger(&stubCooloffs{active: active}, &stubSettings{}, zerolog.Nop())
	r := NewRanker(accounts, usage, ledger, zerolog.Nop())
	r.now = fixedNow
	r.randFn = func() float64 { return 0.5 }
	return r
}

func account(nickname, state string, opts ...func(*model.Account)) model.Account {
	a := model.Account{
		ID:         "id-" + nickname,
		Nickname:   nickname,
		StatusCode: model.AccountStatusActive,
		Email:      strPtr(nickname + "@example.com"),
		FullName:   strPtr("Name " + nickname),
		State:      state,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func withLatLng(s string) func(*model.Account) {
	return func(a *model.Account) { a.LatLng = &s }
}

func withStatus(s string) func(*model.Account) {
	return func(a *model.Account) { a.StatusCode = s }
}

func TestRankResaleOrderingAndFilter(t *testing.T) {
	old := fixedNow().Add(-30 * 24 * time.Hour)
	accounts := &stubAccounts{accounts: []model.Account{
		account("maxed", "TX"),
		account("cooled", "TX"),
		account("far", "WA", withLatLng("47.6,-122.3")),
		account("near", "TX", withLatLng("32.8,-96.7")),
		account("ZONE TEVO", "TX"),
		account("paused", "TX", withStatus("PAUSED")),
		account("never", "TX"),
	}}
	usage := &stubUsage{
		eventUsage: map[string]int{"maxed": 4},
		lastUsed: map[string]time.Time{
			"maxed":     old,
			"cooled":    old,
			"far":       old,
			"near":      old,
			"ZONE TEVO": old,
			"paused":    old,
		},
		forward: map[string]int{"near@example.com": 2, "far@example.com": 5},
	}
	r := newTestRanker(accounts, usage, []string{"cooled"})

	venue := "32.7,-96.8"
	got, err := r.RankResale(context.Background(), EventContext{
		EventID:      "EV1",
		State:        "TX",
		NearbyStates: []string{"OK", "NM"},
		LatLng:       &venue,
	}, "company-1", strPtr("SkyBox"), 4)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"near", "far", "cooled", "maxed"}
	if len(got) != len(want) {
		t.Fatalf("got %d suggestions %v, want %d", len(got), nicknamesOf(got), len(want))
	}
	for i, nick := range want {
		if got[i].Nickname != nick {
			t.Fatalf("position %d: got %q, want %q (full order %v)", i, got[i].Nickname, nick, nicknamesOf(got))
		}
		if got[i].Rank != i+1 {
			t.Errorf("%q rank = %d, want %d", nick, got[i].Rank, i+1)
		}
		if got[i].TicketLimit == nil || *got[i].TicketLimit != 4 {
			t.Errorf("%q ticket limit not attached", nick)
		}
	}

	if got[0].Proximity != 1 {
		t.Errorf("near proximity = %d, want 1", got[0].Proximity)
	}
	if got[1].Proximity != 3 {
		t.Errorf("far proximity = %d, want 3", got[1].Proximity)
	}
	if got[0].Distance == nil || *got[0].Distance > 20 {
		t.Errorf("near distance = %v, want a few kilometers", got[0].Distance)
	}
	if got[2].Cooloff == nil || !*got[2].Cooloff {
		t.Errorf("cooled should carry the cooloff flag")
	}
}

func TestRankResaleEnrichmentFailureAborts(t *testing.T) {
	accounts := &stubAccounts{accounts: []model.Account{account("a", "TX")}}
	usage := &stubUsage{err: context.DeadlineExceeded}
	r := newTestRanker(accounts, usage, nil)

	if _, err := r.RankResale(context.Background(), EventContext{EventID: "EV1", State: "TX"}, "c", strPtr("SkyBox"), 4); err == nil {
		t.Fatal("expected error when usage lookup fails")
	}
}

func TestRankAssetOrdersPurchasersLast(t *testing.T) {
	recent := fixedNow().Add(-2 * 24 * time.Hour)
	accounts := &stubAccounts{accounts: []model.Account{
		account("buyer", "TX"),
		account("fresh1", "TX"),
		account("fresh2", "MT"),
	}}
	usage := &stubUsage{
		purchasers: map[string]int{"buyer@example.com": 2},
		lastPurchase: map[string]time.Time{
			"buyer@example.com":  recent,
			"fresh1@example.com": recent,
			"fresh2@example.com": recent.Add(-time.Hour),
		},
	}
	r := newTestRanker(accounts, usage, nil)

	got, err := r.RankAsset(context.Background(), EventContext{EventID: "EV2", State: "TX"}, "company-2", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"fresh1", "fresh2", "buyer"}
	for i, nick := range want {
		if got[i].Nickname != nick {
			t.Fatalf("position %d: got %q, want %q (full order %v)", i, got[i].Nickname, nick, nicknamesOf(got))
		}
	}
	for _, s := range got {
		if s.Cooloff != nil {
			t.Errorf("%q: asset suggestions must not carry a cooloff flag", s.Nickname)
		}
		if s.TicketLimit != nil {
			t.Errorf("%q: asset suggestions must not carry a ticket limit", s.Nickname)
		}
	}
}

func TestRankAssetFreshLimit(t *testing.T) {
	recent := fixedNow().Add(-2 * 24 * time.Hour)
	accounts := &stubAccounts{accounts: []model.Account{
		account("buyer", "TX"),
		account("fresh1", "TX"),
		account("fresh2", "MT"),
	}}
	usage := &stubUsage{
		purchasers: map[string]int{"buyer@example.com": 1},
		lastPurchase: map[string]time.Time{
			"buyer@example.com":  recent,
			"fresh1@example.com": recent,
			"fresh2@example.com": recent,
		},
	}
	r := newTestRanker(accounts, usage, nil)

	one := 1
	got, err := r.RankAsset(context.Background(), EventContext{EventID: "EV2", State: "TX"}, "company-2", nil, &one)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d suggestions %v, want 1", len(got), nicknamesOf(got))
	}
	if got[0].Nickname == "buyer" {
		t.Fatal("fresh shortlist must exclude accounts with purchase history")
	}
	if got[0].Rank != 1 {
		t.Fatalf("rank = %d, want 1", got[0].Rank)
	}
}

func nicknamesOf(suggs []model.Suggestion) []string {
	out := make([]string, len(suggs))
	for i := range suggs {
		out[i] = suggs[i].Nickname
	}
	return out
}
