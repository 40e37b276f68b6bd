package suggest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecordOffenseUsesConfiguredBase(t *testing.T) {
	store := &stubCooloffs{}
	settings := &stubSettings{values: map[string]string{
		cooloffBaseMinutesKey: "60",
	}}
	l := NewCooloffLedger(store, settings, zerolog.Nop())

	if err := l.RecordOffense(context.Background(), "nick-1", "U102"); err != nil {
		t.Fatal(err)
	}
	if len(store.offenses) != 1 {
		t.Fatalf("recorded %d offenses, want 1", len(store.offenses))
	}
	got := store.offenses[0]
	if got.nickname != "nick-1" || got.reason != "U102" || got.baseMinutes != 60 {
		t.Fatalf("unexpected offense record: %+v", got)
	}
}

func TestRecordOffenseFallsBackOnBadSetting(t *testing.T) {
	cases := map[string]map[string]string{
		"missing":   {},
		"malformed": {cooloffBaseMinutesKey: "a day"},
		"negative":  {cooloffBaseMinutesKey: "-5"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			store := &stubCooloffs{}
			l := NewCooloffLedger(store, &stubSettings{values: values}, zerolog.Nop())
			if err := l.RecordOffense(context.Background(), "nick", "PAUSED"); err != nil {
				t.Fatal(err)
			}
			if store.offenses[0].baseMinutes != defaultCooloffMinutes {
				t.Fatalf("base minutes = %d, want default %d",
					store.offenses[0].baseMinutes, defaultCooloffMinutes)
			}
		})
	}
}

func TestActiveCooloffs(t *testing.T) {
	store := &stubCooloffs{active: []string{"a", "b"}}
	l := NewCooloffLedger(store, &stubSettings{}, zerolog.Nop())

	got, err := l.ActiveCooloffs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got["a"] || !got["b"] {
		t.Fatalf("unexpected active set: %v", got)
	}
}
