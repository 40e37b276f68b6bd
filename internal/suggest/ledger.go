package suggest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/repository"
)

const (
	cooloffBaseMinutesKey = "account_base_cooloff_minutes"

	// Fallback when the setting is absent or unreadable: 24 hours.
	defaultCooloffMinutes = 1440
)

// CooloffLedger records purchase-failure offenses against account
// nicknames. Each repeat offense for the same nickname escalates the
// expiry linearly: the Nth offense holds the account out for
// N * base minutes.
type CooloffLedger struct {
	cooloffs CooloffStore
	settings ConfigStore
	log      zerolog.Logger
}

// NewCooloffLedger builds a ledger over the given stores.
func NewCooloffLedger(cooloffs CooloffStore, settings ConfigStore, log zerolog.Logger) *CooloffLedger {
	return &CooloffLedger{cooloffs: cooloffs, settings: settings, log: log}
}

// RecordOffense writes or escalates a penalty for nickname. The base
// duration is read from the settings store on every call so operators
// can tune it without a restart.
func (l *CooloffLedger) RecordOffense(ctx context.Context, nickname, reason string) error {
	base := l.baseMinutes(ctx)
	if err := l.cooloffs.RecordOffense(ctx, nickname, reason, base); err != nil {
		return fmt.Errorf("record cooloff for %q: %w", nickname, err)
	}
	l.log.Info().
		Str("nickname", nickname).
		Str("reason", reason).
		Int("base_minutes", base).
		Msg("cooloff recorded")
	return nil
}

// ActiveCooloffs returns the set of nicknames currently under an
// unexpired penalty.
func (l *CooloffLedger) ActiveCooloffs(ctx context.Context) (map[string]bool, error) {
	names, err := l.cooloffs.ActiveNicknames(ctx)
	if err != nil {
		return nil, fmt.Errorf("active cooloffs: %w", err)
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out, nil
}

func (l *CooloffLedger) baseMinutes(ctx context.Context) int {
	raw, err := l.settings.GetValue(ctx, cooloffBaseMinutesKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			l.log.Warn().Err(err).Msg("reading cooloff base setting, using default")
		}
		return defaultCooloffMinutes
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		l.log.Warn().Str("value", raw).Msg("malformed cooloff base setting, using default")
		return defaultCooloffMinutes
	}
	return v
}
