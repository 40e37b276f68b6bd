package suggest

import (
	"context"
	"time"

	"github.com/tixops/suggest-api/internal/model"
	"github.com/tixops/suggest-api/internal/repository"
)

type stubAccounts struct {
	accounts []model.Account
	err      error
}

func (s *stubAccounts) GetAccountsByCompany(context.Context, string, *string) ([]model.Account, error) {
	return s.accounts, s.err
}

type stubUsage struct {
	eventUsage   map[string]int
	lastUsed     map[string]time.Time
	purchasers   map[string]int
	lastPurchase map[string]time.Time
	forward      map[string]int
	err          error
}

func (s *stubUsage) GetEventUsage(context.Context, string) (map[string]int, error) {
	return s.eventUsage, s.err
}

func (s *stubUsage) GetLastUsed(context.Context, []string) (map[string]time.Time, error) {
	return s.lastUsed, s.err
}

func (s *stubUsage) GetEventPurchasersByEmail(context.Context, string) (map[string]int, error) {
	return s.purchasers, s.err
}

func (s *stubUsage) GetLastPurchaseByEmail(context.Context, []string) (map[string]time.Time, error) {
	return s.lastPurchase, s.err
}

func (s *stubUsage) GetForwardEventCounts(context.Context, []string) (map[string]int, error) {
	return s.forward, s.err
}

type stubSettings struct {
	values map[string]string
}

func (s *stubSettings) GetValue(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

type offense struct {
	nickname    string
	reason      string
	baseMinutes int
}

type stubCooloffs struct {
	active   []string
	offenses []offense
	err      error
}

func (s *stubCooloffs) RecordOffense(_ context.Context, nickname, reason string, baseMinutes int) error {
	if s.err != nil {
		return s.err
	}
	s.offenses = append(s.offenses, offense{nickname, reason, baseMinutes})
	return nil
}

func (s *stubCooloffs) ActiveNicknames(context.Context) ([]string, error) {
	return s.active, s.err
}

type stubLimits struct {
	limits []model.TicketLimit
	err    error
}

func (s *stubLimits) GetByEventCodes(context.Context, []model.TicketLimitQuery) ([]model.TicketLimit, error) {
	return s.limits, s.err
}

type stubTags struct {
	tags map[string][]string
	err  error
}

func (s *stubTags) GetTagsForAccounts(context.Context, []string) (map[string][]string, error) {
	return s.tags, s.err
}

func strPtr(s string) *string { return &s }
