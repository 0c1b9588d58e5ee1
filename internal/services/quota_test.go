package services

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/babetranslator-backend/internal/data/kv"
	userrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

func TestQuotaWindowExpiry(t *testing.T) {
	taipei := time.FixedZone("Asia/Taipei", 8*3600)
	at := func(s string) time.Time {
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		return v
	}
	cases := []struct {
		name   string
		policy QuotaPolicy
		stored string
		now    string
		want   bool
	}{
		{"calendar same day", QuotaPolicy{Window: WindowCalendar}, "2026-10-14T00:00:00Z", "2026-10-14T23:59:59Z", false},
		{"calendar next day", QuotaPolicy{Window: WindowCalendar}, "2026-10-14T23:59:00Z", "2026-10-15T00:00:01Z", true},
		{"calendar local midnight", QuotaPolicy{Window: WindowCalendar, Location: taipei}, "2026-10-14T15:30:00Z", "2026-10-14T16:00:00Z", true},
		{"calendar before local midnight", QuotaPolicy{Window: WindowCalendar, Location: taipei}, "2026-10-14T01:00:00Z", "2026-10-14T15:59:00Z", false},
		{"rolling under 24h", QuotaPolicy{Window: WindowRolling}, "2026-10-14T23:59:00Z", "2026-10-15T23:58:00Z", false},
		{"rolling at 24h", QuotaPolicy{Window: WindowRolling}, "2026-10-14T23:59:00Z", "2026-10-15T23:59:00Z", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.expired(at(tc.stored), at(tc.now)); got != tc.want {
				t.Fatalf("expired = %v, want %v", got, tc.want)
			}
		})
	}
	if !(QuotaPolicy{}).expired(time.Time{}, time.Now()) {
		t.Fatalf("zero window start must count as expired")
	}
}

func TestParseWindowMode(t *testing.T) {
	for raw, want := range map[string]WindowMode{"": WindowCalendar, "Calendar": WindowCalendar, " rolling ": WindowRolling} {
		got, err := ParseWindowMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseWindowMode(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseWindowMode("weekly"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestQuotaStatusProjectsPendingReset(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC))
	users := userrepo.NewRegistry(kv.NewMemory(), logger.Nop(), userrepo.WithClock(clock.Now))
	gate := NewQuotaGate(logger.Nop(), users, DefaultQuotaPolicy(), clock.Now)

	if _, _, err := users.GetOrCreate(ctx, "q"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := gate.CheckAndConsume(ctx, "q"); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	st, err := gate.Status(ctx, "q")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Used != 2 || st.Remaining != 1 || st.Limit != 3 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if want := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC); !st.ResetsAt.Equal(want) {
		t.Fatalf("resets_at = %v, want %v", st.ResetsAt, want)
	}

	clock.Advance(20 * time.Hour)
	st, _ = gate.Status(ctx, "q")
	if st.Used != 0 || st.Remaining != 3 {
		t.Fatalf("status ignores reset: %+v", st)
	}
	u, _ := users.Get(ctx, "q")
	if u.DailyReplyCount != 2 {
		t.Fatalf("Status must not write: %d", u.DailyReplyCount)
	}
}

func TestCheckAndConsumeUnknownUser(t *testing.T) {
	users := userrepo.NewRegistry(kv.NewMemory(), logger.Nop())
	gate := NewQuotaGate(logger.Nop(), users, DefaultQuotaPolicy(), nil)
	_, err := gate.CheckAndConsume(context.Background(), "nobody")
	wantKind(t, err, ErrNotFound, 404)
}
