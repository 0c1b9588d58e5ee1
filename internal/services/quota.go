package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	userrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/user"
	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

type WindowMode string

const (
	// WindowCalendar resets at local midnight in the policy's location.
	WindowCalendar WindowMode = "calendar"
	// WindowRolling resets 24h after the window opened.
	WindowRolling WindowMode = "rolling"
)

func ParseWindowMode(raw string) (WindowMode, error) {
	switch WindowMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", WindowCalendar:
		return WindowCalendar, nil
	case WindowRolling:
		return WindowRolling, nil
	default:
		return "", fmt.Errorf("unknown quota window %q", raw)
	}
}

type QuotaPolicy struct {
	DailyLimit int
	Window     WindowMode
	Location   *time.Location
}

func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{DailyLimit: 3, Window: WindowCalendar, Location: time.UTC}
}

func (p QuotaPolicy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// windowStart returns the start of the window containing now, given the
// start of the window the stored counter belongs to.
func (p QuotaPolicy) windowStart(stored, now time.Time) time.Time {
	if p.Window == WindowRolling {
		if stored.IsZero() || now.Sub(stored) >= 24*time.Hour {
			return now
		}
		return stored
	}
	local := now.In(p.loc())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.loc())
}

// expired reports whether now has crossed out of the window opened at stored.
func (p QuotaPolicy) expired(stored, now time.Time) bool {
	if stored.IsZero() {
		return true
	}
	if p.Window == WindowRolling {
		return now.Sub(stored) >= 24*time.Hour
	}
	return p.windowStart(stored, now).After(p.windowStart(stored, stored))
}

func (p QuotaPolicy) resetsAt(start time.Time) time.Time {
	if p.Window == WindowRolling {
		return start.Add(24 * time.Hour)
	}
	local := start.In(p.loc())
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, p.loc())
}

// Permit is proof that a reply slot was granted.
type Permit struct {
	Unlimited bool
	Used      int
	Remaining int
}

type QuotaStatus struct {
	IsMember    bool      `json:"is_member"`
	Limit       int       `json:"limit"`
	Used        int       `json:"used"`
	Remaining   int       `json:"remaining"`
	WindowStart time.Time `json:"window_start"`
	ResetsAt    time.Time `json:"resets_at"`
}

type QuotaGate interface {
	// CheckAndConsume admits one reply for the user and counts it, or fails
	// with ErrQuotaExceeded without touching the counter.
	CheckAndConsume(ctx context.Context, userID string) (Permit, error)
	// Status projects the counter as of now without writing.
	Status(ctx context.Context, userID string) (QuotaStatus, error)
}

type quotaGate struct {
	log    *logger.Logger
	users  userrepo.Registry
	policy QuotaPolicy
	now    func() time.Time
}

func NewQuotaGate(log *logger.Logger, users userrepo.Registry, policy QuotaPolicy, now func() time.Time) QuotaGate {
	if policy.DailyLimit <= 0 {
		policy.DailyLimit = DefaultQuotaPolicy().DailyLimit
	}
	if policy.Window == "" {
		policy.Window = WindowCalendar
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &quotaGate{
		log:    log.With("service", "QuotaGate"),
		users:  users,
		policy: policy,
		now:    now,
	}
}

var errQuotaDenied = errors.New("quota denied")

func (q *quotaGate) CheckAndConsume(ctx context.Context, userID string) (Permit, error) {
	var permit Permit
	_, err := q.users.Mutate(ctx, userID, func(u *user.User) error {
		if u.IsMember {
			permit = Permit{Unlimited: true}
			return errMemberNoWrite
		}
		now := q.now()
		if q.policy.expired(u.QuotaWindowStart, now) {
			u.DailyReplyCount = 0
			u.QuotaWindowStart = q.policy.windowStart(u.QuotaWindowStart, now)
		}
		if u.DailyReplyCount >= q.policy.DailyLimit {
			return errQuotaDenied
		}
		u.DailyReplyCount++
		permit = Permit{Used: u.DailyReplyCount, Remaining: q.policy.DailyLimit - u.DailyReplyCount}
		return nil
	})
	switch {
	case err == nil, errors.Is(err, errMemberNoWrite):
		q.log.Debug("Reply admitted", "user_id", userID, "used", permit.Used, "unlimited", permit.Unlimited)
		return permit, nil
	case errors.Is(err, errQuotaDenied):
		q.log.Warn("Reply quota exhausted", "user_id", userID, "limit", q.policy.DailyLimit)
		return Permit{}, quotaErr(q.policy.DailyLimit)
	case errors.Is(err, userrepo.ErrNotFound):
		return Permit{}, notFoundErr("user", userID)
	default:
		return Permit{}, internalErr("consume quota", err)
	}
}

// errMemberNoWrite aborts Mutate for members so the record is not rewritten.
var errMemberNoWrite = errors.New("member: no quota write")

func (q *quotaGate) Status(ctx context.Context, userID string) (QuotaStatus, error) {
	u, err := q.users.Get(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) || errors.Is(err, userrepo.ErrInvalidID) {
		return QuotaStatus{}, notFoundErr("user", userID)
	}
	if err != nil {
		return QuotaStatus{}, internalErr("load user", err)
	}
	now := q.now()
	used, start := u.DailyReplyCount, u.QuotaWindowStart
	if q.policy.expired(start, now) {
		used, start = 0, q.policy.windowStart(start, now)
	}
	st := QuotaStatus{
		IsMember:    u.IsMember,
		Limit:       q.policy.DailyLimit,
		Used:        used,
		WindowStart: start,
		ResetsAt:    q.policy.resetsAt(start),
	}
	if !u.IsMember {
		st.Remaining = q.policy.DailyLimit - used
		if st.Remaining < 0 {
			st.Remaining = 0
		}
	}
	return st, nil
}
