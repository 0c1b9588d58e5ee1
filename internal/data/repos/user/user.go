package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/babetranslator-backend/internal/data/kv"
	types "github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/keylock"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrInvalidID = errors.New("user id required")
)

// Registry owns user identity, membership and quota counters. Every mutation
// for an id runs under that id's exclusive lock.
type Registry interface {
	// GetOrCreate is idempotent; created reports whether this call made the user.
	GetOrCreate(ctx context.Context, id string) (u *types.User, created bool, err error)
	Get(ctx context.Context, id string) (*types.User, error)
	UpdateProfile(ctx context.Context, id string, upd types.ProfileUpdate) (*types.User, error)
	// Mutate applies fn to the stored user atomically. When fn fails nothing is written.
	Mutate(ctx context.Context, id string, fn func(u *types.User) error) (*types.User, error)
}

type Option func(*registry)

func WithClock(now func() time.Time) Option {
	return func(r *registry) {
		if now != nil {
			r.now = now
		}
	}
}

type registry struct {
	store kv.Store
	locks *keylock.Locker
	log   *logger.Logger
	now   func() time.Time
}

func NewRegistry(store kv.Store, baseLog *logger.Logger, opts ...Option) Registry {
	r := &registry{
		store: store,
		locks: keylock.New(),
		log:   baseLog.With("repo", "UserRegistry"),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func key(id string) string { return "user:" + id }

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return id, nil
}

func (r *registry) GetOrCreate(ctx context.Context, id string) (*types.User, bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, false, err
	}
	if u, err := r.load(ctx, id); err == nil {
		return u, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := r.now()
	fresh := &types.User{
		ID:               id,
		IsMember:         false,
		DailyReplyCount:  0,
		QuotaWindowStart: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	raw, err := json.Marshal(fresh)
	if err != nil {
		return nil, false, fmt.Errorf("encode user: %w", err)
	}
	created, err := r.store.PutIfAbsent(ctx, key(id), raw)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	if created {
		r.log.Debug("User created", "user_id", id)
		return fresh, true, nil
	}
	// Lost the race to a concurrent creator; theirs is the user.
	u, err := r.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}

func (r *registry) Get(ctx context.Context, id string) (*types.User, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	return r.load(ctx, id)
}

func (r *registry) UpdateProfile(ctx context.Context, id string, upd types.ProfileUpdate) (*types.User, error) {
	if upd.PersonalityType != nil && *upd.PersonalityType != "" && !upd.PersonalityType.Valid() {
		return nil, fmt.Errorf("invalid personality type %q", *upd.PersonalityType)
	}
	return r.Mutate(ctx, id, func(u *types.User) error {
		if upd.PersonalityType != nil {
			u.PersonalityType = *upd.PersonalityType
		}
		if upd.IsMember != nil {
			u.IsMember = *upd.IsMember
		}
		return nil
	})
}

func (r *registry) Mutate(ctx context.Context, id string, fn func(u *types.User) error) (*types.User, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(id)
	defer unlock()

	u, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.ID = id
	u.UpdatedAt = r.now()
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	if err := r.store.Put(ctx, key(id), raw); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u.Clone(), nil
}

func (r *registry) load(ctx context.Context, id string) (*types.User, error) {
	raw, err := r.store.Get(ctx, key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	var u types.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
