package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/babetranslator-backend/internal/data/kv"
	types "github.com/yungbote/babetranslator-backend/internal/domain/conversation"
	"github.com/yungbote/babetranslator-backend/internal/platform/keylock"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

var (
	ErrNotFound      = errors.New("conversation not found")
	ErrInvalidID     = errors.New("user id required")
	ErrInvalidSource = errors.New("invalid message source")
)

// Store owns the ordered, append-only message history of every user.
type Store interface {
	// Ensure creates an empty record when none exists.
	Ensure(ctx context.Context, userID string) error
	// Append stamps the message id and created_at at commit time and returns
	// the stored message together with the new message count.
	Append(ctx context.Context, userID string, msg types.Message) (types.Message, int, error)
	// Get returns a copy of the messages in commit order.
	Get(ctx context.Context, userID string) ([]types.Message, error)
}

type Option func(*store)

func WithClock(now func() time.Time) Option {
	return func(s *store) {
		if now != nil {
			s.now = now
		}
	}
}

type store struct {
	kv    kv.Store
	locks *keylock.Locker
	log   *logger.Logger
	now   func() time.Time
}

func NewStore(backing kv.Store, baseLog *logger.Logger, opts ...Option) Store {
	s := &store{
		kv:    backing,
		locks: keylock.New(),
		log:   baseLog.With("repo", "ConversationStore"),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(userID string) string { return "conversation:" + userID }

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return id, nil
}

func (s *store) Ensure(ctx context.Context, userID string) error {
	userID, err := normalizeID(userID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(&types.Record{UserID: userID, Messages: []types.Message{}, CreatedAt: s.now()})
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	created, err := s.kv.PutIfAbsent(ctx, key(userID), raw)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	if created {
		s.log.Debug("Conversation created", "user_id", userID)
	}
	return nil
}

func (s *store) Append(ctx context.Context, userID string, msg types.Message) (types.Message, int, error) {
	userID, err := normalizeID(userID)
	if err != nil {
		return types.Message{}, 0, err
	}
	if !msg.Source.Valid() {
		return types.Message{}, 0, fmt.Errorf("%w: %q", ErrInvalidSource, msg.Source)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.load(ctx, userID)
	if err != nil {
		return types.Message{}, 0, err
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = s.now()
	// Keep created_at non-decreasing even if the wall clock steps back.
	if n := len(rec.Messages); n > 0 && msg.CreatedAt.Before(rec.Messages[n-1].CreatedAt) {
		msg.CreatedAt = rec.Messages[n-1].CreatedAt
	}
	rec.Messages = append(rec.Messages, msg)

	raw, err := json.Marshal(rec)
	if err != nil {
		return types.Message{}, 0, fmt.Errorf("encode conversation: %w", err)
	}
	if err := s.kv.Put(ctx, key(userID), raw); err != nil {
		return types.Message{}, 0, fmt.Errorf("save conversation: %w", err)
	}
	return msg, len(rec.Messages), nil
}

func (s *store) Get(ctx context.Context, userID string) ([]types.Message, error) {
	userID, err := normalizeID(userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.Snapshot(), nil
}

func (s *store) load(ctx context.Context, userID string) (*types.Record, error) {
	raw, err := s.kv.Get(ctx, key(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	var rec types.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &rec, nil
}
